package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/api"
	"github.com/openshelf/bookharvest/internal/checkpoint"
	"github.com/openshelf/bookharvest/internal/client"
	"github.com/openshelf/bookharvest/internal/clock/system"
	"github.com/openshelf/bookharvest/internal/config"
	"github.com/openshelf/bookharvest/internal/harvest"
	uuidgen "github.com/openshelf/bookharvest/internal/id/uuid"
	"github.com/openshelf/bookharvest/internal/notify"
	"github.com/openshelf/bookharvest/internal/progress"
	"github.com/openshelf/bookharvest/internal/progress/sinks"
	"github.com/openshelf/bookharvest/internal/quota"
)

const (
	hubCloseTimeout = 10 * time.Second
	notifyTimeout   = 15 * time.Second
)

func newHarvestCmd() *cobra.Command {
	var (
		src          sourceFlags
		dryRun       bool
		fresh        bool
		retryFailed  bool
		retryReasons []string
	)

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run the enrichment harvest over the selected work list",
		Long: `Enumerates the work list, subtracts items the checkpoint already
covers, and dispatches one enrichment call per remaining item with a fixed
delay between calls. The run stops on its own when the list completes, when
the remote daily quota is exhausted, or on SIGINT/SIGTERM; in every case the
checkpoint is flushed so the next invocation resumes where this one stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cmd.Context(), src, dryRun, fresh, retryFailed, retryReasons)
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "enumerate and report only; no remote calls, no checkpoint writes")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore any existing checkpoint and start over")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "clear all recorded failures so those items are retried")
	cmd.Flags().StringSliceVar(&retryReasons, "retry-reason", nil, "clear only failures with these reasons (implies --retry-failed)")

	return cmd
}

func runHarvest(ctx context.Context, src sourceFlags, dryRun, fresh, retryFailed bool, retryReasons []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("close checkpoint store", zap.Error(closeErr))
		}
	}()

	freshStart := fresh
	if fresh {
		logger.Info("ignoring any existing checkpoint", zap.String("job", cfg.Job.Name))
	} else {
		switch loadErr := store.Load(ctx); {
		case loadErr == nil:
			sum := store.Summary()
			logger.Info("resuming from checkpoint",
				zap.String("job", cfg.Job.Name),
				zap.Int("processed", sum.ProcessedCount),
				zap.Int("failed", sum.FailedCount),
			)
		case errors.Is(loadErr, checkpoint.ErrNotExist):
			logger.Info("no checkpoint found, starting fresh", zap.String("job", cfg.Job.Name))
			freshStart = true
		default:
			// Covers ErrCorrupt too: never silently discard the last good
			// checkpoint.
			return loadErr
		}
	}

	if retryFailed || len(retryReasons) > 0 {
		cleared := store.ResetFailures(retryReasons...)
		logger.Info("failures reset for retry",
			zap.Int("cleared", cleared),
			zap.Strings("reasons", retryReasons),
		)
	}

	source, err := src.build(cfg, logger)
	if err != nil {
		return err
	}
	items, err := source.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", source.Describe(), err)
	}
	logger.Info("work list enumerated",
		zap.String("source", source.Describe()),
		zap.Int("items", len(items)),
	)
	if freshStart {
		store.Initialize(len(items))
	}

	var enricher client.Enricher
	if !dryRun {
		remote, remoteErr := newRemoteClient(cfg, logger)
		if remoteErr != nil {
			return remoteErr
		}
		enricher = remote
	}
	tracker := quota.NewTracker(cfg.Quota.DailyCeiling, cfg.Quota.SafetyMarginPct)

	var (
		registry *prometheus.Registry
		hubSinks = []progress.Sink{sinks.NewLogSink(logger)}
	)
	if cfg.Server.Enabled {
		registry = prometheus.NewRegistry()
		promSink, sinkErr := sinks.NewPrometheusSink(registry)
		if sinkErr != nil {
			return sinkErr
		}
		hubSinks = append(hubSinks, promSink)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
		defer cancel()
		if closeErr := hub.Close(closeCtx); closeErr != nil {
			logger.Warn("close progress hub", zap.Error(closeErr))
		}
	}()

	notifier, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := notifier.Close(); closeErr != nil {
			logger.Warn("close notifier", zap.Error(closeErr))
		}
	}()

	runner := harvest.NewRunner(harvest.Config{
		Job:            cfg.Job.Name,
		Delay:          cfg.Delay(),
		FlushEvery:     cfg.Harvest.FlushEvery,
		HeartbeatEvery: cfg.Harvest.HeartbeatEvery,
		DryRun:         dryRun,
		MaxPages:       cfg.Remote.MaxPages,
		Priority:       cfg.Remote.Priority,
		Source:         cfg.Remote.Source,
	}, store, enricher, tracker, nil, uuidgen.NewGenerator(), system.New(), hub, logger)

	var srvDone chan error
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()
	if cfg.Server.Enabled {
		srv := api.NewServer(runner, store, registry, logger)
		srvDone = make(chan error, 1)
		go func() {
			srvDone <- srv.Serve(srvCtx, fmt.Sprintf(":%d", cfg.Server.Port))
		}()
	}

	outcome, runErr := runner.Run(ctx, items)

	srvCancel()
	if srvDone != nil {
		if srvErr := <-srvDone; srvErr != nil {
			logger.Warn("status server stopped with error", zap.Error(srvErr))
		}
	}

	publishNotice(cfg, runner, outcome, logger, notifier)

	if err := progress.WriteSummary(os.Stdout, progress.RunSummary{
		Job:           cfg.Job.Name,
		StoppedReason: outcome.StoppedReason,
		Processed:     outcome.Processed,
		Failed:        outcome.Failed,
		Remaining:     outcome.Remaining,
		QuotaUsed:     outcome.QuotaUsed,
		Stats:         store.Summary().Stats,
		Elapsed:       outcome.Elapsed,
	}); err != nil {
		logger.Warn("write run summary", zap.Error(err))
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("run interrupted by operator; checkpoint flushed")
			return nil
		}
		return runErr
	}
	return nil
}

func publishNotice(cfg config.Config, runner *harvest.Runner, outcome harvest.Outcome, logger *zap.Logger, notifier notify.Publisher) {
	// The run context may already be canceled; the notice gets its own.
	noticeCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	notice := notify.NoticeFor(cfg.Job.Name, runner.Status().RunID, outcome, time.Now())
	if err := notifier.PublishRun(noticeCtx, notice); err != nil {
		logger.Warn("publish run notice", zap.Error(err))
	}
}

// buildStore selects the checkpoint backend from configuration.
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "file":
		return checkpoint.NewFileStore(cfg.Checkpoint.Path, logger)
	case "postgres":
		return checkpoint.NewPostgresStore(ctx, cfg.Checkpoint.DSN, cfg.Job.Name)
	case "gcs":
		object := path.Join(cfg.Checkpoint.Prefix, cfg.Job.Name+".json")
		return checkpoint.NewGCSStore(ctx, cfg.Checkpoint.Bucket, object, logger)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Checkpoint.Backend)
	}
}

func buildNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Publisher, error) {
	switch cfg.Notify.Backend {
	case "pubsub":
		return notify.NewPubSubPublisher(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID, logger)
	default:
		return notify.NoOpPublisher{}, nil
	}
}
