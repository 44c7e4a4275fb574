package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/catalog"
	"github.com/openshelf/bookharvest/internal/checkpoint"
	"github.com/openshelf/bookharvest/internal/client"
	"github.com/openshelf/bookharvest/internal/progress"
	"github.com/openshelf/bookharvest/internal/quota"
)

// finalFlushTimeout bounds the last-chance flush on the exit path, which
// runs on a fresh context because the run context may already be canceled.
const finalFlushTimeout = 10 * time.Second

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}

// Config controls one Runner.
type Config struct {
	// Job names the harvest job for logs and summaries.
	Job string
	// Delay is the minimum gap between consecutive remote calls.
	Delay time.Duration
	// FlushEvery persists the checkpoint after this many recorded outcomes.
	FlushEvery int
	// HeartbeatEvery emits a RUN_HEARTBEAT after this many items; 0 disables.
	HeartbeatEvery int
	// DryRun short-circuits the dispatch step only: enumeration and
	// reporting run, but no remote calls happen and the checkpoint is
	// never touched.
	DryRun bool
	// MaxPages, Priority, Source are forwarded on every harvest request.
	MaxPages int
	Priority string
	Source   string
}

// Runner drives the sequential dispatch loop. It owns the checkpoint store
// exclusively for the run's lifetime; only Status may be called from other
// goroutines.
type Runner struct {
	cfg      Config
	store    checkpoint.Store
	enricher client.Enricher
	tracker  *quota.Tracker
	pacer    Pacer
	clock    Clock
	emitter  progress.Emitter
	logger   *zap.Logger
	runID    uuid.UUID

	mu   sync.Mutex
	snap Snapshot
}

// NewRunner constructs a Runner in the READY state.
func NewRunner(
	cfg Config,
	store checkpoint.Store,
	enricher client.Enricher,
	tracker *quota.Tracker,
	pacer Pacer,
	ids IDGenerator,
	clk Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 25
	}
	if pacer == nil {
		pacer = NewPacer(cfg.Delay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var runID uuid.UUID
	if ids != nil {
		if id, err := ids.NewRunID(); err == nil {
			runID = id
		}
	}
	if runID == (uuid.UUID{}) {
		runID = uuid.New()
	}
	r := &Runner{
		cfg:      cfg,
		store:    store,
		enricher: enricher,
		tracker:  tracker,
		pacer:    pacer,
		clock:    clk,
		emitter:  emitter,
		logger:   logger,
		runID:    runID,
	}
	r.snap = Snapshot{RunID: runID.String(), Job: cfg.Job, State: StateReady}
	return r
}

// Status returns the live run snapshot for the status API.
func (r *Runner) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Run iterates the remaining candidates in order, issuing one harvest call
// per item. Whatever terminal state is reached, the checkpoint has been
// flushed covering every state change made during the run; only
// checkpoint-store failures and cancellation surface as errors.
func (r *Runner) Run(ctx context.Context, items []catalog.Item) (outcome Outcome, err error) {
	start := r.clock.Now()
	remaining := r.store.Remaining(items)

	r.setState(StateRunning, start, len(remaining))
	r.emit(progress.Event{
		Stage:     progress.StageRunStart,
		Remaining: int64(len(remaining)),
		Note:      fmt.Sprintf("job %s", r.cfg.Job),
	})
	r.logger.Info("harvest run starting",
		zap.String("job", r.cfg.Job),
		zap.String("run_id", r.runID.String()),
		zap.Int("candidates", len(items)),
		zap.Int("remaining", len(remaining)),
		zap.Bool("dry_run", r.cfg.DryRun),
	)

	if r.cfg.DryRun {
		outcome = r.finish(StateCompleted, ReasonDryRun, items, start)
		return outcome, nil
	}

	// Last-flush-on-exit: this is the cancellation contract. An interrupted
	// run must leave Remaining correct for the next resume.
	flushed := false
	defer func() {
		if flushed {
			return
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		if flushErr := r.store.Flush(flushCtx); flushErr != nil {
			r.logger.Error("final checkpoint flush failed", zap.Error(flushErr))
			if err == nil {
				err = fmt.Errorf("final checkpoint flush: %w", flushErr)
				outcome.State = StateStoppedError
				outcome.StoppedReason = ReasonError
			}
		}
	}()

	state := StateCompleted
	reason := ReasonCompleted
	examined := 0
	sinceFlush := 0
	warnedApproaching := false

loop:
	for _, item := range remaining {
		if pauseErr := r.pacer.Wait(ctx); pauseErr != nil {
			state, reason, err = StateStoppedError, ReasonError, fmt.Errorf("run interrupted: %w", pauseErr)
			break
		}
		if ctx.Err() != nil {
			state, reason, err = StateStoppedError, ReasonError, fmt.Errorf("run interrupted: %w", ctx.Err())
			break
		}
		if !r.tracker.CanProceed() {
			state, reason = StateStoppedQuota, ReasonQuotaExhausted
			break
		}

		callStart := r.clock.Now()
		result, callErr := r.enricher.Harvest(ctx, client.HarvestRequest{
			Identity: item.Identity,
			Kind:     string(item.Kind),
			MaxPages: r.cfg.MaxPages,
			Priority: r.priorityFor(item),
			Source:   r.cfg.Source,
		})
		r.tracker.RecordCall()
		dur := r.clock.Now().Sub(callStart)

		if callErr != nil && ctx.Err() != nil {
			// Interrupted mid-call: the item has no terminal outcome and
			// stays in Remaining for the next resume.
			state, reason, err = StateStoppedError, ReasonError, fmt.Errorf("run interrupted: %w", ctx.Err())
			break
		}

		switch quota.ClassifyError(callErr) {
		case quota.ClassOK:
			r.store.MarkProcessed(item.Identity, checkpoint.Deltas{
				ResultsFound:         result.ResultsFound,
				NewlyEnriched:        result.NewlyEnriched,
				DownstreamJobsQueued: result.DownstreamJobsQueued,
				CacheHit:             result.Cached,
			})
			examined++
			r.emitItem(progress.StageItemDone, item.Identity, "", dur, len(remaining)-examined)
		case quota.ClassRateLimited:
			r.store.MarkFailed(item.Identity, client.ReasonRateLimited)
			examined++
			r.emitItem(progress.StageItemError, item.Identity, client.ReasonRateLimited, dur, len(remaining)-examined)
			r.logger.Warn("item rate limited, continuing",
				zap.String("identity", item.Identity))
		case quota.ClassQuotaExhausted:
			r.store.MarkFailed(item.Identity, client.ReasonQuotaExhausted)
			r.tracker.MarkExhausted()
			examined++
			r.emitItem(progress.StageItemError, item.Identity, client.ReasonQuotaExhausted, dur, len(remaining)-examined)
			r.logger.Warn("remote quota exhausted, stopping run",
				zap.String("identity", item.Identity),
				zap.Int("quota_used", r.tracker.Snapshot().Used))
			if flushErr := r.store.Flush(ctx); flushErr != nil {
				state, reason, err = StateStoppedError, ReasonError, fmt.Errorf("checkpoint flush: %w", flushErr)
				break loop
			}
			flushed = true
			state, reason = StateStoppedQuota, ReasonQuotaExhausted
			break loop
		case quota.ClassOtherError:
			r.store.MarkFailed(item.Identity, callErr.Error())
			examined++
			r.emitItem(progress.StageItemError, item.Identity, callErr.Error(), dur, len(remaining)-examined)
			r.logger.Warn("item failed, continuing",
				zap.String("identity", item.Identity),
				zap.Error(callErr))
		}

		r.updateCounts(len(remaining) - examined)

		if !warnedApproaching && r.tracker.ApproachingLimit() {
			warnedApproaching = true
			r.logger.Warn("approaching known quota ceiling",
				zap.Int("used", r.tracker.Snapshot().Used),
				zap.Int("ceiling", r.tracker.Snapshot().Ceiling))
			r.emitHeartbeat(len(remaining)-examined, "approaching_limit")
		}

		sinceFlush++
		if sinceFlush >= r.cfg.FlushEvery {
			if flushErr := r.store.Flush(ctx); flushErr != nil {
				// Checkpoint write failure is fatal and loud: abort without
				// claiming further progress.
				state, reason, err = StateStoppedError, ReasonError, fmt.Errorf("checkpoint flush: %w", flushErr)
				break
			}
			sinceFlush = 0
		}
		if r.cfg.HeartbeatEvery > 0 && examined%r.cfg.HeartbeatEvery == 0 {
			r.emitHeartbeat(len(remaining)-examined, "")
		}
	}

	outcome = r.finish(state, reason, items, start)
	return outcome, err
}

// finish computes the Outcome, updates the snapshot, and emits RUN_DONE.
func (r *Runner) finish(state State, reason string, items []catalog.Item, start time.Time) Outcome {
	summary := r.store.Summary()
	left := len(r.store.Remaining(items))
	elapsed := r.clock.Now().Sub(start)

	r.mu.Lock()
	r.snap.State = state
	r.snap.Processed = summary.ProcessedCount
	r.snap.Failed = summary.FailedCount
	r.snap.Remaining = left
	r.snap.Quota = r.tracker.Snapshot()
	r.mu.Unlock()

	r.emit(progress.Event{
		Stage:     progress.StageRunDone,
		Reason:    reason,
		Processed: int64(summary.ProcessedCount),
		Failed:    int64(summary.FailedCount),
		Remaining: int64(left),
		Dur:       elapsed,
	})
	r.logger.Info("harvest run finished",
		zap.String("job", r.cfg.Job),
		zap.String("state", string(state)),
		zap.String("reason", reason),
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("failed", summary.FailedCount),
		zap.Int("remaining", left),
	)
	return Outcome{
		State:         state,
		StoppedReason: reason,
		Processed:     summary.ProcessedCount,
		Failed:        summary.FailedCount,
		Remaining:     left,
		QuotaUsed:     r.tracker.Snapshot().Used,
		Elapsed:       elapsed,
	}
}

// priorityFor prefers the per-item tier over the run-wide priority.
func (r *Runner) priorityFor(item catalog.Item) string {
	if item.Tier != "" {
		return string(item.Tier)
	}
	return r.cfg.Priority
}

func (r *Runner) setState(state State, startedAt time.Time, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.State = state
	r.snap.StartedAt = startedAt
	r.snap.Remaining = remaining
}

func (r *Runner) updateCounts(remaining int) {
	summary := r.store.Summary()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Processed = summary.ProcessedCount
	r.snap.Failed = summary.FailedCount
	r.snap.Remaining = remaining
	r.snap.Quota = r.tracker.Snapshot()
}

func (r *Runner) emit(evt progress.Event) {
	if r.emitter == nil {
		return
	}
	evt.RunID = progress.UUIDToBytes(r.runID)
	evt.TS = r.clock.Now()
	evt.QuotaUsed = int64(r.tracker.Snapshot().Used)
	r.emitter.Emit(evt)
}

func (r *Runner) emitItem(stage progress.Stage, identity, reason string, dur time.Duration, remaining int) {
	summary := r.store.Summary()
	r.emit(progress.Event{
		Stage:     stage,
		Identity:  identity,
		Reason:    reason,
		Processed: int64(summary.ProcessedCount),
		Failed:    int64(summary.FailedCount),
		Remaining: int64(remaining),
		Dur:       dur,
	})
}

func (r *Runner) emitHeartbeat(remaining int, note string) {
	summary := r.store.Summary()
	r.emit(progress.Event{
		Stage:     progress.StageRunHB,
		Processed: int64(summary.ProcessedCount),
		Failed:    int64(summary.FailedCount),
		Remaining: int64(remaining),
		Note:      note,
	})
}
