package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/checkpoint"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted checkpoint for the configured job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			store, err := buildStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					logger.Warn("close checkpoint store", zap.Error(closeErr))
				}
			}()

			if err := store.Load(cmd.Context()); err != nil {
				if errors.Is(err, checkpoint.ErrNotExist) {
					fmt.Printf("job %s: no checkpoint\n", cfg.Job.Name)
					return nil
				}
				return err
			}

			sum := store.Summary()
			fmt.Printf("job %s\n", cfg.Job.Name)
			fmt.Printf("  processed: %d  failed: %d", sum.ProcessedCount, sum.FailedCount)
			if sum.Total > 0 {
				fmt.Printf("  total: %d", sum.Total)
			}
			fmt.Println()
			fmt.Printf("  results found: %d  newly enriched: %d  downstream jobs: %d  cache hits: %d\n",
				sum.Stats.ResultsFound,
				sum.Stats.NewlyEnriched,
				sum.Stats.DownstreamJobsQueued,
				sum.Stats.CacheHits,
			)
			fmt.Printf("  started: %s  last updated: %s\n",
				sum.StartedAt.Format(time.RFC3339),
				sum.LastUpdated.Format(time.RFC3339),
			)
			return nil
		},
	}
}
