package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/openshelf/bookharvest/internal/checkpoint"
)

// RunSummary is the operator-facing outcome of one invocation.
type RunSummary struct {
	Job           string
	StoppedReason string
	Processed     int
	Failed        int
	Remaining     int
	QuotaUsed     int
	Stats         checkpoint.Stats
	Elapsed       time.Duration
}

// WriteSummary renders the final human-readable run summary. It always
// reports processed/failed/remaining and the stop reason, whatever terminal
// state the run reached.
func WriteSummary(w io.Writer, s RunSummary) error {
	_, err := fmt.Fprintf(w,
		"job %s: %s\n"+
			"  processed: %d  failed: %d  remaining: %d\n"+
			"  results found: %d  newly enriched: %d  downstream jobs: %d  cache hits: %d\n"+
			"  remote calls: %d  elapsed: %s\n",
		s.Job,
		s.StoppedReason,
		s.Processed,
		s.Failed,
		s.Remaining,
		s.Stats.ResultsFound,
		s.Stats.NewlyEnriched,
		s.Stats.DownstreamJobsQueued,
		s.Stats.CacheHits,
		s.QuotaUsed,
		s.Elapsed.Round(time.Second),
	)
	if err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}
