// Package checkpoint persists harvest job progress so interrupted runs can
// resume without reprocessing completed work.
package checkpoint

import "time"

// Failure records one item that ended in a non-retryable local error or a
// remote skip signal, together with the reason operators will triage by.
type Failure struct {
	Identity string `json:"identity"`
	Reason   string `json:"error"`
}

// Stats holds the aggregate throughput counters for a job.
type Stats struct {
	ItemsExamined        int `json:"items_examined"`
	ResultsFound         int `json:"results_found"`
	NewlyEnriched        int `json:"newly_enriched"`
	DownstreamJobsQueued int `json:"downstream_jobs_queued"`
	CacheHits            int `json:"cache_hits"`
}

// Deltas carries the per-item counter increments applied by MarkProcessed.
type Deltas struct {
	ResultsFound         int
	NewlyEnriched        int
	DownstreamJobsQueued int
	CacheHit             bool
}

// Record is the persisted checkpoint document. Processed holds terminal
// outcomes in dispatch order; Failed items stay retryable on a future resume.
type Record struct {
	Processed   []string  `json:"processed"`
	Failed      []Failure `json:"failed"`
	Stats       Stats     `json:"stats"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Total       int       `json:"total,omitempty"`
}

// Summary is the aggregate view surfaced to reporters and the status API.
type Summary struct {
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	Total          int       `json:"total,omitempty"`
	Stats          Stats     `json:"stats"`
	StartedAt      time.Time `json:"started_at"`
	LastUpdated    time.Time `json:"last_updated"`
}
