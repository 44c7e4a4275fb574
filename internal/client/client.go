// Package client talks to the remote enrichment/search API.
package client

import (
	"context"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// HarvestRequest is the per-item enrichment call payload.
type HarvestRequest struct {
	Identity string `json:"identity"`
	Kind     string `json:"kind,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
	Priority string `json:"priority,omitempty"`
	Source   string `json:"source,omitempty"`
}

// HarvestResult is the success response for one enrichment call. The remote
// pipeline owns downstream queueing; these counters are its acknowledgment.
type HarvestResult struct {
	ResultsFound         int  `json:"results_found"`
	NewlyEnriched        int  `json:"newly_enriched"`
	DownstreamJobsQueued int  `json:"downstream_jobs_queued"`
	Cached               bool `json:"cached"`
}

// Enricher issues one enrichment call per candidate item. Implementations
// must not retry internally; the dispatcher owns the retry decision.
type Enricher interface {
	Harvest(ctx context.Context, req HarvestRequest) (HarvestResult, error)
}

// CatalogQuerier pages through the remote catalog by popularity tier.
type CatalogQuerier interface {
	Query(ctx context.Context, tier catalog.Tier, offset, limit int) ([]catalog.Item, error)
}
