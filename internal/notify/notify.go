// Package notify publishes run-lifecycle notifications so downstream
// schedulers can react to a finished or quota-stopped harvest.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openshelf/bookharvest/internal/harvest"
)

// RunNotice is the JSON payload published when a run reaches a terminal
// state.
type RunNotice struct {
	Job            string    `json:"job"`
	RunID          string    `json:"run_id"`
	State          string    `json:"state"`
	StoppedReason  string    `json:"stopped_reason"`
	Processed      int       `json:"processed"`
	Failed         int       `json:"failed"`
	Remaining      int       `json:"remaining"`
	QuotaUsed      int       `json:"quota_used"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	FinishedAt     time.Time `json:"finished_at"`
}

// NoticeFor builds the payload for a finished run.
func NoticeFor(job, runID string, o harvest.Outcome, finishedAt time.Time) RunNotice {
	return RunNotice{
		Job:            job,
		RunID:          runID,
		State:          string(o.State),
		StoppedReason:  o.StoppedReason,
		Processed:      o.Processed,
		Failed:         o.Failed,
		Remaining:      o.Remaining,
		QuotaUsed:      o.QuotaUsed,
		ElapsedSeconds: o.Elapsed.Seconds(),
		FinishedAt:     finishedAt.UTC(),
	}
}

func (n RunNotice) encode() ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode run notice: %w", err)
	}
	return data, nil
}

// Publisher delivers run notices to the configured backend.
type Publisher interface {
	// PublishRun delivers one terminal-state notice and waits for the
	// backend's acknowledgment.
	PublishRun(ctx context.Context, notice RunNotice) error

	// Close cleans up client connections and resources.
	Close() error
}

// NoOpPublisher discards notices. It is the default backend and keeps the
// dispatcher wiring uniform when no queue is configured.
type NoOpPublisher struct{}

// PublishRun does nothing and returns nil.
func (NoOpPublisher) PublishRun(context.Context, RunNotice) error { return nil }

// Close does nothing and returns nil.
func (NoOpPublisher) Close() error { return nil }
