package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// Sentinel errors returned by Load.
var (
	// ErrCorrupt signals the persisted checkpoint does not parse. The run
	// must abort loudly rather than silently discard the last good state.
	ErrCorrupt = errors.New("corrupt checkpoint")
	// ErrNotExist signals no checkpoint has been persisted yet.
	ErrNotExist = errors.New("checkpoint does not exist")
)

// Store is the durable record of which items are done, which failed, and the
// aggregate counters. Exactly one dispatcher owns a Store for a run's
// lifetime; Summary alone may be read from other goroutines.
type Store interface {
	// Initialize creates a fresh checkpoint when no resume is requested.
	Initialize(total int)
	// Load deserializes the persisted checkpoint. Returns ErrNotExist when
	// nothing was persisted yet and ErrCorrupt when the structure does not
	// parse.
	Load(ctx context.Context) error
	// Remaining returns all minus processed minus failed, preserving input
	// order. Calling it twice with the same state yields identical output.
	Remaining(all []catalog.Item) []catalog.Item
	// MarkProcessed appends identity to the processed set and applies the
	// counter deltas. A previously failed identity moves out of failed.
	MarkProcessed(identity string, d Deltas)
	// MarkFailed records identity with a reason. It never touches the
	// processed set, so the item stays retryable on a future resume.
	MarkFailed(identity, reason string)
	// ResetFailures drops failure entries so those items re-enter
	// Remaining. With no arguments all failures reset; otherwise only the
	// given reasons. Returns the number of entries dropped.
	ResetFailures(reasons ...string) int
	// Flush durably persists the current state with an atomic replace.
	Flush(ctx context.Context) error
	// Summary returns the aggregate counters.
	Summary() Summary
	// Close releases backend resources. It does not flush.
	Close() error
}

// journal is the in-memory checkpoint state shared by every Store backend.
// The mutex exists solely for the status server goroutine reading Summary;
// the single dispatcher is the only writer.
type journal struct {
	mu        sync.Mutex
	rec       Record
	processed map[string]struct{}
	failedIdx map[string]int
	now       func() time.Time
}

func newJournal() journal {
	return journal{
		processed: make(map[string]struct{}),
		failedIdx: make(map[string]int),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Initialize resets the journal to an empty record.
func (j *journal) Initialize(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	j.rec = Record{
		Processed:   []string{},
		Failed:      []Failure{},
		StartedAt:   now,
		LastUpdated: now,
		Total:       total,
	}
	j.processed = make(map[string]struct{})
	j.failedIdx = make(map[string]int)
}

// adopt replaces the journal state with a loaded record and rebuilds the
// lookup indexes.
func (j *journal) adopt(rec Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec.Processed == nil {
		rec.Processed = []string{}
	}
	if rec.Failed == nil {
		rec.Failed = []Failure{}
	}
	j.rec = rec
	j.processed = make(map[string]struct{}, len(rec.Processed))
	for _, id := range rec.Processed {
		j.processed[id] = struct{}{}
	}
	j.failedIdx = make(map[string]int, len(rec.Failed))
	for i, f := range rec.Failed {
		j.failedIdx[f.Identity] = i
	}
}

// Remaining filters out every identity with a terminal or failed outcome,
// preserving input order.
func (j *journal) Remaining(all []catalog.Item) []catalog.Item {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]catalog.Item, 0, len(all))
	for _, item := range all {
		if _, done := j.processed[item.Identity]; done {
			continue
		}
		if _, failed := j.failedIdx[item.Identity]; failed {
			continue
		}
		out = append(out, item)
	}
	return out
}

// MarkProcessed records a terminal success outcome for identity.
func (j *journal) MarkProcessed(identity string, d Deltas) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, done := j.processed[identity]; done {
		return
	}
	j.removeFailureLocked(identity)
	j.processed[identity] = struct{}{}
	j.rec.Processed = append(j.rec.Processed, identity)
	j.rec.Stats.ItemsExamined++
	j.rec.Stats.ResultsFound += d.ResultsFound
	j.rec.Stats.NewlyEnriched += d.NewlyEnriched
	j.rec.Stats.DownstreamJobsQueued += d.DownstreamJobsQueued
	if d.CacheHit {
		j.rec.Stats.CacheHits++
	}
	j.rec.LastUpdated = j.now()
}

// MarkFailed records identity in the failed list. Repeated failures keep one
// entry with the latest reason.
func (j *journal) MarkFailed(identity, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, done := j.processed[identity]; done {
		return
	}
	if i, ok := j.failedIdx[identity]; ok {
		j.rec.Failed[i].Reason = reason
	} else {
		j.failedIdx[identity] = len(j.rec.Failed)
		j.rec.Failed = append(j.rec.Failed, Failure{Identity: identity, Reason: reason})
		j.rec.Stats.ItemsExamined++
	}
	j.rec.LastUpdated = j.now()
}

// ResetFailures drops failure entries, optionally filtered by reason.
func (j *journal) ResetFailures(reasons ...string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	match := func(string) bool { return true }
	if len(reasons) > 0 {
		set := make(map[string]struct{}, len(reasons))
		for _, r := range reasons {
			set[r] = struct{}{}
		}
		match = func(reason string) bool {
			_, ok := set[reason]
			return ok
		}
	}
	kept := j.rec.Failed[:0]
	dropped := 0
	for _, f := range j.rec.Failed {
		if match(f.Reason) {
			dropped++
			continue
		}
		kept = append(kept, f)
	}
	j.rec.Failed = kept
	j.failedIdx = make(map[string]int, len(kept))
	for i, f := range kept {
		j.failedIdx[f.Identity] = i
	}
	if dropped > 0 {
		j.rec.Stats.ItemsExamined -= dropped
		j.rec.LastUpdated = j.now()
	}
	return dropped
}

// Summary returns the aggregate counters.
func (j *journal) Summary() Summary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Summary{
		ProcessedCount: len(j.rec.Processed),
		FailedCount:    len(j.rec.Failed),
		Total:          j.rec.Total,
		Stats:          j.rec.Stats,
		StartedAt:      j.rec.StartedAt,
		LastUpdated:    j.rec.LastUpdated,
	}
}

// marshal serializes the record under the lock.
func (j *journal) marshal() ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := json.MarshalIndent(j.rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return data, nil
}

func (j *journal) removeFailureLocked(identity string) {
	i, ok := j.failedIdx[identity]
	if !ok {
		return
	}
	j.rec.Failed = append(j.rec.Failed[:i], j.rec.Failed[i+1:]...)
	delete(j.failedIdx, identity)
	for k := i; k < len(j.rec.Failed); k++ {
		j.failedIdx[j.rec.Failed[k].Identity] = k
	}
	// The failed attempt already counted toward items examined; the retry
	// succeeding should not count the item twice.
	j.rec.Stats.ItemsExamined--
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}
