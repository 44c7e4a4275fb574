package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookharvest/internal/catalog"
)

func items(ids ...string) []catalog.Item {
	out := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Item{Identity: id, Kind: catalog.KindAuthor})
	}
	return out
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"), nil)
	require.NoError(t, err)
	return store
}

func TestRemainingIsIdempotentAndOrderStable(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	store.Initialize(5)
	store.MarkProcessed("a", Deltas{})
	store.MarkProcessed("c", Deltas{})

	all := items("a", "b", "c", "d", "e")
	first := store.Remaining(all)
	second := store.Remaining(all)
	assert.Equal(t, items("b", "d", "e"), first)
	assert.Equal(t, first, second)
}

func TestPartitionInvariant(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	store.Initialize(5)
	all := items("a", "b", "c", "d", "e")

	store.MarkProcessed("a", Deltas{})
	store.MarkFailed("b", "rate_limited")
	store.MarkProcessed("d", Deltas{})

	summary := store.Summary()
	remaining := store.Remaining(all)
	assert.Equal(t, 2, summary.ProcessedCount)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, items("c", "e"), remaining)
	assert.Equal(t, len(all), summary.ProcessedCount+summary.FailedCount+len(remaining))
}

func TestMarkSemantics(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	store.Initialize(3)

	// A failed item that later succeeds moves out of failed.
	store.MarkFailed("a", "rate_limited")
	store.MarkProcessed("a", Deltas{ResultsFound: 2})
	summary := store.Summary()
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.Zero(t, summary.FailedCount)
	assert.Equal(t, 1, summary.Stats.ItemsExamined)
	assert.Equal(t, 2, summary.Stats.ResultsFound)

	// A processed item never re-enters failed.
	store.MarkFailed("a", "late failure")
	assert.Zero(t, store.Summary().FailedCount)

	// Duplicate marks are no-ops.
	store.MarkProcessed("a", Deltas{ResultsFound: 99})
	assert.Equal(t, 2, store.Summary().Stats.ResultsFound)

	// Repeated failures keep one entry with the latest reason.
	store.MarkFailed("b", "timeout")
	store.MarkFailed("b", "rate_limited")
	summary = store.Summary()
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 2, summary.Stats.ItemsExamined)
}

func TestResetFailures(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	store.Initialize(4)
	store.MarkFailed("a", "rate_limited")
	store.MarkFailed("b", "quota_exhausted")
	store.MarkFailed("c", "connection refused")

	dropped := store.ResetFailures("rate_limited", "quota_exhausted")
	assert.Equal(t, 2, dropped)
	assert.Equal(t, items("a", "b", "d"), store.Remaining(items("a", "b", "c", "d")))

	dropped = store.ResetFailures()
	assert.Equal(t, 1, dropped)
	assert.Zero(t, store.Summary().FailedCount)
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	ctx := context.Background()

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	store.Initialize(4)
	store.MarkProcessed("a", Deltas{ResultsFound: 3, NewlyEnriched: 1, DownstreamJobsQueued: 1})
	store.MarkProcessed("b", Deltas{CacheHit: true})
	store.MarkFailed("c", "rate_limited")
	require.NoError(t, store.Flush(ctx))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())

	reloaded, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))

	summary := reloaded.Summary()
	assert.Equal(t, 2, summary.ProcessedCount)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Stats.ItemsExamined)
	assert.Equal(t, 3, summary.Stats.ResultsFound)
	assert.Equal(t, 1, summary.Stats.CacheHits)
	assert.Equal(t, items("d"), reloaded.Remaining(items("a", "b", "c", "d")))
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.NoError(t, err)
	err = store.Load(context.Background())
	require.ErrorIs(t, err, ErrNotExist)
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	err = store.Load(context.Background())
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestFlushOverwritesPrevious(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	ctx := context.Background()

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	store.Initialize(2)
	store.MarkProcessed("a", Deltas{})
	require.NoError(t, store.Flush(ctx))
	store.MarkProcessed("b", Deltas{})
	require.NoError(t, store.Flush(ctx))

	reloaded, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2, reloaded.Summary().ProcessedCount)
}
