package enumerate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookharvest/internal/catalog"
)

func TestListSourceDedupesAndNormalizes(t *testing.T) {
	t.Parallel()

	src := ListSource{Raw: []string{
		"Terry Pratchett",
		"  terry   pratchett ",
		"978-0-306-40615-7",
		"",
		"9780306406157",
	}}
	items, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "terry pratchett", items[0].Identity)
	assert.Equal(t, catalog.KindAuthor, items[0].Kind)
	assert.Equal(t, "9780306406157", items[1].Identity)
	assert.Equal(t, catalog.KindISBN, items[1].Kind)
}

func TestListSourceEmptyFails(t *testing.T) {
	t.Parallel()

	_, err := ListSource{}.Enumerate(context.Background())
	require.Error(t, err)
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCSVSourceWithHeader(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "rank,author\n1,Ursula K. Le Guin\n2,Terry Pratchett\n3,Ursula K. Le Guin\n")
	src := CSVSource{Path: path, Column: "author", Tier: catalog.TierHot}

	items, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ursula k. le guin", items[0].Identity)
	assert.Equal(t, catalog.TierHot, items[0].Tier)
	assert.Equal(t, "terry pratchett", items[1].Identity)
}

func TestCSVSourceWithoutHeader(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "0306406152\n043942089X\n")
	items, err := CSVSource{Path: path}.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, catalog.KindISBN, items[0].Kind)
}

func TestCSVSourceFailsFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		col  string
	}{
		{"missing column", "rank,author\n1,Somebody\n", "isbn"},
		{"ragged row", "author,rank\nSomebody,1\nShortRow\n", "rank"},
		{"unbalanced quotes", "author\n\"broken\n", ""},
		{"empty file", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeCSV(t, tc.body)
			_, err := CSVSource{Path: path, Column: tc.col}.Enumerate(context.Background())
			require.Error(t, err)
		})
	}
}

// stubQuerier serves a fixed tier listing in pages and counts calls.
type stubQuerier struct {
	items []catalog.Item
	calls int
}

func (s *stubQuerier) Query(_ context.Context, _ catalog.Tier, offset, limit int) ([]catalog.Item, error) {
	s.calls++
	if offset >= len(s.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[offset:end], nil
}

func tierItems(n int) []catalog.Item {
	out := make([]catalog.Item, n)
	for i := range out {
		out[i] = catalog.Item{
			Identity: string(rune('a' + i%26)),
			Kind:     catalog.KindAuthor,
			Tier:     catalog.TierWarm,
		}
	}
	return out
}

func TestTierSourcePagesThrough(t *testing.T) {
	t.Parallel()

	q := &stubQuerier{items: tierItems(1200)}
	src := TierSource{Client: q, Tier: catalog.TierWarm}

	items, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1200)
	assert.Equal(t, 3, q.calls, "two full pages and one short page")
}

func TestTierSourceHonorsOffsetAndLimit(t *testing.T) {
	t.Parallel()

	q := &stubQuerier{items: tierItems(100)}
	src := TierSource{Client: q, Tier: catalog.TierWarm, Offset: 10, Limit: 25}

	items, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 25)
	assert.Equal(t, q.items[10], items[0])
}

func TestTierSourceEmptyTierFails(t *testing.T) {
	t.Parallel()

	_, err := TierSource{Client: &stubQuerier{}, Tier: catalog.TierCold}.Enumerate(context.Background())
	require.Error(t, err)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	q := &stubQuerier{items: tierItems(40)}
	total, sample, err := Preview(context.Background(), TierSource{Client: q, Tier: catalog.TierWarm}, 5)
	require.NoError(t, err)
	assert.Equal(t, 40, total)
	require.Len(t, sample, 5)
	assert.Equal(t, q.items[0], sample[0])
}

func TestPreviewSampleLargerThanTotal(t *testing.T) {
	t.Parallel()

	total, sample, err := Preview(context.Background(), ListSource{Raw: []string{"a", "b"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, sample, 2)
}
