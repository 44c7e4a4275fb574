// Package enumerate produces the ordered candidate list a harvest run works
// through.
package enumerate

import (
	"context"
	"fmt"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// Source yields a deterministic, order-stable sequence of candidate items.
// Malformed source data fails the whole enumeration; a partial list is never
// handed to the dispatcher.
type Source interface {
	Enumerate(ctx context.Context) ([]catalog.Item, error)
	Describe() string
}

// ListSource enumerates an explicit list of raw identities, e.g. from the
// command line. Kinds are auto-detected; duplicates collapse to the first
// occurrence.
type ListSource struct {
	Raw  []string
	Tier catalog.Tier
}

// Enumerate implements Source.
func (s ListSource) Enumerate(_ context.Context) ([]catalog.Item, error) {
	if len(s.Raw) == 0 {
		return nil, fmt.Errorf("explicit item list is empty")
	}
	return dedupe(s.Raw, s.Tier), nil
}

// Describe implements Source.
func (s ListSource) Describe() string {
	return fmt.Sprintf("explicit list (%d raw entries)", len(s.Raw))
}

// dedupe normalizes raw identities and keeps the first occurrence of each,
// preserving order. Blank entries are skipped.
func dedupe(raw []string, tier catalog.Tier) []catalog.Item {
	seen := make(map[string]struct{}, len(raw))
	out := make([]catalog.Item, 0, len(raw))
	for _, r := range raw {
		item := catalog.New(r, tier)
		if item.Identity == "" {
			continue
		}
		if _, dup := seen[item.Identity]; dup {
			continue
		}
		seen[item.Identity] = struct{}{}
		out = append(out, item)
	}
	return out
}
