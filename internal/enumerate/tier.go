package enumerate

import (
	"context"
	"fmt"

	"github.com/openshelf/bookharvest/internal/catalog"
	"github.com/openshelf/bookharvest/internal/client"
)

// tierPageSize caps one catalog query; the remote API rejects larger pages.
const tierPageSize = 500

// TierSource enumerates candidates from the remote catalog by popularity
// tier, paging through offset/limit windows. The remote ordering within a
// tier is stable, so repeated enumerations return the same sequence.
type TierSource struct {
	Client client.CatalogQuerier
	Tier   catalog.Tier
	Offset int
	// Limit caps the total number of items; 0 means everything the tier
	// holds from Offset onward.
	Limit int
}

// Enumerate implements Source.
func (s TierSource) Enumerate(ctx context.Context) ([]catalog.Item, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("tier source requires a catalog client")
	}

	var out []catalog.Item
	offset := s.Offset
	for {
		page := tierPageSize
		if s.Limit > 0 {
			left := s.Limit - len(out)
			if left <= 0 {
				break
			}
			if left < page {
				page = left
			}
		}
		items, err := s.Client.Query(ctx, s.Tier, offset, page)
		if err != nil {
			return nil, fmt.Errorf("query catalog tier %q at offset %d: %w", s.Tier, offset, err)
		}
		if len(items) == 0 {
			break
		}
		out = append(out, items...)
		offset += len(items)
		if len(items) < page {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("tier %q yielded no candidates at offset %d", s.Tier, s.Offset)
	}
	return out, nil
}

// Describe implements Source.
func (s TierSource) Describe() string {
	if s.Limit > 0 {
		return fmt.Sprintf("catalog tier %q [%d:%d]", s.Tier, s.Offset, s.Offset+s.Limit)
	}
	return fmt.Sprintf("catalog tier %q from offset %d", s.Tier, s.Offset)
}
