package enumerate

import (
	"context"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// Preview summarizes what a source would enumerate: total cardinality plus
// the first sampleN items. It makes no state-mutating calls and touches no
// checkpoint, so dry runs can report safely.
func Preview(ctx context.Context, src Source, sampleN int) (int, []catalog.Item, error) {
	all, err := src.Enumerate(ctx)
	if err != nil {
		return 0, nil, err
	}
	if sampleN < 0 {
		sampleN = 0
	}
	if sampleN > len(all) {
		sampleN = len(all)
	}
	sample := make([]catalog.Item, sampleN)
	copy(sample, all[:sampleN])
	return len(all), sample, nil
}
