package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/catalog"
	"github.com/openshelf/bookharvest/internal/client"
	"github.com/openshelf/bookharvest/internal/config"
	"github.com/openshelf/bookharvest/internal/enumerate"
)

// sourceFlags holds the work-list selection shared by harvest and preview.
type sourceFlags struct {
	source string
	csv    string
	column string
	items  []string
	tier   string
	offset int
	limit  int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "csv", "work list source: csv, list, or tier")
	cmd.Flags().StringVar(&f.csv, "csv", "", "path to a CSV work list")
	cmd.Flags().StringVar(&f.column, "column", "", "CSV column holding identities (default: first column)")
	cmd.Flags().StringSliceVar(&f.items, "items", nil, "explicit identities for the list source")
	cmd.Flags().StringVar(&f.tier, "tier", "", "popularity tier: hot, warm, or cold")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "tier source: skip this many catalog entries")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "tier source: cap the item count, 0 for all")
}

// build assembles the enumeration source. The tier source queries the remote
// catalog, so it shares the enrichment API client.
func (f *sourceFlags) build(cfg config.Config, logger *zap.Logger) (enumerate.Source, error) {
	var tier catalog.Tier
	if f.tier != "" {
		parsed, err := catalog.ParseTier(f.tier)
		if err != nil {
			return nil, err
		}
		tier = parsed
	}

	switch f.source {
	case "csv":
		if f.csv == "" {
			return nil, fmt.Errorf("--csv is required for the csv source")
		}
		return enumerate.CSVSource{Path: f.csv, Column: f.column, Tier: tier}, nil
	case "list":
		if len(f.items) == 0 {
			return nil, fmt.Errorf("--items is required for the list source")
		}
		return enumerate.ListSource{Raw: f.items, Tier: tier}, nil
	case "tier":
		if tier == "" {
			return nil, fmt.Errorf("--tier is required for the tier source")
		}
		querier, err := newRemoteClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return enumerate.TierSource{Client: querier, Tier: tier, Offset: f.offset, Limit: f.limit}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want csv, list, or tier)", f.source)
	}
}

func newRemoteClient(cfg config.Config, logger *zap.Logger) (*client.HTTPClient, error) {
	return client.NewHTTPClient(client.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.RemoteTimeout(),
	}, logger)
}
