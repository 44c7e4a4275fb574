package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openshelf/bookharvest/internal/enumerate"
)

const previewSampleSize = 10

func newPreviewCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Enumerate the work list without dispatching anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			source, err := src.build(cfg, logger)
			if err != nil {
				return err
			}
			total, sample, err := enumerate.Preview(cmd.Context(), source, previewSampleSize)
			if err != nil {
				return fmt.Errorf("preview %s: %w", source.Describe(), err)
			}

			fmt.Printf("%s: %d items\n", source.Describe(), total)
			for _, item := range sample {
				fmt.Printf("  %-6s %-5s %s\n", item.Kind, item.Tier, item.Identity)
			}
			if total > len(sample) {
				fmt.Printf("  ... and %d more\n", total-len(sample))
			}
			return nil
		},
	}

	src.register(cmd)
	return cmd
}
