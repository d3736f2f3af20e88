package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
)

// NewImportCommand creates the import command. The file replaces the stored
// collection; it is typically the output of export.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "import <file>",
		Short:        "Replace the stored members with a JSON snapshot",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			ms, err := snapshot.Decode(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			h, err := openStore(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer h.close()

			if err := h.repo.SaveAll(ctx, ms); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d member(s).\n", len(ms))
			return err
		},
	}
}
