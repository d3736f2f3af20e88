package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
)

// NewExportCommand creates the export command, which prints the stored blob
// exactly as persisted.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "export",
		Short:        "Print the stored member snapshot as JSON",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := openStore(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer h.close()

			raw, ok, err := h.store.Get(ctx, snapshot.StorageKey)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if !ok {
				raw = []byte("[]")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
