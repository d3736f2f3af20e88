package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/family-health/internal/app/members"
	platformclock "github.com/Overland-East-Bay/family-health/internal/platform/clock"
)

// ErrNotConfirmed is returned by destructive commands run without --yes.
var ErrNotConfirmed = errors.New("refusing to clear without --yes")

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "clear",
		Short:        "Delete all members",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return ErrNotConfirmed
			}
			ctx := cmd.Context()
			h, err := openStore(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer h.close()

			svc := members.NewService(h.repo, platformclock.NewSystemClock())
			if err := svc.ClearAll(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "All members deleted.")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every member")

	return cmd
}
