package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
	"github.com/Overland-East-Bay/family-health/internal/app/members"
	"github.com/Overland-East-Bay/family-health/internal/domain"
	platformclock "github.com/Overland-East-Bay/family-health/internal/platform/clock"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List stored members",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, filter)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive name filter")

	return cmd
}

func runList(cmd *cobra.Command, opts *RootOptions, filter string) error {
	ctx := cmd.Context()
	h, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer h.close()

	svc := members.NewService(h.repo, platformclock.NewSystemClock())
	if err := svc.Load(ctx); err != nil {
		return err
	}
	ms := svc.List(filter)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		raw, err := snapshot.Encode(ms)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(raw))
		return err
	}

	if len(ms) == 0 {
		_, err := fmt.Fprintln(out, "No members.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tBLOOD\tBMI\tCATEGORY\tREPORT")
	for _, m := range ms {
		report := "-"
		if m.Report != nil {
			report = m.Report.MediaType()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, m.Age, m.Blood, domain.FormatBMI(m.BMI), domain.BMICategory(m.BMI), report)
	}
	return tw.Flush()
}
