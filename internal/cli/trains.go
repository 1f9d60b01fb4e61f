package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewTrainsCmd(a *VenaaCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trains DATE",
		Short: "List the trains running on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			venaa, err := a.open()
			if err != nil {
				return err
			}
			defer venaa.Close()

			trains, err := venaa.Digitraffic.TrainsOnDate(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range trains {
				fmt.Fprintf(out, "%-6s %s\n", t.Value, t.Label)
			}
			fmt.Fprintf(out, "%d trains\n", len(trains))
			return nil
		},
	}

	return cmd
}
