package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func NewCheckCmd(a *VenaaCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the session store connection and the upstream service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			venaa, err := a.open()
			if err != nil {
				return err
			}
			defer venaa.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session store: %s\n", venaa.Config.SessionStore)

			names := make([]string, 0, len(venaa.HealthChecks))
			for name := range venaa.HealthChecks {
				names = append(names, name)
			}
			sort.Strings(names)

			var failed bool
			for _, name := range names {
				if err := venaa.HealthChecks[name](ctx); err != nil {
					failed = true
					fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "  ✓ %s\n", name)
			}

			s, err := venaa.Status.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Digitraffic: %s\nVR API:      %s\nVR ID:       %s\n", upDown(s.Digitraffic), upDown(s.VRAPI), upDown(s.VRID))

			if failed {
				return fmt.Errorf("storage health check failed")
			}
			return nil
		},
	}

	return cmd
}

func upDown(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}
