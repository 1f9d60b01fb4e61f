package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

func NewSessionCmd(a *VenaaCtlApp) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored upstream session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			venaa, err := a.open()
			if err != nil {
				return err
			}
			defer venaa.Close()

			out := cmd.OutOrStdout()

			if refresh {
				s, err := venaa.Auth.Get(ctx)
				if err != nil {
					return err
				}
				printSession(out, s)
				return nil
			}

			s, err := venaa.Sessions.Get(ctx)
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(out, "No session stored")
				return nil
			}
			printSession(out, *s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh or log in when the stored session is missing or close to expiry")

	return cmd
}

func printSession(out io.Writer, s models.Session) {
	fmt.Fprintf(out, "Session: %s\n", s.SessionID)
	fmt.Fprintf(out, "Token:   %s\n", upstream.Sanitize(s.Token))
	fmt.Fprintf(out, "Expires: %s (in %s)\n", s.ExpiresOn.Format(time.RFC3339), time.Until(s.ExpiresOn).Round(time.Second))
}
