package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chicken/VenaaRauhassa/internal/train"
)

func NewTrainCmd(a *VenaaCtlApp) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "train DATE NUMBER",
		Short: "Assemble a train and print its per-leg seat map status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			date, number := args[0], args[1]

			if err := train.ValidateDate(date, time.Now()); err != nil {
				return err
			}

			venaa, err := a.open()
			if err != nil {
				return err
			}
			defer venaa.Close()

			t, err := venaa.Assembler.Assemble(ctx, date, number)
			if err != nil {
				return err
			}

			wagons := train.ProcessWagons(t, venaa.Config.Train.WagonImageURL, venaa.Policy)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"train": t, "wagons": wagons})
			}

			fmt.Fprintf(out, "%s%d on %s\n", t.TrainType, t.TrainNumber, t.DepartureDate)
			for i, leg := range t.TimeTableRows {
				state := fmt.Sprintf("%d wagons", len(leg.Wagons))
				if leg.Wagons == nil {
					state = "missing"
					if leg.Err != nil {
						state += " (" + leg.Err.Error() + ")"
					}
				}
				fmt.Fprintf(out, "  %2d. %-4s -> %-4s %s\n", i+1, leg.Dep.StationShortCode, leg.Arr.StationShortCode, state)
			}

			stations, err := venaa.Digitraffic.Stations(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, train.Describe(t, train.ProcessStations(t, stations), train.Summarize(wagons)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the assembled train and wagons as JSON")

	return cmd
}
