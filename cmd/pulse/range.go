package main

import (
	"fmt"

	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/spf13/cobra"
)

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Show or change a team's stored date range",
}

var rangeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the team's stored date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		team, _ := cmd.Flags().GetString("team")
		state, err := dashboard.New(e.cfg, e.db, e.log, nil).Range(team)
		if err != nil {
			return err
		}
		printRange(cmd, state)
		return nil
	},
}

var rangeSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a date range for the team",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selectionFlags(cmd)
		if err != nil {
			return err
		}
		if sel == nil {
			return fmt.Errorf("--preset or --start and --end are required")
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		team, _ := cmd.Flags().GetString("team")
		state, err := dashboard.New(e.cfg, e.db, e.log, nil).SetRange(team, *sel)
		if err != nil {
			return err
		}
		printRange(cmd, state)
		if !state.Changed {
			fmt.Fprintln(cmd.OutOrStdout(), "Range unchanged.")
		}
		return nil
	},
}

func printRange(cmd *cobra.Command, state *dashboard.RangeState) {
	capped := ""
	if state.Capped {
		capped = " (capped)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s%s\n", state.Selection.Preset, formatDay(state.Window), capped)
}
