package main

import (
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a team's DORA dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, err := report.ParseFormat(output)
		if err != nil {
			return err
		}
		noColor, _ := cmd.Flags().GetBool("no-color")
		sel, err := selectionFlags(cmd)
		if err != nil {
			return err
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		team, _ := cmd.Flags().GetString("team")
		d, err := dashboard.New(e.cfg, e.db, e.log, nil).Build(team, sel)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), d, report.Options{Format: format, UseColors: !noColor})
	},
}
