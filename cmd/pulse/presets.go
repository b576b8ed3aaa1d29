package main

import (
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/daterange"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List date presets and the windows they resolve to",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if v, _ := cmd.Flags().GetString("now"); v != "" {
			t, err := daterange.ParseTime(v)
			if err != nil {
				return fmt.Errorf("--now: %w", err)
			}
			now = t
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-12s %-10s %-10s %s\n", "PRESET", "START", "END", "DAYS")
		for _, p := range daterange.Presets() {
			w, err := daterange.Resolve(p, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-12s %-10s %-10s %d\n", p,
				w.Start.Format(daterange.DateKeyLayout), w.End.Format(daterange.DateKeyLayout), w.CalendarDays())
		}
		return nil
	},
}
