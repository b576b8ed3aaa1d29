package main

import (
	"fmt"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/report"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a metric value against the previous period",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetFloat64("current")
		previous, _ := cmd.Flags().GetFloat64("previous")
		difference, _ := cmd.Flags().GetBool("difference")

		cfg, err := loadOptionalConfig()
		if err != nil {
			return err
		}
		comparator := compare.New(compare.Config{})
		if cfg != nil {
			comparator = cfg.Comparator()
		}

		c, err := comparator.Compare(current, previous, compare.Options{DifferenceBased: difference})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", report.FormatComparison(&c, difference), c.Mode, c.Direction)
		return nil
	},
}
