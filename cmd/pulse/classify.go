package main

import (
	"fmt"
	"strconv"

	"github.com/rigdev/pulse/internal/metrics"
	"github.com/rigdev/pulse/internal/report"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a raw metric value into a performance tier",
	Long:  "Classify uses the thresholds from the config file when one exists, the standard cutoffs otherwise.",
	RunE: func(cmd *cobra.Command, args []string) error {
		familyName, _ := cmd.Flags().GetString("family")
		family, err := metrics.ParseFamily(familyName)
		if err != nil {
			return err
		}

		var value *float64
		if raw, _ := cmd.Flags().GetString("value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("--value: %q is not a number", raw)
			}
			value = &v
		}

		cfg, err := loadOptionalConfig()
		if err != nil {
			return err
		}
		thresholds := metrics.DefaultThresholds()
		if cfg != nil {
			thresholds = cfg.ClassifierThresholds()
		}

		tier, err := metrics.NewClassifier(thresholds).Classify(family, value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", family.Label(), tier, report.FormatValue(family, value))
		return nil
	},
}
