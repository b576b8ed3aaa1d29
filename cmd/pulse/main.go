package main

import (
	"fmt"
	"os"

	"github.com/rigdev/pulse/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "pulse",
	Short:         "Pulse: DORA metrics for delivery teams",
	Long:          "Pulse ingests deployments and incidents, classifies the four DORA metrics and compares them period over period.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pulse version %s\n", version)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config validation passed: %s (%d teams)\n", configPath, len(cfg.Teams))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "pulse.yaml", "Path to config file")
	rootCmd.PersistentFlags().String("db", "", "Path to the sqlite database (default: storage.path or ~/.pulse/pulse.db)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format override (text|json)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before the config")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "bind flags: %v\n", err)
		os.Exit(1)
	}

	presetsCmd.Flags().String("now", "", "Reference time (RFC 3339 or YYYY-MM-DD, default: now)")

	classifyCmd.Flags().String("family", "", "Metric family (leadTime|deploymentFrequency|changeFailureRate|meanTimeToRestore)")
	classifyCmd.Flags().String("value", "", "Raw value; omit for a family without data")
	_ = classifyCmd.MarkFlagRequired("family")

	compareCmd.Flags().Float64("current", 0, "Value of the current period")
	compareCmd.Flags().Float64("previous", 0, "Value of the previous period")
	compareCmd.Flags().Bool("difference", false, "Compare as a difference of rounded values")
	_ = compareCmd.MarkFlagRequired("current")
	_ = compareCmd.MarkFlagRequired("previous")

	for _, c := range []*cobra.Command{rangeGetCmd, rangeSetCmd} {
		c.Flags().String("team", "", "Team name")
		_ = c.MarkFlagRequired("team")
	}
	addSelectionFlags(rangeSetCmd)

	ingestCmd.Flags().StringP("file", "f", "", "JSON file with deployments and incidents (- for stdin)")
	_ = ingestCmd.MarkFlagRequired("file")

	syncCmd.Flags().String("team", "", "Team name")
	syncCmd.Flags().String("since", "", "Backfill start (RFC 3339 or YYYY-MM-DD, default: last sync)")
	_ = syncCmd.MarkFlagRequired("team")

	reportCmd.Flags().String("team", "", "Team name")
	reportCmd.Flags().StringP("output", "o", "table", "Output format (table|json|csv)")
	reportCmd.Flags().Bool("no-color", false, "Disable colored output")
	addSelectionFlags(reportCmd)
	_ = reportCmd.MarkFlagRequired("team")

	serveCmd.Flags().Int("port", 0, "API server port (default: server.port)")
	serveCmd.Flags().Int("webhook-port", 0, "Webhook server port (default: server.webhook_port)")

	rangeCmd.AddCommand(rangeGetCmd)
	rangeCmd.AddCommand(rangeSetCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "Date preset (default: the team's stored range)")
	cmd.Flags().String("start", "", "Custom range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Custom range end (RFC 3339 or YYYY-MM-DD)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
