package main

import (
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/adapter/notify"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/ingest"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Backfill a team's deployments and incidents from GitHub",
	RunE: func(cmd *cobra.Command, args []string) error {
		var since time.Time
		if v, _ := cmd.Flags().GetString("since"); v != "" {
			t, err := daterange.ParseTime(v)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			since = t
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		source, err := newSource(e.cfg)
		if err != nil {
			return err
		}

		team, _ := cmd.Flags().GetString("team")
		res, err := ingest.New(e.db, source, e.currentConfig, e.log).Sync(cmd.Context(), team, since)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d repos for %s: %d deployments, %d incidents.\n",
			res.Repos, res.Team, res.Deployments, res.Incidents)

		d, err := dashboard.New(e.cfg, e.db, e.log, nil).Build(res.Team, nil)
		if err != nil {
			return err
		}
		watcher := notify.NewBandWatcher(e.db, notify.New(e.cfg.Notify, e.log), e.log)
		sent, err := watcher.Check(cmd.Context(), d)
		if err != nil {
			// The sync itself succeeded.
			e.log.WithError(err).Warn("score band check failed")
			return nil
		}
		if sent {
			fmt.Fprintf(cmd.OutOrStdout(), "Score band is now %s, notification sent.\n", d.ScoreBand)
		}
		return nil
	},
}
