package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rigdev/pulse/internal/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import deployments and incidents from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()
			r = f
		}

		batch, err := ingest.ReadBatch(r)
		if err != nil {
			return err
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := ingest.New(e.db, nil, e.currentConfig, e.log).Import(batch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d deployments and %d incidents.\n", res.Deployments, res.Incidents)
		return nil
	},
}
