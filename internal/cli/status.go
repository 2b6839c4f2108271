package cli

import (
	"fmt"

	"github.com/lucasnoah/docfactory/internal/db"
	"github.com/lucasnoah/docfactory/internal/workspace"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent run and its event history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspace.DefaultRunStore()
		if err != nil {
			return err
		}
		runs, err := store.List()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		rec := runs[0]
		printRunRecord(cmd, &rec)

		if withEvents, _ := cmd.Flags().GetBool("events"); withEvents {
			dbPath, err := db.DefaultPath()
			if err != nil {
				return err
			}
			log, err := db.Open(dbPath)
			if err != nil {
				return err
			}
			defer log.Close()

			events, err := log.GetRunEvents(rec.ID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "  Events:")
			for _, e := range events {
				detail := ""
				if e.Detail != "" {
					detail = " " + e.Detail
				}
				fmt.Fprintf(w, "    %s %-12s %s%s\n", e.CreatedAt, e.Step, e.Event, detail)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("events", false, "include the event log from the run database")
}
