package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/docfactory/internal/db"
	"github.com/lucasnoah/docfactory/internal/workspace"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past generation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspace.DefaultRunStore()
		if err != nil {
			return err
		}
		runs, err := store.List()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(runs, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-17s %-12s %-28s %s\n", "RUN", "STATUS", "MODEL", "REPO")
		fmt.Fprintf(w, "%-17s %-12s %-28s %s\n",
			strings.Repeat("-", 17),
			strings.Repeat("-", 12),
			strings.Repeat("-", 28),
			strings.Repeat("-", 4))
		for _, r := range runs {
			fmt.Fprintf(w, "%-17s %-12s %-28s %s\n", r.ID, r.Status, r.Model, r.Repo)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show detailed run state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspace.DefaultRunStore()
		if err != nil {
			return err
		}
		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		printRunRecord(cmd, rec)

		dbPath, err := db.DefaultPath()
		if err != nil {
			return err
		}
		log, err := db.Open(dbPath)
		if err != nil {
			return err
		}
		defer log.Close()

		steps, err := log.GetStepRuns(rec.ID)
		if err != nil {
			return err
		}
		printStepHistory(cmd.OutOrStdout(), steps)
		return nil
	},
}

// printStepHistory renders the per-attempt step log. Unlike the run record,
// which keeps only each step's final outcome, the log has one row per
// execution, including retried ones.
func printStepHistory(w io.Writer, steps []db.StepRun) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(w, "  History:")
	for _, s := range steps {
		outcome := "failed"
		switch {
		case s.Success && s.Partial:
			outcome = "partial"
		case s.Success:
			outcome = "ok"
		}
		line := fmt.Sprintf("    %s %-12s %-8s %d attempt(s), %dms", s.CreatedAt, s.Step, outcome, s.Attempts, s.DurationMs)
		if s.Discarded > 0 {
			line += fmt.Sprintf(", %d discarded lines", s.Discarded)
		}
		fmt.Fprintln(w, line)
	}
}

func printRunRecord(cmd *cobra.Command, rec *workspace.RunRecord) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: %s\n", rec.ID, rec.Repo)
	fmt.Fprintf(w, "  Status:    %s\n", rec.Status)
	fmt.Fprintf(w, "  Model:     %s\n", rec.Model)
	fmt.Fprintf(w, "  Workspace: %s\n", rec.Workspace)
	fmt.Fprintf(w, "  Created:   %s\n", rec.CreatedAt)
	fmt.Fprintf(w, "  Updated:   %s\n", rec.UpdatedAt)

	if len(rec.Steps) > 0 {
		fmt.Fprintln(w, "  Steps:")
		for _, name := range []string{"overview", "manifest", "allocation", "structure", "generate", "index"} {
			s, ok := rec.Steps[name]
			if !ok {
				continue
			}
			outcome := "ok"
			switch {
			case s.Success && s.Partial:
				outcome = "partial"
			case !s.Success:
				outcome = "failed"
			}
			fmt.Fprintf(w, "    %-12s %-8s %s\n", name, outcome, s.Duration)
			for _, missing := range s.MissingFiles {
				fmt.Fprintf(w, "      missing: %s\n", missing)
			}
		}
	}
	if len(rec.OutputPaths) > 0 {
		fmt.Fprintln(w, "  Outputs:")
		for name, path := range rec.OutputPaths {
			fmt.Fprintf(w, "    %s: %s\n", name, path)
		}
	}
	if len(rec.Errors) > 0 {
		fmt.Fprintln(w, "  Errors:")
		for _, e := range rec.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsListCmd.Flags().String("format", "text", "Output format: text or json")
}
