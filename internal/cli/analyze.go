package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lucasnoah/docfactory/internal/agent"
	"github.com/lucasnoah/docfactory/internal/analysis"
	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-path>...",
	Short: "Run read-only analyses across repositories and merge the findings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.Agent.Model = model
		}

		invoker := agent.New(cfg.Agent.Binary, cfg.Agent.Model, config.Duration(cfg.Agent.Timeout, 15*time.Minute))
		if err := invoker.CheckBinary(); err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = "analysis-output"
		}
		focus, _ := cmd.Flags().GetString("focus")

		var tasks []analysis.Task
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolve path %s: %w", arg, err)
			}
			tasks = append(tasks, analysis.Task{
				Name:     filepath.Base(abs),
				RepoPath: abs,
				Focus:    focus,
			})
		}

		pool := analysis.NewPool(invoker, outDir, cfg.Analysis.Workers)
		pool.SetProgress(cmd.OutOrStdout())

		report, err := pool.Run(cmd.Context(), tasks)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		failed := 0
		for _, r := range report.Results {
			if r.Success {
				fmt.Fprintf(w, "  %-24s ok\n", r.Name)
			} else {
				failed++
				fmt.Fprintf(w, "  %-24s FAILED: %s\n", r.Name, r.Detail)
			}
		}
		fmt.Fprintf(w, "Merged report: %s\n", report.MergedPath)
		if failed > 0 {
			return fmt.Errorf("%d of %d analyses failed", failed, len(report.Results))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("model", "", "override the agent model")
	analyzeCmd.Flags().String("output", "", "output directory (default ./analysis-output)")
	analyzeCmd.Flags().String("focus", "service interfaces and integration points", "analysis focus")
}
