package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/docfactory/internal/agent"
	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/lucasnoah/docfactory/internal/db"
	"github.com/lucasnoah/docfactory/internal/orchestrator"
	"github.com/lucasnoah/docfactory/internal/postprocess"
	"github.com/lucasnoah/docfactory/internal/source"
	"github.com/lucasnoah/docfactory/internal/step"
	"github.com/lucasnoah/docfactory/internal/waiter"
	"github.com/lucasnoah/docfactory/internal/workspace"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <repo-path-or-url>",
	Short: "Generate a documentation site for a repository",
	Long: `Runs the full pipeline against a local repository or a git URL (cloned
shallowly into the workspace). Exits non-zero unless every step succeeded and
the site was built.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.Agent.Model = model
		}

		wsDir, _ := cmd.Flags().GetString("workspace")
		if wsDir == "" {
			wsDir = "docfactory-output"
		}
		wsDir, err = filepath.Abs(wsDir)
		if err != nil {
			return fmt.Errorf("resolve workspace path: %w", err)
		}

		repo, err := source.Resolve(&source.ExecRunner{}, args[0], filepath.Join(wsDir, "src"))
		if err != nil {
			return err
		}

		invoker := agent.New(cfg.Agent.Binary, cfg.Agent.Model, config.Duration(cfg.Agent.Timeout, 15*time.Minute))
		if err := invoker.CheckBinary(); err != nil {
			return err
		}

		ws := workspace.New(wsDir)
		out := cmd.OutOrStdout()
		verbose, _ := cmd.Flags().GetBool("verbose")

		exec := step.NewExecutor(invoker, wsDir)
		exec.SetBackoff(config.Duration(cfg.Pipeline.RetryBackoff, step.DefaultBackoff))

		w := waiter.New(&waiter.DirProber{Dir: ws.FanoutDir()}, waiter.Config{
			Poll:       config.Duration(cfg.Pipeline.PollInterval, 10*time.Second),
			EarlyFail:  config.Duration(cfg.Pipeline.EarlyFailAfter, 45*time.Second),
			StallTicks: cfg.Pipeline.StallTicks,
			Timeout:    config.Duration(cfg.Pipeline.WaitTimeout, 600*time.Second),
		})
		var events chan agent.Event
		var eventsDone <-chan struct{}
		if verbose {
			invoker.SetProgress(out)
			exec.SetProgress(out)
			w.SetProgress(out)
			events = make(chan agent.Event, 64)
			invoker.SetEvents(events)
			eventsDone = streamEvents(out, events)
		}

		store, err := workspace.DefaultRunStore()
		if err != nil {
			return err
		}

		dbPath, err := db.DefaultPath()
		if err != nil {
			return err
		}
		log, err := db.Open(dbPath)
		if err != nil {
			return err
		}
		defer log.Close()

		var proc *postprocess.Processor
		if skip, _ := cmd.Flags().GetBool("skip-process"); !skip {
			if cfg.Site.Name == "" {
				cfg.Site.Name = repo.Name
			}
			renderer := postprocess.NewRenderer(cfg.Renderer, nil)
			site := postprocess.NewSiteBuilder(cfg.Site, nil)
			proc = postprocess.NewProcessor(ws, repo.Owner, repo.Name, renderer, site)
			if skipSite, _ := cmd.Flags().GetBool("skip-site"); skipSite {
				proc.SetSkipSite(true)
			}
			if verbose {
				proc.SetProgress(out)
			}
		}

		orch := orchestrator.New(cfg, ws, repo, exec, w, store, log, proc)
		orch.SetProgress(out)

		fmt.Fprintf(out, "Documenting %s (model %s)\n", repo.Path, cfg.Agent.Model)
		run, err := orch.Run(cmd.Context())
		if events != nil {
			// All invocations are done; close so the printer drains and stops.
			close(events)
			<-eventsDone
		}
		if run != nil {
			printRunSummary(out, run)
		}
		if err != nil {
			return err
		}
		if !run.Success {
			return fmt.Errorf("run %s finished with %d error(s)", run.ID, len(run.Errors))
		}
		return nil
	},
}

// streamEvents prints live tool activity and agent errors from the decoded
// event stream until the channel is closed. The returned channel closes once
// the printer has drained, so output cannot interleave with the run summary.
func streamEvents(out io.Writer, events <-chan agent.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Type {
			case "tool":
				fmt.Fprintf(out, "    tool: %s\n", ev.Tool)
			case "error":
				fmt.Fprintf(out, "    agent error: %s\n", ev.Err)
			}
		}
	}()
	return done
}

func printRunSummary(out io.Writer, run *orchestrator.PipelineRun) {
	fmt.Fprintf(out, "\nRun %s\n", run.ID)
	for _, name := range []string{"overview", "manifest", "allocation", "structure", "generate", "index"} {
		res, ok := run.Steps[name]
		if !ok {
			fmt.Fprintf(out, "  %-12s skipped\n", name)
			continue
		}
		outcome := "ok"
		switch {
		case res.Success && res.Partial:
			outcome = "partial"
		case !res.Success:
			outcome = "FAILED"
		}
		fmt.Fprintf(out, "  %-12s %-8s %d attempt(s), %s\n", name, outcome, res.Attempts, res.Duration.Round(time.Second))
	}
	if run.Wait != nil {
		fmt.Fprintf(out, "  fan-out: %s (%d/%d components)\n", run.Wait.State, run.Wait.Dirs, run.Wait.Expected)
	}
	if len(run.MissingComponents) > 0 {
		fmt.Fprintf(out, "  missing components: %s\n", strings.Join(run.MissingComponents, ", "))
	}
	if run.Processing != nil {
		p := run.Processing
		fmt.Fprintf(out, "  processed %d files, %d links fixed, %d/%d diagrams rendered\n",
			p.FilesProcessed, p.LinksFixed, p.DiagramsRendered, p.DiagramsFound)
	}
	for name, path := range run.OutputPaths {
		if name == "docs" || name == "site" {
			fmt.Fprintf(out, "  %s: %s\n", name, path)
		}
	}
	if len(run.Errors) > 0 {
		fmt.Fprintln(out, "  errors:")
		for _, e := range run.Errors {
			fmt.Fprintf(out, "    - %s\n", strings.TrimSpace(e))
		}
	}
}

func init() {
	generateCmd.Flags().String("model", "", "override the agent model")
	generateCmd.Flags().String("workspace", "", "workspace directory (default ./docfactory-output)")
	generateCmd.Flags().Bool("verbose", false, "stream per-component progress")
	generateCmd.Flags().Bool("skip-process", false, "stop after generation, skip post-processing")
	generateCmd.Flags().Bool("skip-site", false, "post-process but skip the site build")
}
