package cli

import (
	"fmt"

	"github.com/lucasnoah/docfactory/internal/postprocess"
	"github.com/lucasnoah/docfactory/internal/workspace"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <workspace>",
	Short: "Re-run post-processing over an existing workspace",
	Long: `Rebuilds build/docs and the site from the planning tree of a previous
generation run. The planning tree is never modified, so this can be repeated
safely after tweaking renderer or site settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")
		if name, _ := cmd.Flags().GetString("site-name"); name != "" {
			cfg.Site.Name = name
		}

		ws := workspace.New(args[0])
		renderer := postprocess.NewRenderer(cfg.Renderer, nil)
		site := postprocess.NewSiteBuilder(cfg.Site, nil)
		proc := postprocess.NewProcessor(ws, owner, repo, renderer, site)
		proc.SetProgress(cmd.OutOrStdout())
		if skipSite, _ := cmd.Flags().GetBool("skip-site"); skipSite {
			proc.SetSkipSite(true)
		}

		result, err := proc.Run(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Processed %d files: %d links fixed, %d/%d diagrams rendered\n",
			result.FilesProcessed, result.LinksFixed, result.DiagramsRendered, result.DiagramsFound)
		if result.SiteBuilt {
			fmt.Fprintf(w, "Site: %s\n", ws.SiteDir())
		}
		if !result.Success() {
			for _, e := range result.Errors {
				fmt.Fprintf(w, "error: %s\n", e)
			}
			return fmt.Errorf("post-processing finished with %d error(s)", len(result.Errors))
		}
		return nil
	},
}

func init() {
	processCmd.Flags().String("owner", "", "GitHub owner for link canonicalization")
	processCmd.Flags().String("repo", "", "GitHub repository for link canonicalization")
	processCmd.Flags().String("site-name", "", "site title")
	processCmd.Flags().Bool("skip-site", false, "skip the site build")
}
