package cli

import (
	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "docfactory",
	Short: "docfactory — agent-driven documentation generator",
	Long: `docfactory turns a repository into a browsable documentation site by
orchestrating an external coding agent through a fixed pipeline: overview,
component manifest, task allocation, doc tree, parallel generation, index.

Agents communicate with this process only through the filesystem; run state
lives in ~/.docfactory/ (SQLite for the event log, JSON for run records).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}
