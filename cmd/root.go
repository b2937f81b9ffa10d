package cmd

import (
	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/config"
	"github.com/linguaforge/linguaforge/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "linguaforge",
	Short: "AI curriculum generation for language courses",
	Long: "LinguaForge generates diagnostic assessments, personalized curricula and adaptive lessons " +
		"for a language-learning course and stores them in the course database.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./linguaforge.yaml if present)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LINGUAFORGE_DB env var)")

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(curriculumCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(adaptCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies the --db override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.DSN = p
	}
	return cfg, nil
}

// resolveDSN fills in the default SQLite path when none is configured.
func resolveDSN(cfg *store.Config) error {
	if cfg.DSN != "" {
		if cfg.Driver == "sqlite" {
			return store.EnsureDir(cfg.DSN)
		}
		return nil
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return err
	}
	cfg.DSN = p
	return nil
}
