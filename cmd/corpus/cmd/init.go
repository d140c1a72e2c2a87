package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corpushq/corpus/internal/config"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a corpus.yaml with default settings",
		Long: `Write the default configuration to <data-dir>/corpus.yaml and create
the data directory. Edit the file afterwards to point at your Ollama
host or remote reranker.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if dataDir != "" {
				cfg.DataDir = dataDir
			}

			path := filepath.Join(cfg.DataDir, "corpus.yaml")
			if configPath != "" {
				path = configPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			out := newConsole(cmd.OutOrStdout())
			out.Statusf("✓", "Wrote %s", path)
			out.Statusf("", "Data directory: %s", cfg.DataDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.corpus)")

	return cmd
}
