// Package cmd provides the CLI commands for corpus.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/corpushq/corpus/internal/config"
	"github.com/corpushq/corpus/internal/embed"
	"github.com/corpushq/corpus/internal/logging"
	"github.com/corpushq/corpus/internal/store"
	"github.com/corpushq/corpus/pkg/version"
)

var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the corpus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Hybrid search and retrieval over document collections",
		Long: `Corpus indexes documents into chunks with both vector embeddings
and a keyword index, then answers queries with hybrid search,
reranking, and context assembly.

Typical workflow:

  corpus init
  corpus sources add "product-docs"
  corpus ingest --source product-docs docs/*.md
  corpus search "how do I reset my password"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("corpus version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.corpus/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to corpus.yaml (default: <data-dir>/corpus.yaml)")

	cmd.PersistentPreRunE = setupEnvAndLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupEnvAndLogging loads .env overrides and enables debug logging.
func setupEnvAndLogging(_ *cobra.Command, _ []string) error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves and loads the configuration. An explicit --config path
// must exist; the default <data-dir>/corpus.yaml is optional and absence
// means built-in defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	path := defaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		return config.Load("")
	}
	return config.Load(path)
}

// defaultConfigPath returns the config file location inside the data
// directory, honoring CORPUS_DATA_DIR.
func defaultConfigPath() string {
	dataDir := os.Getenv("CORPUS_DATA_DIR")
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	return filepath.Join(dataDir, "corpus.yaml")
}

// openStore opens the chunk store described by the configuration.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, store.Config{
		DataDir:        cfg.DataDir,
		KeywordBackend: cfg.Store.KeywordBackend,
		Dimensions:     cfg.Embedding.Dimensions,
		Model:          cfg.Embedding.Model,
		MaxConnections: cfg.Store.MaxConnections,
		HNSWM:          cfg.Store.HNSWM,
		HNSWEfSearch:   cfg.Store.HNSWEfSearch,
	}, slog.Default())
}

// newEmbedder builds the configured embedder.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	return embed.NewEmbedder(ctx, embed.FactoryConfig{
		Provider:            cfg.Embedding.Provider,
		Model:               cfg.Embedding.Model,
		Dimensions:          cfg.Embedding.Dimensions,
		OllamaHost:          cfg.Embedding.OllamaHost,
		BatchSize:           cfg.Embedding.BatchSize,
		Timeout:             cfg.Embedding.Timeout,
		CacheSize:           cfg.Embedding.CacheSize,
		AllowStaticFallback: cfg.Embedding.AllowStaticFallback,
	})
}

// resolveSource looks a source up by name first, then by ID.
func resolveSource(ctx context.Context, st *store.Store, ref string) (*store.KnowledgeSource, error) {
	src, err := st.GetSourceByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if src != nil {
		return src, nil
	}
	return st.GetSource(ctx, ref)
}
