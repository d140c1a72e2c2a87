package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpushq/corpus/internal/ingest"
)

// ingestOptions holds CLI flags for ingest.
type ingestOptions struct {
	source string
	title  string
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest --source <name> <file>...",
		Short: "Ingest documents into a knowledge source",
		Long: `Chunk each file, persist the chunks, and embed them in batches.
Pass "-" to read a single document from stdin.

A batch that fails to embed is skipped: its chunks stay searchable by
keyword and are reported as skipped.

Examples:
  corpus ingest --source product-docs docs/getting-started.md
  corpus ingest --source faq --title "Billing FAQ" -
  cat notes.txt | corpus ingest --source notes --title "Meeting notes" -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Knowledge source name or ID (required)")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Document title (single document only; defaults to file name)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string, opts ingestOptions) error {
	ctx := cmd.Context()
	out := newConsole(cmd.OutOrStdout())

	if opts.title != "" && len(args) > 1 {
		return fmt.Errorf("--title applies to a single document, got %d", len(args))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	src, err := resolveSource(ctx, st, opts.source)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("source %q not found; create it with 'corpus sources add %s'", opts.source, opts.source)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	pipeline := ingest.New(st, embedder, ingest.Config{
		ChunkSize:       cfg.Chunking.ChunkSize,
		ChunkOverlap:    cfg.Chunking.ChunkOverlap,
		BatchSize:       cfg.Embedding.BatchSize,
		InterBatchDelay: cfg.Embedding.InterBatchDelay,
		LockDir:         cfg.DataDir,
	}, nil)

	var totalChunks, totalEmbedded, totalSkipped int
	for _, arg := range args {
		title, content, err := readDocument(arg, opts.title)
		if err != nil {
			return err
		}

		report, err := pipeline.Ingest(ctx, ingest.Request{
			SourceID: src.ID,
			Title:    title,
			Content:  content,
		})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", title, err)
		}

		totalChunks += report.Chunks
		totalEmbedded += report.Embedded
		totalSkipped += report.Skipped
		out.Statusf("✓", "%s: %d chunks, %d embedded (%s)",
			title, report.Chunks, report.Embedded, report.Elapsed.Round(time.Millisecond))
	}

	if err := st.Save(); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	out.Newline()
	out.Statusf("", "Ingested %d document(s): %d chunks, %d embedded, %d skipped",
		len(args), totalChunks, totalEmbedded, totalSkipped)
	if totalSkipped > 0 {
		out.Statusf("⚠", "%d chunks were not embedded and will only match keyword search", totalSkipped)
	}
	return nil
}

// readDocument reads one document from a file path or stdin ("-").
func readDocument(arg, titleOverride string) (title, content string, err error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		title = titleOverride
		if title == "" {
			title = "stdin"
		}
		return title, string(data), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", "", err
	}
	title = titleOverride
	if title == "" {
		base := filepath.Base(arg)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return title, string(data), nil
}
