package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpushq/corpus/internal/rerank"
	"github.com/corpushq/corpus/internal/retrieval"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	source      string
	vectorOnly  bool
	noRerank    bool
	threshold   float64
	window      int
	format      string // "text", "json"
	showContext bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search with hybrid retrieval: a vector leg and a keyword leg are
blended, candidates are reranked, and results are diversified across
documents.

Examples:
  corpus search "password reset"
  corpus search "refund policy" --source faq --limit 3
  corpus search "install steps" --vector-only --threshold 0.75
  corpus search "error codes" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Restrict to one knowledge source (name or ID)")
	cmd.Flags().BoolVar(&opts.vectorOnly, "vector-only", false, "Pure vector search instead of hybrid")
	cmd.Flags().BoolVar(&opts.noRerank, "no-rerank", false, "Skip the reranking stage")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Similarity threshold for --vector-only (default from config)")
	cmd.Flags().IntVar(&opts.window, "context", 0, "Neighbor chunks per side (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.showContext, "show-context", false, "Print the assembled context text")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	reranker := rerank.New(rerank.Config{
		Endpoint:   cfg.Rerank.Endpoint,
		APIKey:     cfg.Rerank.APIKey,
		ForceLocal: cfg.Rerank.ForceLocal,
		Timeout:    cfg.Rerank.Timeout,
	}, slog.Default())
	defer func() { _ = reranker.Close() }()

	orch := retrieval.New(st, embedder, reranker, retrieval.Config{
		MaxResults:          cfg.Retrieval.MaxResults,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		VectorWeight:        cfg.Retrieval.VectorWeight,
		KeywordWeight:       cfg.Retrieval.KeywordWeight,
		ContextWindowSize:   cfg.Retrieval.ContextWindowSize,
		RerankTopK:          cfg.Retrieval.RerankTopK,
		PerDocumentCap:      cfg.Retrieval.PerDocumentCap,
		BackfillFloor:       cfg.Retrieval.BackfillFloor,
		EnrichWorkers:       cfg.Store.MaxConnections,
	}, slog.Default())

	q := retrieval.Query{
		Text:                query,
		MaxResults:          opts.limit,
		SimilarityThreshold: opts.threshold,
		UseHybridSearch:     !opts.vectorOnly,
		ContextWindowSize:   opts.window,
		UseReranking:        !opts.noRerank,
	}
	if opts.source != "" {
		src, err := resolveSource(ctx, st, opts.source)
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("source %q not found", opts.source)
		}
		q.SourceID = src.ID
	}

	result, err := orch.Retrieve(ctx, q)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return formatResultJSON(cmd, result)
	default:
		return formatResultText(cmd, query, result, opts.showContext)
	}
}

// formatResultText prints ranked chunks in human-readable form.
func formatResultText(cmd *cobra.Command, query string, result *retrieval.Result, showContext bool) error {
	out := newConsole(cmd.OutOrStdout())

	if len(result.RankedChunks) == 0 {
		out.Statusf("", "No results found for %q", query)
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q (%s, %s)",
		len(result.RankedChunks), query, result.SearchMethod,
		result.RetrievalTime.Round(time.Millisecond))
	out.Newline()

	for i, rc := range result.RankedChunks {
		hit := rc.Hit
		out.Statusf("", "%d. %s #%d (score: %.3f, relevance: %.3f)",
			i+1, hit.DocumentTitle, hit.Chunk.Index, hit.Score, rc.RelevanceScore)
		for _, line := range snippet(hit.Chunk.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}

	if showContext {
		out.Statusf("", "Context (%d tokens):", result.TotalTokens)
		out.Newline()
		fmt.Fprintln(cmd.OutOrStdout(), result.ContextText)
	}
	return nil
}

// formatResultJSON prints ranked chunks as JSON.
func formatResultJSON(cmd *cobra.Command, result *retrieval.Result) error {
	type jsonChunk struct {
		DocumentID    string  `json:"document_id"`
		DocumentTitle string  `json:"document_title"`
		SourceID      string  `json:"source_id"`
		ChunkIndex    int     `json:"chunk_index"`
		Score         float64 `json:"score"`
		Relevance     float64 `json:"relevance"`
		Content       string  `json:"content"`
	}
	type jsonResult struct {
		Chunks       []jsonChunk `json:"chunks"`
		ContextText  string      `json:"context_text"`
		TotalTokens  int         `json:"total_tokens"`
		SearchMethod string      `json:"search_method"`
		ElapsedMS    int64       `json:"elapsed_ms"`
	}

	output := jsonResult{
		Chunks:       make([]jsonChunk, 0, len(result.RankedChunks)),
		ContextText:  result.ContextText,
		TotalTokens:  result.TotalTokens,
		SearchMethod: result.SearchMethod,
		ElapsedMS:    result.RetrievalTime.Milliseconds(),
	}
	for _, rc := range result.RankedChunks {
		hit := rc.Hit
		output.Chunks = append(output.Chunks, jsonChunk{
			DocumentID:    hit.DocumentID,
			DocumentTitle: hit.DocumentTitle,
			SourceID:      hit.SourceID,
			ChunkIndex:    hit.Chunk.Index,
			Score:         hit.Score,
			Relevance:     rc.RelevanceScore,
			Content:       hit.Chunk.Content,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// snippet returns the first n non-empty-trailing lines of content.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
