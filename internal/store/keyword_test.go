package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordBackends runs the same contract tests against both backends.
func keywordBackends(t *testing.T) map[string]KeywordIndex {
	t.Helper()

	fts, err := NewFTSIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = fts.Close() })

	bleve, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bleve.Close() })

	return map[string]KeywordIndex{"fts5": fts, "bleve": bleve}
}

func TestKeywordIndex_IndexAndSearch(t *testing.T) {
	for name, idx := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := idx.Index(ctx, []*KeywordDoc{
				{ID: "c1", Content: "how to reset your password"},
				{ID: "c2", Content: "billing and refund policy"},
				{ID: "c3", Content: "password strength requirements"},
			})
			require.NoError(t, err)

			results, err := idx.Search(ctx, "password reset", 10)
			require.NoError(t, err)
			require.NotEmpty(t, results)

			ids := make([]string, 0, len(results))
			for _, r := range results {
				ids = append(ids, r.ID)
				assert.Positive(t, r.Score)
			}
			assert.Contains(t, ids, "c1")
			assert.NotContains(t, ids, "c2")

			count, err := idx.Count()
			require.NoError(t, err)
			assert.Equal(t, 3, count)
		})
	}
}

func TestKeywordIndex_ReindexReplacesDocument(t *testing.T) {
	for name, idx := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, []*KeywordDoc{{ID: "c1", Content: "original topic alpha"}}))
			require.NoError(t, idx.Index(ctx, []*KeywordDoc{{ID: "c1", Content: "replaced topic omega"}}))

			results, err := idx.Search(ctx, "alpha", 10)
			require.NoError(t, err)
			assert.Empty(t, results, "old content should no longer match")

			results, err = idx.Search(ctx, "omega", 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "c1", results[0].ID)
		})
	}
}

func TestKeywordIndex_Delete(t *testing.T) {
	for name, idx := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, []*KeywordDoc{
				{ID: "c1", Content: "findable content"},
				{ID: "c2", Content: "other findable content"},
			}))

			require.NoError(t, idx.Delete(ctx, []string{"c1"}))

			results, err := idx.Search(ctx, "findable", 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "c2", results[0].ID)
		})
	}
}

func TestKeywordIndex_CJKQueryMatches(t *testing.T) {
	for name, idx := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, []*KeywordDoc{
				{ID: "jp", Content: "パスワードのリセット方法"},
				{ID: "en", Content: "how to reset a password"},
			}))

			results, err := idx.Search(ctx, "パスワード", 10)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "jp", results[0].ID)
		})
	}
}

func TestFTSIndex_MalformedQueryReturnsEmpty(t *testing.T) {
	idx, err := NewFTSIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(context.Background(), `"`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewKeywordIndex_BackendSelection(t *testing.T) {
	dir := t.TempDir()

	fts, err := NewKeywordIndex(filepath.Join(dir, "kw"), "fts5")
	require.NoError(t, err)
	require.NoError(t, fts.Close())
	assert.IsType(t, &FTSIndex{}, fts)

	bleve, err := NewKeywordIndex(filepath.Join(dir, "kw2"), "bleve")
	require.NoError(t, err)
	require.NoError(t, bleve.Close())
	assert.IsType(t, &BleveIndex{}, bleve)

	_, err = NewKeywordIndex(filepath.Join(dir, "kw3"), "lucene")
	assert.Error(t, err)
}
