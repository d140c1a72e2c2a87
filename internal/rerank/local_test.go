package rerank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalReranker_RelevantDocRanksFirst(t *testing.T) {
	r := NewLocalReranker()

	docs := []Document{
		{ID: "off", Text: "completely unrelated prose about gardening and soil"},
		{ID: "hit", Text: "resetting your password requires the password reset email", Title: "Password Reset"},
		{ID: "near", Text: "emails are sent from the notification service"},
	}

	resp, err := r.Rerank(context.Background(), "password reset", docs, 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, MethodLocal, resp.Method)
	assert.Equal(t, "hit", resp.Results[0].ID)
	for i, res := range resp.Results {
		assert.Equal(t, i+1, res.Rank, "ranks are 1-based and sequential")
	}
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestLocalReranker_Idempotent(t *testing.T) {
	r := NewLocalReranker()
	docs := []Document{
		{ID: "a", Text: "refund policy for annual plans", OriginalScore: 0.4},
		{ID: "b", Text: "refunds are processed in five days", OriginalScore: 0.6},
		{ID: "c", Text: "shipping times vary by region", OriginalScore: 0.2},
	}

	first, err := r.Rerank(context.Background(), "refund", docs, 0)
	require.NoError(t, err)
	second, err := r.Rerank(context.Background(), "refund", docs, 0)
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
}

func TestLocalReranker_TopKTruncates(t *testing.T) {
	r := NewLocalReranker()
	docs := []Document{
		{ID: "a", Text: "alpha"}, {ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"}, {ID: "d", Text: "delta"},
	}

	resp, err := r.Rerank(context.Background(), "alpha", docs, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestLocalReranker_EmptyCandidates(t *testing.T) {
	r := NewLocalReranker()

	resp, err := r.Rerank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestLocalReranker_ScoresClampedToUnitRange(t *testing.T) {
	r := NewLocalReranker()
	docs := []Document{
		{ID: "a", Text: strings.Repeat("password reset ", 60), Title: "password reset", OriginalScore: 5.0},
		{ID: "b", Text: "nothing relevant", OriginalScore: -3.0},
	}

	resp, err := r.Rerank(context.Background(), "password reset", docs, 0)
	require.NoError(t, err)
	for _, res := range resp.Results {
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
	}
}

func TestLocalReranker_TitleMatchBoosts(t *testing.T) {
	r := NewLocalReranker()
	// Identical text; only the title differs.
	docs := []Document{
		{ID: "untitled", Text: "how to configure the scheduler"},
		{ID: "titled", Text: "how to configure the scheduler", Title: "Scheduler Configuration"},
	}

	resp, err := r.Rerank(context.Background(), "scheduler configuration", docs, 0)
	require.NoError(t, err)
	assert.Equal(t, "titled", resp.Results[0].ID)
}

func TestLocalReranker_CJKQueryUsesCharacterOverlap(t *testing.T) {
	r := NewLocalReranker()
	docs := []Document{
		{ID: "jp", Text: "パスワードをリセットする手順"},
		{ID: "en", Text: "steps to reset a password"},
	}

	resp, err := r.Rerank(context.Background(), "パスワード", docs, 0)
	require.NoError(t, err)
	assert.Equal(t, "jp", resp.Results[0].ID)
}

func TestLengthScore_PeaksAtPreferredLength(t *testing.T) {
	assert.Equal(t, 1.0, lengthScore(800))
	assert.Greater(t, lengthScore(800), lengthScore(200))
	assert.Greater(t, lengthScore(800), lengthScore(1500))
	assert.Equal(t, 0.0, lengthScore(0))
	assert.Equal(t, 0.0, lengthScore(5000))
}

func TestProximityScore_CloserTermsScoreHigher(t *testing.T) {
	terms := []string{"quick", "fox"}

	near := proximityScore(terms, "the quick brown fox jumps")
	far := proximityScore(terms, "quick "+strings.Repeat("word ", 40)+"fox")
	apart := proximityScore(terms, "quick "+strings.Repeat("word ", 80)+"fox")

	assert.Greater(t, near, far)
	assert.Greater(t, far, 0.0)
	assert.Equal(t, 0.0, apart, "terms beyond the window contribute nothing")
}

func TestProximityScore_SingleTermIsZero(t *testing.T) {
	assert.Equal(t, 0.0, proximityScore([]string{"solo"}, "solo appears here"))
}
