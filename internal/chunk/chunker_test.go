package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput_ReturnsNoPieces(t *testing.T) {
	assert.Nil(t, Split("", Options{ChunkSize: 100}))
	assert.Nil(t, Split("   \n\t  ", Options{ChunkSize: 100}))
}

func TestSplit_ShortInput_ReturnsSinglePiece(t *testing.T) {
	pieces := Split("A short paragraph about nothing in particular.", Options{ChunkSize: 100})

	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Index)
	assert.Equal(t, "A short paragraph about nothing in particular.", pieces[0].Text)
	assert.Positive(t, pieces[0].TokenCount)
}

func TestSplit_CoversAllContent(t *testing.T) {
	// Every sentence of the input must appear in some piece.
	var sb strings.Builder
	sentences := []string{
		"The quick brown fox jumps over the lazy dog.",
		"Pack my box with five dozen liquor jugs.",
		"How vexingly quick daft zebras jump.",
		"Sphinx of black quartz, judge my vow.",
		"The five boxing wizards jump quickly.",
	}
	for i := 0; i < 20; i++ {
		sb.WriteString(sentences[i%len(sentences)])
		sb.WriteString("\n")
	}

	pieces := Split(sb.String(), Options{ChunkSize: 50, ChunkOverlap: 10})
	require.NotEmpty(t, pieces)

	joined := ""
	for _, p := range pieces {
		joined += p.Text + "\n"
	}
	for _, s := range sentences {
		assert.Contains(t, joined, s)
	}
}

func TestSplit_RespectsTokenBudget(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten. ", 60)

	pieces := Split(text, Options{ChunkSize: 40})
	require.NotEmpty(t, pieces)

	for _, p := range pieces {
		assert.LessOrEqual(t, p.TokenCount, 40, "piece %d exceeds the budget", p.Index)
	}
}

func TestSplit_IndexesAreSequential(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon. ", 100)

	pieces := Split(text, Options{ChunkSize: 30, ChunkOverlap: 5})
	require.Greater(t, len(pieces), 1)

	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
	}
}

func TestSplit_OverlapSeedsNextPiece(t *testing.T) {
	// With overlap, consecutive pieces share trailing/leading text.
	lines := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		lines = append(lines, "line with several plain words in it")
	}
	text := strings.Join(lines, "\n")

	withOverlap := Split(text, Options{ChunkSize: 40, ChunkOverlap: 15})
	without := Split(text, Options{ChunkSize: 40, ChunkOverlap: 0})
	require.Greater(t, len(withOverlap), 1)

	// Overlap repeats content, so the same input yields at least as many
	// pieces as the no-overlap split.
	assert.GreaterOrEqual(t, len(withOverlap), len(without))
}

func TestSplit_LongUnbrokenText_HardCuts(t *testing.T) {
	text := strings.Repeat("x", 4000)

	pieces := Split(text, Options{ChunkSize: 100})
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, p.TokenCount, 100)
	}
}

func TestSplit_CJKText_SplitsOnCJKPunctuation(t *testing.T) {
	text := strings.Repeat("これは日本語の文章です。検索エンジンのテストに使います。", 20)

	pieces := Split(text, Options{ChunkSize: 100})
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, p.TokenCount, 100)
	}
}

func TestEstimateTokens_CJKCountsDenser(t *testing.T) {
	// 100 ideographs estimate far above the chars/4 heuristic.
	cjk := strings.Repeat("中", 100)
	assert.GreaterOrEqual(t, EstimateTokens(cjk), 150)

	// 100 Latin characters stay near 25.
	latin := strings.Repeat("a", 100)
	assert.Equal(t, 25, EstimateTokens(latin))

	assert.Equal(t, 0, EstimateTokens(""))
}

func TestOverlapTail_ReturnsApproximateTokenBudget(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta"

	tail := overlapTail(text, 3)
	assert.NotEmpty(t, tail)
	assert.True(t, strings.HasSuffix(text, tail))
	assert.Less(t, len(tail), len(text))

	assert.Equal(t, "", overlapTail(text, 0))
	assert.Equal(t, text, overlapTail(text, 1000))
}
