package chunk

import "math"

// Token estimation weights. CJK ideographs tokenize much denser than Latin
// text: one ideograph is roughly 1.8 tokens, while Latin text averages one
// token per four characters. A flat chars/4 estimate under-counts CJK by
// roughly 7x and produces oversized chunks for Chinese/Japanese/Korean input.
const (
	cjkTokensPerRune   = 1.8
	latinTokensPerRune = 0.25
)

// isCJK reports whether r falls in the CJK ideograph ranges.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // Extension A
		return true
	case r >= 0xF900 && r <= 0xFAFF: // Compatibility Ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana + Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
		return true
	}
	return false
}

// EstimateTokens estimates the token count of text under the dual CJK/Latin
// weighting. The estimate is intentionally cheap; it is used only to bound
// chunk sizes, never for billing-grade accuracy.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var total float64
	for _, r := range text {
		if isCJK(r) {
			total += cjkTokensPerRune
		} else {
			total += latinTokensPerRune
		}
	}
	return int(math.Ceil(total))
}

// overlapTail returns the trailing slice of text whose estimated token count
// is approximately overlapTokens. The cut is by character, not token-exact.
func overlapTail(text string, overlapTokens int) string {
	if overlapTokens <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	var acc float64
	for i := len(runes) - 1; i >= 0; i-- {
		if isCJK(runes[i]) {
			acc += cjkTokensPerRune
		} else {
			acc += latinTokensPerRune
		}
		if acc >= float64(overlapTokens) {
			return string(runes[i:])
		}
	}
	return text
}
