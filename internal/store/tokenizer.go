package store

import (
	"strings"
	"unicode"
)

// Tokenize splits prose into lowercase search tokens. Latin-script words
// become one token each. CJK runs are split into character bigrams since
// there are no word boundaries to segment on; bigrams give the keyword
// backends something matchable.
func Tokenize(text string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			tokens = append(tokens, string(cjk))
		} else {
			for i := 0; i+2 <= len(cjk); i++ {
				tokens = append(tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case isCJKRune(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if len(cjk) > 0 {
				flushCJK()
			}
			word = append(word, unicode.ToLower(r))
		default:
			flushWord()
			if len(cjk) > 0 {
				flushCJK()
			}
		}
	}
	flushWord()
	if len(cjk) > 0 {
		flushCJK()
	}

	return tokens
}

// TokenOverlap returns the fraction of query tokens present in text, in
// [0,1]. Used as the lexical score for hits the keyword leg did not return.
func TokenOverlap(query, text string) float64 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	textTokens := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		textTokens[t] = struct{}{}
	}

	matched := 0
	seen := make(map[string]struct{}, len(queryTokens))
	unique := 0
	for _, t := range queryTokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique++
		if _, ok := textTokens[t]; ok {
			matched++
		}
	}

	return float64(matched) / float64(unique)
}

// isCJKRune reports whether r is a CJK ideograph, kana, or hangul.
func isCJKRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return true
	case r >= 0xF900 && r <= 0xFAFF: // CJK Compatibility Ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana, Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
		return true
	}
	return false
}
