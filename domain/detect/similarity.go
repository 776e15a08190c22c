package detect

import "strings"

// normalizeText lowercases and collapses all whitespace runs to single
// spaces, matching how OCR output is compared against targets.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// Similarity scores two normalized strings in [0, 1]. Exact matches and
// mutual containment score 1. Otherwise the score is the better of the
// Jaccard word similarity and the character overlap ratio, so that both
// multi-word labels and short OCR fragments compare sensibly.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}

	word := jaccardWords(a, b)
	char := charOverlap(a, b)
	if word > char {
		return word
	}
	return char
}

func jaccardWords(a, b string) float64 {
	wordsA := toSet(strings.Fields(a))
	wordsB := toSet(strings.Fields(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charOverlap(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}

	common := 0
	for _, c := range a {
		if strings.ContainsRune(b, c) {
			common++
		}
	}
	return float64(common) / float64(maxLen)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
