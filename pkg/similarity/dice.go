// Package similarity scores how alike two short strings are, used to flag
// probable duplicate tank submissions.
package similarity

import "strings"

// DuplicateThreshold is the score above which a submission is flagged as a
// probable duplicate of an earlier one from the same submitter.
const DuplicateThreshold = 0.8

// Score returns the Dice coefficient over case-folded character bigrams of a
// and b. Strings shorter than two characters have no bigrams and score 0.
func Score(a, b string) float64 {
	left := bigrams(a)
	right := bigrams(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	counts := make(map[string]int, len(left))
	for _, gram := range left {
		counts[gram]++
	}

	common := 0
	for _, gram := range right {
		if counts[gram] > 0 {
			counts[gram]--
			common++
		}
	}

	return float64(2*common) / float64(len(left)+len(right))
}

// Max returns the highest Score of candidate against any of the given strings.
func Max(candidate string, previous []string) float64 {
	best := 0.0
	for _, p := range previous {
		if s := Score(p, candidate); s > best {
			best = s
		}
	}
	return best
}

// IsDuplicate reports whether score crosses DuplicateThreshold.
func IsDuplicate(score float64) bool {
	return score > DuplicateThreshold
}

func bigrams(s string) []string {
	runes := []rune(strings.ToLower(s))
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}
