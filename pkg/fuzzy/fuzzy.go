// Package fuzzy provides approximate string similarity on a 0..100 scale.
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Threshold is the minimum score accepted as a match.
const Threshold = 80.0

// Ratio is the normalized indel similarity of a and b:
// 200 * LCS(a, b) / (len(a) + len(b)), measured in runes.
// Empty input scores zero.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 100
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(la+lb)
}

// TokenSortRatio is Ratio over the whitespace tokens of each string sorted
// alphabetically, so word order does not matter.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Scorer scores a query against a candidate.
type Scorer func(query, candidate string) float64

// Match is the best candidate found by BestMatch.
type Match struct {
	Candidate string
	Score     float64
	Index     int
}

// BestMatch returns the candidate with the strictly highest score. Ties keep
// the earliest candidate. Index is -1 when choices is empty.
func BestMatch(query string, choices []string, scorer Scorer) Match {
	best := Match{Index: -1}
	for i, c := range choices {
		if s := scorer(query, c); s > best.Score {
			best = Match{Candidate: c, Score: s, Index: i}
		}
	}
	return best
}

// AnyAtLeast reports whether any candidate scores at least min.
func AnyAtLeast(query string, choices []string, scorer Scorer, min float64) bool {
	for _, c := range choices {
		if scorer(query, c) >= min {
			return true
		}
	}
	return false
}
