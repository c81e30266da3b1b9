// Package formatter turns raw model output into the text shown to users.
package formatter

import (
	"regexp"
	"strings"
	"unicode"
)

const bullet = '•'

// maxMarkerDigits bounds numbered list markers so years ending a sentence
// ("in 2023. Then") are not mistaken for list items.
const maxMarkerDigits = 2

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// FormatExplanation lays out an explanation for display. Sentences end with a
// blank line, bullets and numbered markers start new lines, runs of blank
// lines collapse to one and surrounding whitespace is trimmed.
func FormatExplanation(text string) string {
	rs := []rune(strings.TrimSpace(text))
	if len(rs) == 0 {
		return ""
	}

	out := make([]rune, 0, len(rs)+len(rs)/8)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == bullet:
			out = breakLine(out)
			out = append(out, r)

		case unicode.IsDigit(r) && (i == 0 || unicode.IsSpace(rs[i-1])):
			if end, ok := listMarkerEnd(rs, i); ok {
				out = breakLine(out)
				out = append(out, rs[i:end]...)
				i = end - 1
				continue
			}
			out = append(out, r)

		case r == '.' && i+1 < len(rs) && rs[i+1] == ' ':
			out = append(out, '.', '\n', '\n')
			for i+1 < len(rs) && rs[i+1] == ' ' {
				i++
			}

		default:
			out = append(out, r)
		}
	}

	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	result := excessNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// listMarkerEnd reports whether a numbered marker such as "2. " starts at i and
// returns the index just past its trailing space.
func listMarkerEnd(rs []rune, i int) (int, bool) {
	j := i
	for j < len(rs) && unicode.IsDigit(rs[j]) {
		j++
	}
	if j-i > maxMarkerDigits {
		return 0, false
	}
	if j+1 < len(rs) && rs[j] == '.' && rs[j+1] == ' ' {
		return j + 2, true
	}
	return 0, false
}

// breakLine ends the current line unless out is empty or already at a line
// start. Trailing blanks are dropped first.
func breakLine(out []rune) []rune {
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '\t') {
		out = out[:len(out)-1]
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

// Summaries chosen by SummaryForSQL.
const (
	SummaryTop5    = "Here are the top 5 records from your analysis."
	SummaryTop10   = "Here are the top 10 records from your analysis."
	SummaryCount   = "Here is the count from your analysis."
	SummarySum     = "Here is the sum from your analysis."
	SummaryAverage = "Here is the average from your analysis."
	SummaryGeneric = "Here are the results of your analysis."
)

var (
	limit5  = regexp.MustCompile(`\blimit\s+5\b`)
	limit10 = regexp.MustCompile(`\blimit\s+10\b`)
)

// SummaryForSQL picks the one-line summary for a generated query. Checks run
// in order and the first hit wins.
func SummaryForSQL(query string) string {
	q := strings.ToLower(query)
	switch {
	case limit5.MatchString(q):
		return SummaryTop5
	case limit10.MatchString(q):
		return SummaryTop10
	case strings.Contains(q, "count"):
		return SummaryCount
	case strings.Contains(q, "sum"):
		return SummarySum
	case strings.Contains(q, "avg"):
		return SummaryAverage
	default:
		return SummaryGeneric
	}
}
