package formatter

import (
	"strings"
	"testing"
)

func TestFormatExplanation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "sentences",
			in:   "This query counts rows. It groups by region.",
			want: "This query counts rows.\n\nIt groups by region.",
		},
		{
			name: "numbered markers",
			in:   "Steps: 1. Filter rows 2. Group them",
			want: "Steps:\n1. Filter rows\n2. Group them",
		},
		{
			name: "bullets",
			in:   "Includes: • Region • Revenue",
			want: "Includes:\n• Region\n• Revenue",
		},
		{
			name: "sentence then marker",
			in:   "Done. 1. First",
			want: "Done.\n\n1. First",
		},
		{
			name: "collapses blank lines",
			in:   "First.\n\n\n\nSecond",
			want: "First.\n\nSecond",
		},
		{
			name: "decimals untouched",
			in:   "Average is 3.5 units",
			want: "Average is 3.5 units",
		},
		{
			name: "year ends sentence",
			in:   "Sales peaked in 2023. Then they fell",
			want: "Sales peaked in 2023.\n\nThen they fell",
		},
		{
			name: "trims",
			in:   "   padded   ",
			want: "padded",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatExplanation(tt.in); got != tt.want {
				t.Errorf("FormatExplanation(%q)\n got: %q\nwant: %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatExplanation_NeverThreeNewlines(t *testing.T) {
	inputs := []string{
		"a. • b. 1. c",
		"•••",
		"1. 2. 3. 4.",
		"x.\n\n\n. y",
	}
	for _, in := range inputs {
		if got := FormatExplanation(in); strings.Contains(got, "\n\n\n") {
			t.Errorf("FormatExplanation(%q) = %q contains three newlines", in, got)
		}
	}
}

func TestSummaryForSQL(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT * FROM t LIMIT 5", SummaryTop5},
		{"select * from t limit   10", SummaryTop10},
		{"SELECT * FROM t LIMIT 50", SummaryGeneric},
		{"SELECT COUNT(*) FROM t", SummaryCount},
		{"SELECT SUM(revenue) FROM t", SummarySum},
		{"SELECT AVG(price) FROM t", SummaryAverage},
		{"SELECT region FROM t", SummaryGeneric},
		{"SELECT COUNT(*) FROM t LIMIT 5", SummaryTop5},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := SummaryForSQL(tt.query); got != tt.want {
				t.Errorf("SummaryForSQL(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
