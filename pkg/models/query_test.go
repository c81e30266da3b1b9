package models

import "testing"

func TestParseSentinel(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		want   ResponseType
		wantOK bool
	}{
		{"response form", "SELECT 'greeting' as response", ResponseGreeting, true},
		{"type form", "SELECT 'no_dataset' as type", ResponseNoDataset, true},
		{"upper case keywords", "select 'help' AS RESPONSE;", ResponseHelp, true},
		{"unknown branch", "SELECT 'banana' as response", "", false},
		{"real sql", "SELECT state, SUM(sales) FROM t GROUP BY state", "", false},
		{"literal with other columns", "SELECT 'help' as response, 1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSentinel(tt.query)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseSentinel(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSentinelBuildersRoundTrip(t *testing.T) {
	for _, branch := range SentinelTypes {
		if got, ok := ParseSentinel(SentinelResponse(branch)); !ok || got != branch {
			t.Errorf("response sentinel for %q parsed as %q, %v", branch, got, ok)
		}
		if got, ok := ParseSentinel(SentinelType(branch)); !ok || got != branch {
			t.Errorf("type sentinel for %q parsed as %q, %v", branch, got, ok)
		}
	}
}

func TestRecentTurns(t *testing.T) {
	history := make([]Turn, 8)
	for i := range history {
		history[i] = Turn{User: string(rune('a' + i))}
	}
	got := RecentTurns(history)
	if len(got) != MaxHistoryTurns {
		t.Fatalf("expected %d turns, got %d", MaxHistoryTurns, len(got))
	}
	if got[0].User != "d" || got[4].User != "h" {
		t.Errorf("expected turns d..h, got %q..%q", got[0].User, got[4].User)
	}
	if len(RecentTurns(history[:2])) != 2 {
		t.Error("short history should be returned unchanged")
	}
}
