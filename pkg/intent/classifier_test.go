package intent

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/patterns"
)

func newTestClassifier() *Classifier {
	return New(patterns.Default(), zap.NewNop())
}

func TestClassify(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		question     string
		wantIntent   models.Intent
		wantShortcut Shortcut
	}{
		{"what is python", models.IntentKnowledgeBase, ShortcutNone},
		{"  What Is Machine Learning  ", models.IntentKnowledgeBase, ShortcutNone},
		{"what is data", models.IntentKnowledgeBase, ShortcutNone},
		{"explain big data", models.IntentKnowledgeBase, ShortcutNone},
		{"hello", models.IntentGreeting, ShortcutNone},
		{"Hi, can you help me?", models.IntentGreeting, ShortcutNone},
		{"howdy!", models.IntentGreeting, ShortcutNone},
		{"help", models.IntentHelp, ShortcutNone},
		{"how to use this tool", models.IntentHelp, ShortcutNone},
		{"what can you do", models.IntentOperation, ShortcutNone},
		{"which features are available", models.IntentOperation, ShortcutNone},
		{"describe the dataset", models.IntentDataAnalysis, ShortcutDatasetSummary},
		{"give me a summary", models.IntentDataAnalysis, ShortcutDatasetSummary},
		{"show me the data", models.IntentDataAnalysis, ShortcutDataPreview},
		{"display dataset", models.IntentDataAnalysis, ShortcutDataPreview},
		{"show me total sales by state", models.IntentDataAnalysis, ShortcutNone},
		{"count rows by region", models.IntentDataAnalysis, ShortcutNone},
		{"totals per region", models.IntentDataAnalysis, ShortcutNone},
		{"first 3 orders", models.IntentDataAnalysis, ShortcutNone},
		{"what is recursion", models.IntentGeneralKnowledge, ShortcutNone},
		{"how does a compiler work", models.IntentGeneralKnowledge, ShortcutNone},
		{"tell me a joke", models.IntentGeneralKnowledge, ShortcutNone},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			d := c.Classify(tt.question)
			if d.Intent != tt.wantIntent {
				t.Errorf("intent = %q (detector %q), want %q", d.Intent, d.Detector, tt.wantIntent)
			}
			if d.Shortcut != tt.wantShortcut {
				t.Errorf("shortcut = %q, want %q", d.Shortcut, tt.wantShortcut)
			}
		})
	}
}

func TestClassifySummaryBeatsPreview(t *testing.T) {
	c := newTestClassifier()
	d := c.Classify("show me a summary of the data")
	if d.Shortcut != ShortcutDatasetSummary {
		t.Errorf("expected summary shortcut to take precedence, got %q", d.Shortcut)
	}
}

func TestMatchKnowledgeBaseFuzzy(t *testing.T) {
	c := newTestClassifier()

	match, score, ok := c.MatchKnowledgeBase("python what is")
	if !ok {
		t.Fatal("expected reordered words to match")
	}
	if match != "what is python" || score < 99.9 {
		t.Errorf("got match %q score %v", match, score)
	}

	if _, _, ok := c.MatchKnowledgeBase("average order value by month"); ok {
		t.Error("analytical question must not match the knowledge base")
	}
	if _, _, ok := c.MatchKnowledgeBase(""); ok {
		t.Error("empty question must not match")
	}
}

func TestDecisionIsCanned(t *testing.T) {
	c := newTestClassifier()
	if !c.Classify("hello").IsCanned() {
		t.Error("greeting should be canned")
	}
	if !c.Classify("show me the data").IsCanned() {
		t.Error("preview shortcut should be canned")
	}
	if c.Classify("show me total sales by state").IsCanned() {
		t.Error("analysis question should not be canned")
	}
}

func TestLabel(t *testing.T) {
	c := newTestClassifier()
	if got := c.Label("hey there"); got != models.IntentGreeting {
		t.Errorf("Label = %q", got)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(nil, nil)
	if c.Library() != patterns.Default() {
		t.Error("nil library should select defaults")
	}
}

func TestClassifierProperties(t *testing.T) {
	c := newTestClassifier()
	lib := c.Library()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("knowledge phrases match regardless of case and padding", prop.ForAll(
		func(i int, pad int, upper bool) bool {
			phrase := lib.KnowledgePhrase[i]
			q := strings.Repeat(" ", pad) + phrase + strings.Repeat(" ", pad)
			if upper {
				q = strings.ToUpper(q)
			}
			d := c.Classify(q)
			return d.Intent == models.IntentKnowledgeBase && lib.KnowledgeAnswer(d.Match) == lib.KnowledgeAnswer(phrase)
		},
		gen.IntRange(0, len(lib.KnowledgePhrase)-1),
		gen.IntRange(0, 3),
		gen.Bool(),
	))

	openers := []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "good night"}
	properties.Property("greeting openers win on a word boundary", prop.ForAll(
		func(i int, suffix string) bool {
			return c.Label(openers[i]+" "+suffix) == models.IntentGreeting
		},
		gen.IntRange(0, len(openers)-1),
		gen.NumString(),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(q string) bool {
			return c.Classify(q) == c.Classify(q)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
