// Package intent decides, without calling a language model, how a question is
// handled. Detectors run in a fixed order and the first match wins.
package intent

import (
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/fuzzy"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/patterns"
)

// Shortcut marks data-analysis questions answered without SQL generation.
type Shortcut string

const (
	ShortcutNone           Shortcut = ""
	ShortcutDatasetSummary Shortcut = "dataset_summary"
	ShortcutDataPreview    Shortcut = "data_preview"
)

// Decision is the outcome of classifying one question.
type Decision struct {
	Intent   models.Intent
	Shortcut Shortcut
	// Detector names the detector that fired.
	Detector string
	// Match is the knowledge-base phrase or key that matched, if any.
	Match string
	Score float64
}

// IsCanned reports whether the decision is answered from the pattern library
// alone.
func (d Decision) IsCanned() bool {
	switch d.Intent {
	case models.IntentKnowledgeBase, models.IntentGreeting, models.IntentHelp, models.IntentOperation:
		return true
	}
	return d.Shortcut != ShortcutNone
}

type detector struct {
	name   string
	detect func(c *Classifier, q string) (Decision, bool)
}

// detectors is the cascade. Order is significant: knowledge-base phrasing such
// as "what is data" must win over the data-analysis heuristics.
var detectors = []detector{
	{"knowledge_base", (*Classifier).detectKnowledgeBase},
	{"greeting", (*Classifier).detectGreeting},
	{"help", (*Classifier).detectHelp},
	{"operation", (*Classifier).detectOperation},
	{"dataset_summary", (*Classifier).detectSummary},
	{"data_preview", (*Classifier).detectPreview},
}

// Classifier runs the detector cascade over a shared pattern library.
// It holds no per-request state and is safe for concurrent use.
type Classifier struct {
	lib    *patterns.Library
	logger *zap.Logger
}

// New creates a classifier. A nil library selects the built-in defaults.
func New(lib *patterns.Library, logger *zap.Logger) *Classifier {
	if lib == nil {
		lib = patterns.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{lib: lib, logger: logger.Named("intent")}
}

// Library returns the pattern library the classifier consults.
func (c *Classifier) Library() *patterns.Library {
	return c.lib
}

// Classify assigns exactly one intent to the question.
func (c *Classifier) Classify(question string) Decision {
	q := Normalize(question)
	d := c.classify(q)
	c.logger.Debug("Classified question",
		zap.String("question", logging.TruncateString(question, 120)),
		zap.String("intent", string(d.Intent)),
		zap.String("shortcut", string(d.Shortcut)),
		zap.String("detector", d.Detector))
	return d
}

// Label is Classify reduced to the intent label.
func (c *Classifier) Label(question string) models.Intent {
	return c.Classify(question).Intent
}

func (c *Classifier) classify(q string) Decision {
	for _, d := range detectors {
		if decision, ok := d.detect(c, q); ok {
			decision.Detector = d.name
			return decision
		}
	}
	if c.IsDataAnalysis(q) {
		return Decision{Intent: models.IntentDataAnalysis, Detector: "data_analysis"}
	}
	return Decision{Intent: models.IntentGeneralKnowledge, Detector: "general_knowledge"}
}

// Normalize lowercases and trims a question the way every detector expects.
func Normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

func (c *Classifier) detectKnowledgeBase(q string) (Decision, bool) {
	match, score, ok := c.MatchKnowledgeBase(q)
	if !ok {
		return Decision{}, false
	}
	return Decision{Intent: models.IntentKnowledgeBase, Match: match, Score: score}, true
}

// MatchKnowledgeBase finds the knowledge-base phrase or key for q. Exact phrase
// equality wins outright; otherwise the best token-sort score over phrases and
// then keys is accepted at the fuzzy threshold.
func (c *Classifier) MatchKnowledgeBase(q string) (string, float64, bool) {
	if _, ok := c.lib.TopicForPhrase(q); ok {
		return q, 100, true
	}
	if q == "" {
		return "", 0, false
	}

	best := fuzzy.BestMatch(q, c.lib.KnowledgePhrase, fuzzy.TokenSortRatio)
	if best.Score >= fuzzy.Threshold {
		return best.Candidate, best.Score, true
	}

	// Keys only replace the best phrase on a strictly higher score.
	for _, key := range c.lib.TopicKeys {
		if s := fuzzy.TokenSortRatio(q, key); s > best.Score {
			best = fuzzy.Match{Candidate: key, Score: s}
		}
	}
	if best.Score >= fuzzy.Threshold {
		return best.Candidate, best.Score, true
	}
	return "", best.Score, false
}

func (c *Classifier) detectGreeting(q string) (Decision, bool) {
	if c.lib.MatchesGreetingOpener(q) {
		return Decision{Intent: models.IntentGreeting, Score: 100}, true
	}
	if q != "" && fuzzy.AnyAtLeast(q, c.lib.GreetingPhrases, fuzzy.Ratio, fuzzy.Threshold) {
		return Decision{Intent: models.IntentGreeting}, true
	}
	return Decision{}, false
}

func (c *Classifier) detectHelp(q string) (Decision, bool) {
	if _, ok := c.lib.HelpFor(q); ok {
		return Decision{Intent: models.IntentHelp}, true
	}
	return Decision{}, false
}

func (c *Classifier) detectOperation(q string) (Decision, bool) {
	if patterns.ContainsAny(q, c.lib.OperationTriggers) {
		return Decision{Intent: models.IntentOperation}, true
	}
	return Decision{}, false
}

func (c *Classifier) isSummaryRequest(q string) bool {
	return patterns.ContainsAny(q, c.lib.SummaryKeywords)
}

func (c *Classifier) detectSummary(q string) (Decision, bool) {
	if c.isSummaryRequest(q) {
		return Decision{Intent: models.IntentDataAnalysis, Shortcut: ShortcutDatasetSummary}, true
	}
	return Decision{}, false
}

func (c *Classifier) detectPreview(q string) (Decision, bool) {
	if patterns.ContainsAny(q, c.lib.ViewKeywords) &&
		patterns.ContainsAny(q, c.lib.DataKeywords) &&
		!c.isSummaryRequest(q) {
		return Decision{Intent: models.IntentDataAnalysis, Shortcut: ShortcutDataPreview}, true
	}
	return Decision{}, false
}

// IsDataAnalysis splits the remaining questions into data analysis and general
// knowledge. q must already be normalized.
func (c *Classifier) IsDataAnalysis(q string) bool {
	if _, _, ok := c.MatchKnowledgeBase(q); ok {
		return false
	}
	if c.lib.HasGeneralKnowledgeLead(q) {
		return false
	}
	if patterns.ContainsAny(q, c.lib.AnalysisPhrases) {
		return true
	}
	for _, word := range strings.Fields(q) {
		word = strings.Trim(word, `?.,!;:"'()`)
		if word == "" {
			continue
		}
		if c.lib.IsAnalysisKeyword(word) || c.lib.IsAnalysisKeyword(inflection.Singular(word)) {
			return true
		}
	}
	return c.lib.HasTopBottom(q)
}
