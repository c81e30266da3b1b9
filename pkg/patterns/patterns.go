// Package patterns holds the phrase tables, keyword sets and regular
// expressions consulted by the intent classifier. A Library is immutable once
// built and is shared by every request.
package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// HelpEntry pairs a help trigger with its long-form text.
type HelpEntry struct {
	Phrase string `yaml:"phrase"`
	Text   string `yaml:"text"`
}

// Topic is a knowledge-base entry. Key is the canonical question; Phrases are
// the questions that select this topic on exact match.
type Topic struct {
	Key     string   `yaml:"key"`
	Phrases []string `yaml:"phrases"`
	Answer  string   `yaml:"answer"`
}

// Responses holds the fixed texts returned by canned branches.
type Responses struct {
	NoDataset             string `yaml:"no_dataset"`
	NoDatasetSummary      string `yaml:"no_dataset_summary"`
	DatasetSummary        string `yaml:"dataset_summary"`
	DatasetSummarySummary string `yaml:"dataset_summary_summary"`
	Preview               string `yaml:"preview"`
	PreviewSummary        string `yaml:"preview_summary"`
	Fallback              string `yaml:"fallback"`
	FallbackSummary       string `yaml:"fallback_summary"`
	GeneralKnowledgeError string `yaml:"general_knowledge_error"`
	Error                 string `yaml:"error"`
	OutOfScope            string `yaml:"out_of_scope"`
	InvalidQuery          string `yaml:"invalid_query"`
	UnsafeQuery           string `yaml:"unsafe_query"`
}

type document struct {
	Greeting struct {
		Openers []string `yaml:"openers"`
		Reply   string   `yaml:"reply"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"greeting"`
	Help struct {
		Triggers []HelpEntry `yaml:"triggers"`
		Default  string      `yaml:"default"`
	} `yaml:"help"`
	Operation struct {
		Triggers []string `yaml:"triggers"`
		Reply    string   `yaml:"reply"`
	} `yaml:"operation"`
	KnowledgeBase struct {
		Fallback string  `yaml:"fallback"`
		Topics   []Topic `yaml:"topics"`
	} `yaml:"knowledge_base"`
	Analysis struct {
		GeneralKnowledgeLeads []string `yaml:"general_knowledge_leads"`
		Phrases               []string `yaml:"phrases"`
		Keywords              []string `yaml:"keywords"`
		TopBottom             []string `yaml:"top_bottom"`
	} `yaml:"analysis"`
	Shortcuts struct {
		SummaryKeywords []string `yaml:"summary_keywords"`
		ViewKeywords    []string `yaml:"view_keywords"`
		DataKeywords    []string `yaml:"data_keywords"`
	} `yaml:"shortcuts"`
	Responses Responses `yaml:"responses"`
}

// Library is the compiled, read-only pattern set.
type Library struct {
	GreetingReply   string
	GreetingPhrases []string
	greetingOpeners []*regexp.Regexp

	HelpEntries []HelpEntry
	DefaultHelp string

	OperationTriggers []string
	OperationReply    string

	Topics          []Topic
	TopicKeys       []string
	KnowledgePhrase []string
	KnowledgeMiss   string
	phraseTopic     map[string]int
	keyTopic        map[string]int

	AnalysisPhrases  []string
	analysisKeywords map[string]struct{}
	generalLeads     []*regexp.Regexp
	topBottom        []*regexp.Regexp

	SummaryKeywords []string
	ViewKeywords    []string
	DataKeywords    []string

	Responses Responses
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the built-in library. The embedded tables are validated by
// tests, so a parse failure here is a programming error.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Load(defaultsYAML)
		if err != nil {
			panic(fmt.Sprintf("patterns: invalid built-in defaults: %v", err))
		}
		defaultLib = lib
	})
	return defaultLib
}

// LoadFile builds a library from a YAML file with the same layout as the
// built-in defaults.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML pattern document.
func Load(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	return compile(&doc)
}

func compile(doc *document) (*Library, error) {
	if strings.TrimSpace(doc.Greeting.Reply) == "" {
		return nil, errors.New("greeting reply is required")
	}
	if len(doc.KnowledgeBase.Topics) == 0 {
		return nil, errors.New("at least one knowledge base topic is required")
	}
	if len(doc.Help.Triggers) == 0 {
		return nil, errors.New("at least one help trigger is required")
	}

	lib := &Library{
		GreetingReply:     doc.Greeting.Reply,
		GreetingPhrases:   lowerAll(doc.Greeting.Phrases),
		OperationTriggers: lowerAll(doc.Operation.Triggers),
		OperationReply:    doc.Operation.Reply,
		KnowledgeMiss:     doc.KnowledgeBase.Fallback,
		AnalysisPhrases:   lowerAll(doc.Analysis.Phrases),
		analysisKeywords:  make(map[string]struct{}, len(doc.Analysis.Keywords)),
		SummaryKeywords:   lowerAll(doc.Shortcuts.SummaryKeywords),
		ViewKeywords:      lowerAll(doc.Shortcuts.ViewKeywords),
		DataKeywords:      lowerAll(doc.Shortcuts.DataKeywords),
		Responses:         doc.Responses,
		phraseTopic:       make(map[string]int),
		keyTopic:          make(map[string]int),
	}

	for _, opener := range lowerAll(doc.Greeting.Openers) {
		lib.greetingOpeners = append(lib.greetingOpeners,
			regexp.MustCompile(`^`+regexp.QuoteMeta(opener)+`(\b|$)`))
	}

	for _, h := range doc.Help.Triggers {
		lib.HelpEntries = append(lib.HelpEntries, HelpEntry{Phrase: normalize(h.Phrase), Text: h.Text})
	}
	lib.DefaultHelp = lib.HelpEntries[0].Text
	for _, h := range lib.HelpEntries {
		if h.Phrase == normalize(doc.Help.Default) {
			lib.DefaultHelp = h.Text
		}
	}

	for i, t := range doc.KnowledgeBase.Topics {
		key := normalize(t.Key)
		if key == "" {
			return nil, fmt.Errorf("knowledge base topic %d has no key", i)
		}
		t.Key = key
		t.Phrases = lowerAll(t.Phrases)
		lib.Topics = append(lib.Topics, t)
		lib.TopicKeys = append(lib.TopicKeys, key)
		lib.keyTopic[key] = i
		for _, p := range t.Phrases {
			if _, dup := lib.phraseTopic[p]; dup {
				return nil, fmt.Errorf("knowledge base phrase %q is listed twice", p)
			}
			lib.phraseTopic[p] = i
			lib.KnowledgePhrase = append(lib.KnowledgePhrase, p)
		}
	}

	for _, kw := range lowerAll(doc.Analysis.Keywords) {
		lib.analysisKeywords[kw] = struct{}{}
	}

	var err error
	if lib.generalLeads, err = compileAll(doc.Analysis.GeneralKnowledgeLeads); err != nil {
		return nil, fmt.Errorf("general knowledge leads: %w", err)
	}
	if lib.topBottom, err = compileAll(doc.Analysis.TopBottom); err != nil {
		return nil, fmt.Errorf("top/bottom patterns: %w", err)
	}

	return lib, nil
}

// MatchesGreetingOpener reports whether the normalized question starts with a
// greeting opener on a word boundary.
func (l *Library) MatchesGreetingOpener(q string) bool {
	for _, re := range l.greetingOpeners {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// HelpFor returns the help text for the first trigger contained in q, and
// whether any trigger matched.
func (l *Library) HelpFor(q string) (string, bool) {
	for _, h := range l.HelpEntries {
		if strings.Contains(q, h.Phrase) {
			return h.Text, true
		}
	}
	return l.DefaultHelp, false
}

// TopicForPhrase resolves an exact knowledge-base phrase to its topic.
func (l *Library) TopicForPhrase(phrase string) (Topic, bool) {
	i, ok := l.phraseTopic[phrase]
	if !ok {
		return Topic{}, false
	}
	return l.Topics[i], true
}

// TopicForKey resolves a topic key.
func (l *Library) TopicForKey(key string) (Topic, bool) {
	i, ok := l.keyTopic[key]
	if !ok {
		return Topic{}, false
	}
	return l.Topics[i], true
}

// KnowledgeAnswer returns the canned answer for a matched phrase or key, or the
// miss text when neither resolves.
func (l *Library) KnowledgeAnswer(match string) string {
	if t, ok := l.TopicForPhrase(match); ok {
		return t.Answer
	}
	if t, ok := l.TopicForKey(match); ok {
		return t.Answer
	}
	return l.KnowledgeMiss
}

// IsAnalysisKeyword reports whether word is a data-analysis keyword.
func (l *Library) IsAnalysisKeyword(word string) bool {
	_, ok := l.analysisKeywords[word]
	return ok
}

// HasGeneralKnowledgeLead reports whether q opens like a general question.
func (l *Library) HasGeneralKnowledgeLead(q string) bool {
	return matchAny(l.generalLeads, q)
}

// HasTopBottom reports whether q asks for the first or last N of something.
func (l *Library) HasTopBottom(q string) bool {
	return matchAny(l.topBottom, q)
}

// ContainsAny reports whether q contains any of the given substrings.
func ContainsAny(q string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(q, s) {
			return true
		}
	}
	return false
}

func matchAny(res []*regexp.Regexp, q string) bool {
	for _, re := range res {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
