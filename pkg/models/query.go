package models

import (
	"fmt"
	"regexp"
	"strings"
)

// GeneratedQuery is the result of turning a question into either SQL or a
// canned conversational reply. Query holds real SQL or a sentinel select.
type GeneratedQuery struct {
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
	Summary     string `json:"summary"`
}

// ResponseType names a response branch. The sentinel branches are encoded into
// GeneratedQuery.Query as a literal select.
type ResponseType string

const (
	ResponseGreeting         ResponseType = "greeting"
	ResponseHelp             ResponseType = "help"
	ResponseOperation        ResponseType = "operation"
	ResponseOutOfScope       ResponseType = "out_of_scope"
	ResponseKnowledgeBase    ResponseType = "knowledge_base"
	ResponseGeneralKnowledge ResponseType = "general_knowledge"
	ResponseError            ResponseType = "error"
	ResponseNoDataset        ResponseType = "no_dataset"
	ResponseDatasetSummary   ResponseType = "dataset_summary"

	// Non-sentinel types reported to API callers.
	ResponseDataAnalysis ResponseType = "data_analysis"
	ResponseInvalidQuery ResponseType = "invalid_query"
)

// SentinelTypes lists every branch that can appear in a sentinel select.
var SentinelTypes = []ResponseType{
	ResponseGreeting,
	ResponseHelp,
	ResponseOperation,
	ResponseOutOfScope,
	ResponseKnowledgeBase,
	ResponseGeneralKnowledge,
	ResponseError,
	ResponseNoDataset,
	ResponseDatasetSummary,
}

// SentinelResponse builds `SELECT '<branch>' as response`.
func SentinelResponse(t ResponseType) string {
	return fmt.Sprintf("SELECT '%s' as response", t)
}

// SentinelType builds `SELECT '<branch>' as type`.
func SentinelType(t ResponseType) string {
	return fmt.Sprintf("SELECT '%s' as type", t)
}

var sentinelPattern = regexp.MustCompile(`(?i)^\s*SELECT\s+'([a-z_]+)'\s+as\s+(response|type)\s*;?\s*$`)

// ParseSentinel reports whether query is a sentinel select and, if so, which
// branch it names. Unknown branch names are not sentinels.
func ParseSentinel(query string) (ResponseType, bool) {
	m := sentinelPattern.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	t := ResponseType(strings.ToLower(m[1]))
	for _, known := range SentinelTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// IsSentinel reports whether query is a sentinel select.
func IsSentinel(query string) bool {
	_, ok := ParseSentinel(query)
	return ok
}
