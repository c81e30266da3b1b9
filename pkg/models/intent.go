package models

// Intent is the classifier's decision about how a question is handled.
type Intent string

const (
	IntentKnowledgeBase    Intent = "knowledge_base"
	IntentGreeting         Intent = "greeting"
	IntentHelp             Intent = "help"
	IntentOperation        Intent = "operation"
	IntentOutOfScope       Intent = "out_of_scope"
	IntentDataAnalysis     Intent = "data_analysis"
	IntentGeneralKnowledge Intent = "general_knowledge"
)

// MaxHistoryTurns is how many prior turns are forwarded to the model.
const MaxHistoryTurns = 5

// Turn is one prior exchange. Either side may be empty.
type Turn struct {
	User      string `json:"user,omitempty"`
	Assistant string `json:"assistant,omitempty"`
}

// RecentTurns returns at most the last MaxHistoryTurns turns, oldest first.
func RecentTurns(history []Turn) []Turn {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}
