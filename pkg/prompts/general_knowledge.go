package prompts

import (
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// GeneralKnowledgeSystemPrompt is the system message for questions that are
// not about the dataset.
const GeneralKnowledgeSystemPrompt = `You are a helpful AI assistant with expertise in technology, programming, and data science.
Use the conversation history to resolve pronouns and follow-up questions.
Provide clear, accurate, and concise answers to questions.
If you're not sure about something, say so.
Format your response with bullet points for better readability.
Focus on providing factual information and avoid making assumptions.`

// BuildGeneralKnowledgePrompt renders the last models.MaxHistoryTurns turns
// followed by the current question. Empty sides of a turn are skipped.
func BuildGeneralKnowledgePrompt(question string, history []models.Turn) string {
	var prompt strings.Builder
	prompt.WriteString("Conversation History:\n")
	for _, turn := range models.RecentTurns(history) {
		if turn.User != "" {
			prompt.WriteString("User: ")
			prompt.WriteString(turn.User)
			prompt.WriteString("\n")
		}
		if turn.Assistant != "" {
			prompt.WriteString("Assistant: ")
			prompt.WriteString(turn.Assistant)
			prompt.WriteString("\n")
		}
	}
	prompt.WriteString("\nCurrent Question: ")
	prompt.WriteString(question)
	return prompt.String()
}
