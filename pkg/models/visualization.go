package models

// VisualizationHint is the chart kind suggested for a result set.
type VisualizationHint string

const (
	VisualizationBar     VisualizationHint = "bar"
	VisualizationLine    VisualizationHint = "line"
	VisualizationPie     VisualizationHint = "pie"
	VisualizationScatter VisualizationHint = "scatter"
	VisualizationTable   VisualizationHint = "table"
)

// ChatResponse is what the chat API returns for one question.
type ChatResponse struct {
	Query         string            `json:"query"`
	Explanation   string            `json:"explanation"`
	Summary       string            `json:"summary"`
	Type          ResponseType      `json:"type"`
	Data          []map[string]any  `json:"data,omitempty"`
	Columns       []string          `json:"columns,omitempty"`
	Visualization VisualizationHint `json:"visualization,omitempty"`
	Truncated     bool              `json:"truncated,omitempty"`
}
