package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// CannotGenerateSQL is the reply the model is told to give when a question
// cannot be answered from the table.
const CannotGenerateSQL = "cannot generate SQL"

// SQLResponseSchema is the JSON Schema every SQL generation reply must satisfy.
const SQLResponseSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 1},
    "explanation": {"type": "string"},
    "summary": {"type": "string"}
  },
  "required": ["query", "explanation"]
}`

// DefaultDialect is used when the datasource does not name one.
const DefaultDialect = "SQLite"

// BuildSQLSystemPrompt creates the system message for SQL generation. The
// schema block is omitted when schema is nil or has no columns.
func BuildSQLSystemPrompt(dialect, tableName string, schema *models.TableSchema) string {
	if dialect == "" {
		dialect = DefaultDialect
	}

	var prompt strings.Builder
	prompt.WriteString("You are a professional AI Data Analytics Assistant that helps users analyze their data through natural language queries.\n")

	if tableName != "" && schema != nil && len(schema.Columns) > 0 {
		prompt.WriteString(fmt.Sprintf("\nTable Schema for '%s':\n", tableName))
		for _, col := range schema.Columns {
			prompt.WriteString(fmt.Sprintf("- %s (%s)\n", col.Name, col.Type))
		}
	} else if tableName != "" {
		prompt.WriteString(fmt.Sprintf("\nThe data is in a table named '%s'.\n", tableName))
	}

	prompt.WriteString("\nGuidelines:\n")
	prompt.WriteString(fmt.Sprintf("1. Generate only valid %s SQL queries\n", dialect))
	prompt.WriteString("2. Use appropriate SQL functions for the data types\n")
	prompt.WriteString("3. Provide a clear, professional explanation of what the query does\n")
	prompt.WriteString("4. Focus on retrieving the exact data requested by the user\n")
	prompt.WriteString("5. Use appropriate sorting and limiting when needed\n")
	prompt.WriteString("6. Handle NULL values appropriately\n")
	prompt.WriteString("7. Use proper date/time functions for time-based queries if date columns exist\n")
	prompt.WriteString("8. For aggregations:\n")
	prompt.WriteString("   - Use appropriate aggregate functions (SUM, AVG, COUNT, etc.)\n")
	prompt.WriteString("   - Include relevant grouping columns\n")
	prompt.WriteString("   - Sort results when appropriate\n")
	prompt.WriteString("9. For filtering:\n")
	prompt.WriteString("   - Use appropriate comparison operators\n")
	prompt.WriteString("   - Handle string matching with LIKE when needed\n")
	prompt.WriteString("   - Consider NULL values in conditions\n")
	prompt.WriteString("10. Only read data: never write INSERT, UPDATE, DELETE or DDL statements\n")

	prompt.WriteString(fmt.Sprintf("\nIf the question cannot be answered from this table, reply with exactly: %s\n", CannotGenerateSQL))

	prompt.WriteString("\n## Response Format\n\n")
	prompt.WriteString("Respond with a single JSON object and nothing else:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString(`  "query": "the SQL query",` + "\n")
	prompt.WriteString(`  "explanation": "what the query does",` + "\n")
	prompt.WriteString(`  "summary": "one short sentence for the user"` + "\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")

	return prompt.String()
}
