package models

import "strings"

// DefaultTableName is the table the loaded dataset is registered under.
const DefaultTableName = "current_dataset"

// Column is a single column of the active dataset.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema describes the active dataset as reported by the datasource.
// It is read-only input to query generation.
type TableSchema struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// ColumnNames returns the column names in declaration order.
func (s *TableSchema) ColumnNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Fingerprint returns a stable textual form of the schema, used in cache keys.
func (s *TableSchema) Fingerprint() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Name)
	for _, c := range s.Columns {
		b.WriteByte('|')
		b.WriteString(c.Name)
		b.WriteByte(':')
		b.WriteString(strings.ToLower(c.Type))
	}
	if len(s.PrimaryKey) > 0 {
		b.WriteString("|pk:")
		b.WriteString(strings.Join(s.PrimaryKey, ","))
	}
	return b.String()
}

// DatasetInfo describes the active dataset for API callers.
type DatasetInfo struct {
	Table      string   `json:"table"`
	Dialect    string   `json:"dialect"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key,omitempty"`
	RowCount   int64    `json:"row_count"`
}
