package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// MaxQueryLimit is the hard cap on rows returned by Query, whatever the caller asks for.
const MaxQueryLimit = 1000

// Dialect names used in prompts and logs.
const (
	DialectSQLite     = "SQLite"
	DialectPostgreSQL = "PostgreSQL"
	DialectSQLServer  = "SQL Server"
)

// SchemaProvider describes the table the active dataset lives in.
type SchemaProvider interface {
	// GetTableSchema returns the table's columns in declaration order.
	// Returns apperrors.ErrNoDataset when the table does not exist.
	GetTableSchema(ctx context.Context, table string) (*models.TableSchema, error)
}

// QueryExecutor runs read-only queries with bounded results.
type QueryExecutor interface {
	// Query runs sql and returns at most limit rows. A limit <= 0 or above
	// MaxQueryLimit is clamped to MaxQueryLimit. Truncated is set when the
	// query produced more rows than were returned.
	Query(ctx context.Context, sql string, limit int) (*QueryResult, error)
}

// Datasource is an open connection to the database holding the dataset.
type Datasource interface {
	SchemaProvider
	QueryExecutor

	// Dialect is the SQL flavour the model should write.
	Dialect() string

	Close() error
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds rows keyed by column name.
type QueryResult struct {
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

// ColumnNames returns the result's column names in order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// EffectiveLimit clamps limit to (0, MaxQueryLimit].
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
