package datasource

import (
	"database/sql"
	"fmt"
	"strings"
)

// TypeMapper turns a driver type name into the name reported in ColumnInfo.
type TypeMapper func(databaseTypeName string) string

// ScanRows reads up to limit rows from a database/sql result set into maps.
// Reading one row past the limit sets Truncated. Byte slices from text
// columns are converted to strings; other byte slices are left alone.
func ScanRows(rows *sql.Rows, limit int, mapType TypeMapper) (*QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		typeName := ""
		if i < len(columnTypes) {
			typeName = columnTypes[i].DatabaseTypeName()
		}
		if mapType != nil {
			typeName = mapType(typeName)
		}
		columns[i] = ColumnInfo{Name: name, Type: typeName}
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			val := values[i]
			if b, ok := val.([]byte); ok && isTextColumn(columns[i].Type) {
				val = string(b)
			}
			row[col] = val
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// isTextColumn reports whether a column's driver type holds text. An empty
// type (SQLite expressions) is treated as text.
func isTextColumn(typeName string) bool {
	t := strings.ToUpper(typeName)
	if t == "" {
		return true
	}
	for _, marker := range []string{"CHAR", "TEXT", "CLOB", "STRING", "XML", "JSON", "UUID", "UNIQUEIDENTIFIER", "DECIMAL", "NUMERIC", "MONEY"} {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
