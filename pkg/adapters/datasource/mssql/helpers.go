package mssql

import (
	"strings"
)

// DefaultSchema is used for table names without a schema prefix.
const DefaultSchema = "dbo"

// parseSchemaTable splits "[schema].[table]" or "schema.table". A bare name
// belongs to DefaultSchema.
func parseSchemaTable(tableName string) (string, string) {
	cleaned := strings.NewReplacer("[", "", "]", "").Replace(tableName)
	if schema, table, ok := strings.Cut(cleaned, "."); ok {
		return schema, table
	}
	return DefaultSchema, cleaned
}

// quoteName brackets an identifier the way QUOTENAME() does.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

// sqlServerTypes maps SQL Server type names onto the names the other
// adapters report, so prompts and text conversion see one vocabulary.
var sqlServerTypes = map[string]string{
	"INT":              "INTEGER",
	"DECIMAL":          "NUMERIC",
	"SMALLMONEY":       "MONEY",
	"FLOAT":            "DOUBLE PRECISION",
	"NCHAR":            "CHAR",
	"NVARCHAR":         "VARCHAR",
	"NTEXT":            "TEXT",
	"BINARY":           "BYTEA",
	"VARBINARY":        "BYTEA",
	"IMAGE":            "BLOB",
	"DATETIME":         "TIMESTAMP",
	"DATETIME2":        "TIMESTAMP",
	"SMALLDATETIME":    "TIMESTAMP",
	"DATETIMEOFFSET":   "TIMESTAMP WITH TIME ZONE",
	"BIT":              "BOOLEAN",
	"UNIQUEIDENTIFIER": "UUID",
}

// mapSQLServerType returns the shared type name; unknown types pass through
// upper-cased.
func mapSQLServerType(sqlServerType string) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlServerType))
	if mapped, ok := sqlServerTypes[upper]; ok {
		return mapped
	}
	return upper
}
