package mssql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newAdapterWithDB(db, zap.NewNop()), mock
}

func TestAdapter_GetTableSchema(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sys.columns c")).
		WithArgs(sql.Named("name", "[dbo].[current_dataset]")).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_primary_key"}).
			AddRow("id", "int", 1).
			AddRow("region", "nvarchar", 0).
			AddRow("sales", "decimal", 0))

	schema, err := a.GetTableSchema(context.Background(), "current_dataset")
	if err != nil {
		t.Fatalf("GetTableSchema: %v", err)
	}

	if got := strings.Join(schema.ColumnNames(), ","); got != "id,region,sales" {
		t.Errorf("unexpected columns %s", got)
	}
	if schema.Columns[0].Type != "INTEGER" || schema.Columns[1].Type != "VARCHAR" || schema.Columns[2].Type != "NUMERIC" {
		t.Errorf("types not mapped: %+v", schema.Columns)
	}
	if len(schema.PrimaryKey) != 1 || schema.PrimaryKey[0] != "id" {
		t.Errorf("expected primary key [id], got %v", schema.PrimaryKey)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAdapter_GetTableSchema_SchemaQualified(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sys.columns c")).
		WithArgs(sql.Named("name", "[sales].[orders]")).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_primary_key"}))

	_, err := a.GetTableSchema(context.Background(), "[sales].[orders]")
	if !errors.Is(err, apperrors.ErrNoDataset) {
		t.Errorf("expected ErrNoDataset for table without columns, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAdapter_Query_WrapsWithTop(t *testing.T) {
	a, mock := newMockAdapter(t)

	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("region").OfType("NVARCHAR", ""),
		mock.NewColumn("total").OfType("INT", int64(0)),
	).AddRow("West", int64(3)).AddRow("East", int64(2)).AddRow("North", int64(1))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT TOP (3) * FROM (SELECT region, COUNT(*) AS total FROM current_dataset GROUP BY region) AS _limited")).
		WillReturnRows(rows)

	result, err := a.Query(context.Background(), "SELECT region, COUNT(*) AS total FROM current_dataset GROUP BY region", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.RowCount != 2 || !result.Truncated {
		t.Errorf("expected 2 truncated rows, got %d truncated=%v", result.RowCount, result.Truncated)
	}
	if result.Columns[1].Type != "INTEGER" {
		t.Errorf("expected mapped INTEGER type, got %s", result.Columns[1].Type)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBoundedQuery(t *testing.T) {
	if got := boundedQuery("  SELECT 1 ", 11); got != "SELECT TOP (11) * FROM (SELECT 1) AS _limited" {
		t.Errorf("unexpected wrap: %s", got)
	}
	cte := "WITH t AS (SELECT 1 AS n) SELECT n FROM t"
	if got := boundedQuery(cte, 11); got != cte {
		t.Errorf("CTE should not be wrapped: %s", got)
	}
}

func TestParseSchemaTable(t *testing.T) {
	tests := []struct {
		in, schema, table string
	}{
		{"current_dataset", "dbo", "current_dataset"},
		{"sales.orders", "sales", "orders"},
		{"[sales].[orders]", "sales", "orders"},
	}
	for _, tt := range tests {
		s, tb := parseSchemaTable(tt.in)
		if s != tt.schema || tb != tt.table {
			t.Errorf("parseSchemaTable(%q) = %q, %q", tt.in, s, tb)
		}
	}
}

func TestQuoteName(t *testing.T) {
	if got := quoteName("odd]name"); got != "[odd]]name]" {
		t.Errorf("unexpected quoting: %s", got)
	}
}

func TestMapSQLServerType(t *testing.T) {
	tests := map[string]string{
		"int":              "INTEGER",
		"nvarchar":         "VARCHAR",
		"datetime2":        "TIMESTAMP",
		"uniqueidentifier": "UUID",
		"bigint":           "BIGINT",
		" geography ":      "GEOGRAPHY",
	}
	for in, want := range tests {
		if got := mapSQLServerType(in); got != want {
			t.Errorf("mapSQLServerType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdapter_Dialect(t *testing.T) {
	a, _ := newMockAdapter(t)
	if a.Dialect() != datasource.DialectSQLServer {
		t.Errorf("unexpected dialect %q", a.Dialect())
	}
	if !datasource.IsRegistered("mssql") {
		t.Error("mssql adapter should register itself")
	}
}

func TestAdapter_Query_PreviewWithTop(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT TOP (3) * FROM (SELECT TOP 10 * FROM "current_dataset") AS _limited`)).
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			mock.NewColumn("region").OfType("NVARCHAR", ""),
		).AddRow("West").AddRow("East"))

	result, err := a.Query(context.Background(), `SELECT TOP 10 * FROM "current_dataset"`, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.RowCount != 2 || result.Truncated {
		t.Errorf("expected 2 rows untruncated, got %d truncated=%v", result.RowCount, result.Truncated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
