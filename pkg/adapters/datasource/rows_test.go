package datasource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScanRows_MapsColumnsAndConvertsText(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("region").OfType("VARCHAR", ""),
		mock.NewColumn("total").OfType("INTEGER", int64(0)),
		mock.NewColumn("payload").OfType("BLOB", []byte(nil)),
	).
		AddRow([]byte("West"), int64(120), []byte{0x01, 0x02}).
		AddRow([]byte("East"), int64(80), nil)
	mock.ExpectQuery("SELECT region").WillReturnRows(rows)

	sqlRows, err := db.QueryContext(context.Background(), "SELECT region, total, payload FROM sales")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer sqlRows.Close()

	result, err := ScanRows(sqlRows, 10, strings.ToLower)
	if err != nil {
		t.Fatalf("ScanRows: %v", err)
	}

	if result.RowCount != 2 || result.Truncated {
		t.Fatalf("expected 2 untruncated rows, got %d truncated=%v", result.RowCount, result.Truncated)
	}
	if got := result.ColumnNames(); strings.Join(got, ",") != "region,total,payload" {
		t.Errorf("unexpected columns %v", got)
	}
	if result.Columns[1].Type != "integer" {
		t.Errorf("type mapper not applied: %q", result.Columns[1].Type)
	}
	if result.Rows[0]["region"] != "West" {
		t.Errorf("expected text column converted to string, got %#v", result.Rows[0]["region"])
	}
	if _, ok := result.Rows[0]["payload"].([]byte); !ok {
		t.Errorf("expected blob column to stay []byte, got %T", result.Rows[0]["payload"])
	}
	if result.Rows[1]["payload"] != nil {
		t.Errorf("expected NULL to stay nil, got %#v", result.Rows[1]["payload"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestScanRows_StopsAtLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := mock.NewRowsWithColumnDefinition(mock.NewColumn("n").OfType("INTEGER", int64(0)))
	for i := 0; i < 5; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectQuery("SELECT n").WillReturnRows(rows)

	sqlRows, err := db.Query("SELECT n FROM numbers")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer sqlRows.Close()

	result, err := ScanRows(sqlRows, 3, nil)
	if err != nil {
		t.Fatalf("ScanRows: %v", err)
	}
	if result.RowCount != 3 {
		t.Errorf("expected 3 rows, got %d", result.RowCount)
	}
	if !result.Truncated {
		t.Error("expected Truncated when more rows were available")
	}
}

func TestScanRows_EmptyResultHasNonNilRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		mock.NewRowsWithColumnDefinition(mock.NewColumn("id").OfType("INTEGER", int64(0))),
	)

	sqlRows, err := db.Query("SELECT id FROM empty")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer sqlRows.Close()

	result, err := ScanRows(sqlRows, 10, nil)
	if err != nil {
		t.Fatalf("ScanRows: %v", err)
	}
	if result.Rows == nil || result.RowCount != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", result.Rows)
	}
}

func TestScanRows_IterationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := mock.NewRowsWithColumnDefinition(mock.NewColumn("n").OfType("INTEGER", int64(0))).
		AddRow(int64(1)).
		AddRow(int64(2)).
		RowError(1, errors.New("connection lost"))
	mock.ExpectQuery("SELECT n").WillReturnRows(rows)

	sqlRows, err := db.Query("SELECT n FROM numbers")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer sqlRows.Close()

	if _, err := ScanRows(sqlRows, 10, nil); err == nil || !strings.Contains(err.Error(), "connection lost") {
		t.Errorf("expected iteration error, got %v", err)
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := map[int]int{
		0:    MaxQueryLimit,
		-5:   MaxQueryLimit,
		50:   50,
		5000: MaxQueryLimit,
	}
	for in, want := range tests {
		if got := EffectiveLimit(in); got != want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
