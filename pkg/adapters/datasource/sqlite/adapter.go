package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// emptyDSN is a private in-memory database with no tables.
const emptyDSN = "file::memory:"

// Adapter reads the dataset from a SQLite file opened read-only.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens the database at cfg.Path and verifies it is reachable.
// A missing file is not an error: the adapter serves an empty in-memory
// database, so every schema lookup reports no dataset.
func NewAdapter(ctx context.Context, cfg *config.DatasourceConfig, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := cfg.SQLiteDSN()
	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("SQLite dataset file not found; no dataset is loaded", zap.String("path", cfg.Path))
		dsn = emptyDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.PoolMaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.PoolMaxConns))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	logger.Info("Opened SQLite datasource", zap.String("path", cfg.Path))
	return newAdapterWithDB(db, logger), nil
}

func newAdapterWithDB(db *sql.DB, logger *zap.Logger) *Adapter {
	return &Adapter{db: db, logger: logger}
}

func (a *Adapter) Dialect() string {
	return datasource.DialectSQLite
}

// GetTableSchema reads column definitions with PRAGMA table_info.
func (a *Adapter) GetTableSchema(ctx context.Context, table string) (*models.TableSchema, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	schema := &models.TableSchema{Name: table}
	type pkColumn struct {
		name string
		pos  int
	}
	var pks []pkColumn
	for rows.Next() {
		var name, colType string
		var pk int
		if err := rows.Scan(&name, &colType, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		schema.Columns = append(schema.Columns, models.Column{Name: name, Type: normalizeType(colType)})
		if pk > 0 {
			pks = append(pks, pkColumn{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %q: %w", table, apperrors.ErrNoDataset)
	}

	// pk holds the 1-based position within a composite key.
	for pos := 1; pos <= len(pks); pos++ {
		for _, p := range pks {
			if p.pos == pos {
				schema.PrimaryKey = append(schema.PrimaryKey, p.name)
			}
		}
	}

	return schema, nil
}

// Query wraps sql in a bounded outer select and reads one row past the limit
// to detect truncation.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	effectiveLimit := datasource.EffectiveLimit(limit)
	queryToRun := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlQuery, effectiveLimit+1)

	rows, err := a.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanRows(rows, effectiveLimit, normalizeType)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

// normalizeType upper-cases a declared type. Expression columns have no
// declared type and report "".
func normalizeType(declared string) string {
	return strings.ToUpper(strings.TrimSpace(declared))
}

var _ datasource.Datasource = (*Adapter)(nil)
