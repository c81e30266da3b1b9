package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Adapter serves the dataset from SQL Server using SQL authentication.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens the connection pool and pings the server.
func NewAdapter(ctx context.Context, cfg *config.DatasourceConfig, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlserver", cfg.MSSQLConnectionString())
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if cfg.PoolMaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.PoolMaxConns))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	logger.Info("Connected to SQL Server datasource",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))
	return newAdapterWithDB(db, logger), nil
}

func newAdapterWithDB(db *sql.DB, logger *zap.Logger) *Adapter {
	return &Adapter{db: db, logger: logger}
}

func (a *Adapter) Dialect() string {
	return datasource.DialectSQLServer
}

const columnsQuery = `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(@name)
	ORDER BY c.column_id`

// GetTableSchema reads sys.columns for the table, defaulting to the dbo schema.
func (a *Adapter) GetTableSchema(ctx context.Context, table string) (*models.TableSchema, error) {
	schemaName, tableName := parseSchemaTable(table)

	rows, err := a.db.QueryContext(ctx, columnsQuery,
		sql.Named("name", quoteName(schemaName)+"."+quoteName(tableName)),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	schema := &models.TableSchema{Name: table}
	for rows.Next() {
		var name, dataType string
		var isPrimary int
		if err := rows.Scan(&name, &dataType, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		schema.Columns = append(schema.Columns, models.Column{Name: name, Type: mapSQLServerType(dataType)})
		if isPrimary == 1 {
			schema.PrimaryKey = append(schema.PrimaryKey, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %q: %w", table, apperrors.ErrNoDataset)
	}
	return schema, nil
}

// Query bounds the result with TOP. SQL Server rejects a CTE inside a derived
// table, so WITH queries run as written and are capped while scanning.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	effectiveLimit := datasource.EffectiveLimit(limit)
	queryToRun := boundedQuery(sqlQuery, effectiveLimit+1)

	rows, err := a.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanRows(rows, effectiveLimit, mapSQLServerType)
}

func boundedQuery(sqlQuery string, top int) string {
	trimmed := strings.TrimSpace(sqlQuery)
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "WITH") {
		return trimmed
	}
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", top, trimmed)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.Datasource = (*Adapter)(nil)
