package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// PostgresImage is the stock image used for datasource integration tests.
const PostgresImage = "postgres:16-alpine"

// SeedSQL creates the dataset table the integration tests query.
const SeedSQL = `
CREATE TABLE current_dataset (
	id SERIAL PRIMARY KEY,
	region TEXT NOT NULL,
	product TEXT NOT NULL,
	sales NUMERIC(10,2) NOT NULL,
	order_date DATE NOT NULL
);
INSERT INTO current_dataset (region, product, sales, order_date) VALUES
	('West', 'Widget', 120.50, '2024-01-05'),
	('West', 'Gadget', 80.00, '2024-01-19'),
	('East', 'Widget', 200.00, '2024-02-02'),
	('East', 'Gizmo', 45.25, '2024-02-14'),
	('North', 'Gadget', 99.99, '2024-03-01'),
	('South', 'Widget', 150.00, '2024-03-22');
`

// TestDB holds a shared PostgreSQL container seeded with SeedSQL.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Config    config.DatasourceConfig
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "insight",
			"POSTGRES_USER":     "insight",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid mapped port %q: %w", port.Port(), err)
	}

	cfg := config.DatasourceConfig{
		Type:         "postgres",
		Host:         host,
		Port:         portNum,
		User:         "insight",
		Password:     "test_password",
		Database:     "insight",
		SSLMode:      "disable",
		Table:        "current_dataset",
		MaxRows:      1000,
		PoolMaxConns: 5,
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := pool.Exec(ctx, SeedSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to seed test database: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		Config:    cfg,
	}, nil
}
