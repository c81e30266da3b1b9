package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "sqlite", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "SQLite", "PostgreSQL"
	Dialect     string `json:"dialect"`
}

// Factory opens a datasource from configuration.
type Factory func(ctx context.Context, cfg *config.DatasourceConfig, logger *zap.Logger) (Datasource, error)

// Registration pairs adapter info with its factory.
type Registration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// Open creates the datasource named by cfg.Type. The adapter package must be
// linked in (blank import) for its type to be registered.
func Open(ctx context.Context, cfg *config.DatasourceConfig, logger *zap.Logger) (Datasource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registryMu.RLock()
	reg, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (not compiled in)", apperrors.ErrUnsupportedDatasource, cfg.Type)
	}

	ds, err := reg.Factory(ctx, cfg, logger.Named("datasource").With(zap.String("type", cfg.Type)))
	if err != nil {
		return nil, fmt.Errorf("open %s datasource: %w", cfg.Type, err)
	}
	return ds, nil
}
