package warehouse

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered warehouse adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "snowflake", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "Snowflake", "PostgreSQL"
}

// AdapterRegistration contains info plus the factory for creating adapters.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory func(ctx context.Context, cfg Config, logger *zap.Logger) (Warehouse, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// IsRegistered checks if a warehouse type is available.
func IsRegistered(whType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[whType]
	return ok
}

// New creates the warehouse adapter for cfg.Type from the registry.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Warehouse, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported warehouse type: %s (not compiled in)", cfg.Type)
	}
	return reg.Factory(ctx, cfg, logger)
}
