package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
		},
		Factory: func(ctx context.Context, cfg warehouse.Config, logger *zap.Logger) (warehouse.Warehouse, error) {
			return NewAdapter(ctx, cfg, logger)
		},
	})
}
