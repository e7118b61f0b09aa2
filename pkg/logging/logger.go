// Package logging builds the zap logger used across the engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a logger appropriate for the given environment.
// "local" and "dev" get human-readable console output; everything
// else gets production JSON.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "local", "dev":
		cfg := zap.NewDevelopmentConfig()
		logger, err = cfg.Build()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
