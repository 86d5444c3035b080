// Package logging builds the engine's structured logger and keeps
// credentials out of log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a zap logger for the given environment: human-readable
// development output for "local", JSON production output otherwise.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
