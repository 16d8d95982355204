// Package cli implements the command actions behind the ipc-assist binary.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"ipc-assist/internal/platform/config"
	"ipc-assist/internal/platform/container"
	"ipc-assist/internal/platform/logger"
)

// AppContext carries the shared state every command action needs.
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// NewAppContext loads configuration, sets up logging and wires the service
// container.
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg, err := logger.LoadConfig(cfg.LoggingConfigPath)
	if err != nil {
		return nil, err
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(appLogger)

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close releases the resources held by the context.
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger returns the application logger.
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
