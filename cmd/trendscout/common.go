package main

import (
	"context"
	"fmt"

	"github.com/abdulachik/trendscout/internal/app"
	"github.com/abdulachik/trendscout/internal/config"
)

// openApp loads configuration, applies validate and builds the container.
func openApp(ctx context.Context, validate func(*config.Config) error) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return app.New(ctx, cfg)
}
