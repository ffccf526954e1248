// Command wellnessctl records and inspects wellness entries from the
// terminal, using the same storage configuration as the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"wellnesslog/internal/cli"
	applog "wellnesslog/internal/log"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp loads the configuration and opens the configured backend. Logs go
// to stderr so command output stays clean.
func openApp(ctx context.Context) (*cli.App, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Component: applog.ComponentCLI,
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: max(applog.ParseLevel(cfg.LogLevel), slog.LevelWarn),
		}),
	})
	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}
	return app, nil
}
