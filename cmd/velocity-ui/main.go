package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/config"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/ui/server"
	"github.com/velocity-platform/console/internal/version"
)

func main() {
	cmd := &cobra.Command{
		Use:   "velocity-ui",
		Short: "Velocity web console",
		Long:  `Browser console for signing in to the Velocity compliance platform and viewing the dashboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	cmd.Version = version.Get().String()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewUI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load UI configuration: %v\n", err)
		return err
	}

	serverLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
	slog.SetDefault(serverLogger)

	serverLogger.Info("starting UI server", slog.String("version", version.Get().Version))

	apiClient, err := apiclient.New(
		apiclient.Config{BaseURL: cfg.APIBaseURL, Version: cfg.APIVersion},
		nil,
		nil,
		apiclient.WithLogger(serverLogger),
	)
	if err != nil {
		serverLogger.Error("invalid API configuration", slog.String("error", err.Error()))
		return err
	}
	serverLogger.Info("using velocity API", slog.String("url", apiClient.BaseURL()))

	srv := server.New(cfg, serverLogger, apiClient)

	// Set up graceful shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		serverLogger.Error("UI server error", slog.String("error", err.Error()))
		return err
	}

	serverLogger.Info("UI server shutdown complete")
	return nil
}
