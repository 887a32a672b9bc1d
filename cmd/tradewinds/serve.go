package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tradewinds/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API.

Endpoints:
  GET  /                          service banner
  GET  /healthz                   liveness and session count
  POST /analyze                   classify a product and estimate duty
  POST /recalculate               re-run tariff and risk with overrides
  POST /generate-report           summary of a stored analysis
  GET  /generate-report/:id/xlsx  Excel workbook for a stored analysis`,
		RunE: runServe,
	}

	cmd.Flags().String("host", "", "listen host (overrides server.host)")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	app, err := newApplication(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close session store", "error", err)
		}
	}()

	srv, err := server.New(appConfig.ServerConfig(), app.service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("Starting tradewinds API",
		"version", version,
		"sessions", appConfig.Sessions.Backend,
		"ai_enabled", appConfig.LLM.Enabled,
		"provider", appConfig.LLM.Provider)

	return srv.Run(ctx)
}
