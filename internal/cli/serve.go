package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-economy-ledger/config"
	"game-economy-ledger/internal/app"
	"game-economy-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cmd.Context(), cfg, specPath)
		},
	}
	cmd.Flags().StringVar(&specPath, "openapi", "docs/api/openapi.yaml", "OpenAPI document served at /swagger")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, specPath string) error {
	log, logFile := logger.NewWithFile(cfg.Log.Level, cfg.Log.Pretty, logger.FileOutput{
		Filename:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logFile.Close() //nolint:errcheck

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("driver", cfg.Database.Driver).
		Bool("redis", cfg.Redis.Enabled).
		Int("port", cfg.Server.Port).
		Msg("Starting Game Economy Ledger")

	ledger, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialise ledger")
		return err
	}
	ledger.Start()

	spec, err := os.ReadFile(specPath)
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           ledger.Router(spec),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		log.Info().Msg("Shutting down server...")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := ledger.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ledger did not drain before shutdown deadline")
	}

	log.Info().Msg("Server exited")
	return runErr
}
