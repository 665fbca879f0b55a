package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/trendcast/internal/api"
)

const serviceVersion = "1.0.0"

// serveCmd exposes the stored prices and predictions over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve prices and predictions over HTTP",
	Long: `Starts a read-only HTTP API on PORT (default 8099). It never fetches or
writes data; run the pipeline (or schedule) to refresh the price table.

Endpoints:
  GET /health                 liveness
  GET /health/ready           database reachable and price table present
  GET /api/health/detailed    pool statistics and table row count
  GET /api/prices?limit=30    most recent bars
  GET /api/prices/latest      most recent bar
  GET /api/predictions        next-day predictions (?model=sma,ema,pct)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{database: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	router := api.NewRouter(cfg, api.Deps{
		Health:    a.pool,
		Reader:    a.repo,
		Predictor: a.predictor,
	}, serviceVersion)
	srv := router.Server()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info().Msg("HTTP API stopped")
	return nil
}
