package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/infra/database/postgres"
)

// healthCmd checks connectivity and the price table
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database and the price table",
	Long: `Pings PostgreSQL, counts the rows of PRICE_TABLE and prints the result as JSON.
Exits non-zero unless the database is reachable and the table exists.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	status := pool.Health(ctx, cfg.Database.Table)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return err
	}

	log.Debug().
		Str("status", status.Status).
		Int64("table_rows", status.TableRows).
		Str("response_time", status.ResponseTime).
		Msg("Health checked")

	if status.Status != "healthy" {
		return fmt.Errorf("%w: database %s: %s", price.ErrPersistence, status.Status, status.Error)
	}
	return nil
}
