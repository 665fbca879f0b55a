package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/infra/alphavantage"
	"github.com/wonny/trendcast/internal/infra/artifact"
	"github.com/wonny/trendcast/internal/infra/database/postgres"
	"github.com/wonny/trendcast/internal/pkg/config"
	"github.com/wonny/trendcast/internal/service/pipeline"
	"github.com/wonny/trendcast/internal/service/signals"
)

// needs selects which external systems a command touches
type needs struct {
	market   bool
	database bool
}

// app holds the wired pipeline and the resources it owns
type app struct {
	cfg       *config.Config
	pool      *postgres.Pool
	repo      *postgres.PriceRepository
	predictor *signals.Predictor
	pipeline  *pipeline.Pipeline
}

// newApp validates the settings n requires and wires the pipeline.
// The database pool is opened only when n.database is set.
func newApp(ctx context.Context, cfg *config.Config, n needs, out io.Writer) (*app, error) {
	var err error
	switch {
	case n.market && n.database:
		err = cfg.Validate()
	case n.market:
		err = cfg.ValidateMarket()
	case n.database:
		err = cfg.ValidateDatabase()
	}
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	deps := pipeline.Deps{
		Symbol:   cfg.Market.Symbol,
		Artifact: artifact.NewStore(cfg.Artifact.Path),
		Out:      out,
	}

	if n.market {
		deps.Source = alphavantage.NewClient(cfg.Market)
	}

	if n.database {
		a.pool, err = postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Debug().Msg("Database connected")

		a.repo = postgres.NewPriceRepository(a.pool, cfg.Database.Table)
		a.predictor = signals.NewPredictor(a.repo, cfg.Market.Symbol, cfg.Market.DisplayName, cfg.Predictor.PctThreshold)
		deps.Writer = a.repo
		deps.Predictor = a.predictor
	}

	a.pipeline = pipeline.New(deps)
	return a, nil
}

// Close releases the database pool
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
