package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
)

// Strategy is one named prediction model
type Strategy interface {
	Model() price.Model
	MinBars() int
	Predict(ctx context.Context, series *price.Series) (price.Prediction, error)
}

// Predictor reads the price table and runs the selected strategies on its last bar
type Predictor struct {
	reader     price.TableReader
	symbol     string
	name       string
	strategies map[price.Model]Strategy
}

// NewPredictor creates a Predictor with the SMA, EMA and percent-change strategies registered.
// name is the human-readable instrument name used in the report.
func NewPredictor(reader price.TableReader, symbol, name string, pctThreshold float64) *Predictor {
	p := &Predictor{
		reader:     reader,
		symbol:     symbol,
		name:       name,
		strategies: make(map[price.Model]Strategy),
	}
	p.Register(NewSMACalculator())
	p.Register(NewEMACalculator())
	p.Register(NewMomentumCalculator(pctThreshold))
	return p
}

// Register adds or replaces a strategy
func (p *Predictor) Register(s Strategy) {
	p.strategies[s.Model()] = s
}

// Predict loads the full series and evaluates models (all of them when none are given).
func (p *Predictor) Predict(ctx context.Context, models ...price.Model) (*Report, error) {
	if len(models) == 0 {
		models = price.AllModels()
	}
	if err := p.check(models); err != nil {
		return nil, err
	}

	series, err := p.reader.LoadAll(ctx, p.symbol)
	if err != nil {
		return nil, err
	}

	return p.Evaluate(ctx, series, models...)
}

// Evaluate runs models against an already loaded series.
// The first failing model aborts the evaluation.
func (p *Predictor) Evaluate(ctx context.Context, series *price.Series, models ...price.Model) (*Report, error) {
	if len(models) == 0 {
		models = price.AllModels()
	}
	if err := p.check(models); err != nil {
		return nil, err
	}

	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("%w: price table is empty", price.ErrInsufficientHistory)
	}

	report := &Report{
		Symbol:     series.Symbol,
		Name:       p.name,
		Bars:       series.Len(),
		AsOf:       last.Date,
		TargetDate: price.NextDay(last.Date),
	}

	start := time.Now()
	for _, m := range models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prediction, err := p.strategies[m].Predict(ctx, series)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", m, err)
		}
		report.Predictions = append(report.Predictions, prediction)
	}

	log.Info().
		Str("symbol", series.Symbol).
		Int("bars", series.Len()).
		Int("models", len(report.Predictions)).
		Str("as_of", last.Date.Format(price.DateLayout)).
		Dur("elapsed", time.Since(start)).
		Msg("Predictions computed")

	return report, nil
}

func (p *Predictor) check(models []price.Model) error {
	for _, m := range models {
		if _, ok := p.strategies[m]; !ok {
			return fmt.Errorf("%w: unknown model %q", price.ErrConfiguration, m)
		}
	}
	return nil
}
