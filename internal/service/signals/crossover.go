package signals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
)

// CrossoverCalculator compares a short and a long moving average on the last bar.
// Short above long is Positive, below is Negative, equal is Stable.
type CrossoverCalculator struct {
	model   price.Model
	prefix  string
	short   int
	long    int
	average func(values []float64, window int) []*float64
}

// NewSMACalculator compares SMA_5 with SMA_20
func NewSMACalculator() *CrossoverCalculator {
	return &CrossoverCalculator{
		model:   price.ModelSMA,
		prefix:  "SMA",
		short:   ShortWindow,
		long:    LongWindow,
		average: SMA,
	}
}

// NewEMACalculator compares EMA_5 with EMA_20
func NewEMACalculator() *CrossoverCalculator {
	return &CrossoverCalculator{
		model:   price.ModelEMA,
		prefix:  "EMA",
		short:   ShortWindow,
		long:    LongWindow,
		average: EMA,
	}
}

// Model returns the strategy name
func (c *CrossoverCalculator) Model() price.Model {
	return c.model
}

// MinBars is the history the long window needs.
// EMA is defined from the first bar, but it is held to the same minimum as SMA.
func (c *CrossoverCalculator) MinBars() int {
	return c.long
}

// Predict classifies the most recent bar of series
func (c *CrossoverCalculator) Predict(ctx context.Context, series *price.Series) (price.Prediction, error) {
	if n := series.Len(); n < c.MinBars() {
		return price.Prediction{}, fmt.Errorf("%w: %s_%d needs %d bars, have %d",
			price.ErrInsufficientHistory, c.prefix, c.long, c.MinBars(), n)
	}

	closes := series.Closes()
	short, _ := Last(c.average(closes, c.short))
	long, _ := Last(c.average(closes, c.long))
	direction := Compare(short, long)

	last, _ := series.Last()

	log.Debug().
		Str("symbol", series.Symbol).
		Str("model", string(c.model)).
		Float64("short", short).
		Float64("long", long).
		Str("direction", string(direction)).
		Msg("Calculated crossover signal")

	return price.Prediction{
		Model:     c.model,
		Direction: direction,
		Label:     string(direction),
		Inputs: []price.Input{
			{Name: fmt.Sprintf("%s_%d", c.prefix, c.short), Value: short},
			{Name: fmt.Sprintf("%s_%d", c.prefix, c.long), Value: long},
		},
		AsOf:       last.Date,
		TargetDate: price.NextDay(last.Date),
	}, nil
}

// Compare orders a short average against a long one
func Compare(short, long float64) price.Direction {
	switch {
	case short > long:
		return price.Positive
	case short < long:
		return price.Negative
	default:
		return price.Stable
	}
}
