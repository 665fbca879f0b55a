package signals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
)

// DefaultPctThreshold is the band, in percent, inside which a move is Stable
const DefaultPctThreshold = 0.1

// MomentumCalculator classifies the last day-over-day percent change
type MomentumCalculator struct {
	threshold float64
}

// NewMomentumCalculator creates a calculator; threshold is in percent (0.1 = 0.1%)
func NewMomentumCalculator(threshold float64) *MomentumCalculator {
	return &MomentumCalculator{threshold: threshold}
}

// Model returns the strategy name
func (c *MomentumCalculator) Model() price.Model {
	return price.ModelPctChange
}

// MinBars is two: today and yesterday
func (c *MomentumCalculator) MinBars() int {
	return 2
}

// Predict classifies the most recent bar of series
func (c *MomentumCalculator) Predict(ctx context.Context, series *price.Series) (price.Prediction, error) {
	closes := series.Closes()

	pct, err := PctChange(closes)
	if err != nil {
		return price.Prediction{}, err
	}

	direction := Classify(pct, c.threshold)
	last, _ := series.Last()
	prev := series.Bars[series.Len()-2]

	log.Debug().
		Str("symbol", series.Symbol).
		Float64("close", last.Close).
		Float64("prev_close", prev.Close).
		Float64("pct_change", pct).
		Str("direction", string(direction)).
		Msg("Calculated momentum signal")

	return price.Prediction{
		Model:     price.ModelPctChange,
		Direction: direction,
		Label:     PctLabel(direction, pct),
		Inputs: []price.Input{
			{Name: "Today's Close", Value: last.Close},
			{Name: "Yesterday's Close", Value: prev.Close},
			{Name: "Percentage Change", Value: pct, Unit: "%"},
		},
		AsOf:       last.Date,
		TargetDate: price.NextDay(last.Date),
	}, nil
}

// Classify maps a percent change to a direction.
// The band is closed: exactly +threshold or -threshold is Stable.
func Classify(pct, threshold float64) price.Direction {
	switch {
	case pct > threshold:
		return price.Positive
	case pct < -threshold:
		return price.Negative
	default:
		return price.Stable
	}
}

// PctLabel renders "Positive (+0.81%)", "Negative (-1.27%)", "Stable (0.05%)"
func PctLabel(direction price.Direction, pct float64) string {
	value := FormatFixed(pct)
	if direction == price.Positive {
		value = "+" + value
	}
	return fmt.Sprintf("%s (%s%%)", direction, value)
}

// FormatFixed renders v with two decimal places.
// Rounding works on the exact binary value with ties to even, so 2.675 is "2.67" and -0.001 is "-0.00".
func FormatFixed(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
