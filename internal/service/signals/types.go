package signals

import (
	"time"

	"github.com/wonny/trendcast/internal/domain/price"
)

// Window sizes of the moving-average models
const (
	ShortWindow = 5
	LongWindow  = 20
)

// Features holds per-bar derived values.
// A nil entry means the window is not yet filled at that bar.
type Features struct {
	Dates []time.Time
	SMA5  []*float64
	SMA20 []*float64
	EMA5  []*float64
	EMA20 []*float64

	// PctChange is computed for the final bar only; nil with fewer than 2 bars
	PctChange *float64
}

// ComputeFeatures derives SMA_5, SMA_20, EMA_5, EMA_20 for every bar and
// the day-over-day percent change for the last bar.
func ComputeFeatures(series *price.Series) Features {
	closes := series.Closes()

	f := Features{
		Dates: make([]time.Time, len(series.Bars)),
		SMA5:  SMA(closes, ShortWindow),
		SMA20: SMA(closes, LongWindow),
		EMA5:  EMA(closes, ShortWindow),
		EMA20: EMA(closes, LongWindow),
	}
	for i, b := range series.Bars {
		f.Dates[i] = b.Date
	}

	if pct, err := PctChange(closes); err == nil {
		f.PctChange = &pct
	}

	return f
}

// Last returns the final value of a feature column
func Last(values []*float64) (float64, bool) {
	if len(values) == 0 || values[len(values)-1] == nil {
		return 0, false
	}
	return *values[len(values)-1], true
}
