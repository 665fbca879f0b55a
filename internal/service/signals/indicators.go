package signals

import (
	"fmt"

	"github.com/wonny/trendcast/internal/domain/price"
)

// SMA returns the trailing simple moving average of values over window.
// The first window-1 entries are nil.
func SMA(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		var sum float64
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		mean := sum / float64(window)
		out[i] = &mean
	}
	return out
}

// EMA returns the recursive exponential moving average with alpha = 2/(span+1),
// seeded by the first value: EMA_0 = v_0, EMA_t = alpha*v_t + (1-alpha)*EMA_{t-1}.
func EMA(values []float64, span int) []*float64 {
	out := make([]*float64, len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}

	alpha := Alpha(span)
	ema := values[0]
	first := ema
	out[0] = &first

	for i := 1; i < len(values); i++ {
		// same recurrence, arranged so a constant input stays exactly constant
		ema += alpha * (values[i] - ema)
		v := ema
		out[i] = &v
	}
	return out
}

// Alpha converts an EMA span to its smoothing factor
func Alpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}

// PctChange is (last - prev) / prev * 100 over the final two values.
func PctChange(values []float64) (float64, error) {
	n := len(values)
	if n < 2 {
		return 0, fmt.Errorf("%w: percent change needs 2 bars, have %d", price.ErrInsufficientHistory, n)
	}

	prev, last := values[n-2], values[n-1]
	if prev == 0 {
		return 0, fmt.Errorf("%w: previous close is zero", price.ErrDataShape)
	}

	return (last - prev) / prev * 100, nil
}
