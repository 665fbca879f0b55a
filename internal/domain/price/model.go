package price

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the provider, the artifact, and reports.
const DateLayout = "2006-01-02"

// Bar is one trading day's OHLCV record
// Maps to the price table (one row per date)
type Bar struct {
	Date   time.Time `json:"date" db:"date"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume int64     `json:"volume" db:"volume"`
}

// Series is a date-ordered run of bars for one symbol.
// Invariant: unique by date, ascending.
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries sorts bars ascending by date and rejects duplicate dates.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	for i := range sorted {
		sorted[i].Date = truncateDay(sorted[i].Date)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("%w: duplicate date %s", ErrDataShape, sorted[i].Date.Format(DateLayout))
		}
	}

	return &Series{Symbol: symbol, Bars: sorted}, nil
}

// Len returns the number of bars
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns closing prices in date order
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar
func (s *Series) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// First returns the oldest bar
func (s *Series) First() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// NextDay is the calendar day after date.
// No trading calendar is applied: Friday maps to Saturday.
func NextDay(date time.Time) time.Time {
	return truncateDay(date).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Direction is the expected next-day movement
type Direction string

const (
	Positive Direction = "Positive"
	Negative Direction = "Negative"
	Stable   Direction = "Stable"
)

// Model names a prediction strategy
type Model string

const (
	ModelSMA       Model = "sma"
	ModelEMA       Model = "ema"
	ModelPctChange Model = "pct"
)

// IsValid checks if model is a known strategy
func (m Model) IsValid() bool {
	switch m {
	case ModelSMA, ModelEMA, ModelPctChange:
		return true
	default:
		return false
	}
}

// Title is the report heading for the model
func (m Model) Title() string {
	switch m {
	case ModelSMA:
		return "SMA-Based Prediction"
	case ModelEMA:
		return "EMA-Based Prediction"
	case ModelPctChange:
		return "Percentage Change Prediction"
	default:
		return string(m)
	}
}

// AllModels lists strategies in report order
func AllModels() []Model {
	return []Model{ModelSMA, ModelEMA, ModelPctChange}
}

// ParseModels turns "sma,ema" into models; "all" or "" selects every model (nil).
func ParseModels(raw string) ([]Model, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}

	var models []Model
	seen := make(map[Model]bool)
	for _, part := range strings.Split(raw, ",") {
		m := Model(strings.TrimSpace(part))
		if !m.IsValid() {
			return nil, fmt.Errorf("%w: unknown model %q (want sma, ema, pct or all)", ErrConfiguration, part)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models, nil
}

// Input is one named numeric value a prediction was derived from.
type Input struct {
	Name  string
	Value float64
	Unit  string // "%" for percentages, empty for prices
}

// Prediction is one model's classification of the most recent bar.
type Prediction struct {
	Model      Model
	Direction  Direction
	Label      string // Direction, plus the signed percentage for the pct model
	Inputs     []Input
	AsOf       time.Time // last observed date
	TargetDate time.Time // AsOf + 1 calendar day
}

// Input returns the named input value
func (p Prediction) Input(name string) (float64, bool) {
	for _, in := range p.Inputs {
		if in.Name == name {
			return in.Value, true
		}
	}
	return 0, false
}
