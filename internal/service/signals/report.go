package signals

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/trendcast/internal/domain/price"
)

// Report is the outcome of one prediction run
type Report struct {
	Symbol      string
	Name        string
	Bars        int
	AsOf        time.Time
	TargetDate  time.Time
	Predictions []price.Prediction
}

// Prediction returns the prediction of model m
func (r *Report) Prediction(m price.Model) (price.Prediction, bool) {
	for _, p := range r.Predictions {
		if p.Model == m {
			return p, true
		}
	}
	return price.Prediction{}, false
}

// Render writes the human-readable report
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	name := r.Name
	if name == "" {
		name = r.Symbol
	}

	fmt.Fprintf(&b, "The stock price of %s predicted for the next day: %s is:\n",
		name, r.TargetDate.Format(price.DateLayout))

	for i, p := range r.Predictions {
		fmt.Fprintf(&b, "\n%d. %s:\n", i+1, p.Model.Title())
		for _, in := range p.Inputs {
			fmt.Fprintf(&b, "  - %s: %s%s\n", in.Name, FormatFixed(in.Value), in.Unit)
		}
		fmt.Fprintf(&b, "  - Prediction: %s\n", p.Label)
	}

	fmt.Fprintf(&b, "\nBased on %d bars through %s. The target date is the next calendar day; weekends and holidays are not skipped.\n",
		r.Bars, r.AsOf.Format(price.DateLayout))

	_, err := io.WriteString(w, b.String())
	return err
}
