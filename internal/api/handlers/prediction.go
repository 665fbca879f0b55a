package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wonny/trendcast/internal/api/response"
	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/service/signals"
)

// Predictor produces a report from the stored table
type Predictor interface {
	Predict(ctx context.Context, models ...price.Model) (*signals.Report, error)
}

// ReportResponse is the JSON form of a prediction report
type ReportResponse struct {
	Symbol      string               `json:"symbol"`
	Name        string               `json:"name"`
	Bars        int                  `json:"bars"`
	AsOf        string               `json:"as_of"`
	TargetDate  string               `json:"target_date"`
	Predictions []PredictionResponse `json:"predictions"`
}

// PredictionResponse is one model's result
type PredictionResponse struct {
	Model     string          `json:"model"`
	Title     string          `json:"title"`
	Direction string          `json:"direction"`
	Label     string          `json:"label"`
	Inputs    []InputResponse `json:"inputs"`
}

// InputResponse is one value a prediction was derived from; Display is rounded to 2 dp
type InputResponse struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	Display string  `json:"display"`
}

// PredictionHandler serves next-day predictions
type PredictionHandler struct {
	predictor Predictor
}

// NewPredictionHandler creates a new PredictionHandler
func NewPredictionHandler(predictor Predictor) *PredictionHandler {
	return &PredictionHandler{predictor: predictor}
}

// Get evaluates the requested models against the current table
// GET /api/predictions?model=sma,ema
func (h *PredictionHandler) Get(c *gin.Context) {
	models, err := price.ParseModels(c.DefaultQuery("model", "all"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	report, err := h.predictor.Predict(c.Request.Context(), models...)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toReportResponse(report))
}

func toReportResponse(r *signals.Report) ReportResponse {
	out := ReportResponse{
		Symbol:      r.Symbol,
		Name:        r.Name,
		Bars:        r.Bars,
		AsOf:        r.AsOf.Format(price.DateLayout),
		TargetDate:  r.TargetDate.Format(price.DateLayout),
		Predictions: make([]PredictionResponse, 0, len(r.Predictions)),
	}

	for _, p := range r.Predictions {
		pr := PredictionResponse{
			Model:     string(p.Model),
			Title:     p.Model.Title(),
			Direction: string(p.Direction),
			Label:     p.Label,
			Inputs:    make([]InputResponse, 0, len(p.Inputs)),
		}
		for _, in := range p.Inputs {
			pr.Inputs = append(pr.Inputs, InputResponse{
				Name:    in.Name,
				Value:   in.Value,
				Unit:    in.Unit,
				Display: signals.FormatFixed(in.Value) + in.Unit,
			})
		}
		out.Predictions = append(out.Predictions, pr)
	}

	return out
}
