package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wonny/trendcast/internal/api/response"
	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/service/signals"
)

const (
	defaultBarLimit = 30
	maxBarLimit     = 10000
)

// BarResponse is one row of the price table with its moving averages.
// An average is omitted until its window is filled.
type BarResponse struct {
	Date   string   `json:"date"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume int64    `json:"volume"`
	SMA5   *float64 `json:"sma_5,omitempty"`
	SMA20  *float64 `json:"sma_20,omitempty"`
	EMA5   *float64 `json:"ema_5,omitempty"`
	EMA20  *float64 `json:"ema_20,omitempty"`
}

// PriceHandler serves rows of the price table
type PriceHandler struct {
	reader price.TableReader
	symbol string
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(reader price.TableReader, symbol string) *PriceHandler {
	return &PriceHandler{reader: reader, symbol: symbol}
}

// List returns the most recent bars in ascending date order
// GET /api/prices?limit=30
func (h *PriceHandler) List(c *gin.Context) {
	limit := defaultBarLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBarLimit {
			response.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxBarLimit))
			return
		}
		limit = n
	}

	series, err := h.reader.LoadAll(c.Request.Context(), h.symbol)
	if err != nil {
		response.FromError(c, err)
		return
	}

	// averages are computed over the whole table so the windows of the first returned bars are filled
	features := signals.ComputeFeatures(series)

	start := 0
	if series.Len() > limit {
		start = series.Len() - limit
	}

	out := make([]BarResponse, 0, series.Len()-start)
	for i := start; i < series.Len(); i++ {
		bar := toBarResponse(series.Bars[i])
		bar.SMA5, bar.SMA20 = features.SMA5[i], features.SMA20[i]
		bar.EMA5, bar.EMA20 = features.EMA5[i], features.EMA20[i]
		out = append(out, bar)
	}
	response.SuccessList(c, out, len(out))
}

// Latest returns the most recent bar
// GET /api/prices/latest
func (h *PriceHandler) Latest(c *gin.Context) {
	series, err := h.reader.LoadAll(c.Request.Context(), h.symbol)
	if err != nil {
		response.FromError(c, err)
		return
	}

	last, ok := series.Last()
	if !ok {
		response.NotFound(c, "Price table is empty")
		return
	}
	response.Success(c, toBarResponse(last))
}

func toBarResponse(b price.Bar) BarResponse {
	return BarResponse{
		Date:   b.Date.Format(price.DateLayout),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}
