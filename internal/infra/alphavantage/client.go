package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/pkg/config"
)

const (
	functionDaily   = "TIME_SERIES_DAILY"
	timeSeriesKey   = "Time Series (Daily)"
	maxErrorSnippet = 512
)

// Client handles Alpha Vantage daily time series requests
type Client struct {
	baseURL    string
	apiKey     string
	outputSize string
	maxRetries int
	retryWait  time.Duration
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(cfg config.MarketConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		outputSize: cfg.OutputSize,
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if c.outputSize == "" {
		c.outputSize = "full"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dailyResponse represents the TIME_SERIES_DAILY payload.
// The provider reports failures with HTTP 200 and one of the message fields set.
type dailyResponse struct {
	MetaData     map[string]string            `json:"Meta Data"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

// FetchDaily fetches the full daily history for symbol, oldest bar first.
func (c *Client) FetchDaily(ctx context.Context, symbol string) (*price.Series, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: missing ALPHA_VANTAGE_API_KEY", price.ErrConfiguration)
	}

	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		b, err := c.get(ctx, symbol)
		if err != nil {
			if errors.Is(err, price.ErrNetwork) {
				log.Warn().Err(err).Int("attempt", attempt).Str("symbol", symbol).Msg("Daily series request failed")
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	if c.retryWait > 0 {
		bo.InitialInterval = c.retryWait
	}
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, price.ErrNetwork) {
			return nil, fmt.Errorf("%w: %v", price.ErrNetwork, ctxErr)
		}
		return nil, err
	}

	series, err := parseDaily(symbol, body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", symbol).
		Int("bars", series.Len()).
		Int("attempts", attempt).
		Msg("Fetched daily series")

	return series, nil
}

// get issues one request and returns the body; provider throttling is reported as ErrNetwork.
func (c *Client) get(ctx context.Context, symbol string) ([]byte, error) {
	q := url.Values{}
	q.Set("function", functionDaily)
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	q.Set("outputsize", c.outputSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", price.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %v", price.ErrNetwork, redact(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", price.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status=%d body=%s", price.ErrNetwork, resp.StatusCode, snippet(body))
	}

	// Throttling comes back as 200 with a Note
	var probe struct {
		Note string `json:"Note"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Note != "" {
		return nil, fmt.Errorf("%w: rate limited: %s", price.ErrNetwork, probe.Note)
	}

	return body, nil
}

// parseDaily converts the provider payload into a sorted series.
func parseDaily(symbol string, body []byte) (*price.Series, error) {
	var resp dailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", price.ErrDataShape, err)
	}

	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: provider error for %s: %s", price.ErrDataShape, symbol, resp.ErrorMessage)
	}
	if resp.TimeSeries == nil {
		if resp.Information != "" {
			return nil, fmt.Errorf("%w: missing %q: %s", price.ErrDataShape, timeSeriesKey, resp.Information)
		}
		return nil, fmt.Errorf("%w: missing %q in response for %s", price.ErrDataShape, timeSeriesKey, symbol)
	}
	if len(resp.TimeSeries) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", price.ErrDataShape, symbol)
	}

	bars := make([]price.Bar, 0, len(resp.TimeSeries))
	for date, fields := range resp.TimeSeries {
		bar, err := convertToBar(date, fields)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	return price.NewSeries(symbol, bars)
}

// convertToBar converts one date entry ("1. open" ... "5. volume") to a Bar
func convertToBar(date string, fields map[string]string) (price.Bar, error) {
	d, err := time.Parse(price.DateLayout, date)
	if err != nil {
		return price.Bar{}, fmt.Errorf("%w: bad date %q", price.ErrDataShape, date)
	}

	bar := price.Bar{Date: d}
	floats := []struct {
		key string
		dst *float64
	}{
		{"1. open", &bar.Open},
		{"2. high", &bar.High},
		{"3. low", &bar.Low},
		{"4. close", &bar.Close},
	}
	for _, f := range floats {
		raw, ok := fields[f.key]
		if !ok {
			return price.Bar{}, fmt.Errorf("%w: %s missing %q", price.ErrDataShape, date, f.key)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return price.Bar{}, fmt.Errorf("%w: %s %s=%q", price.ErrDataShape, date, f.key, raw)
		}
		*f.dst = v
	}

	raw, ok := fields["5. volume"]
	if !ok {
		return price.Bar{}, fmt.Errorf("%w: %s missing %q", price.ErrDataShape, date, "5. volume")
	}
	vol, err := parseVolume(raw)
	if err != nil {
		return price.Bar{}, fmt.Errorf("%w: %s volume=%q", price.ErrDataShape, date, raw)
	}
	bar.Volume = vol

	return bar, nil
}

// parseVolume accepts integer strings and integral floats ("1200.0")
func parseVolume(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("fractional volume %s", raw)
	}
	return int64(f), nil
}

func snippet(body []byte) string {
	if len(body) > maxErrorSnippet {
		return string(body[:maxErrorSnippet]) + "..."
	}
	return string(body)
}

// redact hides the api key, which net/http echoes back in URL errors
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
