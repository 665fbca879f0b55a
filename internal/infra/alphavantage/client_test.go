package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/pkg/config"
)

const samplePayload = `{
  "Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "AAPL"},
  "Time Series (Daily)": {
    "2024-01-04": {"1. open": "182.15", "2. high": "183.09", "3. low": "180.88", "4. close": "181.91", "5. volume": "71983570"},
    "2024-01-02": {"1. open": "187.15", "2. high": "188.44", "3. low": "183.89", "4. close": "185.64", "5. volume": "82488674"},
    "2024-01-03": {"1. open": "184.22", "2. high": "185.88", "3. low": "183.43", "4. close": "184.25", "5. volume": "58414460"}
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.MarketConfig{
		APIKey:     "secret-key",
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		RetryWait:  time.Millisecond,
	})
}

func TestFetchDaily_ParsesAndSorts(t *testing.T) {
	var query map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"function":   r.URL.Query().Get("function"),
			"symbol":     r.URL.Query().Get("symbol"),
			"apikey":     r.URL.Query().Get("apikey"),
			"outputsize": r.URL.Query().Get("outputsize"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}, 0)

	series, err := client.FetchDaily(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     "AAPL",
		"apikey":     "secret-key",
		"outputsize": "full",
	}, query)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, []float64{185.64, 184.25, 181.91}, series.Closes())

	first, _ := series.First()
	assert.Equal(t, "2024-01-02", first.Date.Format(price.DateLayout))
	assert.Equal(t, 187.15, first.Open)
	assert.Equal(t, 188.44, first.High)
	assert.Equal(t, 183.89, first.Low)
	assert.Equal(t, int64(82488674), first.Volume)
}

func TestFetchDaily_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `oops`, price.ErrNetwork},
		{"not found", http.StatusNotFound, `{}`, price.ErrNetwork},
		{"rate limited", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, price.ErrNetwork},
		{"invalid symbol", http.StatusOK, `{"Error Message": "Invalid API call."}`, price.ErrDataShape},
		{"premium endpoint", http.StatusOK, `{"Information": "outputsize=full is a premium feature"}`, price.ErrDataShape},
		{"missing series", http.StatusOK, `{"Meta Data": {}}`, price.ErrDataShape},
		{"empty series", http.StatusOK, `{"Time Series (Daily)": {}}`, price.ErrDataShape},
		{"not json", http.StatusOK, `<html>`, price.ErrDataShape},
		{"bad number", http.StatusOK, `{"Time Series (Daily)": {"2024-01-02": {"1. open": "x", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`, price.ErrDataShape},
		{"missing close", http.StatusOK, `{"Time Series (Daily)": {"2024-01-02": {"1. open": "1", "2. high": "1", "3. low": "1", "5. volume": "1"}}}`, price.ErrDataShape},
		{"bad date", http.StatusOK, `{"Time Series (Daily)": {"Jan 2": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`, price.ErrDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 0)

			series, err := client.FetchDaily(context.Background(), "AAPL")
			assert.Nil(t, series)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchDaily_NoRetryByDefault(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	_, err := client.FetchDaily(context.Background(), "AAPL")
	assert.ErrorIs(t, err, price.ErrNetwork)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDaily_RetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(samplePayload))
	}, 3)

	series, err := client.FetchDaily(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDaily_DoesNotRetryDataShape(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	}, 3)

	_, err := client.FetchDaily(context.Background(), "NOPE")
	assert.ErrorIs(t, err, price.ErrDataShape)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDaily_MissingAPIKey(t *testing.T) {
	client := NewClient(config.MarketConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := client.FetchDaily(context.Background(), "AAPL")
	assert.ErrorIs(t, err, price.ErrConfiguration)
}

func TestFetchDaily_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(samplePayload))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.MarketConfig{
		APIKey:  "secret-key",
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
	})

	_, err := client.FetchDaily(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, price.ErrNetwork)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestParseVolume(t *testing.T) {
	v, err := parseVolume("1200")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	v, err = parseVolume("1200.0")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	_, err = parseVolume("12.5")
	assert.Error(t, err)
}
