package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/service/signals"
)

// recorder collects the order stages touch their collaborators in
type recorder struct {
	calls []string
}

type fakeSource struct {
	rec    *recorder
	series *price.Series
	err    error
}

func (f *fakeSource) FetchDaily(ctx context.Context, symbol string) (*price.Series, error) {
	f.rec.calls = append(f.rec.calls, "fetch:"+symbol)
	return f.series, f.err
}

type memArtifact struct {
	rec    *recorder
	stored *price.Series
	err    error
}

func (m *memArtifact) Save(ctx context.Context, s *price.Series) (string, error) {
	m.rec.calls = append(m.rec.calls, "save")
	if m.err != nil {
		return "", m.err
	}
	m.stored = s
	return "Data/test.csv", nil
}

func (m *memArtifact) Load(ctx context.Context, symbol string) (*price.Series, error) {
	m.rec.calls = append(m.rec.calls, "load")
	if m.stored == nil {
		return nil, fmt.Errorf("%w: artifact not found", price.ErrDataShape)
	}
	return m.stored, nil
}

// memTable is a single replace-only table; it also serves reads for the predictor
type memTable struct {
	rec  *recorder
	bars []price.Bar
	err  error
}

func (m *memTable) Replace(ctx context.Context, s *price.Series) (int64, error) {
	m.rec.calls = append(m.rec.calls, "replace")
	if m.err != nil {
		return 0, m.err
	}
	m.bars = append([]price.Bar(nil), s.Bars...)
	return int64(len(m.bars)), nil
}

func (m *memTable) LoadAll(ctx context.Context, symbol string) (*price.Series, error) {
	m.rec.calls = append(m.rec.calls, "read")
	return price.NewSeries(symbol, m.bars)
}

func rising(t *testing.T, n int) *price.Series {
	t.Helper()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]price.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = price.Bar{Date: first.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	s, err := price.NewSeries("AAPL", bars)
	require.NoError(t, err)
	return s
}

type fixture struct {
	rec      *recorder
	source   *fakeSource
	artifact *memArtifact
	table    *memTable
	out      *bytes.Buffer
	pipeline *Pipeline
}

func newFixture(t *testing.T, series *price.Series) *fixture {
	t.Helper()
	rec := &recorder{}
	f := &fixture{
		rec:      rec,
		source:   &fakeSource{rec: rec, series: series},
		artifact: &memArtifact{rec: rec},
		table:    &memTable{rec: rec},
		out:      &bytes.Buffer{},
	}
	f.pipeline = New(Deps{
		Symbol:    "AAPL",
		Source:    f.source,
		Artifact:  f.artifact,
		Writer:    f.table,
		Predictor: signals.NewPredictor(f.table, "AAPL", "Apple", signals.DefaultPctThreshold),
		Out:       f.out,
	})
	return f
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, rising(t, 25))

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch:AAPL", "save", "load", "replace", "read"}, f.rec.calls)

	sma, _ := report.Prediction(price.ModelSMA)
	ema, _ := report.Prediction(price.ModelEMA)
	pct, _ := report.Prediction(price.ModelPctChange)
	assert.Equal(t, "Positive", sma.Label)
	assert.Equal(t, "Positive", ema.Label)
	assert.Equal(t, "Positive (+0.81%)", pct.Label)

	out := f.out.String()
	assert.Contains(t, out, "Step 1: Downloading AAPL stock data...")
	assert.Contains(t, out, "Step 2: Uploading data to PostgreSQL...")
	assert.Contains(t, out, "Step 3: Running prediction model...")
	assert.Contains(t, out, "The stock price of Apple predicted for the next day: 2024-01-26 is:")
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		stage     Stage
		kind      error
		wantCalls []string
	}{
		{
			name: "fetch network failure",
			setup: func(f *fixture) {
				f.source.err = fmt.Errorf("%w: status=503", price.ErrNetwork)
			},
			stage:     StageFetch,
			kind:      price.ErrNetwork,
			wantCalls: []string{"fetch:AAPL"},
		},
		{
			name: "artifact write failure",
			setup: func(f *fixture) {
				f.artifact.err = fmt.Errorf("%w: disk full", price.ErrPersistence)
			},
			stage:     StageFetch,
			kind:      price.ErrPersistence,
			wantCalls: []string{"fetch:AAPL", "save"},
		},
		{
			name: "database write failure",
			setup: func(f *fixture) {
				f.table.err = fmt.Errorf("%w: connection refused", price.ErrPersistence)
			},
			stage:     StageUpload,
			kind:      price.ErrPersistence,
			wantCalls: []string{"fetch:AAPL", "save", "load", "replace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, rising(t, 25))
			tt.setup(f)

			report, err := f.pipeline.Run(context.Background())
			assert.Nil(t, report)
			require.Error(t, err)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.wantCalls, f.rec.calls)
		})
	}
}

func TestRun_PredictFailureLeavesTableReplaced(t *testing.T) {
	f := newFixture(t, rising(t, 5))

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StagePredict, se.Stage)
	assert.ErrorIs(t, err, price.ErrInsufficientHistory)

	// upload already happened and is not undone
	assert.Len(t, f.table.bars, 5)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, rising(t, 25))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.rec.calls)
}

func TestStages_Individually(t *testing.T) {
	f := newFixture(t, rising(t, 25))
	ctx := context.Background()

	_, err := f.pipeline.Upload(ctx)
	assert.ErrorIs(t, err, price.ErrDataShape, "upload before fetch has no artifact")

	path, err := f.pipeline.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Data/test.csv", path)

	rows, err := f.pipeline.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), rows)

	report, err := f.pipeline.Predict(ctx, price.ModelEMA)
	require.NoError(t, err)
	require.Len(t, report.Predictions, 1)
	assert.Equal(t, price.ModelEMA, report.Predictions[0].Model)
}

// captureLog points the global logger at a buffer for the rest of the test
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestStages_FailureIsLogged(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		run   func(ctx context.Context, p *Pipeline) error
		stage Stage
		kind  string
	}{
		{
			name: "fetch",
			setup: func(f *fixture) {
				f.source.err = fmt.Errorf("%w: provider error: Invalid API call", price.ErrDataShape)
			},
			run: func(ctx context.Context, p *Pipeline) error {
				_, err := p.Fetch(ctx)
				return err
			},
			stage: StageFetch,
			kind:  "DataShapeError",
		},
		{
			name:  "upload",
			setup: func(f *fixture) {},
			run: func(ctx context.Context, p *Pipeline) error {
				_, err := p.Upload(ctx)
				return err
			},
			stage: StageUpload,
			kind:  "DataShapeError",
		},
		{
			name:  "predict",
			setup: func(f *fixture) {},
			run: func(ctx context.Context, p *Pipeline) error {
				_, err := p.Predict(ctx)
				return err
			},
			stage: StagePredict,
			kind:  "InsufficientHistoryError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			f := newFixture(t, rising(t, 25))
			tt.setup(f)

			err := tt.run(context.Background(), f.pipeline)
			require.Error(t, err)

			out := buf.String()
			assert.Contains(t, out, `"message":"Stage failed"`)
			assert.Contains(t, out, `"stage":"`+string(tt.stage)+`"`)
			assert.Contains(t, out, `"kind":"`+tt.kind+`"`)
		})
	}
}

func TestRun_FailureIsLoggedOnce(t *testing.T) {
	buf := captureLog(t)
	f := newFixture(t, rising(t, 25))
	f.source.err = fmt.Errorf("%w: status=503", price.ErrNetwork)

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), `"level":"error"`))
	assert.Contains(t, buf.String(), `"message":"Pipeline aborted"`)
}

func TestStageError(t *testing.T) {
	cause := fmt.Errorf("%w: missing DB_URI", price.ErrConfiguration)
	err := &StageError{Stage: StageUpload, Err: cause}

	assert.Equal(t, "upload stage failed: configuration error: missing DB_URI", err.Error())
	assert.ErrorIs(t, err, price.ErrConfiguration)
	assert.Equal(t, "ConfigurationError", price.Kind(err))
}
