// Package pipeline runs fetch, upload and predict in order and stops at the first failure.
//
// Nothing is rolled back: when predict fails, the table written by upload stays replaced.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/service/signals"
)

// Stage names a pipeline step
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageUpload  Stage = "upload"
	StagePredict Stage = "predict"
)

// StageError records which stage failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Predictor produces the report from the stored table
type Predictor interface {
	Predict(ctx context.Context, models ...price.Model) (*signals.Report, error)
}

// Deps are the collaborators of each stage
type Deps struct {
	Symbol    string
	Source    price.SeriesSource
	Artifact  price.ArtifactStore
	Writer    price.TableWriter
	Predictor Predictor
	Out       io.Writer // stage log and report
}

// Pipeline wires the three stages
type Pipeline struct {
	symbol    string
	source    price.SeriesSource
	artifact  price.ArtifactStore
	writer    price.TableWriter
	predictor Predictor
	out       io.Writer
}

// New creates a Pipeline
func New(d Deps) *Pipeline {
	out := d.Out
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{
		symbol:    d.Symbol,
		source:    d.Source,
		artifact:  d.Artifact,
		writer:    d.Writer,
		predictor: d.Predictor,
		out:       out,
	}
}

// Run executes fetch, upload and predict in order.
func (p *Pipeline) Run(ctx context.Context, models ...price.Model) (*signals.Report, error) {
	logger := log.With().Str("run_id", uuid.NewString()).Str("symbol", p.symbol).Logger()
	start := time.Now()

	logger.Info().Msg("Pipeline started")

	fmt.Fprintf(p.out, "Step 1: Downloading %s stock data...\n", p.symbol)
	if _, err := p.fetch(ctx, logger); err != nil {
		return nil, p.fail(logger, "Pipeline aborted", err)
	}

	fmt.Fprintln(p.out, "Step 2: Uploading data to PostgreSQL...")
	if _, err := p.upload(ctx, logger); err != nil {
		return nil, p.fail(logger, "Pipeline aborted", err)
	}

	fmt.Fprintln(p.out, "Step 3: Running prediction model...")
	report, err := p.predict(ctx, logger, models)
	if err != nil {
		return nil, p.fail(logger, "Pipeline aborted", err)
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Pipeline finished")

	return report, nil
}

// Fetch runs only the fetch stage and returns the artifact path
func (p *Pipeline) Fetch(ctx context.Context) (string, error) {
	logger := p.stageLogger()
	path, err := p.fetch(ctx, logger)
	if err != nil {
		return "", p.fail(logger, "Stage failed", err)
	}
	return path, nil
}

// Upload runs only the upload stage and returns the number of rows written
func (p *Pipeline) Upload(ctx context.Context) (int64, error) {
	logger := p.stageLogger()
	rows, err := p.upload(ctx, logger)
	if err != nil {
		return 0, p.fail(logger, "Stage failed", err)
	}
	return rows, nil
}

// Predict runs only the predict stage
func (p *Pipeline) Predict(ctx context.Context, models ...price.Model) (*signals.Report, error) {
	logger := p.stageLogger()
	report, err := p.predict(ctx, logger, models)
	if err != nil {
		return nil, p.fail(logger, "Stage failed", err)
	}
	return report, nil
}

func (p *Pipeline) stageLogger() zerolog.Logger {
	return log.With().Str("symbol", p.symbol).Logger()
}

func (p *Pipeline) fetch(ctx context.Context, logger zerolog.Logger) (string, error) {
	var path string
	err := p.stage(ctx, logger, StageFetch, func() error {
		series, err := p.source.FetchDaily(ctx, p.symbol)
		if err != nil {
			return err
		}
		path, err = p.artifact.Save(ctx, series)
		if err != nil {
			return err
		}
		first, _ := series.First()
		last, _ := series.Last()
		logger.Info().
			Int("bars", series.Len()).
			Time("from", first.Date).
			Time("to", last.Date).
			Str("path", path).
			Msg("Daily series saved")
		fmt.Fprintf(p.out, "Data downloaded and saved at %s (%d bars)\n", path, series.Len())
		return nil
	})
	return path, err
}

func (p *Pipeline) upload(ctx context.Context, logger zerolog.Logger) (int64, error) {
	var rows int64
	err := p.stage(ctx, logger, StageUpload, func() error {
		series, err := p.artifact.Load(ctx, p.symbol)
		if err != nil {
			return err
		}
		rows, err = p.writer.Replace(ctx, series)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "Data uploaded to PostgreSQL (%d rows, table replaced)\n", rows)
		return nil
	})
	return rows, err
}

func (p *Pipeline) predict(ctx context.Context, logger zerolog.Logger, models []price.Model) (*signals.Report, error) {
	var report *signals.Report
	err := p.stage(ctx, logger, StagePredict, func() error {
		var err error
		report, err = p.predictor.Predict(ctx, models...)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.out)
		return report.Render(p.out)
	})
	return report, err
}

// stage times fn and wraps its error with the stage name
func (p *Pipeline) stage(ctx context.Context, logger zerolog.Logger, name Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	start := time.Now()
	logger.Debug().Str("stage", string(name)).Msg("Stage started")

	if err := fn(); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	logger.Info().
		Str("stage", string(name)).
		Dur("elapsed", time.Since(start)).
		Msg("Stage completed")

	return nil
}

// fail logs err once with its kind and stage; callers above the pipeline do not log StageErrors again
func (p *Pipeline) fail(logger zerolog.Logger, msg string, err error) error {
	event := logger.Error().Err(err).Str("kind", price.Kind(err))
	if se, ok := err.(*StageError); ok {
		event = event.Str("stage", string(se.Stage))
	}
	event.Msg(msg)
	return err
}
