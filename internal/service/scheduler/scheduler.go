package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/pkg/config"
)

// RunFunc is one full pipeline run
type RunFunc func(ctx context.Context) error

// Scheduler re-runs the pipeline on a cron expression.
// A tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	run     RunFunc
	ctx     context.Context
	results chan error
}

// New creates a Scheduler; spec uses six fields (with seconds) or a descriptor such as "@daily".
func New(ctx context.Context, spec string, run RunFunc) (*Scheduler, error) {
	logger := cronLogger{logger: log.With().Str("component", "scheduler").Logger()}

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		run:     run,
		ctx:     ctx,
		results: make(chan error, 1),
	}

	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", config.ErrConfiguration, spec, err)
	}
	s.entry = id

	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Time("next_run", s.Next()).Msg("Scheduler started")
}

// Stop stops scheduling and waits for a running pipeline to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// Next returns the next activation time, zero before Start
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow executes one run immediately, outside the schedule.
func (s *Scheduler) RunNow() error {
	return s.execute()
}

// Results delivers the outcome of scheduled runs; older results are dropped when nobody reads.
func (s *Scheduler) Results() <-chan error {
	return s.results
}

func (s *Scheduler) tick() {
	err := s.execute()

	select {
	case s.results <- err:
	default:
		select {
		case <-s.results:
		default:
		}
		select {
		case s.results <- err:
		default:
		}
	}
}

func (s *Scheduler) execute() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := s.run(s.ctx)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Scheduled pipeline run failed")
		return err
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("Scheduled pipeline run finished")
	return nil
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
