package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/trendcast/internal/service/scheduler"
)

var (
	scheduleSpec string
	scheduleNow  bool
)

// scheduleCmd keeps running and triggers the pipeline on a cron expression
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Runs the full pipeline every time the cron expression fires until interrupted.
The expression has six fields (seconds first) or is a descriptor such as @daily.
A run that is still going when the next one fires causes that tick to be skipped.

Examples:
  go run ./cmd/trendcast schedule
  go run ./cmd/trendcast schedule --cron "0 0 7 * * 2-6" --now`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "cron expression (default is SCHEDULE_CRON)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting for the schedule")
	addModelFlag(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	models, err := modelsFlag(cmd)
	if err != nil {
		return err
	}

	spec := scheduleSpec
	if spec == "" {
		spec = cfg.Schedule.Cron
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{market: true, database: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := scheduler.New(ctx, spec, func(ctx context.Context) error {
		_, err := a.pipeline.Run(ctx, models...)
		return err
	})
	if err != nil {
		return err
	}

	if scheduleNow {
		// a failed first run does not stop the schedule
		_ = s.RunNow()
	}

	s.Start()
	log.Info().Str("cron", spec).Msg("Waiting for scheduled runs (Ctrl+C to stop)")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			s.Stop()
			return nil
		case err := <-s.Results():
			if err == nil {
				log.Info().Time("next_run", s.Next()).Msg("Pipeline run succeeded")
			} else {
				log.Warn().Time("next_run", s.Next()).Msg("Pipeline run failed, waiting for next schedule")
			}
		}
	}
}
