package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runCmd runs all three stages
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, upload and predict",
	Long: `Runs the full pipeline: download the daily series, replace the price table,
then print the next-day predictions. Stops at the first failing stage.

Examples:
  go run ./cmd/trendcast run
  go run ./cmd/trendcast run --model pct`,
	RunE: runPipeline,
}

func init() {
	addModelFlag(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	models, err := modelsFlag(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{market: true, database: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.pipeline.Run(ctx, models...)
	return err
}
