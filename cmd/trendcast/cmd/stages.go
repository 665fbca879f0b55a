package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// fetchCmd downloads the series into the artifact only
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download daily prices into the CSV artifact",
	Long: `Downloads the full daily series for SYMBOL and writes it to ARTIFACT_PATH.
The database is not touched.`,
	RunE: runFetch,
}

// uploadCmd replaces the price table with the artifact
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Replace the price table with the CSV artifact",
	Long: `Reads ARTIFACT_PATH and replaces PRICE_TABLE with its rows.
The previous table contents are dropped.`,
	RunE: runUpload,
}

// predictCmd prints predictions from the current table
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print next-day predictions from the price table",
	Long: `Reads every row of PRICE_TABLE and prints the SMA, EMA and percent-change
predictions for the next calendar day.

Examples:
  go run ./cmd/trendcast predict
  go run ./cmd/trendcast predict --model sma,ema`,
	RunE: runPredict,
}

func init() {
	addModelFlag(predictCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{market: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.pipeline.Fetch(ctx)
	return err
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{database: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.pipeline.Upload(ctx)
	return err
}

func runPredict(cmd *cobra.Command, args []string) error {
	models, err := modelsFlag(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, needs{database: true}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.pipeline.Predict(ctx, models...)
	return err
}
