// Package cmd - trendcast CLI commands
package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/pkg/config"
	"github.com/wonny/trendcast/internal/pkg/logger"
	"github.com/wonny/trendcast/internal/service/pipeline"
)

const serviceName = "trendcast"

var (
	// common flags
	cfgFile string
	verbose bool

	cfg *config.Config

	// logOut is the console log destination
	logOut io.Writer = os.Stderr
)

// rootCmd runs the whole pipeline when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "trendcast",
	Short: "Daily stock trend pipeline",
	Long: `Daily stock trend pipeline

Usage:
    go run ./cmd/trendcast [command]

Without a command the full pipeline runs: fetch, upload, predict.

Commands:
    run         fetch + upload + predict
    fetch       download daily prices into the CSV artifact
    upload      replace the price table with the CSV artifact
    predict     print next-day predictions from the price table
    schedule    run the pipeline on a cron schedule
    health      check the database and the price table
    serve       read-only HTTP API for prices and predictions
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	RunE: runPipeline,
}

// Execute runs the root command.
// Stage failures were already logged by the pipeline; everything else is logged here.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		var se *pipeline.StageError
		if !errors.As(err, &se) {
			log.Error().Err(err).Str("kind", price.Kind(err)).Msg("trendcast failed")
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	addModelFlag(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads settings and sets up the global logger
func initConfig() error {
	var files []string
	if cfgFile != "" {
		files = append(files, cfgFile)
	}

	var err error
	cfg, err = config.Load(files...)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}

	return logger.Init(logger.Config{
		Level:         level,
		Format:        cfg.Logging.Format,
		FileEnabled:   cfg.Logging.FileEnabled,
		FilePath:      cfg.Logging.FilePath,
		RotationSize:  cfg.Logging.RotationSize,
		RetentionDays: cfg.Logging.RetentionDays,
		ServiceName:   serviceName,
		Out:           logOut,
	})
}
