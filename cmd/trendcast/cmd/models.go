package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wonny/trendcast/internal/domain/price"
)

const modelFlag = "model"

func addModelFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(modelFlag, "m", "all", "models to evaluate: all or a comma list of sma, ema, pct")
}

func modelsFlag(cmd *cobra.Command) ([]price.Model, error) {
	raw, err := cmd.Flags().GetString(modelFlag)
	if err != nil {
		return nil, err
	}
	return price.ParseModels(raw)
}
