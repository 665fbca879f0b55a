// Package main - trendcast CLI
// Downloads daily prices, replaces the price table and prints next-day predictions.
//
// Usage:
//
//	go run ./cmd/trendcast
//	go run ./cmd/trendcast predict --model ema
//	go run ./cmd/trendcast schedule
package main

import (
	"os"

	"github.com/wonny/trendcast/cmd/trendcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
