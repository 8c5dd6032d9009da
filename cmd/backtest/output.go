package main

import (
	"path/filepath"

	"backtester/cmd/common"
	"backtester/internal/backtest"
	"backtester/internal/config"
	"backtester/pkg/reporting"
)

// exportResult writes the configured file exports for one result. Export
// failures are warnings; the console output already happened.
func exportResult(cfg *config.Config, result *backtest.BacktestResult) {
	if result == nil {
		return
	}

	reporting.NewDefaultConsoleReporter().OutputResult(result)

	if cfg.Output.ExcelFile != "" {
		path := resolveOutput(cfg, result, cfg.Output.ExcelFile)
		if err := reporting.NewDefaultExcelReporter().Write(result, path); err != nil {
			common.Warn("Excel export failed: %v", err)
		} else {
			common.Success("Wrote %s", path)
		}
	}
	if cfg.Output.JSONFile != "" {
		path := resolveOutput(cfg, result, cfg.Output.JSONFile)
		if err := reporting.NewDefaultJSONReporter().Write(result, path); err != nil {
			common.Warn("JSON export failed: %v", err)
		} else {
			common.Success("Wrote %s", path)
		}
	}
	if cfg.Output.CSVFile != "" {
		path := resolveOutput(cfg, result, cfg.Output.CSVFile)
		if err := reporting.NewDefaultCSVReporter().Write(result, path); err != nil {
			common.Warn("Trade log export failed: %v", err)
		} else {
			common.Success("Wrote %s", path)
		}
	}
}

// resolveOutput places bare filenames under the conventional results
// directory for the result's symbol and strategy.
func resolveOutput(cfg *config.Config, result *backtest.BacktestResult, name string) string {
	if filepath.Dir(name) != "." {
		return name
	}
	dir := cfg.Output.Dir
	if dir == "" || dir == "results" {
		dir = reporting.DefaultOutputDir(result.Symbol, result.StrategyName)
	}
	return filepath.Join(dir, name)
}
