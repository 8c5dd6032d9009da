package reporting

import "backtester/internal/backtest"

// ConsoleReporter prints run results for humans.
type ConsoleReporter interface {
	OutputResult(result *backtest.BacktestResult)
	OutputBatch(batch *backtest.BatchResult)
}

// FileReporter persists run results to disk.
type FileReporter interface {
	Write(result *backtest.BacktestResult, path string) error
}
