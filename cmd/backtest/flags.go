package main

import (
	"flag"
	"strings"

	"backtester/internal/config"
)

// flags holds the command-line overrides applied on top of the environment
// configuration.
type flags struct {
	envFile string

	symbols    string
	strategies string
	timeframes string
	dataDir    string
	dataSource string

	initialCapital float64
	commission     float64
	positionSize   float64
	riskPercent    float64
	stopLoss       float64
	takeProfit     float64
	allowShort     bool
	windowSize     int

	optimize    bool
	objective   string
	parallelism int

	metricsAddr string
	outputDir   string
	excelFile   string
	jsonFile    string
	csvFile     string

	silent  bool
	version bool
}

func registerFlags() *flags {
	f := &flags{}

	flag.StringVar(&f.envFile, "env", ".env", "Environment file path")

	flag.StringVar(&f.symbols, "symbols", "", "Comma-separated symbols (e.g. BTCUSDT,ETHUSDT)")
	flag.StringVar(&f.strategies, "strategies", "", "Comma-separated strategy names")
	flag.StringVar(&f.timeframes, "timeframes", "", "Comma-separated analysis timeframes (e.g. 1h,4h)")
	flag.StringVar(&f.dataDir, "data-dir", "", "Directory with <SYMBOL>.csv files")
	flag.StringVar(&f.dataSource, "data-source", "", "Data source: csv or bybit")

	flag.Float64Var(&f.initialCapital, "capital", 0, "Initial capital")
	flag.Float64Var(&f.commission, "commission", -1, "Commission rate per leg")
	flag.Float64Var(&f.positionSize, "position-size", -1, "Fixed notional per entry (0 = full equity)")
	flag.Float64Var(&f.riskPercent, "risk-percent", -1, "Percent of equity risked per trade")
	flag.Float64Var(&f.stopLoss, "stop-loss", -1, "Stop-loss percent of entry price")
	flag.Float64Var(&f.takeProfit, "take-profit", -1, "Take-profit percent of entry price")
	flag.BoolVar(&f.allowShort, "allow-short", false, "Allow short positions")
	flag.IntVar(&f.windowSize, "window", 0, "Sliding window size (0 = strategy warmup)")

	flag.BoolVar(&f.optimize, "optimize", false, "Run parameter grid search instead of a plain backtest")
	flag.StringVar(&f.objective, "objective", "", "Optimization objective metric")
	flag.IntVar(&f.parallelism, "parallelism", 0, "Concurrent runs (0 = NumCPU)")

	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :8080)")
	flag.StringVar(&f.outputDir, "output-dir", "", "Results output directory")
	flag.StringVar(&f.excelFile, "excel", "", "Write best result to this Excel file")
	flag.StringVar(&f.jsonFile, "json", "", "Write best result to this JSON file")
	flag.StringVar(&f.csvFile, "csv", "", "Write best result's trade log to this CSV file")

	flag.BoolVar(&f.silent, "silent", false, "Minimal console output")
	flag.BoolVar(&f.version, "version", false, "Show version information")

	return f
}

// apply merges the flags into cfg. Only explicitly set values override.
func (f *flags) apply(cfg *config.Config) {
	if f.symbols != "" {
		cfg.Backtest.Symbols = splitList(f.symbols)
	}
	if f.strategies != "" {
		cfg.Backtest.Strategies = splitList(f.strategies)
	}
	if f.timeframes != "" {
		cfg.Backtest.Timeframes = splitList(f.timeframes)
	}
	if f.dataDir != "" {
		cfg.Data.Dir = f.dataDir
	}
	if f.dataSource != "" {
		cfg.Data.Source = f.dataSource
	}
	if f.initialCapital > 0 {
		cfg.Backtest.InitialCapital = f.initialCapital
	}
	if f.commission >= 0 {
		cfg.Backtest.Commission = f.commission
	}
	if f.positionSize >= 0 {
		cfg.Backtest.PositionSize = f.positionSize
	}
	if f.riskPercent >= 0 {
		cfg.Backtest.RiskPercent = f.riskPercent
	}
	if f.stopLoss >= 0 {
		cfg.Backtest.StopLossPercent = f.stopLoss
	}
	if f.takeProfit >= 0 {
		cfg.Backtest.TakeProfitPercent = f.takeProfit
	}
	if f.allowShort {
		cfg.Backtest.AllowShort = true
	}
	if f.windowSize > 0 {
		cfg.Backtest.WindowSize = f.windowSize
	}
	if f.objective != "" {
		cfg.Optimizer.Objective = f.objective
	}
	if f.parallelism > 0 {
		cfg.Optimizer.Parallelism = f.parallelism
	}
	if f.metricsAddr != "" {
		cfg.Monitoring.MetricsAddr = f.metricsAddr
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.excelFile != "" {
		cfg.Output.ExcelFile = f.excelFile
	}
	if f.jsonFile != "" {
		cfg.Output.JSONFile = f.jsonFile
	}
	if f.csvFile != "" {
		cfg.Output.CSVFile = f.csvFile
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
