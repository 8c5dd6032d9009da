package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"backtester/cmd/common"
	"backtester/internal/backtest"
	"backtester/internal/config"
	"backtester/internal/errors"
	"backtester/internal/monitoring"
	"backtester/internal/resample"
	"backtester/internal/strategy"
	"backtester/pkg/data"
	"backtester/pkg/reporting"
	"backtester/pkg/types"
)

func main() {
	f := registerFlags()
	flag.Parse()

	if f.version {
		common.PrintVersion()
		return
	}
	common.SetSilentMode(f.silent)

	common.LoadEnvFile(f.envFile)
	cfg := config.Load()
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		common.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	var health *monitoring.HealthChecker
	if cfg.Monitoring.MetricsAddr != "" {
		health = startMetricsServer(cfg.Monitoring.MetricsAddr)
	}

	ctx := context.Background()

	bias, err := buildBias(cfg)
	if err != nil {
		common.Error("Invalid timeframes: %v", err)
		os.Exit(1)
	}

	registry := strategy.DefaultRegistry()
	engineCfg := engineConfig(cfg)

	if f.optimize {
		runOptimization(ctx, cfg, registry, engineCfg, bias, health)
		return
	}
	runBatch(ctx, cfg, registry, engineCfg, bias, health)
}

// engineConfig maps the file/env configuration onto simulator settings.
func engineConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		Timeframes:          cfg.Backtest.Timeframes,
		InitialCapital:      cfg.Backtest.InitialCapital,
		Commission:          cfg.Backtest.Commission,
		PositionSize:        cfg.Backtest.PositionSize,
		RiskPercent:         cfg.Backtest.RiskPercent,
		StopLossPercent:     cfg.Backtest.StopLossPercent,
		TakeProfitPercent:   cfg.Backtest.TakeProfitPercent,
		AllowShort:          cfg.Backtest.AllowShort,
		OptimisticFills:     cfg.Backtest.OptimisticFills,
		WindowSize:          cfg.Backtest.WindowSize,
		MaxErrorRate:        cfg.Backtest.MaxErrorRate,
		AnnualizationFactor: cfg.Backtest.AnnualizationFactor,
	}
}

// buildBias wires a multi-timeframe analyzer when timeframes are configured.
func buildBias(cfg *config.Config) (backtest.BiasProvider, error) {
	if len(cfg.Backtest.Timeframes) == 0 {
		return nil, nil
	}
	tfs, err := resample.ParseTimeframes(cfg.Backtest.Timeframes)
	if err != nil {
		return nil, err
	}
	return resample.NewAnalyzer(tfs, nil)
}

// buildProvider picks the configured data source, wrapped in a cache so the
// optimizer and multi-strategy batches load each symbol once.
func buildProvider(cfg *config.Config) (data.Provider, error) {
	switch cfg.Data.Source {
	case "bybit":
		timeframe := "1h"
		if len(cfg.Backtest.Timeframes) > 0 {
			timeframe = cfg.Backtest.Timeframes[0]
		}
		p, err := data.NewBybitProvider(cfg.Data.Category, timeframe, 1000)
		if err != nil {
			return nil, err
		}
		return data.NewCachedProvider(p), nil
	default:
		return data.NewCachedProvider(data.NewCSVProvider()), nil
	}
}

// sourceFor resolves the provider source string for one symbol.
func sourceFor(cfg *config.Config, symbol string) string {
	if cfg.Data.Source == "bybit" {
		return symbol
	}
	return filepath.Join(cfg.Data.Dir, symbol+".csv")
}

// loadSymbols loads and validates candles per symbol. Symbols whose data is
// missing or broken are skipped with a warning; the batch continues.
func loadSymbols(ctx context.Context, cfg *config.Config, provider data.Provider, health *monitoring.HealthChecker) map[string][]types.OHLCV {
	loaded := make(map[string][]types.OHLCV)
	for _, symbol := range cfg.Backtest.Symbols {
		candles, err := provider.LoadData(ctx, sourceFor(cfg, symbol))
		if err != nil {
			common.Warn("Skipping %s: %v", symbol, err)
			monitoring.RecordError(string(errors.CategoryData))
			if health != nil {
				health.ReportError(fmt.Sprintf("load %s: %v", symbol, err))
			}
			continue
		}
		if err := provider.ValidateData(candles); err != nil {
			common.Warn("Skipping %s, data failed validation: %v", symbol, err)
			monitoring.RecordError(string(errors.CategoryData))
			if health != nil {
				health.ReportError(fmt.Sprintf("validate %s: %v", symbol, err))
			}
			continue
		}
		loaded[symbol] = candles
		common.Info("Loaded %d candles for %s", len(candles), symbol)
	}
	return loaded
}

func runBatch(ctx context.Context, cfg *config.Config, registry *strategy.Registry, engineCfg backtest.Config, bias backtest.BiasProvider, health *monitoring.HealthChecker) {
	common.Header("Backtest")

	provider, err := buildProvider(cfg)
	if err != nil {
		common.Error("Data provider setup failed: %v", err)
		os.Exit(1)
	}
	loaded := loadSymbols(ctx, cfg, provider, health)
	if len(loaded) == 0 {
		common.Error("No symbols could be loaded")
		os.Exit(1)
	}

	var cells []backtest.Cell
	for _, symbol := range cfg.Backtest.Symbols {
		candles, ok := loaded[symbol]
		if !ok {
			continue
		}
		for _, name := range cfg.Backtest.Strategies {
			strat, err := registry.New(name, nil)
			if err != nil {
				common.Error("Unknown strategy %q: %v", name, err)
				os.Exit(1)
			}
			cells = append(cells, backtest.Cell{Symbol: symbol, Strategy: strat, Data: candles})
		}
	}

	runner := backtest.NewRunner(engineCfg)
	if bias != nil {
		runner.WithBias(bias)
	}
	if health != nil {
		runner.WithHealth(health)
	}
	if cfg.Optimizer.Parallelism > 0 {
		runner.WithParallelism(cfg.Optimizer.Parallelism)
	}

	batch, err := runner.RunAll(ctx, cells)
	if err != nil {
		common.Error("Batch failed: %v", err)
		os.Exit(1)
	}

	console := reporting.NewDefaultConsoleReporter()
	console.OutputBatch(batch)
	reporting.RenderRankings(batch)
	reporting.RenderComparison(batch)

	for _, result := range batch.Results {
		console.OutputAlerts(result, backtest.MonitorAndAlert(result.Metrics))
	}

	if ranked := batch.RankBySharpe(); len(ranked) > 0 {
		exportResult(cfg, ranked[0])
	}
}

func runOptimization(ctx context.Context, cfg *config.Config, registry *strategy.Registry, engineCfg backtest.Config, bias backtest.BiasProvider, health *monitoring.HealthChecker) {
	common.Header("Grid Search")

	provider, err := buildProvider(cfg)
	if err != nil {
		common.Error("Data provider setup failed: %v", err)
		os.Exit(1)
	}
	loaded := loadSymbols(ctx, cfg, provider, health)
	if len(loaded) == 0 {
		common.Error("No symbols could be loaded")
		os.Exit(1)
	}

	var best *backtest.OptimizationResult
	for _, symbol := range cfg.Backtest.Symbols {
		candles, ok := loaded[symbol]
		if !ok {
			continue
		}
		for _, name := range cfg.Backtest.Strategies {
			factory, ok := registry.Get(name)
			if !ok {
				common.Error("Unknown strategy %q", name)
				os.Exit(1)
			}
			grid, ok := defaultGrids[name]
			if !ok {
				common.Warn("No default grid for %s, skipping", name)
				continue
			}

			symbolCfg := engineCfg
			symbolCfg.Symbol = symbol
			opt := backtest.NewOptimizer(symbolCfg, cfg.Optimizer.Objective)
			if bias != nil {
				opt.WithBias(bias)
			}
			if cfg.Optimizer.Parallelism > 0 {
				opt.WithParallelism(cfg.Optimizer.Parallelism)
			}

			common.Section(name + " on " + symbol)
			result, err := opt.Optimize(ctx, candles, factory, grid)
			if err != nil {
				common.Warn("Search failed for %s on %s: %v", name, symbol, err)
				if health != nil {
					health.ReportError(fmt.Sprintf("search %s on %s: %v", name, symbol, err))
				}
				continue
			}
			if health != nil {
				for _, run := range result.Results {
					health.RunCompleted(run.Err != nil)
				}
			}
			reporting.RenderOptimization(result)
			common.Success("Best %s: %.4f with %s", result.Objective, result.BestValue, result.BestParams.String())

			if best == nil || result.BestValue > best.BestValue {
				best = result
			}
		}
	}

	if best == nil {
		common.Error("No search produced a result")
		os.Exit(1)
	}
	exportResult(cfg, best.BestResult)
}

// defaultGrids holds the built-in search space per strategy.
var defaultGrids = map[string]*backtest.ParameterGrid{
	strategy.SMACrossName: backtest.NewParameterGrid().
		Add("short_period", 5, 10, 20).
		Add("long_period", 30, 50, 100),
	strategy.RSIName: backtest.NewParameterGrid().
		Add("period", 7, 14, 21).
		Add("oversold", 20, 30).
		Add("overbought", 70, 80),
	strategy.BollingerName: backtest.NewParameterGrid().
		Add("period", 10, 20).
		Add("std_dev", 1.5, 2.0, 2.5),
}

func startMetricsServer(addr string) *monitoring.HealthChecker {
	health := monitoring.NewHealthChecker()
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			common.Warn("Metrics server stopped: %v", err)
		}
	}()
	common.Info("Serving metrics on %s/metrics", addr)
	return health
}
