package backtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/errors"
	"backtester/internal/monitoring"
)

func syntheticResult(strategyName, symbol string, returnPct, winRate, sharpe, maxDD float64, trades int) *BacktestResult {
	return &BacktestResult{
		Symbol:       symbol,
		StrategyName: strategyName,
		Metrics: Metrics{
			TotalTrades:    trades,
			TotalReturnPct: returnPct,
			WinRate:        winRate,
			SharpeRatio:    sharpe,
			MaxDrawdownPct: maxDD,
		},
	}
}

func sampleBatch() *BatchResult {
	return &BatchResult{Results: []*BacktestResult{
		syntheticResult("Strategy1", "BTCUSDT", 15, 60, 1.5, -10, 10),
		syntheticResult("Strategy2", "BTCUSDT", 10, 70, 1.2, -8, 15),
		syntheticResult("Strategy1", "ETHUSDT", 20, 65, 1.8, -12, 12),
		syntheticResult("Strategy2", "ETHUSDT", 5, 55, 0.9, -6, 8),
	}}
}

// TestRunnerRunAll tests the symbol x strategy matrix execution
func TestRunnerRunAll(t *testing.T) {
	runner := NewRunner(Config{InitialCapital: 10000, PositionSize: 1000}).
		WithParallelism(2)

	rising := candlesFromCloses(100, 101, 102, 103, 104)
	falling := candlesFromCloses(104, 103, 102, 101, 100)
	cells := []Cell{
		{Symbol: "BTCUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: rising},
		{Symbol: "ETHUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: falling},
	}

	batch, err := runner.RunAll(context.Background(), cells)
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.Empty(t, batch.Failures)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, batch.Symbols())
	assert.Equal(t, []string{"threshold"}, batch.Strategies())

	// cell order must be preserved regardless of completion order
	assert.Equal(t, "BTCUSDT", batch.Results[0].Symbol)
	assert.Equal(t, "ETHUSDT", batch.Results[1].Symbol)
}

// TestRunnerToleratesCellFailures tests that a failing cell is recorded
// without sinking the rest of the batch
func TestRunnerToleratesCellFailures(t *testing.T) {
	runner := NewRunner(Config{InitialCapital: 10000, PositionSize: 1000})

	cells := []Cell{
		{Symbol: "BTCUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: candlesFromCloses(100, 101, 102)},
		{Symbol: "ETHUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: nil}, // no candles
	}

	batch, err := runner.RunAll(context.Background(), cells)
	require.NoError(t, err)

	assert.Len(t, batch.Results, 1)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "ETHUSDT", batch.Failures[0].Symbol)
	assert.Equal(t, "threshold", batch.Failures[0].StrategyName)
	assert.True(t, errors.IsData(batch.Failures[0].Err))
}

// TestRunnerFeedsHealthChecker tests that per-cell outcomes reach the health endpoint
func TestRunnerFeedsHealthChecker(t *testing.T) {
	health := monitoring.NewHealthChecker()
	runner := NewRunner(Config{InitialCapital: 10000, PositionSize: 1000}).
		WithHealth(health)

	cells := []Cell{
		{Symbol: "BTCUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: candlesFromCloses(100, 101, 102)},
		{Symbol: "ETHUSDT", Strategy: &thresholdStrategy{entryAt: 101}, Data: nil},
	}

	_, err := runner.RunAll(context.Background(), cells)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status monitoring.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.RunsCompleted)
	assert.Equal(t, 1, status.RunsFailed)
	assert.False(t, status.LastRunAt.IsZero())
}

// TestRunnerRejectsEmptyBatch tests the no-cells error
func TestRunnerRejectsEmptyBatch(t *testing.T) {
	_, err := NewRunner(Config{InitialCapital: 10000}).RunAll(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

// TestBatchResultRankings tests ordering by return and by Sharpe
func TestBatchResultRankings(t *testing.T) {
	batch := sampleBatch()

	byReturn := batch.RankByReturn()
	require.Len(t, byReturn, 4)
	assert.Equal(t, 20.0, byReturn[0].Metrics.TotalReturnPct)
	assert.Equal(t, 15.0, byReturn[1].Metrics.TotalReturnPct)
	assert.Equal(t, 10.0, byReturn[2].Metrics.TotalReturnPct)
	assert.Equal(t, 5.0, byReturn[3].Metrics.TotalReturnPct)

	bySharpe := batch.RankBySharpe()
	assert.Equal(t, 1.8, bySharpe[0].Metrics.SharpeRatio)
	assert.Equal(t, "Strategy1", bySharpe[0].StrategyName)
	assert.Equal(t, "ETHUSDT", bySharpe[0].Symbol)
}

// TestBatchResultRankingTieBreaks tests alphabetical tie-breaking
func TestBatchResultTieBreaks(t *testing.T) {
	batch := &BatchResult{Results: []*BacktestResult{
		syntheticResult("Zeta", "BTCUSDT", 10, 50, 1, -5, 4),
		syntheticResult("Alpha", "ETHUSDT", 10, 50, 1, -5, 4),
		syntheticResult("Alpha", "ADAUSDT", 10, 50, 1, -5, 4),
	}}

	ranked := batch.RankByReturn()
	assert.Equal(t, "Alpha", ranked[0].StrategyName)
	assert.Equal(t, "ADAUSDT", ranked[0].Symbol)
	assert.Equal(t, "Alpha", ranked[1].StrategyName)
	assert.Equal(t, "ETHUSDT", ranked[1].Symbol)
	assert.Equal(t, "Zeta", ranked[2].StrategyName)
}

// TestBestPerSymbol tests picking one winner per symbol
func TestBestPerSymbol(t *testing.T) {
	batch := sampleBatch()

	best := batch.BestPerSymbol(batch.RankByReturn())
	require.Len(t, best, 2)
	assert.Equal(t, "Strategy1", best["BTCUSDT"].StrategyName)
	assert.Equal(t, "Strategy1", best["ETHUSDT"].StrategyName)
	assert.Equal(t, 20.0, best["ETHUSDT"].Metrics.TotalReturnPct)
}

// TestCompareStrategies tests per-strategy averaging across symbols
func TestCompareStrategies(t *testing.T) {
	comps := sampleBatch().CompareStrategies()
	require.Len(t, comps, 2)

	first := comps[0]
	assert.Equal(t, "Strategy1", first.StrategyName)
	assert.Equal(t, 2, first.Runs)
	assert.InDelta(t, 17.5, first.AvgReturnPct, 1e-9)
	assert.InDelta(t, 62.5, first.AvgWinRate, 1e-9)
	assert.InDelta(t, 1.65, first.AvgSharpe, 1e-9)
	assert.InDelta(t, -12, first.WorstDrawdown, 1e-9)
	assert.Equal(t, 22, first.TotalTrades)

	second := comps[1]
	assert.Equal(t, "Strategy2", second.StrategyName)
	assert.Equal(t, 2, second.Runs)
	assert.InDelta(t, 7.5, second.AvgReturnPct, 1e-9)
	assert.InDelta(t, -8, second.WorstDrawdown, 1e-9)
	assert.Equal(t, 23, second.TotalTrades)
}

// TestGenerateSummaryReport tests the exact report layout
func TestGenerateSummaryReport(t *testing.T) {
	report := sampleBatch().GenerateSummaryReport()

	assert.Contains(t, report, "Backtest Summary Report")
	assert.Contains(t, report, "Total backtests run: 4")
	assert.Contains(t, report, "Symbols tested: 2")
	assert.Contains(t, report, "Strategies tested: 2")
	assert.NotContains(t, report, "Failed runs")

	assert.Contains(t, report, "Top Strategies by Return")
	assert.Contains(t, report, "Strategy1 on ETHUSDT: 20.00% return, 65.00% win rate, 12 trades")
	assert.Contains(t, report, "Strategy1 on BTCUSDT: 15.00% return, 60.00% win rate, 10 trades")
	assert.Contains(t, report, "Strategy2 on BTCUSDT: 10.00% return, 70.00% win rate, 15 trades")
	// only the top three appear
	assert.NotContains(t, report, "5.00% return")

	assert.Contains(t, report, "Top Strategies by Risk-Adjusted Return (Sharpe)")
	assert.Contains(t, report, "Strategy1 on ETHUSDT: Sharpe 1.80, 20.00% return, -12.00% max drawdown")
	assert.Contains(t, report, "Strategy1 on BTCUSDT: Sharpe 1.50, 15.00% return, -10.00% max drawdown")
	assert.Contains(t, report, "Strategy2 on BTCUSDT: Sharpe 1.20, 10.00% return, -8.00% max drawdown")
}

// TestGenerateSummaryReportFailures tests the failed-run line
func TestGenerateSummaryReportFailures(t *testing.T) {
	batch := sampleBatch()
	batch.Failures = append(batch.Failures, FailedRun{
		Symbol:       "SOLUSDT",
		StrategyName: "Strategy1",
		Err:          errors.NewDataError("engine", "run", "no candles for SOLUSDT"),
	})

	report := batch.GenerateSummaryReport()
	assert.Contains(t, report, "Failed runs: 1")
	// failures never appear in the rankings
	assert.False(t, strings.Contains(report, "SOLUSDT"))
}
