package reporting

import (
	"fmt"
	"math"
	"strings"

	"backtester/internal/backtest"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputResult prints one backtest result to the console.
func (r *DefaultConsoleReporter) OutputResult(result *backtest.BacktestResult) {
	m := result.Metrics

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("📊 BACKTEST RESULTS: %s / %s\n", result.StrategyName, result.Symbol)
	fmt.Println(strings.Repeat("=", 50))

	fmt.Printf("💰 Initial Capital:    $%.2f\n", result.InitialCapital)
	fmt.Printf("💰 Final Equity:       $%.2f\n", result.FinalEquity)
	fmt.Printf("📈 Total Return:       %.2f%%\n", m.TotalReturnPct)
	fmt.Printf("📉 Max Drawdown:       %.2f%%\n", m.MaxDrawdownPct)
	fmt.Printf("📊 Sharpe Ratio:       %.2f\n", m.SharpeRatio)
	fmt.Printf("📊 Sortino Ratio:      %.2f\n", m.SortinoRatio)
	fmt.Printf("📊 Calmar Ratio:       %.2f\n", m.CalmarRatio)
	fmt.Printf("💹 Profit Factor:      %s\n", formatRatio(m.ProfitFactor))
	fmt.Printf("💹 Expectancy:         $%.2f\n", m.Expectancy)
	fmt.Printf("🔄 Total Trades:       %d\n", m.TotalTrades)
	fmt.Printf("✅ Winning Trades:     %d (%.1f%%)\n", m.WinningTrades, m.WinRate)
	fmt.Printf("❌ Losing Trades:      %d\n", m.LosingTrades)
	if m.BreakevenTrades > 0 {
		fmt.Printf("➖ Breakeven Trades:   %d\n", m.BreakevenTrades)
	}
}

// OutputBatch prints the batch summary report.
func (r *DefaultConsoleReporter) OutputBatch(batch *backtest.BatchResult) {
	fmt.Println()
	fmt.Print(batch.GenerateSummaryReport())
}

// OutputAlerts prints triggered alerts, if any.
func (r *DefaultConsoleReporter) OutputAlerts(result *backtest.BacktestResult, alerts []backtest.Alert) {
	if len(alerts) == 0 {
		return
	}
	fmt.Printf("\n⚠️  Alerts for %s on %s:\n", result.StrategyName, result.Symbol)
	for _, a := range alerts {
		fmt.Printf("  [%s/%s] %s\n", a.Type, a.Severity, a.Message)
	}
}

// formatRatio renders +Inf as "inf" rather than the printf default.
func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
