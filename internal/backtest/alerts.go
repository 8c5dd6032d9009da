package backtest

import "fmt"

// Alert flags a completed run whose metrics breach a health threshold.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const (
	AlertDrawdown    = "drawdown"
	AlertWinRate     = "win_rate"
	AlertPerformance = "performance"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Thresholds below which a run is flagged. The win-rate check needs a
// minimum sample before it fires.
const (
	maxDrawdownAlertPct = -15.0
	minWinRatePct       = 40.0
	minTradesForWinRate = 10
	minSharpeRatio      = 0.5
)

// MonitorAndAlert inspects a run's metrics and returns the triggered
// alerts, worst first. An empty slice means the run looks healthy.
func MonitorAndAlert(m Metrics) []Alert {
	var alerts []Alert

	if m.MaxDrawdownPct < maxDrawdownAlertPct {
		alerts = append(alerts, Alert{
			Type:     AlertDrawdown,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("max drawdown %.2f%% exceeds %.2f%% limit", m.MaxDrawdownPct, maxDrawdownAlertPct),
		})
	}
	if m.TotalTrades >= minTradesForWinRate && m.WinRate < minWinRatePct {
		alerts = append(alerts, Alert{
			Type:     AlertWinRate,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("win rate %.2f%% below %.2f%% over %d trades", m.WinRate, minWinRatePct, m.TotalTrades),
		})
	}
	if m.SharpeRatio < minSharpeRatio {
		alerts = append(alerts, Alert{
			Type:     AlertPerformance,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("Sharpe ratio %.2f below %.2f", m.SharpeRatio, minSharpeRatio),
		})
	}

	return alerts
}
