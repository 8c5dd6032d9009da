package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics is the full performance summary of one backtest run. Ratio fields
// use 0 as the "not computable" sentinel; ProfitFactor alone may be +Inf
// when there are winners and no losers.
type Metrics struct {
	TotalTrades     int `json:"total_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	TotalReturnPct  float64 `json:"total_return_pct"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	Expectancy      float64 `json:"expectancy"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	SortinoRatio    float64 `json:"sortino_ratio"`
	CalmarRatio     float64 `json:"calmar_ratio"`
	RecoveryFactor  float64 `json:"recovery_factor"`
}

// CalculateMetrics derives the performance summary from the closed trades
// and the per-candle equity curve. It is a pure function of its inputs.
// annualizationFactor is the number of return periods per year; 0 leaves
// Sharpe and Sortino un-annualized.
func CalculateMetrics(trades []Trade, curve []EquityPoint, initialCapital, annualizationFactor float64) Metrics {
	var m Metrics

	finalEquity := initialCapital
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}
	if initialCapital > 0 {
		m.TotalReturnPct = (finalEquity - initialCapital) / initialCapital * 100
	}

	m.TotalTrades = len(trades)
	var grossProfit, grossLoss float64
	var wins, losses []float64
	for _, t := range trades {
		switch {
		case t.ProfitLoss > 0:
			m.WinningTrades++
			wins = append(wins, t.ProfitLoss)
			grossProfit += t.ProfitLoss
		case t.ProfitLoss < 0:
			m.LosingTrades++
			losses = append(losses, t.ProfitLoss)
			grossLoss += -t.ProfitLoss
		default:
			m.BreakevenTrades++
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

		switch {
		case grossLoss > 0:
			m.ProfitFactor = grossProfit / grossLoss
		case grossProfit > 0:
			m.ProfitFactor = math.Inf(1)
		}

		if len(wins) > 0 {
			m.AvgWin = stat.Mean(wins, nil)
		}
		if len(losses) > 0 {
			m.AvgLoss = stat.Mean(losses, nil) // negative by construction
		}
		winFrac := float64(m.WinningTrades) / float64(m.TotalTrades)
		lossFrac := float64(m.LosingTrades) / float64(m.TotalTrades)
		m.Expectancy = winFrac*m.AvgWin + lossFrac*m.AvgLoss

		switch {
		case m.AvgLoss != 0:
			m.RiskRewardRatio = m.AvgWin / math.Abs(m.AvgLoss)
		case m.AvgWin > 0:
			m.RiskRewardRatio = math.Inf(1)
		}
	}

	maxDDPct, maxDDMoney := maxDrawdown(curve)
	m.MaxDrawdownPct = -maxDDPct

	returns := periodReturns(curve)
	m.SharpeRatio = sharpe(returns, annualizationFactor)
	m.SortinoRatio = sortino(returns, annualizationFactor)

	if maxDDPct > 0 {
		m.CalmarRatio = m.TotalReturnPct / maxDDPct
	}
	if maxDDMoney > 0 {
		m.RecoveryFactor = (finalEquity - initialCapital) / maxDDMoney
	}

	return m
}

// maxDrawdown returns the largest peak-to-trough decline as a positive
// percentage and as positive money terms.
func maxDrawdown(curve []EquityPoint) (pct, money float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := peak - p.Equity; dd > money {
			money = dd
		}
		if ddPct := (peak - p.Equity) / peak * 100; ddPct > pct {
			pct = ddPct
		}
	}
	return pct, money
}

// periodReturns converts the equity curve into simple per-period returns.
func periodReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

func annualize(factor float64) float64 {
	if factor <= 0 {
		return 1
	}
	return math.Sqrt(factor)
}

func sharpe(returns []float64, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := stat.Mean(returns, nil)
	std := math.Sqrt(stat.PopVariance(returns, nil))
	if std == 0 {
		return 0
	}
	return mean / std * annualize(annualizationFactor)
}

func sortino(returns []float64, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) == 0 {
		return 0
	}
	downside := math.Sqrt(stat.PopVariance(negative, nil))
	if downside == 0 {
		return 0
	}
	mean := stat.Mean(returns, nil)
	return mean / downside * annualize(annualizationFactor)
}
