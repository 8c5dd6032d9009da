package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// regressionCloses builds a weekly close series with two oversold recoveries
// that an RSI(3) 30/70 strategy trades as exactly two winning round trips.
// The drifting tail keeps the RSI pinned low so no third entry fires.
func regressionCloses() []types.OHLCV {
	closes := []float64{100, 100.5, 100.2, 100.7, 100.4}
	closes = append(closes, 99, 97.5, 96, 94.5)

	// recovery lifts the RSI back over 30, long entry at 97
	entry1 := 97.0
	closes = append(closes, entry1)

	// drawdown trough while long
	closes = append(closes, 95, 92.65*entry1/100)

	// rally through overbought, then the pullback that exits at 98.94
	closes = append(closes, 96.5, 99, 101.5)
	exit1 := 102.0 * entry1 / 100
	closes = append(closes, exit1)

	// second decline and recovery, long entry two
	closes = append(closes, exit1*0.995, exit1*0.98, exit1*0.96, exit1*0.945)
	entry2 := exit1 * 0.96
	closes = append(closes, entry2)

	// dip, rally through overbought, exit sized for a 3.88% total return
	closes = append(closes, entry2*0.985, entry2*1.01, entry2*1.03, entry2*1.05)
	exit2 := entry2 * (1.0388 / (exit1 / entry1))
	closes = append(closes, exit2)

	last := exit2
	for i := 0; i < 15; i++ {
		last *= 0.9995
		closes = append(closes, last)
	}
	return candlesFromCloses(closes...)
}

// TestEngineRegression_RSIWeekly pins the full pipeline's numbers on a fixed
// weekly series so engine or metrics changes cannot drift unnoticed.
func TestEngineRegression_RSIWeekly(t *testing.T) {
	strat, err := strategy.NewRSIStrategy(strategy.ParamSet{
		"period":     3,
		"oversold":   30,
		"overbought": 70,
	})
	require.NoError(t, err)

	engine := NewEngine(Config{
		Symbol:              "BTCUSDT",
		InitialCapital:      10000,
		Commission:          0,
		AnnualizationFactor: 52,
	})

	data := regressionCloses()
	require.Len(t, data, 41)

	result, err := engine.Run(data, strat)
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	first, second := result.Trades[0], result.Trades[1]

	assert.InDelta(t, 97.0, first.EntryPrice, 1e-9)
	assert.InDelta(t, 98.94, first.ExitPrice, 1e-9)
	assert.InDelta(t, 200.0, first.ProfitLoss, 1e-6)
	assert.Equal(t, ExitSignalReversal, first.ExitReason)

	assert.InDelta(t, 94.9824, second.EntryPrice, 1e-9)
	assert.InDelta(t, 96.733056, second.ExitPrice, 1e-9)
	assert.InDelta(t, 188.0, second.ProfitLoss, 1e-6)
	assert.Equal(t, ExitSignalReversal, second.ExitReason)

	m := result.Metrics
	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.InDelta(t, 100.0, m.WinRate, 1e-9)
	assert.InDelta(t, 3.88, m.TotalReturnPct, 1e-6)
	assert.InDelta(t, -7.35, m.MaxDrawdownPct, 1e-6)
	assert.InDelta(t, 0.44, m.SharpeRatio, 0.005)
	assert.Len(t, result.EquityCurve, len(data))
	assert.InDelta(t, 10388.0, result.FinalEquity, 1e-6)
}
