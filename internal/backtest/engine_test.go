package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/errors"
	"backtester/internal/strategy"
	"backtester/pkg/types"
)

func candlesFromCloses(closes ...float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high := open
		if c > high {
			high = c
		}
		low := open
		if c < low {
			low = c
		}
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      high + 0.1,
			Low:       low - 0.1,
			Close:     c,
			Volume:    1000,
		}
	}
	return data
}

// priceTriggerStrategy goes long at one close price and reverses at another.
type priceTriggerStrategy struct {
	longAt  float64
	shortAt float64
}

func (s *priceTriggerStrategy) GenerateSignal(window []types.OHLCV) (strategy.Signal, error) {
	c := window[len(window)-1].Close
	switch {
	case c == s.longAt:
		return strategy.Signal{Direction: strategy.Long, Confidence: 1}, nil
	case c == s.shortAt:
		return strategy.Signal{Direction: strategy.Short, Confidence: 1}, nil
	}
	return strategy.Signal{Direction: strategy.Flat}, nil
}

func (s *priceTriggerStrategy) Name() string      { return "price_trigger" }
func (s *priceTriggerStrategy) WarmupPeriod() int { return 1 }

// flatStrategy never signals.
type flatStrategy struct{}

func (flatStrategy) GenerateSignal([]types.OHLCV) (strategy.Signal, error) {
	return strategy.Signal{Direction: strategy.Flat}, nil
}
func (flatStrategy) Name() string      { return "flat" }
func (flatStrategy) WarmupPeriod() int { return 1 }

// failingStrategy errors on every candle.
type failingStrategy struct{}

func (failingStrategy) GenerateSignal([]types.OHLCV) (strategy.Signal, error) {
	return strategy.Signal{}, errors.NewStrategyError("failing", "signal", "boom")
}
func (failingStrategy) Name() string      { return "failing" }
func (failingStrategy) WarmupPeriod() int { return 1 }

// fixedBias always reports the configured consolidated bias.
type fixedBias struct{ bias strategy.Bias }

func (b fixedBias) Bias([]types.OHLCV, strategy.Strategy) (strategy.Bias, error) {
	return b.bias, nil
}

// erringBias fails on every consultation.
type erringBias struct{}

func (erringBias) Bias([]types.OHLCV, strategy.Strategy) (strategy.Bias, error) {
	return strategy.BiasNeutral, errors.NewStrategyError("bias", "consolidate", "no view")
}

// TestEngineRun_SingleProfitableTrade tests the documented one-trade scenario
func TestEngineRun_SingleProfitableTrade(t *testing.T) {
	engine := NewEngine(Config{
		Symbol:         "BTCUSDT",
		InitialCapital: 10000,
		Commission:     0,
		PositionSize:   1000, // quantity 10 at entry price 100
	})
	data := candlesFromCloses(90, 95, 100, 105, 110, 108)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: 110})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, SideLong, trade.Side)
	assert.InDelta(t, 100.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 110.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 10.0, trade.Quantity, 1e-9)
	assert.InDelta(t, 100.0, trade.ProfitLoss, 1e-9)
	assert.InDelta(t, 10.0, trade.ROIPct, 1e-9)
	assert.Equal(t, ExitSignalReversal, trade.ExitReason)

	assert.InDelta(t, 10100.0, result.FinalEquity, 1e-9)
	assert.InDelta(t, 1.0, result.Metrics.TotalReturnPct, 1e-9)
}

// TestEngineRun_EquityCurveLengthMatchesCandles tests one equity point per candle
func TestEngineRun_EquityCurveLengthMatchesCandles(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000})
	data := candlesFromCloses(100, 101, 102, 103, 104)

	result, err := engine.Run(data, flatStrategy{})
	require.NoError(t, err)

	assert.Len(t, result.EquityCurve, len(data))
}

// TestEngineRun_RecordsTimeframes tests that configured timeframes land on the result
func TestEngineRun_RecordsTimeframes(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, Timeframes: []string{"1m", "5m", "1h"}})
	data := candlesFromCloses(100, 101, 102)

	result, err := engine.Run(data, flatStrategy{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1m", "5m", "1h"}, result.Timeframes)
}

// TestEngineRun_ZeroTrades tests a run where the strategy never signals
func TestEngineRun_ZeroTrades(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000})
	data := candlesFromCloses(100, 101, 102, 101, 100)

	result, err := engine.Run(data, flatStrategy{})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.Metrics.TotalTrades)
	assert.Equal(t, 0.0, result.Metrics.WinRate)
	assert.Equal(t, 0.0, result.Metrics.ProfitFactor)
	assert.InDelta(t, 10000.0, result.FinalEquity, 1e-9)
}

// TestEngineRun_StopLossExit tests the protective stop firing on the bar low
func TestEngineRun_StopLossExit(t *testing.T) {
	engine := NewEngine(Config{
		InitialCapital:  10000,
		PositionSize:    1000,
		StopLossPercent: 5,
	})
	// entry at 100, stop at 95; the 94 close candle's low breaches it
	data := candlesFromCloses(90, 95, 100, 98, 94, 96)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitStopLoss, trade.ExitReason)
	assert.InDelta(t, 95.0, trade.ExitPrice, 1e-9)
	assert.Less(t, trade.ProfitLoss, 0.0)
}

// TestEngineRun_TakeProfitExit tests the target firing on the bar high
func TestEngineRun_TakeProfitExit(t *testing.T) {
	engine := NewEngine(Config{
		InitialCapital:    10000,
		PositionSize:      1000,
		TakeProfitPercent: 5,
	})
	data := candlesFromCloses(90, 95, 100, 103, 106, 104)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitTakeProfit, trade.ExitReason)
	assert.InDelta(t, 105.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.ProfitLoss, 0.0)
}

// TestEngineRun_StopBeatsTargetInOneBar tests the conservative intrabar precedence
func TestEngineRun_StopBeatsTargetInOneBar(t *testing.T) {
	data := candlesFromCloses(90, 95, 100, 99)
	// widen the last bar so both the 95 stop and the 105 target are inside it
	data[3].High = 108
	data[3].Low = 92

	cfg := Config{
		InitialCapital:    10000,
		PositionSize:      1000,
		StopLossPercent:   5,
		TakeProfitPercent: 5,
	}

	result, err := NewEngine(cfg).Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitStopLoss, result.Trades[0].ExitReason)

	cfg.OptimisticFills = true
	result, err = NewEngine(cfg).Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitTakeProfit, result.Trades[0].ExitReason)
}

// TestEngineRun_ShortDisabledByDefault tests that short signals open nothing unless allowed
func TestEngineRun_ShortDisabledByDefault(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000})
	data := candlesFromCloses(110, 108, 106, 104, 102)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: -1, shortAt: 106})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
}

// TestEngineRun_ShortTrade tests a short position's sign conventions
func TestEngineRun_ShortTrade(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000, AllowShort: true})
	data := candlesFromCloses(110, 108, 106, 104, 100, 101)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: 106})
	require.NoError(t, err)

	// the reversal closes the short and immediately opens the long side,
	// which is then force-closed at the end of the data
	require.Len(t, result.Trades, 2)
	trade := result.Trades[0]
	assert.Equal(t, SideShort, trade.Side)
	assert.InDelta(t, 106.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 100.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.ProfitLoss, 0.0)
	assert.Equal(t, ExitSignalReversal, trade.ExitReason)
	assert.Equal(t, SideLong, result.Trades[1].Side)
	assert.Equal(t, ExitEndOfBacktest, result.Trades[1].ExitReason)
}

// TestEngineRun_ForcedCloseAtEnd tests the end-of-data close of an open position
func TestEngineRun_ForcedCloseAtEnd(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000})
	data := candlesFromCloses(90, 95, 100, 102, 104)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitEndOfBacktest, trade.ExitReason)
	assert.InDelta(t, 104.0, trade.ExitPrice, 1e-9)
	// last equity point reflects the realized close
	assert.InDelta(t, result.FinalEquity, result.EquityCurve[len(result.EquityCurve)-1].Equity, 1e-9)
}

// TestEngineRun_CommissionOnBothLegs tests commission charged at entry and exit
func TestEngineRun_CommissionOnBothLegs(t *testing.T) {
	engine := NewEngine(Config{
		InitialCapital: 10000,
		PositionSize:   1000,
		Commission:     0.001,
	})
	data := candlesFromCloses(90, 95, 100, 105, 110, 108)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: 110})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	// gross 100 minus exit commission 1.10
	assert.InDelta(t, 98.9, trade.ProfitLoss, 1e-9)
	// entry commission 1.00 hits equity separately
	assert.InDelta(t, 10097.9, result.FinalEquity, 1e-9)
}

// TestEngineRun_BiasGateBlocksDisagreeingEntry tests the consolidated-bias entry gate
func TestEngineRun_BiasGateBlocksDisagreeingEntry(t *testing.T) {
	data := candlesFromCloses(90, 95, 100, 105, 110, 108)
	strat := &priceTriggerStrategy{longAt: 100, shortAt: 110}

	blocked := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000}).
		WithBias(fixedBias{bias: strategy.BiasBearish})
	result, err := blocked.Run(data, strat)
	require.NoError(t, err)
	assert.Empty(t, result.Trades)

	neutral := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000}).
		WithBias(fixedBias{bias: strategy.BiasNeutral})
	result, err = neutral.Run(data, strat)
	require.NoError(t, err)
	assert.Empty(t, result.Trades, "neutral bias must not admit entries")

	agreeing := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000}).
		WithBias(fixedBias{bias: strategy.BiasBullish})
	result, err = agreeing.Run(data, strat)
	require.NoError(t, err)
	assert.Len(t, result.Trades, 1)
}

// TestEngineRun_RiskPercentSizing tests stop-distance position sizing
func TestEngineRun_RiskPercentSizing(t *testing.T) {
	engine := NewEngine(Config{
		InitialCapital:  10000,
		RiskPercent:     1,
		StopLossPercent: 5,
	})
	data := candlesFromCloses(90, 95, 100, 102, 104)

	result, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	// risking 1% of 10000 over a 5-point stop distance
	assert.InDelta(t, 20.0, result.Trades[0].Quantity, 1e-9)
}

// TestEngineRun_StrategyErrorRateAborts tests the failed-run policy for persistent errors
func TestEngineRun_StrategyErrorRateAborts(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, MaxErrorRate: 0.1})
	data := candlesFromCloses(100, 101, 102, 103, 104, 105)

	_, err := engine.Run(data, failingStrategy{})
	require.Error(t, err)
	assert.True(t, errors.IsStrategy(err))
}

// TestEngineRun_ShortRunWithPersistentErrorsAborts tests that the rate policy has no minimum failure count
func TestEngineRun_ShortRunWithPersistentErrorsAborts(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, MaxErrorRate: 0.1})
	data := candlesFromCloses(100, 101)

	_, err := engine.Run(data, failingStrategy{})
	require.Error(t, err)
	assert.True(t, errors.IsStrategy(err))
}

// TestEngineRun_BiasErrorRateAborts tests that failing bias lookups count against the error budget
func TestEngineRun_BiasErrorRateAborts(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000, PositionSize: 1000, MaxErrorRate: 0.1}).
		WithBias(erringBias{})
	data := candlesFromCloses(90, 95, 100, 102, 104)

	_, err := engine.Run(data, &priceTriggerStrategy{longAt: 100, shortAt: -1})
	require.Error(t, err)
	assert.True(t, errors.IsStrategy(err))
}

// TestEngineRun_EmptyData tests the missing-history error
func TestEngineRun_EmptyData(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000})

	_, err := engine.Run(nil, flatStrategy{})
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}

// TestConfigValidate tests fail-fast settings validation
func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{InitialCapital: 0}.Validate())
	assert.Error(t, Config{InitialCapital: 1000, Commission: 1.5}.Validate())
	assert.Error(t, Config{InitialCapital: 1000, RiskPercent: 150}.Validate())
	assert.Error(t, Config{InitialCapital: 1000, MaxErrorRate: 2}.Validate())
	assert.NoError(t, Config{InitialCapital: 1000, Commission: 0.001}.Validate())
}
