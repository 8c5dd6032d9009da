package resample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// trendStrategy votes long when the window closed above its first close,
// short when below, flat when unchanged.
type trendStrategy struct{}

func (trendStrategy) GenerateSignal(window []types.OHLCV) (strategy.Signal, error) {
	first, last := window[0].Close, window[len(window)-1].Close
	switch {
	case last > first:
		return strategy.Signal{Direction: strategy.Long, Confidence: 1}, nil
	case last < first:
		return strategy.Signal{Direction: strategy.Short, Confidence: 1}, nil
	}
	return strategy.Signal{Direction: strategy.Flat}, nil
}

func (trendStrategy) Name() string      { return "trend" }
func (trendStrategy) WarmupPeriod() int { return 1 }

func mustTimeframes(t *testing.T, keys ...string) []Timeframe {
	t.Helper()
	tfs, err := ParseTimeframes(keys)
	require.NoError(t, err)
	return tfs
}

// splitCandles spans two hours: the series ends above its first close, but
// the second hourly bar closes below the first, so a close-to-close trend
// vote disagrees between the minute view and the hourly view.
func splitCandles() []types.OHLCV {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 120)
	for i := 0; i < 60; i++ {
		closes[i] = 100 + float64(i)/3 // hour one closes near 120
	}
	for i := 60; i < 120; i++ {
		closes[i] = 120 - float64(i-59)/6 // hour two closes near 110
	}
	return minuteCandles(start, closes...)
}

// TestAnalyzerConsolidatedBias tests the majority vote across timeframes
func TestAnalyzerConsolidatedBias(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rising := minuteCandles(start, 100, 101, 102, 103, 104, 105, 106, 107, 108, 109)

	analyzer, err := NewAnalyzer(mustTimeframes(t, "1m", "5m", "1h"), nil)
	require.NoError(t, err)

	view, err := analyzer.Analyze(rising, trendStrategy{})
	require.NoError(t, err)

	require.Len(t, view.Signals, 3)
	// the hourly view collapses to a single bar and abstains
	assert.Equal(t, []string{"1m", "5m"}, view.BullishTimeframes)
	assert.Empty(t, view.BearishTimeframes)
	assert.Equal(t, strategy.BiasBullish, view.Bias)
}

// TestAnalyzerTieIsNeutral tests that an even split abstains
func TestAnalyzerTieIsNeutral(t *testing.T) {
	analyzer, err := NewAnalyzer(mustTimeframes(t, "1m", "1h"), nil)
	require.NoError(t, err)

	view, err := analyzer.Analyze(splitCandles(), trendStrategy{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1m"}, view.BullishTimeframes)
	assert.Equal(t, []string{"1h"}, view.BearishTimeframes)
	assert.Equal(t, strategy.BiasNeutral, view.Bias)
}

// TestAnalyzerWeights tests weighted votes deciding a split
func TestAnalyzerWeights(t *testing.T) {
	data := splitCandles()
	tfs := mustTimeframes(t, "1m", "1h")

	hourly, err := NewAnalyzer(tfs, map[string]float64{"1h": 3})
	require.NoError(t, err)
	bias, err := hourly.Bias(data, trendStrategy{})
	require.NoError(t, err)
	assert.Equal(t, strategy.BiasBearish, bias)

	minutely, err := NewAnalyzer(tfs, map[string]float64{"1m": 3})
	require.NoError(t, err)
	bias, err = minutely.Bias(data, trendStrategy{})
	require.NoError(t, err)
	assert.Equal(t, strategy.BiasBullish, bias)
}

// TestAnalyzerRejectsBadConfig tests constructor validation
func TestAnalyzerRejectsBadConfig(t *testing.T) {
	_, err := NewAnalyzer(nil, nil)
	assert.Error(t, err)

	_, err = NewAnalyzer(mustTimeframes(t, "1h"), map[string]float64{"1h": -1})
	assert.Error(t, err)
}

// TestAnalyzerIncompleteFlag tests surfacing of unfinished trailing windows
func TestAnalyzerIncompleteFlag(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := minuteCandles(start, 100, 101, 102) // 3 of 5 minutes

	analyzer, err := NewAnalyzer(mustTimeframes(t, "5m"), nil)
	require.NoError(t, err)

	view, err := analyzer.Analyze(data, trendStrategy{})
	require.NoError(t, err)
	require.Len(t, view.Signals, 1)
	assert.True(t, view.Signals[0].Incomplete)
	assert.Equal(t, 1, view.Signals[0].Bars)
}

// TestAnalyzerBiasGate tests the simulator-facing Bias accessor
func TestAnalyzerBiasGate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	falling := minuteCandles(start, 110, 108, 106, 104, 102)

	analyzer, err := NewAnalyzer(mustTimeframes(t, "1m", "5m"), nil)
	require.NoError(t, err)

	bias, err := analyzer.Bias(falling, trendStrategy{})
	require.NoError(t, err)
	assert.Equal(t, strategy.BiasBearish, bias)
	assert.True(t, bias.Agrees(strategy.Short))
	assert.False(t, bias.Agrees(strategy.Long))
}
