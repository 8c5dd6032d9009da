package resample

import (
	"backtester/internal/errors"
	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// TimeframeSignal is the classified signal of one timeframe.
type TimeframeSignal struct {
	Timeframe  string
	Signal     strategy.Signal
	Bars       int
	Incomplete bool
}

// View is the consolidated multi-timeframe picture for one data window.
// It is computed on demand and never persisted.
type View struct {
	Signals           []TimeframeSignal
	Bias              strategy.Bias
	BullishTimeframes []string
	BearishTimeframes []string
}

// Analyzer resamples a base series into several timeframes, collects one
// signal per timeframe from a strategy, and consolidates them into a single
// directional bias.
//
// Consolidation rule: each timeframe carries a weight (default 1.0).
// Weights are summed over bullish and bearish timeframes only; neutral
// timeframes abstain. The sign of (bullish - bearish) decides the bias and
// an exact tie is neutral.
type Analyzer struct {
	timeframes []Timeframe
	weights    map[string]float64
}

// NewAnalyzer creates an analyzer for the given timeframes. weights maps
// timeframe keys to vote weights; missing entries default to 1.0.
func NewAnalyzer(timeframes []Timeframe, weights map[string]float64) (*Analyzer, error) {
	if len(timeframes) == 0 {
		return nil, errors.NewConfigError("analyzer", "new", "at least one timeframe required")
	}
	for key, w := range weights {
		if w < 0 {
			return nil, errors.NewConfigError("analyzer", "new", "negative weight for timeframe "+key)
		}
	}
	return &Analyzer{timeframes: timeframes, weights: weights}, nil
}

// Analyze produces the per-timeframe signals and the consolidated bias for
// the given base-timeframe window.
func (a *Analyzer) Analyze(window []types.OHLCV, strat strategy.Strategy) (*View, error) {
	view := &View{Signals: make([]TimeframeSignal, 0, len(a.timeframes))}

	bullish := 0.0
	bearish := 0.0
	for _, tf := range a.timeframes {
		bars := Resample(window, tf)
		sig := strategy.Signal{Direction: strategy.Flat}
		if len(bars) > 0 {
			var err error
			sig, err = strat.GenerateSignal(Candles(bars))
			if err != nil {
				return nil, err
			}
		}

		incomplete := len(bars) > 0 && !bars[len(bars)-1].Complete
		view.Signals = append(view.Signals, TimeframeSignal{
			Timeframe:  tf.Key,
			Signal:     sig,
			Bars:       len(bars),
			Incomplete: incomplete,
		})

		switch sig.Direction {
		case strategy.Long:
			bullish += a.weight(tf.Key)
			view.BullishTimeframes = append(view.BullishTimeframes, tf.Key)
		case strategy.Short:
			bearish += a.weight(tf.Key)
			view.BearishTimeframes = append(view.BearishTimeframes, tf.Key)
		}
	}

	switch {
	case bullish > bearish:
		view.Bias = strategy.BiasBullish
	case bearish > bullish:
		view.Bias = strategy.BiasBearish
	default:
		view.Bias = strategy.BiasNeutral
	}
	return view, nil
}

// Bias returns only the consolidated bias for the window. It satisfies the
// simulator's entry gate.
func (a *Analyzer) Bias(window []types.OHLCV, strat strategy.Strategy) (strategy.Bias, error) {
	view, err := a.Analyze(window, strat)
	if err != nil {
		return strategy.BiasNeutral, err
	}
	return view.Bias, nil
}

func (a *Analyzer) weight(key string) float64 {
	if w, ok := a.weights[key]; ok {
		return w
	}
	return 1.0
}
