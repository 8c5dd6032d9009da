package strategy

import (
	"backtester/internal/errors"
	"backtester/internal/indicators"
	"backtester/pkg/types"
)

// RSIName is the registry name of the RSI threshold strategy.
const RSIName = "rsi"

// RSIParams is the typed parameter record for the RSI strategy.
type RSIParams struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// RSIStrategy signals on threshold crossings: long when the RSI recovers up
// through the oversold level, short when it falls back down through the
// overbought level.
type RSIStrategy struct {
	params RSIParams
	rsi    *indicators.RSI
}

// NewRSIStrategy builds an RSI strategy from a parameter set. Recognized
// parameters: period, oversold, overbought.
func NewRSIStrategy(params ParamSet) (Strategy, error) {
	p := RSIParams{Period: 14, Oversold: 30, Overbought: 70}
	if v, err := params.GetInt("period"); err == nil {
		p.Period = v
	}
	if v, err := params.Get("oversold"); err == nil {
		p.Oversold = v
	}
	if v, err := params.Get("overbought"); err == nil {
		p.Overbought = v
	}
	if p.Period <= 1 {
		return nil, errors.NewConfigError(RSIName, "new", "period must be above 1")
	}
	if p.Oversold >= p.Overbought {
		return nil, errors.NewConfigError(RSIName, "new", "oversold must be below overbought")
	}
	return &RSIStrategy{params: p, rsi: indicators.NewRSI(p.Period)}, nil
}

// GenerateSignal compares the RSI of the previous and the current candle
// against the configured thresholds.
func (s *RSIStrategy) GenerateSignal(window []types.OHLCV) (Signal, error) {
	if len(window) < s.WarmupPeriod() {
		return Signal{Direction: Flat}, nil
	}

	closes := types.Closes(window)
	current, err := s.rsi.Calculate(closes)
	if err != nil {
		return Signal{Direction: Flat}, nil
	}
	previous, err := s.rsi.Calculate(closes[:len(closes)-1])
	if err != nil {
		return Signal{Direction: Flat}, nil
	}

	switch {
	case previous < s.params.Oversold && current >= s.params.Oversold:
		return Signal{Direction: Long, Confidence: (s.params.Oversold - previous) / s.params.Oversold}, nil
	case previous > s.params.Overbought && current <= s.params.Overbought:
		return Signal{Direction: Short, Confidence: (previous - s.params.Overbought) / (100 - s.params.Overbought)}, nil
	default:
		return Signal{Direction: Flat}, nil
	}
}

// Name returns the registry name.
func (s *RSIStrategy) Name() string {
	return RSIName
}

// WarmupPeriod returns the candle count needed for two RSI readings.
func (s *RSIStrategy) WarmupPeriod() int {
	return s.params.Period + 2
}
