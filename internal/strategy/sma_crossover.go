package strategy

import (
	"backtester/internal/errors"
	"backtester/internal/indicators"
	"backtester/pkg/types"
)

// SMACrossName is the registry name of the SMA crossover strategy.
const SMACrossName = "sma_crossover"

// SMACrossParams is the typed parameter record for the SMA crossover strategy.
type SMACrossParams struct {
	ShortPeriod int
	LongPeriod  int
}

// SMACrossover trades the relation between a short and a long simple moving
// average: long while the short average is above the long one, short while
// it is below.
type SMACrossover struct {
	params   SMACrossParams
	shortSMA *indicators.SMA
	longSMA  *indicators.SMA
}

// NewSMACrossover builds an SMA crossover strategy from a parameter set.
// Recognized parameters: short_period, long_period.
func NewSMACrossover(params ParamSet) (Strategy, error) {
	p := SMACrossParams{ShortPeriod: 10, LongPeriod: 30}
	if v, err := params.GetInt("short_period"); err == nil {
		p.ShortPeriod = v
	}
	if v, err := params.GetInt("long_period"); err == nil {
		p.LongPeriod = v
	}
	if p.ShortPeriod <= 0 || p.LongPeriod <= 0 {
		return nil, errors.NewConfigError(SMACrossName, "new", "periods must be positive")
	}
	if p.ShortPeriod >= p.LongPeriod {
		return nil, errors.NewConfigError(SMACrossName, "new", "short_period must be below long_period")
	}
	return &SMACrossover{
		params:   p,
		shortSMA: indicators.NewSMA(p.ShortPeriod),
		longSMA:  indicators.NewSMA(p.LongPeriod),
	}, nil
}

// GenerateSignal returns Long while the short SMA is above the long SMA and
// Short while it is below. Insufficient history yields a flat signal.
func (s *SMACrossover) GenerateSignal(window []types.OHLCV) (Signal, error) {
	if len(window) < s.WarmupPeriod() {
		return Signal{Direction: Flat}, nil
	}

	closes := types.Closes(window)
	short, err := s.shortSMA.Calculate(closes)
	if err != nil {
		return Signal{Direction: Flat}, nil
	}
	long, err := s.longSMA.Calculate(closes)
	if err != nil {
		return Signal{Direction: Flat}, nil
	}

	switch {
	case short > long:
		return Signal{Direction: Long, Confidence: spread(short, long)}, nil
	case short < long:
		return Signal{Direction: Short, Confidence: spread(long, short)}, nil
	default:
		return Signal{Direction: Flat}, nil
	}
}

// Name returns the registry name.
func (s *SMACrossover) Name() string {
	return SMACrossName
}

// WarmupPeriod returns the long SMA period.
func (s *SMACrossover) WarmupPeriod() int {
	return s.params.LongPeriod
}

// spread converts the relative SMA gap into a confidence in [0, 1].
func spread(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	c := (a - b) / b * 10
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
