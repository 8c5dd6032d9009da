package strategy

import (
	"backtester/internal/errors"
	"backtester/internal/indicators"
	"backtester/pkg/types"
)

// BollingerName is the registry name of the Bollinger Bands strategy.
const BollingerName = "bollinger"

// BollingerParams is the typed parameter record for the Bollinger strategy.
type BollingerParams struct {
	Period     int
	StdDev     float64
	LowerEntry float64
	UpperEntry float64
}

// BollingerStrategy trades mean reversion against the Bollinger Bands:
// long when price sits near the lower band, short near the upper band.
type BollingerStrategy struct {
	params BollingerParams
	bands  *indicators.BollingerBands
}

// NewBollingerStrategy builds a Bollinger Bands strategy from a parameter
// set. Recognized parameters: period, std_dev, lower_entry, upper_entry
// (BB% thresholds).
func NewBollingerStrategy(params ParamSet) (Strategy, error) {
	p := BollingerParams{Period: 20, StdDev: 2.0, LowerEntry: 20, UpperEntry: 80}
	if v, err := params.GetInt("period"); err == nil {
		p.Period = v
	}
	if v, err := params.Get("std_dev"); err == nil {
		p.StdDev = v
	}
	if v, err := params.Get("lower_entry"); err == nil {
		p.LowerEntry = v
	}
	if v, err := params.Get("upper_entry"); err == nil {
		p.UpperEntry = v
	}
	if p.Period <= 1 {
		return nil, errors.NewConfigError(BollingerName, "new", "period must be above 1")
	}
	if p.StdDev <= 0 {
		return nil, errors.NewConfigError(BollingerName, "new", "std_dev must be positive")
	}
	if p.LowerEntry >= p.UpperEntry {
		return nil, errors.NewConfigError(BollingerName, "new", "lower_entry must be below upper_entry")
	}
	return &BollingerStrategy{
		params: p,
		bands:  indicators.NewBollingerBands(p.Period, p.StdDev),
	}, nil
}

// GenerateSignal maps the BB% position of the latest close to a direction.
func (s *BollingerStrategy) GenerateSignal(window []types.OHLCV) (Signal, error) {
	if len(window) < s.WarmupPeriod() {
		return Signal{Direction: Flat}, nil
	}

	_, _, _, bbPercent, err := s.bands.Calculate(types.Closes(window))
	if err != nil {
		return Signal{Direction: Flat}, nil
	}

	switch {
	case bbPercent < s.params.LowerEntry:
		return Signal{Direction: Long, Confidence: (s.params.LowerEntry - bbPercent) / s.params.LowerEntry}, nil
	case bbPercent > s.params.UpperEntry:
		return Signal{Direction: Short, Confidence: (bbPercent - s.params.UpperEntry) / (100 - s.params.UpperEntry)}, nil
	default:
		return Signal{Direction: Flat}, nil
	}
}

// Name returns the registry name.
func (s *BollingerStrategy) Name() string {
	return BollingerName
}

// WarmupPeriod returns the band period.
func (s *BollingerStrategy) WarmupPeriod() int {
	return s.params.Period
}
