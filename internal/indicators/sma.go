package indicators

import "errors"

// ErrInsufficientData is returned when a series is shorter than the
// indicator's required period.
var ErrInsufficientData = errors.New("insufficient data for indicator calculation")

// SMA represents the Simple Moving Average technical indicator.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the SMA over the last period values of the series.
func (s *SMA) Calculate(prices []float64) (float64, error) {
	if len(prices) < s.period || s.period <= 0 {
		return 0, ErrInsufficientData
	}

	sum := 0.0
	for i := len(prices) - s.period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(s.period), nil
}

// GetName returns the indicator name.
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed.
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
