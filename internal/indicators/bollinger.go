package indicators

import "math"

// BollingerBands represents the Bollinger Bands indicator.
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// NewBollingerBands creates a new BollingerBands instance with the given
// period and standard deviation multiplier.
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Calculate computes the upper, middle, and lower bands, and the BB%
// (price position within the bands, 0 at the lower band, 100 at the upper).
func (bb *BollingerBands) Calculate(prices []float64) (upper, middle, lower, bbPercent float64, err error) {
	if len(prices) < bb.period || bb.period <= 0 {
		return 0, 0, 0, 0, ErrInsufficientData
	}

	recent := prices[len(prices)-bb.period:]
	middle = mean(recent)
	stdDev := standardDeviation(recent, middle)

	upper = middle + (bb.stdDevMultiple * stdDev)
	lower = middle - (bb.stdDevMultiple * stdDev)

	currentPrice := prices[len(prices)-1]
	if upper == lower {
		bbPercent = 50
	} else {
		bbPercent = ((currentPrice - lower) / (upper - lower)) * 100
	}

	return upper, middle, lower, bbPercent, nil
}

// GetName returns the indicator name.
func (bb *BollingerBands) GetName() string {
	return "BollingerBands"
}

// GetRequiredPeriods returns the minimum number of periods needed.
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}

func standardDeviation(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}
