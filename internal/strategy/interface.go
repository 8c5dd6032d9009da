package strategy

import (
	"backtester/pkg/types"
)

// Direction represents the direction of a trade signal.
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case Flat:
		return "FLAT"
	default:
		return "UNKNOWN"
	}
}

// Signal is a per-candle trading signal produced by a strategy.
type Signal struct {
	Direction  Direction
	Confidence float64
}

// Bias is a directional bias consolidated across timeframes. It gates
// whether the simulator may open a new position.
type Bias int

const (
	BiasNeutral Bias = iota
	BiasBullish
	BiasBearish
)

func (b Bias) String() string {
	switch b {
	case BiasBullish:
		return "BULLISH"
	case BiasBearish:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// Agrees reports whether the bias allows opening in the given direction.
func (b Bias) Agrees(d Direction) bool {
	switch d {
	case Long:
		return b == BiasBullish
	case Short:
		return b == BiasBearish
	default:
		return false
	}
}

// Strategy analyzes a window of market data and produces a trade signal.
// Implementations must be stateless across calls so that independent
// simulations can run concurrently over shared historical data.
type Strategy interface {
	// GenerateSignal analyzes the data window, newest candle last, and
	// returns a signal for the most recent candle.
	GenerateSignal(window []types.OHLCV) (Signal, error)

	// Name returns the name of the strategy.
	Name() string

	// WarmupPeriod returns the minimum window length the strategy needs
	// before it can produce a meaningful signal.
	WarmupPeriod() int
}
