package backtest

import (
	"time"
)

// Side is the direction of a position or trade.
type Side int

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}
	return "LONG"
}

// MarshalText renders the side for JSON/CSV export.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// sign returns +1 for long, -1 for short.
func (s Side) sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Exit reasons recorded on closed trades, in trigger precedence order.
const (
	ExitStopLoss       = "stop_loss"
	ExitTakeProfit     = "take_profit"
	ExitSignalReversal = "signal_reversal"
	ExitStrategyError  = "strategy_error"
	ExitEndOfBacktest  = "end_of_backtest"
)

// Position is an open exposure held by one simulation run. At most one
// position exists per run at any time.
type Position struct {
	Side        Side
	EntryTime   time.Time
	EntryPrice  float64
	Quantity    float64
	StopPrice   float64 // 0 when no stop is armed
	TargetPrice float64 // 0 when no target is armed
}

// Trade is one closed round trip. Immutable once created.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	ProfitLoss float64   `json:"profit_loss"`
	ROIPct     float64   `json:"roi_pct"`
	ExitReason string    `json:"exit_reason"`
}

// EquityPoint samples account value at one candle.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// BacktestResult is the complete output of one simulation run. It is owned
// by that run and immutable after completion.
type BacktestResult struct {
	Symbol         string        `json:"symbol"`
	StrategyName   string        `json:"strategy_name"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	Timeframes     []string      `json:"timeframes"`
	InitialCapital float64       `json:"initial_capital"`
	FinalEquity    float64       `json:"final_equity"`
	Trades         []Trade       `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Metrics        Metrics       `json:"metrics"`

	// Charts optionally maps chart names to image paths rendered by an
	// external visualization collaborator.
	Charts map[string]string `json:"charts,omitempty"`
}
