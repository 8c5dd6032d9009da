package types

import "time"

// OHLCV is one candle of market data. Series are ordered ascending by
// timestamp; loaders tolerate gaps and duplicate timestamps.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Closes extracts the close series from a candle slice.
func Closes(data []OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, c := range data {
		out[i] = c.Close
	}
	return out
}
