package data

import (
	"fmt"
	"time"

	"backtester/internal/errors"
	"backtester/pkg/types"
)

// DefaultFilter implements Filter for common narrowing operations.
type DefaultFilter struct{}

// NewDefaultFilter creates a new default data filter.
func NewDefaultFilter() *DefaultFilter {
	return &DefaultFilter{}
}

// FilterByPeriod keeps only the trailing period of data.
func (f *DefaultFilter) FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}

	latest := data[len(data)-1].Timestamp
	cutoff := latest.Add(-period)

	startIdx := 0
	for i, candle := range data {
		if !candle.Timestamp.Before(cutoff) {
			startIdx = i
			break
		}
	}

	return data[startIdx:]
}

// FilterByDateRange keeps candles within [start, end].
func (f *DefaultFilter) FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	if len(data) == 0 {
		return data
	}

	var filtered []types.OHLCV
	for _, candle := range data {
		if !candle.Timestamp.Before(start) && !candle.Timestamp.After(end) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence ensures data never moves backwards in time.
// Duplicate timestamps are allowed; the resampler merges them.
func (f *DefaultFilter) ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return errors.NewDataError("filter", "validate_sequence",
				fmt.Sprintf("timestamp at index %d precedes its predecessor", i))
		}
	}
	return nil
}
