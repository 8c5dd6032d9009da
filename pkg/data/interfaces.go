package data

import (
	"context"
	"time"

	"backtester/pkg/types"
)

// Provider loads historical candles from some source (file, exchange API).
type Provider interface {
	// LoadData loads the full candle history identified by source.
	LoadData(ctx context.Context, source string) ([]types.OHLCV, error)

	// ValidateData checks the integrity of loaded candles.
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the provider.
	GetName() string
}

// Cache stores loaded candle series keyed by source.
type Cache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// Filter narrows a candle series before simulation.
type Filter interface {
	// FilterByPeriod keeps only the trailing period of data.
	FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV

	// FilterByDateRange keeps candles within [start, end].
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// ValidateTimeSequence ensures data never moves backwards in time.
	ValidateTimeSequence(data []types.OHLCV) error
}

// CSVColumnMapping defines the column positions for different CSV layouts.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV layouts.
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// UnixMilliCSVFormat covers exports whose first column is a unix
	// millisecond timestamp instead of a formatted date.
	UnixMilliCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "", // unix milliseconds
	}
)
