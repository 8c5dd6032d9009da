package reporting

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"backtester/internal/backtest"
	"backtester/internal/errors"
)

// DefaultJSONReporter implements JSON output functionality
type DefaultJSONReporter struct{}

// NewDefaultJSONReporter creates a new JSON reporter
func NewDefaultJSONReporter() *DefaultJSONReporter {
	return &DefaultJSONReporter{}
}

// FormatResult renders one result as indented JSON. Infinite metric values
// are clamped first since JSON has no encoding for them.
func (r *DefaultJSONReporter) FormatResult(result *backtest.BacktestResult) ([]byte, error) {
	sanitized := *result
	sanitized.Metrics = clampInfinities(result.Metrics)
	return json.MarshalIndent(&sanitized, "", "  ")
}

// Write persists one result as a JSON file.
func (r *DefaultJSONReporter) Write(result *backtest.BacktestResult, path string) error {
	data, err := r.FormatResult(result)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExport, "json_reporter", "write")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.CategoryExport, "json_reporter", "write")
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "json_reporter", "write")
	}
	return nil
}

// clampInfinities replaces +/-Inf metric values with the largest finite
// float so the struct survives a JSON round trip.
func clampInfinities(m backtest.Metrics) backtest.Metrics {
	clamp := func(v float64) float64 {
		switch {
		case math.IsInf(v, 1):
			return math.MaxFloat64
		case math.IsInf(v, -1):
			return -math.MaxFloat64
		}
		return v
	}
	m.ProfitFactor = clamp(m.ProfitFactor)
	m.SharpeRatio = clamp(m.SharpeRatio)
	m.SortinoRatio = clamp(m.SortinoRatio)
	m.CalmarRatio = clamp(m.CalmarRatio)
	m.RecoveryFactor = clamp(m.RecoveryFactor)
	m.RiskRewardRatio = clamp(m.RiskRewardRatio)
	return m
}
