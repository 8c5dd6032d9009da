package reporting

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultOutputDir returns the conventional results directory for one
// symbol/strategy pair, e.g. results/BTCUSDT_sma_crossover.
func DefaultOutputDir(symbol, strategyName string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	n := strings.ToLower(strings.TrimSpace(strategyName))
	if s == "" {
		s = "UNKNOWN"
	}
	if n == "" {
		n = "unknown"
	}
	return filepath.Join("results", fmt.Sprintf("%s_%s", s, n))
}
