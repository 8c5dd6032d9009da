package resample

import (
	"sort"
	"strings"
	"time"

	"backtester/internal/errors"
)

// Timeframe describes one aggregation period.
type Timeframe struct {
	Key      string
	Duration time.Duration
}

var supportedTimeframes = map[string]Timeframe{
	"1m":  {Key: "1m", Duration: time.Minute},
	"3m":  {Key: "3m", Duration: 3 * time.Minute},
	"5m":  {Key: "5m", Duration: 5 * time.Minute},
	"15m": {Key: "15m", Duration: 15 * time.Minute},
	"30m": {Key: "30m", Duration: 30 * time.Minute},
	"1h":  {Key: "1h", Duration: time.Hour},
	"2h":  {Key: "2h", Duration: 2 * time.Hour},
	"4h":  {Key: "4h", Duration: 4 * time.Hour},
	"6h":  {Key: "6h", Duration: 6 * time.Hour},
	"12h": {Key: "12h", Duration: 12 * time.Hour},
	"1d":  {Key: "1d", Duration: 24 * time.Hour},
	"1w":  {Key: "1w", Duration: 7 * 24 * time.Hour},
}

// ParseTimeframe returns the normalized timeframe definition for a spec
// string such as "1h". Unknown specs are a CONFIG error.
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	tf, ok := supportedTimeframes[key]
	if !ok {
		return Timeframe{}, errors.NewConfigError("resample", "parse-timeframe", "unsupported timeframe "+input)
	}
	return tf, nil
}

// ParseTimeframes parses a list of timeframe specs, rejecting duplicates.
func ParseTimeframes(inputs []string) ([]Timeframe, error) {
	seen := make(map[string]bool, len(inputs))
	out := make([]Timeframe, 0, len(inputs))
	for _, in := range inputs {
		tf, err := ParseTimeframe(in)
		if err != nil {
			return nil, err
		}
		if seen[tf.Key] {
			return nil, errors.NewConfigError("resample", "parse-timeframe", "duplicate timeframe "+tf.Key)
		}
		seen[tf.Key] = true
		out = append(out, tf)
	}
	return out, nil
}

// SupportedTimeframes returns all supported keys, sorted.
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(supportedTimeframes))
	for k := range supportedTimeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Align truncates t down to the nearest timeframe boundary in UTC.
func (tf Timeframe) Align(t time.Time) time.Time {
	if tf.Duration <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(tf.Duration)
}
