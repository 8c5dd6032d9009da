package resample

import (
	"sort"
	"time"

	"backtester/pkg/types"
)

// Bar is one aggregated candle. The trailing window of a series is flagged
// incomplete when the source data does not fill it to the boundary.
type Bar struct {
	types.OHLCV
	Complete bool
}

// Candles strips the completeness flags from a bar series.
func Candles(bars []Bar) []types.OHLCV {
	out := make([]types.OHLCV, len(bars))
	for i, b := range bars {
		out[i] = b.OHLCV
	}
	return out
}

// Resample aggregates a base candle series into fixed-duration windows
// aligned to the timeframe grid: open is the first open in the window, high
// the max high, low the min low, close the last close, volume the sum.
// Input may contain gaps and duplicate timestamps; rows that fall into the
// same window are merged in input order and out-of-order rows are sorted
// first. Gaps produce no filler bars.
func Resample(data []types.OHLCV, tf Timeframe) []Bar {
	if len(data) == 0 {
		return nil
	}

	src := ensureSorted(data)

	var bars []Bar
	var cur *Bar
	var curStart time.Time

	for _, c := range src {
		start := tf.Align(c.Timestamp)
		if cur == nil || !start.Equal(curStart) {
			if cur != nil {
				bars = append(bars, *cur)
			}
			cur = &Bar{
				OHLCV: types.OHLCV{
					Open:      c.Open,
					High:      c.High,
					Low:       c.Low,
					Close:     c.Close,
					Volume:    c.Volume,
					Timestamp: start,
				},
				Complete: true,
			}
			curStart = start
			continue
		}

		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	bars = append(bars, *cur)

	// The trailing window is complete only when the source reaches its
	// boundary, judged by the base step of the input series.
	last := &bars[len(bars)-1]
	step := baseStep(src)
	end := src[len(src)-1].Timestamp.Add(step)
	if end.Before(last.Timestamp.Add(tf.Duration)) {
		last.Complete = false
	}

	return bars
}

// baseStep estimates the source interval as the smallest positive gap
// between consecutive timestamps.
func baseStep(data []types.OHLCV) time.Duration {
	step := time.Duration(0)
	for i := 1; i < len(data); i++ {
		d := data[i].Timestamp.Sub(data[i-1].Timestamp)
		if d > 0 && (step == 0 || d < step) {
			step = d
		}
	}
	return step
}

func ensureSorted(data []types.OHLCV) []types.OHLCV {
	sorted := true
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			sorted = false
			break
		}
	}
	if sorted {
		return data
	}
	out := make([]types.OHLCV, len(data))
	copy(out, data)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
