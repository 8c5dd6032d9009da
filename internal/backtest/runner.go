package backtest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"backtester/internal/errors"
	"backtester/internal/monitoring"
	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// Cell is one symbol/strategy pair of a batch run.
type Cell struct {
	Symbol   string
	Strategy strategy.Strategy
	Data     []types.OHLCV
}

// FailedRun records a cell that could not be backtested.
type FailedRun struct {
	Symbol       string
	StrategyName string
	Err          error
}

// BatchResult aggregates a multi-symbol, multi-strategy batch. Failed cells
// are kept separately so partial batches still rank and report.
type BatchResult struct {
	Results  []*BacktestResult
	Failures []FailedRun
}

// Runner executes the full symbol x strategy matrix. Cells run in parallel
// on independent engines; one failing cell never sinks the batch.
type Runner struct {
	engineCfg   Config
	bias        BiasProvider
	health      *monitoring.HealthChecker
	parallelism int
}

// NewRunner creates a runner sharing one engine configuration across cells.
func NewRunner(engineCfg Config) *Runner {
	return &Runner{engineCfg: engineCfg, parallelism: 4}
}

// WithBias sets the entry gate forwarded to every engine.
func (r *Runner) WithBias(bias BiasProvider) *Runner {
	r.bias = bias
	return r
}

// WithHealth feeds per-cell completions to a health checker so a live
// endpoint can report batch progress.
func (r *Runner) WithHealth(h *monitoring.HealthChecker) *Runner {
	r.health = h
	return r
}

// WithParallelism bounds the number of cells running at once.
func (r *Runner) WithParallelism(n int) *Runner {
	if n > 0 {
		r.parallelism = n
	}
	return r
}

// RunAll backtests every cell. Cell failures are logged, counted, and
// returned in Failures; only context cancellation aborts the batch.
func (r *Runner) RunAll(ctx context.Context, cells []Cell) (*BatchResult, error) {
	if len(cells) == 0 {
		return nil, errors.NewConfigError("runner", "run_all", "no cells to run")
	}

	type cellOutcome struct {
		result *BacktestResult
		fail   *FailedRun
	}
	outcomes := make([]cellOutcome, len(cells))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, cell := range cells {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			started := time.Now()

			cfg := r.engineCfg
			cfg.Symbol = cell.Symbol
			engine := NewEngine(cfg)
			if r.bias != nil {
				engine.WithBias(r.bias)
			}
			result, err := engine.Run(cell.Data, cell.Strategy)
			monitoring.ObserveRunDuration(time.Since(started).Seconds())
			if err != nil {
				log.Printf("backtest failed for %s on %s: %v", cell.Strategy.Name(), cell.Symbol, err)
				monitoring.RecordBacktest(cell.Symbol, cell.Strategy.Name(), "failed")
				if r.health != nil {
					r.health.RunCompleted(true)
				}
				outcomes[i] = cellOutcome{fail: &FailedRun{
					Symbol:       cell.Symbol,
					StrategyName: cell.Strategy.Name(),
					Err:          err,
				}}
				return nil
			}
			monitoring.RecordBacktest(cell.Symbol, cell.Strategy.Name(), "completed")
			if r.health != nil {
				r.health.RunCompleted(false)
			}
			outcomes[i] = cellOutcome{result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, o := range outcomes {
		switch {
		case o.result != nil:
			batch.Results = append(batch.Results, o.result)
		case o.fail != nil:
			batch.Failures = append(batch.Failures, *o.fail)
		}
	}
	return batch, nil
}

// Symbols returns the distinct symbols among the completed results.
func (b *BatchResult) Symbols() []string {
	return b.distinct(func(r *BacktestResult) string { return r.Symbol })
}

// Strategies returns the distinct strategy names among the completed results.
func (b *BatchResult) Strategies() []string {
	return b.distinct(func(r *BacktestResult) string { return r.StrategyName })
}

func (b *BatchResult) distinct(key func(*BacktestResult) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range b.Results {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// rank sorts results descending by the extracted value, breaking ties
// alphabetically by strategy name then symbol so rankings are stable.
func (b *BatchResult) rank(value func(*BacktestResult) float64) []*BacktestResult {
	ranked := make([]*BacktestResult, len(b.Results))
	copy(ranked, b.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := value(ranked[i]), value(ranked[j])
		if vi != vj {
			return vi > vj
		}
		if ranked[i].StrategyName != ranked[j].StrategyName {
			return ranked[i].StrategyName < ranked[j].StrategyName
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	return ranked
}

// RankByReturn orders the completed results by total return, best first.
func (b *BatchResult) RankByReturn() []*BacktestResult {
	return b.rank(func(r *BacktestResult) float64 { return r.Metrics.TotalReturnPct })
}

// RankBySharpe orders the completed results by Sharpe ratio, best first.
func (b *BatchResult) RankBySharpe() []*BacktestResult {
	return b.rank(func(r *BacktestResult) float64 { return r.Metrics.SharpeRatio })
}

// BestPerSymbol picks the top result for each symbol by the given ranking.
func (b *BatchResult) BestPerSymbol(ranked []*BacktestResult) map[string]*BacktestResult {
	best := make(map[string]*BacktestResult)
	for _, r := range ranked {
		if _, ok := best[r.Symbol]; !ok {
			best[r.Symbol] = r
		}
	}
	return best
}

// StrategyComparison aggregates one strategy's performance across every
// symbol it completed on.
type StrategyComparison struct {
	StrategyName  string
	Runs          int
	AvgReturnPct  float64
	AvgWinRate    float64
	AvgSharpe     float64
	WorstDrawdown float64
	TotalTrades   int
}

// CompareStrategies averages each strategy's metrics over its completed
// runs, ordered by average return descending with alphabetical ties.
func (b *BatchResult) CompareStrategies() []StrategyComparison {
	byName := make(map[string]*StrategyComparison)
	for _, r := range b.Results {
		c, ok := byName[r.StrategyName]
		if !ok {
			c = &StrategyComparison{StrategyName: r.StrategyName}
			byName[r.StrategyName] = c
		}
		c.Runs++
		c.AvgReturnPct += r.Metrics.TotalReturnPct
		c.AvgWinRate += r.Metrics.WinRate
		c.AvgSharpe += r.Metrics.SharpeRatio
		c.TotalTrades += r.Metrics.TotalTrades
		if r.Metrics.MaxDrawdownPct < c.WorstDrawdown {
			c.WorstDrawdown = r.Metrics.MaxDrawdownPct
		}
	}

	out := make([]StrategyComparison, 0, len(byName))
	for _, c := range byName {
		n := float64(c.Runs)
		c.AvgReturnPct /= n
		c.AvgWinRate /= n
		c.AvgSharpe /= n
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgReturnPct != out[j].AvgReturnPct {
			return out[i].AvgReturnPct > out[j].AvgReturnPct
		}
		return out[i].StrategyName < out[j].StrategyName
	})
	return out
}

// GenerateSummaryReport renders the batch as a plain-text report with the
// top three strategies by return and by Sharpe ratio.
func (b *BatchResult) GenerateSummaryReport() string {
	var sb strings.Builder

	sb.WriteString("Backtest Summary Report\n")
	sb.WriteString("=======================\n\n")
	fmt.Fprintf(&sb, "Total backtests run: %d\n", len(b.Results))
	fmt.Fprintf(&sb, "Symbols tested: %d\n", len(b.Symbols()))
	fmt.Fprintf(&sb, "Strategies tested: %d\n", len(b.Strategies()))
	if len(b.Failures) > 0 {
		fmt.Fprintf(&sb, "Failed runs: %d\n", len(b.Failures))
	}
	sb.WriteString("\n")

	sb.WriteString("Top Strategies by Return\n")
	sb.WriteString("------------------------\n")
	for _, r := range top(b.RankByReturn(), 3) {
		fmt.Fprintf(&sb, "%s on %s: %.2f%% return, %.2f%% win rate, %d trades\n",
			r.StrategyName, r.Symbol, r.Metrics.TotalReturnPct, r.Metrics.WinRate, r.Metrics.TotalTrades)
	}
	sb.WriteString("\n")

	sb.WriteString("Top Strategies by Risk-Adjusted Return (Sharpe)\n")
	sb.WriteString("-----------------------------------------------\n")
	for _, r := range top(b.RankBySharpe(), 3) {
		fmt.Fprintf(&sb, "%s on %s: Sharpe %.2f, %.2f%% return, %.2f%% max drawdown\n",
			r.StrategyName, r.Symbol, r.Metrics.SharpeRatio, r.Metrics.TotalReturnPct, r.Metrics.MaxDrawdownPct)
	}

	return sb.String()
}

func top(ranked []*BacktestResult, n int) []*BacktestResult {
	if len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
