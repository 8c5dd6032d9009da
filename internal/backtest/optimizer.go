package backtest

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"backtester/internal/errors"
	"backtester/internal/monitoring"
	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// ParameterGrid holds the candidate values for each strategy parameter.
type ParameterGrid struct {
	values map[string][]float64
}

// NewParameterGrid creates an empty grid.
func NewParameterGrid() *ParameterGrid {
	return &ParameterGrid{values: make(map[string][]float64)}
}

// Add sets the candidate list for one parameter, replacing any previous one.
func (g *ParameterGrid) Add(name string, candidates ...float64) *ParameterGrid {
	g.values[name] = candidates
	return g
}

// Validate rejects grids no search should start with.
func (g *ParameterGrid) Validate() error {
	if len(g.values) == 0 {
		return errors.NewConfigError("optimizer", "validate", "parameter grid is empty")
	}
	for name, candidates := range g.values {
		if len(candidates) == 0 {
			return errors.NewConfigError("optimizer", "validate", "parameter "+name+" has no candidates")
		}
	}
	return nil
}

// Size returns the number of combinations the grid expands to.
func (g *ParameterGrid) Size() int {
	if len(g.values) == 0 {
		return 0
	}
	size := 1
	for _, candidates := range g.values {
		size *= len(candidates)
	}
	return size
}

// Combinations expands the grid into the full Cartesian product. The order
// is deterministic: parameter names sorted alphabetically, with earlier
// names varying slowest, so combination indices are stable across runs.
func (g *ParameterGrid) Combinations() ([]strategy.ParamSet, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(g.values))
	for name := range g.values {
		names = append(names, name)
	}
	sort.Strings(names)

	combos := make([]strategy.ParamSet, 0, g.Size())
	indices := make([]int, len(names))
	for {
		params := make(strategy.ParamSet, len(names))
		for i, name := range names {
			params[name] = g.values[name][indices[i]]
		}
		combos = append(combos, params)

		// Advance like an odometer, rightmost digit fastest.
		pos := len(names) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(g.values[names[pos]]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return combos, nil
		}
	}
}

// CombinationResult is the outcome of evaluating one parameter set.
type CombinationResult struct {
	Index  int
	Params strategy.ParamSet
	Value  float64
	Result *BacktestResult
	Err    error
}

// OptimizationResult is the full grid-search outcome. Results holds every
// combination in grid order, including failed ones.
type OptimizationResult struct {
	Objective  string
	BestIndex  int
	BestParams strategy.ParamSet
	BestValue  float64
	BestResult *BacktestResult
	Results    []CombinationResult
}

// Optimizer searches a parameter grid for the combination maximizing one
// metric. Combinations run in parallel; each gets its own engine so no
// simulation state is shared.
type Optimizer struct {
	engineCfg   Config
	bias        BiasProvider
	objective   string
	parallelism int
}

// NewOptimizer creates an optimizer that scores combinations by the named
// metric (empty means "sharpe_ratio").
func NewOptimizer(engineCfg Config, objective string) *Optimizer {
	if objective == "" {
		objective = "sharpe_ratio"
	}
	return &Optimizer{
		engineCfg:   engineCfg,
		objective:   objective,
		parallelism: runtime.NumCPU(),
	}
}

// WithBias sets the entry gate forwarded to every engine.
func (o *Optimizer) WithBias(bias BiasProvider) *Optimizer {
	o.bias = bias
	return o
}

// WithParallelism bounds the number of concurrent evaluations.
func (o *Optimizer) WithParallelism(n int) *Optimizer {
	if n > 0 {
		o.parallelism = n
	}
	return o
}

// Optimize evaluates every combination of the grid against the data using
// strategies built by the factory. Individual combination failures are
// recorded and excluded from the ranking; the search itself only fails on
// an invalid grid or a cancelled context.
func (o *Optimizer) Optimize(ctx context.Context, data []types.OHLCV, factory strategy.Factory, grid *ParameterGrid) (*OptimizationResult, error) {
	combos, err := grid.Combinations()
	if err != nil {
		return nil, err
	}

	objective, err := objectiveExtractor(o.objective)
	if err != nil {
		return nil, err
	}

	results := make([]CombinationResult, len(combos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, params := range combos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = CombinationResult{Index: i, Params: params, Err: err}
				return nil
			}
			results[i] = o.evaluate(data, factory, i, params, objective)
			monitoring.RecordCombination()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &OptimizationResult{
		Objective: o.objective,
		BestIndex: -1,
		BestValue: math.Inf(-1),
		Results:   results,
	}
	for _, r := range results {
		if r.Err != nil || math.IsNaN(r.Value) {
			continue
		}
		// Strictly greater, so the earliest combination wins ties.
		if r.Value > out.BestValue {
			out.BestIndex = r.Index
			out.BestParams = r.Params
			out.BestValue = r.Value
			out.BestResult = r.Result
		}
	}
	if out.BestIndex < 0 {
		return nil, errors.NewDataError("optimizer", "optimize", "no combination produced a scorable result")
	}
	return out, nil
}

func (o *Optimizer) evaluate(data []types.OHLCV, factory strategy.Factory, index int, params strategy.ParamSet, objective func(Metrics) float64) CombinationResult {
	out := CombinationResult{Index: index, Params: params}

	strat, err := factory(params)
	if err != nil {
		out.Err = err
		return out
	}

	engine := NewEngine(o.engineCfg)
	if o.bias != nil {
		engine.WithBias(o.bias)
	}
	result, err := engine.Run(data, strat)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = result
	out.Value = objective(result.Metrics)
	return out
}

// objectiveExtractor maps a metric name onto its Metrics field.
func objectiveExtractor(name string) (func(Metrics) float64, error) {
	switch name {
	case "sharpe_ratio":
		return func(m Metrics) float64 { return m.SharpeRatio }, nil
	case "sortino_ratio":
		return func(m Metrics) float64 { return m.SortinoRatio }, nil
	case "total_return_pct":
		return func(m Metrics) float64 { return m.TotalReturnPct }, nil
	case "profit_factor":
		return func(m Metrics) float64 { return m.ProfitFactor }, nil
	case "win_rate":
		return func(m Metrics) float64 { return m.WinRate }, nil
	case "calmar_ratio":
		return func(m Metrics) float64 { return m.CalmarRatio }, nil
	case "expectancy":
		return func(m Metrics) float64 { return m.Expectancy }, nil
	default:
		return nil, errors.NewConfigError("optimizer", "objective", "unknown objective metric "+name)
	}
}
