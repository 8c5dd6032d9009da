package reporting

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"backtester/internal/backtest"
)

// RenderRankings prints the batch results as a ranked table, best return
// first, with Sharpe ranks alongside.
func RenderRankings(batch *backtest.BatchResult) {
	RenderRankingsTo(os.Stdout, batch)
}

// RenderRankingsTo writes the rankings table to w.
func RenderRankingsTo(w io.Writer, batch *backtest.BatchResult) {
	byReturn := batch.RankByReturn()
	sharpeRank := make(map[*backtest.BacktestResult]int)
	for i, r := range batch.RankBySharpe() {
		sharpeRank[r] = i + 1
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("STRATEGY RANKINGS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"#", "Strategy", "Symbol", "Return %", "Win %", "Trades", "Sharpe", "Sharpe #", "Max DD %"})
	for i, r := range byReturn {
		m := r.Metrics
		t.AppendRow(table.Row{
			i + 1,
			r.StrategyName,
			r.Symbol,
			fmt.Sprintf("%.2f", m.TotalReturnPct),
			fmt.Sprintf("%.2f", m.WinRate),
			m.TotalTrades,
			fmt.Sprintf("%.2f", m.SharpeRatio),
			sharpeRank[r],
			fmt.Sprintf("%.2f", m.MaxDrawdownPct),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})

	t.Render()
}

// RenderComparison prints per-strategy averages across all symbols.
func RenderComparison(batch *backtest.BatchResult) {
	RenderComparisonTo(os.Stdout, batch)
}

// RenderComparisonTo writes the strategy comparison table to w.
func RenderComparisonTo(w io.Writer, batch *backtest.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("STRATEGY COMPARISON")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Strategy", "Runs", "Avg Return %", "Avg Win %", "Avg Sharpe", "Worst DD %", "Trades"})
	for _, c := range batch.CompareStrategies() {
		t.AppendRow(table.Row{
			c.StrategyName,
			c.Runs,
			fmt.Sprintf("%.2f", c.AvgReturnPct),
			fmt.Sprintf("%.2f", c.AvgWinRate),
			fmt.Sprintf("%.2f", c.AvgSharpe),
			fmt.Sprintf("%.2f", c.WorstDrawdown),
			c.TotalTrades,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	t.Render()
}

// RenderOptimization prints every evaluated combination with the winner on
// top, ordered by objective value.
func RenderOptimization(result *backtest.OptimizationResult) {
	RenderOptimizationTo(os.Stdout, result)
}

// RenderOptimizationTo writes the optimization table to w.
func RenderOptimizationTo(w io.Writer, result *backtest.OptimizationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("GRID SEARCH (objective: %s)", result.Objective))
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"#", "Parameters", result.Objective, "Status"})
	for _, r := range result.Results {
		status := "ok"
		value := fmt.Sprintf("%.4f", r.Value)
		switch {
		case r.Err != nil:
			status = "failed"
			value = "-"
		case r.Index == result.BestIndex:
			status = "best"
		case math.IsNaN(r.Value):
			value = "-"
		}
		t.AppendRow(table.Row{r.Index, r.Params.String(), value, status})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	t.Render()
}
