package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"backtester/internal/backtest"
	"backtester/internal/errors"
)

// DefaultCSVReporter writes the trade log as CSV.
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// Write persists the result's trade log to a CSV file.
func (r *DefaultCSVReporter) Write(result *backtest.BacktestResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.CategoryExport, "csv_reporter", "write")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExport, "csv_reporter", "write")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Entry_Time",
		"Exit_Time",
		"Side",
		"Entry_Price",
		"Exit_Price",
		"Quantity",
		"PnL_$",
		"ROI_%",
		"Exit_Reason",
		"Win_Loss",
	}); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "csv_reporter", "write")
	}

	for _, t := range result.Trades {
		winLoss := "BREAKEVEN"
		if t.ProfitLoss > 0 {
			winLoss = "WIN"
		} else if t.ProfitLoss < 0 {
			winLoss = "LOSS"
		}
		row := []string{
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			t.Side.String(),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', 4, 64),
			strconv.FormatFloat(t.Quantity, 'f', 6, 64),
			fmt.Sprintf("%.2f", t.ProfitLoss),
			fmt.Sprintf("%.2f", t.ROIPct),
			t.ExitReason,
			winLoss,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, errors.CategoryExport, "csv_reporter", "write")
		}
	}

	return nil
}
