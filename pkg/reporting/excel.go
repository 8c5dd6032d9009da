package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"backtester/internal/backtest"
	"backtester/internal/errors"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

type excelStyles struct {
	header int
	money  int
	pct    int
}

// Write persists one result as an Excel workbook with a Summary sheet and
// a Trades sheet.
func (r *DefaultExcelReporter) Write(result *backtest.BacktestResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
	}

	if err := fx.SaveAs(path); err != nil {
		return errors.Wrap(err, errors.CategoryExport, "excel_reporter", "write")
	}
	return nil
}

func (r *DefaultExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return s, err
	}
	s.money, err = fx.NewStyle(&excelize.Style{NumFmt: 177}) // $#,##0.00
	if err != nil {
		return s, err
	}
	s.pct, err = fx.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return s, err
	}
	return s, nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.BacktestResult, styles excelStyles) error {
	m := clampInfinities(result.Metrics)

	rows := []struct {
		label string
		value interface{}
	}{
		{"Strategy", result.StrategyName},
		{"Symbol", result.Symbol},
		{"Start", result.StartDate.Format("2006-01-02 15:04")},
		{"End", result.EndDate.Format("2006-01-02 15:04")},
		{"Initial Capital", result.InitialCapital},
		{"Final Equity", result.FinalEquity},
		{"Total Return %", m.TotalReturnPct},
		{"Win Rate %", m.WinRate},
		{"Profit Factor", m.ProfitFactor},
		{"Expectancy", m.Expectancy},
		{"Avg Win", m.AvgWin},
		{"Avg Loss", m.AvgLoss},
		{"Risk/Reward", m.RiskRewardRatio},
		{"Max Drawdown %", m.MaxDrawdownPct},
		{"Sharpe Ratio", m.SharpeRatio},
		{"Sortino Ratio", m.SortinoRatio},
		{"Calmar Ratio", m.CalmarRatio},
		{"Recovery Factor", m.RecoveryFactor},
		{"Total Trades", m.TotalTrades},
		{"Winning Trades", m.WinningTrades},
		{"Losing Trades", m.LosingTrades},
		{"Breakeven Trades", m.BreakevenTrades},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		cellA := fmt.Sprintf("A%d", i+2)
		cellB := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, cellA, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cellB, row.value); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "A", 20)
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.BacktestResult, styles excelStyles) error {
	headers := []string{"#", "Entry Time", "Exit Time", "Side", "Entry Price", "Exit Price", "Quantity", "PnL $", "ROI %", "Exit Reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}

	for i, t := range result.Trades {
		values := []interface{}{
			i + 1,
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			t.Side.String(),
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.ProfitLoss,
			t.ROIPct,
			t.ExitReason,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := fx.SetColWidth(sheet, "B", "C", 22); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "E", "I", 12)
}
