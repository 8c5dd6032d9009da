package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"backtester/internal/errors"
	"backtester/pkg/types"
)

// CSVProvider implements Provider for CSV files.
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a CSV data provider with the default layout.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
	}
}

// NewCSVProviderWithFormat creates a CSV data provider with a custom layout.
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical candles from a CSV file. Malformed rows are
// logged and skipped; a missing file is a hard error.
func (p *CSVProvider) LoadData(ctx context.Context, source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataError("csv_provider", "load", "data file not found: "+source)
		}
		return nil, errors.Wrap(err, errors.CategoryData, "csv_provider", "load")
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryData, "csv_provider", "load").WithMessage("failed to read header")
	}

	var data []types.OHLCV

	lineNum := 1 // header already consumed
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, errors.CategoryData, "csv_provider", "load").
				WithMessage(fmt.Sprintf("error reading CSV at line %d", lineNum))
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			log.Printf("insufficient columns at line %d (expected %d, got %d), skipping", lineNum, p.format.MinColumns, len(record))
			continue
		}

		timestamp, err := p.parseTimestamp(record[p.format.TimestampCol])
		if err != nil {
			log.Printf("invalid timestamp %q at line %d, skipping: %v", record[p.format.TimestampCol], lineNum, err)
			continue
		}

		open, err1 := strconv.ParseFloat(record[p.format.OpenCol], 64)
		high, err2 := strconv.ParseFloat(record[p.format.HighCol], 64)
		low, err3 := strconv.ParseFloat(record[p.format.LowCol], 64)
		closePrice, err4 := strconv.ParseFloat(record[p.format.CloseCol], 64)
		volume, err5 := strconv.ParseFloat(record[p.format.VolumeCol], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			log.Printf("invalid numeric field at line %d, skipping", lineNum)
			continue
		}

		if open <= 0 || high <= 0 || low <= 0 || closePrice <= 0 {
			log.Printf("non-positive price at line %d, skipping", lineNum)
			continue
		}
		if high < open || high < closePrice || high < low {
			log.Printf("high below other prices at line %d, skipping", lineNum)
			continue
		}
		if low > open || low > closePrice {
			log.Printf("low above other prices at line %d, skipping", lineNum)
			continue
		}

		data = append(data, types.OHLCV{
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	if len(data) == 0 {
		return nil, errors.NewDataError("csv_provider", "load", "no usable rows in "+source)
	}
	return data, nil
}

func (p *CSVProvider) parseTimestamp(raw string) (time.Time, error) {
	if p.format.DateFormat == "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(p.format.DateFormat, raw)
}

// ValidateData validates the integrity of loaded candles. Duplicate
// timestamps are tolerated; only time moving backwards is an error.
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	return validateCandles("csv_provider", data)
}

// validateCandles is the shared integrity check for every provider.
func validateCandles(component string, data []types.OHLCV) error {
	if len(data) == 0 {
		return errors.NewDataError(component, "validate", "no data provided")
	}

	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return errors.NewDataError(component, "validate",
				fmt.Sprintf("invalid price data at index %d: prices must be positive", i))
		}
		if candle.High < candle.Low {
			return errors.NewDataError(component, "validate",
				fmt.Sprintf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)",
					i, candle.High, candle.Low))
		}
		if candle.High < candle.Open || candle.High < candle.Close {
			return errors.NewDataError(component, "validate",
				fmt.Sprintf("invalid price data at index %d: high (%.4f) must be >= open (%.4f) and close (%.4f)",
					i, candle.High, candle.Open, candle.Close))
		}
		if candle.Low > candle.Open || candle.Low > candle.Close {
			return errors.NewDataError(component, "validate",
				fmt.Sprintf("invalid price data at index %d: low (%.4f) must be <= open (%.4f) and close (%.4f)",
					i, candle.Low, candle.Open, candle.Close))
		}
		if i > 0 && candle.Timestamp.Before(data[i-1].Timestamp) {
			return errors.NewDataError(component, "validate",
				fmt.Sprintf("invalid timestamp sequence at index %d: timestamps must not move backwards", i))
		}
	}

	return nil
}
