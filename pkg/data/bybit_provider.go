package data

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"backtester/internal/errors"
	"backtester/pkg/types"
)

// bybitIntervals maps timeframe keys onto Bybit kline interval codes.
var bybitIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
}

// BybitProvider loads historical candles from Bybit's public kline endpoint.
// The source passed to LoadData is the symbol, e.g. "BTCUSDT". No API keys
// are needed for market data.
type BybitProvider struct {
	client   *bybit_api.Client
	category string
	interval string
	limit    int
}

// NewBybitProvider creates a provider for the given market category
// ("spot", "linear") and timeframe key ("1h", "4h", ...).
func NewBybitProvider(category, timeframe string, limit int) (*BybitProvider, error) {
	interval, ok := bybitIntervals[timeframe]
	if !ok {
		return nil, errors.NewConfigError("bybit_provider", "new", "unsupported timeframe "+timeframe)
	}
	if category == "" {
		category = "spot"
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	return &BybitProvider{
		client:   bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category: category,
		interval: interval,
		limit:    limit,
	}, nil
}

// GetName returns the name of the data provider
func (p *BybitProvider) GetName() string {
	return "Bybit Provider"
}

// ValidateData validates the integrity of fetched candles.
func (p *BybitProvider) ValidateData(data []types.OHLCV) error {
	return validateCandles("bybit_provider", data)
}

// LoadData fetches the most recent candles for the symbol, oldest first.
func (p *BybitProvider) LoadData(ctx context.Context, symbol string) ([]types.OHLCV, error) {
	params := map[string]interface{}{
		"category": p.category,
		"symbol":   symbol,
		"interval": p.interval,
		"limit":    p.limit,
	}

	result, err := p.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryData, "bybit_provider", "load").
			WithMessage("kline request failed for " + symbol)
	}

	data, err := parseKlineResponse(result)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryData, "bybit_provider", "load").
			WithMessage("kline response invalid for " + symbol)
	}
	if len(data) == 0 {
		return nil, errors.NewDataError("bybit_provider", "load", "no candles returned for "+symbol)
	}

	// Bybit lists newest first; simulations need ascending time.
	sort.Slice(data, func(i, j int) bool {
		return data[i].Timestamp.Before(data[j].Timestamp)
	})
	return data, nil
}

func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, errors.NewDataError("bybit_provider", "parse", "unexpected response type")
	}
	if serverResp.RetCode != 0 {
		return nil, errors.NewDataError("bybit_provider", "parse",
			"API error "+strconv.Itoa(serverResp.RetCode)+": "+serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, err
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, err
	}

	var data []types.OHLCV
	for _, item := range klineResult.List {
		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		if len(item) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			continue
		}
		open, err1 := strconv.ParseFloat(item[1], 64)
		high, err2 := strconv.ParseFloat(item[2], 64)
		low, err3 := strconv.ParseFloat(item[3], 64)
		closePrice, err4 := strconv.ParseFloat(item[4], 64)
		volume, err5 := strconv.ParseFloat(item[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		data = append(data, types.OHLCV{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return data, nil
}
