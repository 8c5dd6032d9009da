package config

import (
	"os"
	"strconv"
	"strings"

	"backtester/internal/errors"
)

// Config holds everything one backtest invocation needs. Values come from
// the environment (after an optional .env overlay) and may be overridden by
// command-line flags before Validate is called.
type Config struct {
	Environment string
	LogLevel    string

	Data struct {
		Dir      string
		Source   string // "csv" or "bybit"
		Category string // bybit market category
	}

	Backtest struct {
		Symbols             []string
		Strategies          []string
		Timeframes          []string
		InitialCapital      float64
		Commission          float64
		PositionSize        float64
		RiskPercent         float64
		StopLossPercent     float64
		TakeProfitPercent   float64
		AllowShort          bool
		OptimisticFills     bool
		WindowSize          int
		MaxErrorRate        float64
		AnnualizationFactor float64
	}

	Optimizer struct {
		Objective   string
		Parallelism int
	}

	Monitoring struct {
		MetricsAddr string
	}

	Output struct {
		Dir       string
		ExcelFile string
		JSONFile  string
		CSVFile   string
	}
}

// Load builds a Config from environment variables with sane defaults.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Data.Dir = getEnv("DATA_DIR", "data")
	cfg.Data.Source = getEnv("DATA_SOURCE", "csv")
	cfg.Data.Category = getEnv("BYBIT_CATEGORY", "spot")

	cfg.Backtest.Symbols = getEnvList("SYMBOLS", []string{"BTCUSDT"})
	cfg.Backtest.Strategies = getEnvList("STRATEGIES", []string{"sma_crossover"})
	cfg.Backtest.Timeframes = getEnvList("TIMEFRAMES", nil)
	cfg.Backtest.InitialCapital = getEnvFloat("INITIAL_CAPITAL", 10000)
	cfg.Backtest.Commission = getEnvFloat("COMMISSION", 0.001)
	cfg.Backtest.PositionSize = getEnvFloat("POSITION_SIZE", 0)
	cfg.Backtest.RiskPercent = getEnvFloat("RISK_PERCENT", 0)
	cfg.Backtest.StopLossPercent = getEnvFloat("STOP_LOSS_PERCENT", 0)
	cfg.Backtest.TakeProfitPercent = getEnvFloat("TAKE_PROFIT_PERCENT", 0)
	cfg.Backtest.AllowShort = getEnvBool("ALLOW_SHORT", false)
	cfg.Backtest.OptimisticFills = getEnvBool("OPTIMISTIC_FILLS", false)
	cfg.Backtest.WindowSize = getEnvInt("WINDOW_SIZE", 0)
	cfg.Backtest.MaxErrorRate = getEnvFloat("MAX_ERROR_RATE", 0.1)
	cfg.Backtest.AnnualizationFactor = getEnvFloat("ANNUALIZATION_FACTOR", 0)

	cfg.Optimizer.Objective = getEnv("OPTIMIZER_OBJECTIVE", "sharpe_ratio")
	cfg.Optimizer.Parallelism = getEnvInt("OPTIMIZER_PARALLELISM", 0)

	cfg.Monitoring.MetricsAddr = getEnv("METRICS_ADDR", "")

	cfg.Output.Dir = getEnv("OUTPUT_DIR", "results")
	cfg.Output.ExcelFile = getEnv("EXCEL_FILE", "")
	cfg.Output.JSONFile = getEnv("JSON_FILE", "")
	cfg.Output.CSVFile = getEnv("CSV_FILE", "")

	return cfg
}

// Validate fails fast before any data is loaded.
func (c *Config) Validate() error {
	if len(c.Backtest.Symbols) == 0 {
		return errors.NewConfigError("config", "validate", "at least one symbol is required")
	}
	if len(c.Backtest.Strategies) == 0 {
		return errors.NewConfigError("config", "validate", "at least one strategy is required")
	}
	if c.Backtest.InitialCapital <= 0 {
		return errors.NewConfigError("config", "validate", "initial capital must be positive")
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return errors.NewConfigError("config", "validate", "commission must be in [0, 1)")
	}
	if c.Data.Source != "csv" && c.Data.Source != "bybit" {
		return errors.NewConfigError("config", "validate", "data source must be csv or bybit")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
