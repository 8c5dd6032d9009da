package backtest

import (
	"fmt"
	"time"

	"backtester/internal/errors"
	"backtester/internal/monitoring"
	"backtester/internal/strategy"
	"backtester/pkg/types"
)

// Config holds the simulation settings for one engine.
type Config struct {
	Symbol         string
	InitialCapital float64
	Commission     float64 // rate charged per executed leg, e.g. 0.001

	// Timeframes the run analyzes, recorded on the result for export. The
	// first entry is the base series resolution.
	Timeframes []string

	// Position sizing. When RiskPercent > 0 and a stop distance exists the
	// quantity is RiskPercent% of equity divided by the stop distance;
	// otherwise PositionSize is the fixed notional per entry (0 means the
	// full current equity).
	PositionSize float64
	RiskPercent  float64

	// Protective exits as percentages of the entry price. 0 disables.
	StopLossPercent   float64
	TakeProfitPercent float64

	AllowShort bool

	// OptimisticFills checks the take-profit before the stop when one bar's
	// range covers both. The default assumes the stop fills first.
	OptimisticFills bool

	// WindowSize is the sliding data window handed to the strategy. 0 uses
	// the strategy's warmup period.
	WindowSize int

	// MaxErrorRate is the tolerated fraction of candles on which the
	// strategy may fail before the whole run aborts. 0 means 0.1.
	MaxErrorRate float64

	// AnnualizationFactor is the periods-per-year used for Sharpe/Sortino
	// scaling. 0 leaves the ratios un-annualized.
	AnnualizationFactor float64
}

// Validate fails fast on settings no simulation should start with.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return errors.NewConfigError("engine", "validate", "initial capital must be positive")
	}
	if c.Commission < 0 || c.Commission >= 1 {
		return errors.NewConfigError("engine", "validate", "commission must be in [0, 1)")
	}
	if c.RiskPercent < 0 || c.RiskPercent > 100 {
		return errors.NewConfigError("engine", "validate", "risk percent must be in [0, 100]")
	}
	if c.StopLossPercent < 0 || c.TakeProfitPercent < 0 {
		return errors.NewConfigError("engine", "validate", "stop and target percents must not be negative")
	}
	if c.PositionSize < 0 {
		return errors.NewConfigError("engine", "validate", "position size must not be negative")
	}
	if c.MaxErrorRate < 0 || c.MaxErrorRate > 1 {
		return errors.NewConfigError("engine", "validate", "max error rate must be in [0, 1]")
	}
	return nil
}

// BiasProvider gates new entries on a consolidated multi-timeframe bias.
type BiasProvider interface {
	Bias(window []types.OHLCV, strat strategy.Strategy) (strategy.Bias, error)
}

// Engine simulates order execution bar by bar for a single symbol. One run
// holds at most one open position; multi-symbol work uses independent
// engine instances.
type Engine struct {
	cfg  Config
	bias BiasProvider
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// WithBias attaches an entry gate. Entries are then only taken when the
// consolidated bias agrees with the signal direction.
func (e *Engine) WithBias(bias BiasProvider) *Engine {
	e.bias = bias
	return e
}

// runContext is the mutable state of one simulation run. It is local to a
// single Run call, never shared, so independent runs are concurrency-safe.
type runContext struct {
	closedEquity float64
	position     *Position
	trades       []Trade
	curve        []EquityPoint
	errorCount   int
}

// Run replays the candle series through the strategy and produces the
// complete result for the run. The series must be ordered ascending.
func (e *Engine) Run(data []types.OHLCV, strat strategy.Strategy) (*BacktestResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.NewDataError("engine", "run", "no candles for "+e.cfg.Symbol)
	}

	window := e.cfg.WindowSize
	if window <= 0 {
		window = strat.WarmupPeriod()
	}
	if window <= 0 {
		window = 1
	}
	maxErrorRate := e.cfg.MaxErrorRate
	if maxErrorRate == 0 {
		maxErrorRate = 0.1
	}

	ctx := &runContext{
		closedEquity: e.cfg.InitialCapital,
		curve:        make([]EquityPoint, 0, len(data)),
	}

	for i := range data {
		candle := data[i]
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		win := data[lo : i+1]

		sig, err := strat.GenerateSignal(win)
		if err != nil {
			ctx.errorCount++
			if ctx.position != nil {
				e.closePosition(ctx, candle.Close, candle.Timestamp, ExitStrategyError)
			}
			// Tolerance is a fraction of the whole series, so even a short
			// run with persistent failures is marked failed instead of
			// silently producing a partial result.
			if float64(ctx.errorCount)/float64(len(data)) > maxErrorRate {
				return nil, errors.Wrap(err, errors.CategoryStrategy, "engine", "run").
					WithMessage(fmt.Sprintf("strategy error rate exceeded after %d failures", ctx.errorCount))
			}
			ctx.curve = append(ctx.curve, EquityPoint{Timestamp: candle.Timestamp, Equity: e.markEquity(ctx, candle.Close)})
			continue
		}

		if ctx.position != nil {
			e.checkExits(ctx, candle, sig)
		}
		if ctx.position == nil && sig.Direction != strategy.Flat {
			if err := e.tryOpen(ctx, win, candle, sig, strat); err != nil {
				ctx.errorCount++
				if float64(ctx.errorCount)/float64(len(data)) > maxErrorRate {
					return nil, errors.Wrap(err, errors.CategoryStrategy, "engine", "run").
						WithMessage(fmt.Sprintf("bias error rate exceeded after %d failures", ctx.errorCount))
				}
			}
		}

		ctx.curve = append(ctx.curve, EquityPoint{Timestamp: candle.Timestamp, Equity: e.markEquity(ctx, candle.Close)})
	}

	// Any open exposure is force-closed at the last close.
	last := data[len(data)-1]
	if ctx.position != nil {
		e.closePosition(ctx, last.Close, last.Timestamp, ExitEndOfBacktest)
		ctx.curve[len(ctx.curve)-1].Equity = ctx.closedEquity
	}

	result := &BacktestResult{
		Symbol:         e.cfg.Symbol,
		StrategyName:   strat.Name(),
		StartDate:      data[0].Timestamp,
		EndDate:        last.Timestamp,
		Timeframes:     e.cfg.Timeframes,
		InitialCapital: e.cfg.InitialCapital,
		FinalEquity:    ctx.closedEquity,
		Trades:         ctx.trades,
		EquityCurve:    ctx.curve,
	}
	result.Metrics = CalculateMetrics(result.Trades, result.EquityCurve, e.cfg.InitialCapital, e.cfg.AnnualizationFactor)
	monitoring.RecordTradesSimulated(len(result.Trades))
	return result, nil
}

// checkExits applies the exit triggers in precedence order: stop-loss,
// take-profit, signal reversal. End-of-data closing happens in Run.
func (e *Engine) checkExits(ctx *runContext, candle types.OHLCV, sig strategy.Signal) {
	pos := ctx.position

	stopHit := pos.StopPrice > 0 && func() bool {
		if pos.Side == SideLong {
			return candle.Low <= pos.StopPrice
		}
		return candle.High >= pos.StopPrice
	}()
	targetHit := pos.TargetPrice > 0 && func() bool {
		if pos.Side == SideLong {
			return candle.High >= pos.TargetPrice
		}
		return candle.Low <= pos.TargetPrice
	}()

	if stopHit && targetHit && e.cfg.OptimisticFills {
		stopHit = false
	}
	switch {
	case stopHit:
		e.closePosition(ctx, pos.StopPrice, candle.Timestamp, ExitStopLoss)
		return
	case targetHit:
		e.closePosition(ctx, pos.TargetPrice, candle.Timestamp, ExitTakeProfit)
		return
	}

	reversed := (pos.Side == SideLong && sig.Direction == strategy.Short) ||
		(pos.Side == SideShort && sig.Direction == strategy.Long)
	if reversed {
		e.closePosition(ctx, candle.Close, candle.Timestamp, ExitSignalReversal)
	}
}

// tryOpen opens a position at the candle close when the signal direction is
// tradable and the bias gate (when configured) agrees.
func (e *Engine) tryOpen(ctx *runContext, win []types.OHLCV, candle types.OHLCV, sig strategy.Signal, strat strategy.Strategy) error {
	var side Side
	switch sig.Direction {
	case strategy.Long:
		side = SideLong
	case strategy.Short:
		if !e.cfg.AllowShort {
			return nil
		}
		side = SideShort
	default:
		return nil
	}

	if e.bias != nil {
		bias, err := e.bias.Bias(win, strat)
		if err != nil {
			return err
		}
		if !bias.Agrees(sig.Direction) {
			return nil
		}
	}

	entry := candle.Close
	if entry <= 0 {
		return nil
	}

	var stop, target float64
	if e.cfg.StopLossPercent > 0 {
		stop = entry * (1 - side.sign()*e.cfg.StopLossPercent/100)
	}
	if e.cfg.TakeProfitPercent > 0 {
		target = entry * (1 + side.sign()*e.cfg.TakeProfitPercent/100)
	}

	equity := ctx.closedEquity
	if equity <= 0 {
		return nil
	}

	var quantity float64
	stopDistance := side.sign() * (entry - stop)
	if e.cfg.RiskPercent > 0 && stop > 0 && stopDistance > 0 {
		quantity = (e.cfg.RiskPercent / 100 * equity) / stopDistance
	} else {
		notional := e.cfg.PositionSize
		if notional <= 0 || notional > equity {
			notional = equity
		}
		quantity = notional / entry
	}
	if quantity <= 0 {
		return nil
	}

	// Entry commission hits equity immediately.
	ctx.closedEquity -= entry * quantity * e.cfg.Commission
	ctx.position = &Position{
		Side:        side,
		EntryTime:   candle.Timestamp,
		EntryPrice:  entry,
		Quantity:    quantity,
		StopPrice:   stop,
		TargetPrice: target,
	}
	return nil
}

// closePosition realizes the open position at the given price and appends
// the immutable trade record.
func (e *Engine) closePosition(ctx *runContext, price float64, at time.Time, reason string) {
	pos := ctx.position
	exitCommission := price * pos.Quantity * e.cfg.Commission
	profitLoss := (price-pos.EntryPrice)*pos.Quantity*pos.Side.sign() - exitCommission

	roiPct := 0.0
	if notional := pos.EntryPrice * pos.Quantity; notional > 0 {
		roiPct = profitLoss / notional * 100
	}

	ctx.trades = append(ctx.trades, Trade{
		EntryTime:  pos.EntryTime,
		ExitTime:   at,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Quantity:   pos.Quantity,
		ProfitLoss: profitLoss,
		ROIPct:     roiPct,
		ExitReason: reason,
	})
	ctx.closedEquity += profitLoss
	ctx.position = nil
}

// markEquity values the account at the given close price.
func (e *Engine) markEquity(ctx *runContext, close float64) float64 {
	if ctx.position == nil {
		return ctx.closedEquity
	}
	pos := ctx.position
	return ctx.closedEquity + (close-pos.EntryPrice)*pos.Quantity*pos.Side.sign()
}
