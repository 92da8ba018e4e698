package exchange

import (
	"context"
	"fmt"
	"time"

	"cryptoconverter/internal/binance/memorystore"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CacheReader is the in-process price cache. *memorystore.PriceCache implements it.
type CacheReader interface {
	Get(symbol string) (memorystore.Tick, bool)
}

// TickSource is the fast store, which outlives a single process's cache.
// *redis.Store implements it.
type TickSource interface {
	GetTick(ctx context.Context, symbol string) (memorystore.Tick, bool, error)
}

type Options struct {
	QuotePrecision  int32         // fractional digits of the quantized price and of user amounts
	TargetPrecision int32         // significant digits of computed amounts
	Expiration      time.Duration // maximum tick age
	Now             func() time.Time
}

// Result is the conversion response. The computed amount carries the
// counterpart currency as a suffix; the amount the caller supplied does not.
type Result struct {
	From          string `json:"from"`
	To            string `json:"to"`
	TickerName    string `json:"ticker_name"`
	TickerPrice   string `json:"ticker_price"`
	AmountFrom    string `json:"amount_from"`
	AmountTo      string `json:"amount_to"`
	RateTimestamp int64  `json:"rate_timestamp"`
}

// Engine converts amounts using the freshest known tick. It only reads the cache.
type Engine struct {
	cache  CacheReader
	store  TickSource
	opts   Options
	logger *zap.Logger
}

// NewEngine builds an Engine. Either lookup source may be nil, not both.
func NewEngine(cache CacheReader, store TickSource, opts Options, logger *zap.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		cache:  cache,
		store:  store,
		opts:   opts,
		logger: logger.Named("exchange"),
	}
}

// Convert validates req, looks up the pair's tick and computes the counterpart amount.
func (e *Engine) Convert(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(int(e.opts.QuotePrecision)); err != nil {
		return Result{}, err
	}

	pair := req.Pair()
	tick, err := e.lookup(ctx, pair)
	if err != nil {
		return Result{}, err
	}
	if err := e.checkFresh(tick); err != nil {
		e.logger.Warn("ticker is too old", zap.String("ticker", pair), zap.Error(err))
		return Result{}, err
	}

	price, err := decimal.NewFromString(tick.Price)
	if err != nil {
		return Result{}, fmt.Errorf("ticker %s has invalid price %q: %w", pair, tick.Price, err)
	}
	price = quantize(price, e.opts.QuotePrecision)
	if !price.IsPositive() {
		return Result{}, fmt.Errorf("ticker %s: %w: price %s is not positive at %d places",
			pair, ErrTickerNotFound, tick.Price, e.opts.QuotePrecision)
	}

	res := Result{
		From:          req.From,
		To:            req.To,
		TickerName:    pair,
		TickerPrice:   trimZeros(tick.Price),
		RateTimestamp: tick.EventTime,
	}

	target := e.opts.TargetPrecision
	if req.AmountFrom != nil && !req.AmountFrom.IsZero() {
		amountTo := roundSignificant(req.AmountFrom.Mul(price), target)
		res.AmountFrom = render(*req.AmountFrom, e.opts.QuotePrecision)
		res.AmountTo = render(amountTo, target) + req.To
	} else {
		// 2*target places keeps every significant digit of the quotient before the final rounding
		amountFrom := roundSignificant(req.AmountTo.DivRound(price, 2*target), target)
		res.AmountFrom = render(amountFrom, target) + req.From
		res.AmountTo = render(*req.AmountTo, e.opts.QuotePrecision)
	}

	return res, nil
}

// lookup prefers the in-process cache and falls back to the fast store.
func (e *Engine) lookup(ctx context.Context, pair string) (memorystore.Tick, error) {
	if e.cache != nil {
		if tick, ok := e.cache.Get(pair); ok {
			return tick, nil
		}
	}

	if e.store != nil {
		tick, ok, err := e.store.GetTick(ctx, pair)
		if err != nil {
			return memorystore.Tick{}, fmt.Errorf("lookup ticker %s: %w", pair, err)
		}
		if ok {
			return tick, nil
		}
	}

	return memorystore.Tick{}, fmt.Errorf("%w for ticker %s", ErrTickerNotFound, pair)
}

func (e *Engine) checkFresh(tick memorystore.Tick) error {
	age := e.opts.Now().Sub(tick.EventAt())
	if age >= e.opts.Expiration {
		return &StaleTickerError{
			Symbol:    tick.Symbol,
			EventTime: tick.EventAt(),
			Age:       age,
			Window:    e.opts.Expiration,
		}
	}
	return nil
}
