package flusher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cryptoconverter/internal/binance/memorystore"

	"go.uber.org/zap"
)

// Sink names used in FlushWriteError and logs.
const (
	SinkDurable = "durable"
	SinkFast    = "fast"
)

// Drainer detaches the accumulated ticks. *memorystore.PriceCache implements it.
type Drainer interface {
	DrainAll() map[string]memorystore.Tick
}

// DurableSink persists a batch atomically. *postgres.PostgresClient implements it.
type DurableSink interface {
	SaveTicks(ctx context.Context, ticks []memorystore.Tick) (int, error)
}

// FastSink stores the latest tick per symbol with an expiry. *redis.Store implements it.
type FastSink interface {
	PutTicks(ctx context.Context, ticks []memorystore.Tick, ttl time.Duration) (int, error)
}

// FlushWriteError reports a failed write to one sink. The data of that cycle
// for that sink is not retried.
type FlushWriteError struct {
	Sink string
	Err  error
}

func (e *FlushWriteError) Error() string {
	return fmt.Sprintf("flush to %s store failed: %v", e.Sink, e.Err)
}

func (e *FlushWriteError) Unwrap() error { return e.Err }

// SinkOutcome is the result of one sink write.
type SinkOutcome struct {
	Written int
	Elapsed time.Duration
	Err     error // *FlushWriteError or nil
}

// Result summarises one cycle. When Drained is zero neither sink was called.
type Result struct {
	Drained int
	Durable SinkOutcome
	Fast    SinkOutcome
}

type Options struct {
	Expiry       time.Duration // TTL of fast-store entries
	WriteTimeout time.Duration // bound on each sink write; zero means none
}

// Flusher moves the cache contents to the durable and fast stores. The two
// writes are independent: a fast-store success is kept even when the durable
// write fails, so a price can be servable while missing from history.
type Flusher struct {
	cache   Drainer
	durable DurableSink
	fast    FastSink
	opts    Options
	logger  *zap.Logger
}

func New(cache Drainer, durable DurableSink, fast FastSink, opts Options, logger *zap.Logger) *Flusher {
	return &Flusher{
		cache:   cache,
		durable: durable,
		fast:    fast,
		opts:    opts,
		logger:  logger.Named("flusher"),
	}
}

// Flush runs one cycle. It never panics and never returns an error; failures
// are reported in the Result and logged.
func (f *Flusher) Flush(ctx context.Context) Result {
	var res Result

	drained := f.cache.DrainAll()
	res.Drained = len(drained)
	if res.Drained == 0 {
		f.logger.Info("no tickers to flush")
		return res
	}

	ticks := make([]memorystore.Tick, 0, len(drained))
	for _, t := range drained {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Symbol < ticks[j].Symbol })

	res.Durable = f.write(ctx, SinkDurable, func(ctx context.Context) (int, error) {
		return f.durable.SaveTicks(ctx, ticks)
	})
	res.Fast = f.write(ctx, SinkFast, func(ctx context.Context) (int, error) {
		return f.fast.PutTicks(ctx, ticks, f.opts.Expiry)
	})

	f.logger.Info("flush cycle finished",
		zap.Int("drained", res.Drained),
		zap.Int("durable_written", res.Durable.Written),
		zap.Duration("durable_elapsed", res.Durable.Elapsed),
		zap.Bool("durable_ok", res.Durable.Err == nil),
		zap.Int("fast_written", res.Fast.Written),
		zap.Duration("fast_elapsed", res.Fast.Elapsed),
		zap.Bool("fast_ok", res.Fast.Err == nil),
	)
	return res
}

func (f *Flusher) write(ctx context.Context, sink string, fn func(context.Context) (int, error)) (out SinkOutcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out.Err = &FlushWriteError{Sink: sink, Err: fmt.Errorf("panic: %v", r)}
		}
		out.Elapsed = time.Since(start)
		if out.Err != nil {
			f.logger.Error("flush write failed", zap.String("sink", sink), zap.Error(out.Err))
		}
	}()

	if f.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.WriteTimeout)
		defer cancel()
	}

	n, err := fn(ctx)
	out.Written = n
	if err != nil {
		out.Err = &FlushWriteError{Sink: sink, Err: err}
	}
	return out
}
