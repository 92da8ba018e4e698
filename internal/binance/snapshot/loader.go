package snapshot

import (
	"context"
	"fmt"

	"cryptoconverter/internal/binance/memorystore"
	"cryptoconverter/internal/binance/stream"

	"go.uber.org/zap"
)

// TickerFetcher returns the raw 24h ticker body. *binance.RESTClient implements it.
type TickerFetcher interface {
	Ticker24hr(ctx context.Context, symbols []string) ([]byte, error)
}

// WarmupLoader seeds the price cache from the REST 24h ticker endpoint so the
// first flush and the first conversions have data before the stream delivers any.
type WarmupLoader struct {
	Client  TickerFetcher
	Cache   *memorystore.PriceCache
	Symbols []string // empty loads every symbol
	Logger  *zap.Logger
}

// Load fetches one snapshot and puts every valid row into the cache. It
// returns the number of ticks cached. Rows failing validation are skipped.
func (l *WarmupLoader) Load(ctx context.Context) (int, error) {
	body, err := l.Client.Ticker24hr(ctx, l.Symbols)
	if err != nil {
		l.Logger.Error("failed to load ticker snapshot", zap.Error(err))
		return 0, fmt.Errorf("ticker snapshot: %w", err)
	}

	batch := stream.DecodeSnapshot(body)
	if batch.Outcome == stream.OutcomeMalformed {
		return 0, fmt.Errorf("ticker snapshot: %w", batch.Err)
	}

	for _, tick := range batch.Ticks {
		l.Cache.Put(tick)
	}

	if len(batch.Rejected) > 0 {
		l.Logger.Warn("skipped snapshot rows",
			zap.Int("rejected", len(batch.Rejected)),
			zap.String("first_reason", batch.Rejected[0].Reason))
	}
	l.Logger.Info("loaded ticker snapshot", zap.Int("count", len(batch.Ticks)))

	return len(batch.Ticks), nil
}
