package collector

import (
	"context"
	"errors"
	"fmt"

	"cryptoconverter/config"
	"cryptoconverter/internal/binance/flusher"
	"cryptoconverter/internal/binance/memorystore"
	"cryptoconverter/internal/binance/snapshot"
	"cryptoconverter/internal/binance/stream"
	"cryptoconverter/pkg/binance"
	"cryptoconverter/pkg/storage/postgres"
	"cryptoconverter/pkg/storage/redis"

	"go.uber.org/zap"
)

// Run starts the consumer pipeline: stores, optional REST warm-up, the flush
// scheduler and the stream ingestor. It blocks until the stream ends and
// returns the ingestor's error after a final flush.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pg.Close()

	fast, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer fast.Close()

	wsClient := binance.NewWSClient(cfg.Binance.WS.Endpoint(), cfg.Binance.WS.HandshakeTimeout,
		cfg.Binance.WS.ReadTimeout, logger)
	restClient := binance.NewRESTClient(cfg.Binance.REST.BaseURL, cfg.Binance.REST.Timeout)

	return run(ctx, cfg, pipeline{
		feed:    wsClient,
		rest:    restClient,
		durable: pg,
		fast:    fast,
	}, logger)
}

// pipeline holds the external edges of the consumer so tests can replace them.
type pipeline struct {
	feed    stream.Feed
	rest    snapshot.TickerFetcher
	durable flusher.DurableSink
	fast    flusher.FastSink
}

func run(ctx context.Context, cfg *config.Config, p pipeline, logger *zap.Logger) error {
	cache := memorystore.NewPriceCache()

	if cfg.Binance.REST.Warmup {
		loader := &snapshot.WarmupLoader{
			Client:  p.rest,
			Cache:   cache,
			Symbols: cfg.Binance.REST.Symbols,
			Logger:  logger.Named("warmup"),
		}
		// a failed warm-up only delays data until the stream delivers it
		if _, err := loader.Load(ctx); err != nil {
			logger.Warn("warm-up skipped", zap.Error(err))
		}
	}

	f := flusher.New(cache, p.durable, p.fast, flusher.Options{
		Expiry:       cfg.Redis.Expiry(),
		WriteTimeout: cfg.Flush.Timeout(),
	}, logger)

	// a cycle already draining must finish even when shutdown starts
	scheduler := flusher.NewScheduler(cfg.Flush.Interval(), func(ctx context.Context) {
		f.Flush(context.WithoutCancel(ctx))
	}, logger)

	schedCtx, stopScheduler := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		scheduler.Run(schedCtx)
	}()

	ingestor := stream.NewIngestor(p.feed, cache, []string{cfg.Binance.WS.Subscribe}, logger)
	streamErr := ingestor.Run(ctx)

	stopScheduler()
	<-schedDone

	logger.Info("final flush before exit")
	f.Flush(context.WithoutCancel(ctx))

	if errors.Is(streamErr, context.Canceled) {
		return nil
	}
	return streamErr
}
