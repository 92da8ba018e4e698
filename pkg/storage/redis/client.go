package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cryptoconverter/config"
	"cryptoconverter/internal/binance/memorystore"

	"github.com/redis/go-redis/v9"
)

// Hash fields of one symbol entry.
const (
	fieldTickerName = "ticker_name"
	fieldPrice      = "price"
	fieldTimestamp  = "timestamp"
)

// Store keeps the latest flushed tick per symbol as a Redis hash with a TTL.
type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewStore(rdb *redis.Client, keyPrefix string) *Store {
	return &Store{rdb: rdb, prefix: keyPrefix}
}

// Connect opens a client from cfg and checks it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewStore(rdb, cfg.KeyPrefix), nil
}

func (s *Store) key(symbol string) string {
	return s.prefix + symbol
}

// PutTicks writes one hash per tick and applies ttl right after the write.
// Commands are pipelined; the count of hashes written is returned.
func (s *Store) PutTicks(ctx context.Context, ticks []memorystore.Tick, ttl time.Duration) (int, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	cmds, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range ticks {
			key := s.key(t.Symbol)
			pipe.HSet(ctx, key, map[string]any{
				fieldTickerName: t.Symbol,
				fieldPrice:      t.Price,
				fieldTimestamp:  strconv.FormatInt(t.EventTime, 10),
			})
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return countWritten(cmds), fmt.Errorf("redis pipeline: %w", err)
	}

	return len(ticks), nil
}

// countWritten counts successful HSET commands in a pipeline result.
func countWritten(cmds []redis.Cmder) int {
	n := 0
	for _, c := range cmds {
		if _, ok := c.(*redis.IntCmd); ok && c.Name() == "hset" && c.Err() == nil {
			n++
		}
	}
	return n
}

// GetTick reads the hash for symbol. A missing or expired key returns false.
func (s *Store) GetTick(ctx context.Context, symbol string) (memorystore.Tick, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(symbol)).Result()
	if err != nil {
		return memorystore.Tick{}, false, fmt.Errorf("redis hgetall %s: %w", symbol, err)
	}
	if len(fields) == 0 {
		return memorystore.Tick{}, false, nil
	}

	ts, err := strconv.ParseInt(fields[fieldTimestamp], 10, 64)
	if err != nil {
		return memorystore.Tick{}, false, fmt.Errorf("redis entry %s: bad timestamp %q: %w", symbol, fields[fieldTimestamp], err)
	}

	name := fields[fieldTickerName]
	if name == "" {
		name = symbol
	}

	return memorystore.Tick{
		Symbol:    name,
		Price:     fields[fieldPrice],
		EventTime: ts,
	}, true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
