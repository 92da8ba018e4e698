package postgres_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"cryptoconverter/internal/binance/memorystore"
	"cryptoconverter/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestToTickerDataRecord
func TestToTickerDataRecord(t *testing.T) {
	raw := memorystore.Tick{
		Symbol:    "btcusdt",
		Price:     "43192.1",
		EventTime: 1706769690000,
		Raw:       []byte(`{"E":1706769690000,"s":"BTCUSDT","c":"43192.1"}`),
	}
	rec, err := postgres.ToTickerDataRecord(7, raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), rec.TickerID)
	assert.Equal(t, "43192.1", rec.Price)
	assert.Equal(t, int64(1706769690000), rec.Timestamp)
	assert.Equal(t, string(raw.Raw), rec.JSONData)

	raw.Raw = nil
	rec, err = postgres.ToTickerDataRecord(7, raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticker_name":"btcusdt","price":"43192.1","timestamp":1706769690000}`, rec.JSONData)
}

func uniqueSymbol(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano())
}

// go test -v --run TestSaveTicks
func TestSaveTicks(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	btc := uniqueSymbol("btc")
	eth := uniqueSymbol("eth")

	n, err := client.SaveTicks(ctx, []memorystore.Tick{
		{Symbol: btc, Price: "43000.1", EventTime: 1},
		{Symbol: eth, Price: "2300", EventTime: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second cycle reuses the symbol row
	_, err = client.SaveTicks(ctx, []memorystore.Tick{{Symbol: btc, Price: "43001.2", EventTime: 2}})
	require.NoError(t, err)

	count, err := client.CountTicks(ctx, btc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	latest, err := client.LatestTick(ctx, btc)
	require.NoError(t, err)
	assert.Equal(t, "43001.2", latest.Price)
	assert.Equal(t, btc, latest.Ticker.TickerName)

	var symbols int64
	require.NoError(t, client.DB.Model(&postgres.TickerRecord{}).Where("ticker_name = ?", btc).Count(&symbols).Error)
	assert.Equal(t, int64(1), symbols)
}

// go test -v --run TestSaveTicksRollsBack
func TestSaveTicksRollsBack(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	good := uniqueSymbol("ok")
	tooLong := strings.Repeat("x", 80) // exceeds varchar(50)

	_, err := client.SaveTicks(ctx, []memorystore.Tick{
		{Symbol: good, Price: "1", EventTime: 1},
		{Symbol: tooLong, Price: "1", EventTime: 1},
	})
	require.Error(t, err)

	count, err := client.CountTicks(ctx, good)
	require.NoError(t, err)
	assert.Zero(t, count)

	var symbols int64
	require.NoError(t, client.DB.Model(&postgres.TickerRecord{}).Where("ticker_name = ?", good).Count(&symbols).Error)
	assert.Zero(t, symbols, "symbol row must be rolled back with the batch")
}

// go test -v --run TestSaveTicksEmpty
func TestSaveTicksEmpty(t *testing.T) {
	// no connection needed: nothing is written
	var client postgres.PostgresClient
	n, err := client.SaveTicks(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
