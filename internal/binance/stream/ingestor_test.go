package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptoconverter/internal/binance/memorystore"
	"cryptoconverter/pkg/binance"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// feedServer accepts one connection, records the subscription and then
// replays messages before closing (or holding) the connection.
func feedServer(t *testing.T, messages []string, hold bool) (string, <-chan binance.SubscribeRequest) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	subCh := make(chan binance.SubscribeRequest, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req binance.SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subCh <- req

		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if hold {
			_, _, _ = conn.ReadMessage()
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), subCh
}

// go test -v --run TestIngestorStreamsUntilTransportError
func TestIngestorStreamsUntilTransportError(t *testing.T) {
	url, subCh := feedServer(t, []string{
		`{"result":null,"id":1}`,
		`not json at all`,
		`{"stream":"!ticker@arr","data":[{"E":1,"s":"BTCUSDT","c":"43000.1"},{"E":1,"s":"ETHUSDT"}]}`,
		`{"stream":"!ticker@arr","data":[{"E":2,"s":"BTCUSDT","c":"43001.5"}]}`,
	}, false)

	cache := memorystore.NewPriceCache()
	feed := binance.NewWSClient(url, time.Second, 0, zap.NewNop())
	ing := NewIngestor(feed, cache, []string{binance.StreamAllMarketTickers}, zap.NewNop())
	assert.Equal(t, StateDisconnected, ing.State())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := ing.Run(ctx)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "got %v", err)
	assert.Equal(t, "read", transportErr.Op)
	assert.Equal(t, StateTerminated, ing.State())

	req := <-subCh
	assert.Equal(t, "SUBSCRIBE", req.Method)
	assert.Equal(t, []string{"!ticker@arr"}, req.Params)
	assert.Equal(t, 1, req.ID)

	// malformed message and invalid entry did not stop the stream; last write wins
	btc, ok := cache.Get("btcusdt")
	require.True(t, ok)
	assert.Equal(t, "43001.5", btc.Price)
	assert.Equal(t, int64(2), btc.EventTime)

	_, ok = cache.Get("ethusdt")
	assert.False(t, ok)
}

// go test -v --run TestIngestorConnectFailure
func TestIngestorConnectFailure(t *testing.T) {
	feed := binance.NewWSClient("ws://127.0.0.1:1/stream", time.Second, 0, zap.NewNop())
	ing := NewIngestor(feed, memorystore.NewPriceCache(), []string{binance.StreamAllMarketTickers}, zap.NewNop())

	err := ing.Run(context.Background())

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "got %v", err)
	assert.Equal(t, "connect", transportErr.Op)
	assert.Equal(t, StateTerminated, ing.State())
}

// go test -v --run TestIngestorCancel
func TestIngestorCancel(t *testing.T) {
	url, _ := feedServer(t, []string{
		`{"stream":"!ticker@arr","data":[{"E":1,"s":"BTCUSDT","c":"1"}]}`,
	}, true)

	cache := memorystore.NewPriceCache()
	feed := binance.NewWSClient(url, time.Second, 0, zap.NewNop())
	ing := NewIngestor(feed, cache, []string{binance.StreamAllMarketTickers}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	require.Eventually(t, func() bool { return cache.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateStreaming, ing.State())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ingestor did not stop after cancel")
	}
	assert.Equal(t, StateTerminated, ing.State())
}

type scriptedFeed struct {
	msgs [][]byte
}

func (f *scriptedFeed) Connect(context.Context) error { return nil }
func (f *scriptedFeed) Subscribe([]string, int) error { return nil }
func (f *scriptedFeed) Close() error                  { return nil }
func (f *scriptedFeed) ReadMessage() ([]byte, error) {
	if len(f.msgs) == 0 {
		return nil, errors.New("connection closed")
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

// go test -v --run TestIngestorSubscribeFailure
func TestIngestorSubscribeFailure(t *testing.T) {
	ing := NewIngestor(&failingSubscribeFeed{}, memorystore.NewPriceCache(), nil, zap.NewNop())

	err := ing.Run(context.Background())

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "subscribe", transportErr.Op)
}

type failingSubscribeFeed struct{ scriptedFeed }

func (f *failingSubscribeFeed) Subscribe([]string, int) error { return errors.New("broken pipe") }

// go test -v --run TestIngestorFakeFeed
func TestIngestorFakeFeed(t *testing.T) {
	cache := memorystore.NewPriceCache()
	feed := &scriptedFeed{msgs: [][]byte{
		[]byte(`{"data":[{"E":1,"s":"BTCUSDT","c":"1"}]}`),
		[]byte(`{"data":[{"E":2,"s":"BTCUSDT","c":"2"}]}`),
	}}
	ing := NewIngestor(feed, cache, nil, zap.NewNop())

	err := ing.Run(context.Background())
	require.Error(t, err)

	got, ok := cache.Get("btcusdt")
	require.True(t, ok)
	assert.Equal(t, "2", got.Price)
}
