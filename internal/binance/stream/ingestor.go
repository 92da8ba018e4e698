package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"cryptoconverter/internal/binance/memorystore"

	"go.uber.org/zap"
)

// State is the lifecycle position of an Ingestor.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateSubscribed
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// TransportError means the upstream connection failed. It ends the stream;
// the owner of the process decides what to do with it.
type TransportError struct {
	Op  string // "connect", "subscribe" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Feed is the upstream connection. *binance.WSClient implements it.
type Feed interface {
	Connect(ctx context.Context) error
	Subscribe(streams []string, id int) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Ingestor keeps one subscription open and writes every decoded tick into the cache.
type Ingestor struct {
	feed    Feed
	cache   *memorystore.PriceCache
	streams []string
	logger  *zap.Logger

	state atomic.Int32
}

func NewIngestor(feed Feed, cache *memorystore.PriceCache, streams []string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		feed:    feed,
		cache:   cache,
		streams: streams,
		logger:  logger.Named("ingestor"),
	}
}

// State returns the current lifecycle state.
func (i *Ingestor) State() State {
	return State(i.state.Load())
}

func (i *Ingestor) setState(s State) {
	prev := State(i.state.Swap(int32(s)))
	if prev != s {
		i.logger.Debug("state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Run connects, subscribes and streams until the connection fails or ctx is
// cancelled. It never reconnects. Connection failures are returned as
// *TransportError; cancellation returns ctx.Err().
func (i *Ingestor) Run(ctx context.Context) error {
	defer i.setState(StateTerminated)

	if err := i.feed.Connect(ctx); err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	defer i.feed.Close()
	i.setState(StateConnected)

	if err := i.feed.Subscribe(i.streams, 1); err != nil {
		return &TransportError{Op: "subscribe", Err: err}
	}
	i.setState(StateSubscribed)

	// ReadMessage has no context; closing the feed is what unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = i.feed.Close() })
	defer stop()

	i.setState(StateStreaming)
	i.logger.Info("streaming", zap.Strings("streams", i.streams))

	for {
		msg, err := i.feed.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				i.logger.Info("stream stopped", zap.Error(ctxErr))
				return ctxErr
			}
			i.logger.Error("WebSocket read error", zap.Error(err))
			return &TransportError{Op: "read", Err: err}
		}

		i.handle(msg)
	}
}

// handle decodes one message and applies it to the cache. Nothing raised
// here may end the stream.
func (i *Ingestor) handle(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("message handling panicked",
				zap.Any("panic", r), zap.ByteString("message", truncate(msg)))
		}
	}()

	batch := Decode(msg)
	switch batch.Outcome {
	case OutcomeMalformed:
		var decodeErr *DecodeError
		if errors.As(batch.Err, &decodeErr) {
			i.logger.Warn("dropping malformed message", zap.Error(decodeErr))
		}
		return
	case OutcomeEmpty:
		i.logger.Debug("message without ticker payload", zap.ByteString("message", truncate(msg)))
		return
	}

	for _, tick := range batch.Ticks {
		i.cache.Put(tick)
	}

	if len(batch.Rejected) > 0 {
		i.logger.Warn("rejected ticker entries",
			zap.Int("rejected", len(batch.Rejected)),
			zap.Int("accepted", len(batch.Ticks)),
			zap.String("first_reason", batch.Rejected[0].Reason))
	}
	i.logger.Debug("processed ticker data",
		zap.Int("qty", len(batch.Ticks)),
		zap.Int("cached", i.cache.Len()))
}

func truncate(msg []byte) []byte {
	if len(msg) > maxPayloadInError {
		return msg[:maxPayloadInError]
	}
	return msg
}
