package binance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("binance: websocket not connected")

// WSClient is a single websocket connection to the Binance stream endpoint.
// It does not reconnect: a failed read is returned to the caller.
type WSClient struct {
	url              string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	logger           *zap.Logger

	mu   sync.Mutex // guards conn and writes
	conn *websocket.Conn
}

// NewWSClient creates a new WebSocket client. readTimeout of zero disables the
// per-message read deadline.
func NewWSClient(url string, handshakeTimeout, readTimeout time.Duration, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		readTimeout:      readTimeout,
		logger:           logger,
	}
}

// Connect dials the stream endpoint.
func (c *WSClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: c.handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("WebSocket connected", zap.String("url", c.url))
	return nil
}

// Subscribe sends one SUBSCRIBE request naming the given streams.
func (c *WSClient) Subscribe(streams []string, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	req := SubscribeRequest{
		Method: MethodSubscribe,
		Params: streams,
		ID:     id,
	}
	if err := c.conn.WriteJSON(req); err != nil {
		c.logger.Error("Failed to send subscription", zap.Error(err))
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	c.logger.Info("subscribed", zap.Strings("streams", streams), zap.Int("id", id))
	return nil
}

// ReadMessage blocks until the next message arrives or the connection fails.
func (c *WSClient) ReadMessage() ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	if c.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, err
		}
	}

	_, msg, err := conn.ReadMessage()
	return msg, err
}

// Close sends a close frame and closes the underlying connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}
