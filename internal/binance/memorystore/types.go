package memorystore

import (
	"encoding/json"
	"time"
)

// Tick is one price observation for a symbol, as decoded from the Binance feed.
// Values are immutable once created; the cache stores and returns copies.
type Tick struct {
	Symbol    string          `json:"ticker_name"` // lowercased pair, e.g. "btcusdt"
	Price     string          `json:"price"`       // decimal string exactly as received
	EventTime int64           `json:"timestamp"`   // upstream event time (ms since epoch)
	Raw       json.RawMessage `json:"-"`           // entry payload kept for the audit record
}

// EventAt returns the event time as a time.Time.
func (t Tick) EventAt() time.Time {
	return time.UnixMilli(t.EventTime)
}
