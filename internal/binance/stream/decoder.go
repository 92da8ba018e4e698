package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cryptoconverter/internal/binance/memorystore"
	"cryptoconverter/pkg/binance"

	"github.com/shopspring/decimal"
)

// Outcome classifies a decoded message.
type Outcome int

const (
	// OutcomeEmpty is a well-formed message with no ticker payload
	// (subscription acks, messages without "data").
	OutcomeEmpty Outcome = iota
	// OutcomeTicks means at least one entry was decoded or rejected.
	OutcomeTicks
	// OutcomeMalformed means the message was not valid JSON of the expected shape.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeTicks:
		return "ticks"
	case OutcomeMalformed:
		return "malformed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Rejection describes one payload entry that failed validation.
type Rejection struct {
	Index  int
	Reason string
}

// Batch is the result of decoding one message. Invalid entries are listed in
// Rejected and do not affect their siblings.
type Batch struct {
	Outcome  Outcome
	Ticks    []memorystore.Tick
	Rejected []Rejection
	Err      error // *DecodeError when Outcome is OutcomeMalformed
}

// DecodeError reports a message that could not be parsed at all.
type DecodeError struct {
	Payload string // truncated copy of the offending message
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode feed message %q: %v", e.Payload, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const maxPayloadInError = 256

func malformed(msg []byte, err error) Batch {
	p := msg
	if len(p) > maxPayloadInError {
		p = p[:maxPayloadInError]
	}
	return Batch{Outcome: OutcomeMalformed, Err: &DecodeError{Payload: string(p), Err: err}}
}

// field names of one entry, per payload flavour
type entrySchema struct {
	symbol, price, eventTime string
}

var (
	streamSchema   = entrySchema{symbol: "s", price: "c", eventTime: "E"}
	snapshotSchema = entrySchema{symbol: "symbol", price: "lastPrice", eventTime: "closeTime"}
)

// Decode parses one combined-stream message. "data" may be an array (as on
// !ticker@arr) or a single object (per-symbol ticker streams).
func Decode(msg []byte) Batch {
	var env binance.StreamEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return malformed(msg, err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Batch{Outcome: OutcomeEmpty}
	}

	entries, err := splitEntries(data)
	if err != nil {
		return malformed(msg, err)
	}
	return decodeEntries(entries, streamSchema)
}

// DecodeSnapshot parses the body of GET /api/v3/ticker/24hr, a JSON array of
// rows (or one object when a single symbol is requested).
func DecodeSnapshot(body []byte) Batch {
	data := bytes.TrimSpace(body)
	if !json.Valid(data) {
		return malformed(body, errors.New("invalid JSON"))
	}

	entries, err := splitEntries(data)
	if err != nil {
		return malformed(body, err)
	}
	return decodeEntries(entries, snapshotSchema)
}

func splitEntries(data []byte) ([]json.RawMessage, error) {
	switch data[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		return []json.RawMessage{data}, nil
	default:
		return nil, fmt.Errorf("payload must be an array or object, got %.20s", data)
	}
}

func decodeEntries(entries []json.RawMessage, schema entrySchema) Batch {
	batch := Batch{Outcome: OutcomeTicks, Ticks: make([]memorystore.Tick, 0, len(entries))}
	if len(entries) == 0 {
		batch.Outcome = OutcomeEmpty
		return batch
	}

	for i, raw := range entries {
		tick, err := decodeEntry(raw, schema)
		if err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		batch.Ticks = append(batch.Ticks, tick)
	}
	return batch
}

func decodeEntry(raw json.RawMessage, schema entrySchema) (memorystore.Tick, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return memorystore.Tick{}, fmt.Errorf("entry is not an object: %w", err)
	}

	var symbol string
	if err := requireField(fields, schema.symbol, &symbol); err != nil {
		return memorystore.Tick{}, err
	}
	symbol = strings.ToLower(symbol)
	if symbol == "" {
		return memorystore.Tick{}, fmt.Errorf("field %q is empty", schema.symbol)
	}

	var price string
	if err := requireField(fields, schema.price, &price); err != nil {
		return memorystore.Tick{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return memorystore.Tick{}, fmt.Errorf("field %q is not a decimal: %q", schema.price, price)
	}
	if !d.IsPositive() {
		return memorystore.Tick{}, fmt.Errorf("field %q is not positive: %q", schema.price, price)
	}

	var eventTime int64
	if err := requireField(fields, schema.eventTime, &eventTime); err != nil {
		return memorystore.Tick{}, err
	}

	return memorystore.Tick{
		Symbol:    symbol,
		Price:     price,
		EventTime: eventTime,
		Raw:       append(json.RawMessage(nil), raw...),
	}, nil
}

// requireField decodes fields[name] into dst, rejecting missing keys, nulls
// and type mismatches (e.g. a numeric price or a string timestamp).
func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	v, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return fmt.Errorf("field %q is missing", name)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %q has wrong type: %w", name, err)
	}
	return nil
}
