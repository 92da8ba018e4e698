package exchange

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrTickerNotFound means neither the cache nor the fast store holds the pair.
var ErrTickerNotFound = errors.New("no valid ticker available")

// ValidationError rejects a request before any price lookup.
type ValidationError struct {
	Field string // empty for request-level rules
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

var (
	ErrBothAmounts = &ValidationError{Msg: "amount_from and amount_to cannot be set together"}
	ErrNoAmount    = &ValidationError{Msg: "amount_from or amount_to should be passed"}
)

// StaleTickerError means the freshest known tick is older than the expiration window.
type StaleTickerError struct {
	Symbol    string
	EventTime time.Time
	Age       time.Duration
	Window    time.Duration
}

func (e *StaleTickerError) Error() string {
	return fmt.Sprintf("ticker %s is too old for exchange: age %s, window %s",
		e.Symbol, e.Age.Truncate(time.Millisecond), e.Window)
}

// StatusCode maps a Convert error to the HTTP status the API layer should return.
func StatusCode(err error) int {
	var (
		validationErr *ValidationError
		staleErr      *StaleTickerError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &staleErr), errors.Is(err, ErrTickerNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
