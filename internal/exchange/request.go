package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Request asks to convert between two currencies. Exactly one of AmountFrom
// and AmountTo must be set.
type Request struct {
	From       string           `json:"from"`
	To         string           `json:"to"`
	AmountFrom *decimal.Decimal `json:"amount_from,omitempty"`
	AmountTo   *decimal.Decimal `json:"amount_to,omitempty"`
}

// Pair is the ticker symbol the request is priced from, e.g. "btc"+"usdt".
func (r Request) Pair() string {
	return strings.ToLower(r.From + r.To)
}

// Validate checks the request shape. A zero amount counts as not set.
func (r Request) Validate(maxPlaces int) error {
	if strings.TrimSpace(r.From) == "" {
		return &ValidationError{Field: "from", Msg: "is required"}
	}
	if strings.TrimSpace(r.To) == "" {
		return &ValidationError{Field: "to", Msg: "is required"}
	}

	hasFrom := r.AmountFrom != nil && !r.AmountFrom.IsZero()
	hasTo := r.AmountTo != nil && !r.AmountTo.IsZero()
	switch {
	case hasFrom && hasTo:
		return ErrBothAmounts
	case !hasFrom && !hasTo:
		return ErrNoAmount
	case hasFrom:
		return validateAmount("amount_from", *r.AmountFrom, maxPlaces)
	default:
		return validateAmount("amount_to", *r.AmountTo, maxPlaces)
	}
}

func validateAmount(field string, d decimal.Decimal, maxPlaces int) error {
	if !d.IsPositive() {
		return &ValidationError{Field: field, Msg: "should be greater than 0"}
	}
	if places := fractionalDigits(d); places > maxPlaces {
		return &ValidationError{
			Field: field,
			Msg:   fmt.Sprintf("Decimal input should have no more than %d decimal places", maxPlaces),
		}
	}
	return nil
}

// fractionalDigits counts significant digits after the point; "1000.0" has none.
func fractionalDigits(d decimal.Decimal) int {
	s := d.String() // String drops trailing zeros
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
