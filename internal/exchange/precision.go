package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// quantize rounds d to places fractional digits, half to even.
func quantize(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundBank(places)
}

// roundSignificant rounds d to digits significant digits, half to even.
func roundSignificant(d decimal.Decimal, digits int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	// exponent of the leading digit: 43192.1 -> 4, 0.0231 -> -2
	adjusted := int32(d.NumDigits()) + d.Exponent() - 1
	return d.RoundBank(digits - 1 - adjusted)
}

// render formats d with places fractional digits, then drops trailing zeros
// and a trailing point.
func render(d decimal.Decimal, places int32) string {
	return trimZeros(d.RoundBank(places).StringFixed(places))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
