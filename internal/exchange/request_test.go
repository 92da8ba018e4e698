package exchange

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestRequestValidate
func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantField string
	}{
		{name: "amount_from", body: `{"from":"btc","to":"usdt","amount_from":1}`},
		{name: "amount_to as string", body: `{"from":"btc","to":"usdt","amount_to":"1000.0"}`},
		{name: "six places", body: `{"from":"btc","to":"usdt","amount_from":0.110002}`},
		{name: "trailing zeros do not count", body: `{"from":"btc","to":"usdt","amount_from":0.1100000000}`},
		{name: "both", body: `{"from":"btc","to":"usdt","amount_from":1,"amount_to":2}`, wantErr: ErrBothAmounts},
		{name: "neither", body: `{"from":"btc","to":"usdt"}`, wantErr: ErrNoAmount},
		{name: "zero counts as absent", body: `{"from":"btc","to":"usdt","amount_from":0}`, wantErr: ErrNoAmount},
		{name: "nulls", body: `{"from":"btc","to":"usdt","amount_from":null,"amount_to":null}`, wantErr: ErrNoAmount},
		{name: "seven places", body: `{"from":"btc","to":"usdt","amount_from":0.1111111}`, wantField: "amount_from"},
		{name: "seven places to", body: `{"from":"btc","to":"usdt","amount_to":0.1111111}`, wantField: "amount_to"},
		{name: "negative", body: `{"from":"btc","to":"usdt","amount_to":-5}`, wantField: "amount_to"},
		{name: "missing from", body: `{"to":"usdt","amount_to":5}`, wantField: "from"},
		{name: "missing to", body: `{"from":"btc","amount_to":5}`, wantField: "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			err := req.Validate(6)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantField != "":
				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr), "got %v", err)
				assert.Equal(t, tt.wantField, validationErr.Field)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

// go test -v --run TestRequestPair
func TestRequestPair(t *testing.T) {
	assert.Equal(t, "btcusdt", Request{From: "BTC", To: "usdt"}.Pair())
}

// go test -v --run TestRenderAndRounding
func TestRenderAndRounding(t *testing.T) {
	assert.Equal(t, "43192.111223", render(quantize(*dec("43192.111223345675"), 6), 12))
	// half to even on the quantized price
	assert.Equal(t, "0.000002", quantize(*dec("0.0000025"), 6).String())
	assert.Equal(t, "0.000004", quantize(*dec("0.0000035"), 6).String())

	assert.Equal(t, "4751.21861875", roundSignificant(*dec("4751.218618752446"), 12).String())
	assert.Equal(t, "0.0000231523760169", roundSignificant(*dec("0.00002315237601694999"), 12).String())
	assert.Equal(t, "1000", render(*dec("1000.000"), 6))
	assert.Equal(t, "100", trimZeros("100"))
	assert.Equal(t, "2300.5", trimZeros("2300.50000000"))
	assert.Equal(t, "0", render(*dec("0"), 12))
}
