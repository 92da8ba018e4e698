package binance

import "encoding/json"

// SubscribeRequest is the control message sent right after connecting.
//
//	{"method":"SUBSCRIBE","params":["!ticker@arr"],"id":1}
type SubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// StreamEnvelope wraps every message on the combined-stream endpoint.
// Control responses ({"result":null,"id":1}) carry no data.
type StreamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// APIError is the error body returned by the REST API.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
