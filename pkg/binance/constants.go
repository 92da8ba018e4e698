package binance

// Stream names and request methods used on the combined-stream websocket endpoint.
const (
	// StreamAllMarketTickers carries 24h rolling ticker statistics for every symbol,
	// pushed as one array per update.
	StreamAllMarketTickers = "!ticker@arr"

	MethodSubscribe = "SUBSCRIBE"

	DefaultStreamURL = "wss://stream.binance.com:9443/stream?streams="
	DefaultRESTURL   = "https://api.binance.com"

	// ticker24hrPath returns 24h statistics; lastPrice/closeTime match the stream's c/E.
	ticker24hrPath = "/api/v3/ticker/24hr"
)
