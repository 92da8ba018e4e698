package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ticker24hr fetches 24h ticker statistics and returns the raw JSON array body.
// An empty symbols list requests every symbol on the exchange.
func (c *RESTClient) Ticker24hr(ctx context.Context, symbols []string) ([]byte, error) {
	endpoint := c.baseURL + ticker24hrPath
	if len(symbols) > 0 {
		upper := make([]string, len(symbols))
		for i, s := range symbols {
			upper[i] = strings.ToUpper(s)
		}
		list, err := json.Marshal(upper)
		if err != nil {
			return nil, fmt.Errorf("encode symbols: %w", err)
		}
		endpoint += "?symbols=" + url.QueryEscape(string(list))
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("binance error %d: %s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("binance error: status %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
