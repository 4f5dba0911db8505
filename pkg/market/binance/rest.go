package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client wraps REST access to Binance public market data.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Testnet    bool
}

// NewClient builds a REST client; use Testnet to switch base URLs.
func NewClient(apiKey string, testnet bool) *Client {
	base := "https://api.binance.com"
	if testnet {
		base = "https://testnet.binance.vision"
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    base,
		Testnet:    testnet,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "/api/v3/ping", nil)
	return err
}

// GetTickerPrice fetches the latest traded price for symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (TickerPrice, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.do(ctx, "/api/v3/ticker/price", params)
	if err != nil {
		return TickerPrice{}, err
	}
	var raw struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return TickerPrice{}, err
	}
	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return TickerPrice{}, fmt.Errorf("parse price %q: %w", raw.Price, err)
	}
	return TickerPrice{Symbol: raw.Symbol, Price: price}, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if params != nil {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.APIKey)
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("binance %s status %d: %s", path, res.StatusCode, string(body))
	}
	return body, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		i, _ := t.Int64()
		return i
	default:
		return 0
	}
}
