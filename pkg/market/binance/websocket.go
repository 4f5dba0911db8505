package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamClient manages lightweight streaming from Binance public websockets.
type StreamClient struct {
	StreamURL string
	dialer    *websocket.Dialer
}

// NewStreamClient builds a websocket client; testnet toggles the host.
func NewStreamClient(testnet bool) *StreamClient {
	host := "stream.binance.com:9443"
	if testnet {
		host = "testnet.binance.vision"
	}
	return &StreamClient{
		StreamURL: (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		dialer:    websocket.DefaultDialer,
	}
}

// SubscribeTrades subscribes to the trade stream for symbol and emits parsed
// trades until ctx is done or the connection drops. The returned stop
// function closes the connection and the channel.
func (c *StreamClient) SubscribeTrades(ctx context.Context, symbol string) (<-chan Trade, func(), error) {
	// Binance requires lowercase symbols for WebSocket streams
	u := fmt.Sprintf("%s/%s@trade", c.StreamURL, strings.ToLower(symbol))

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial binance ws trades: %w", err)
	}

	out := make(chan Trade, 100)
	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			// Ignore errors; connection may already be closed.
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer stop()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
					return
				default:
				}
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("binance ws trade read error: %v", err)
				}
				return
			}

			parsed, err := parseTradeMessage(msg)
			if err != nil {
				log.Printf("binance ws trade parse error: %v", err)
				continue
			}
			select {
			case out <- parsed:
			case <-done:
				return
			}
		}
	}()

	return out, stop, nil
}

func parseTradeMessage(msg []byte) (Trade, error) {
	var raw struct {
		Symbol    string `json:"s"`
		Price     any    `json:"p"`
		Qty       any    `json:"q"`
		TradeTime any    `json:"T"`
		BuyerIsMM bool   `json:"m"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Trade{}, err
	}
	if raw.Symbol == "" {
		return Trade{}, fmt.Errorf("not a trade message: %s", msg)
	}
	return Trade{
		Symbol:       raw.Symbol,
		Price:        toFloat(raw.Price),
		Qty:          toFloat(raw.Qty),
		Time:         toInt64(raw.TradeTime),
		IsBuyerMaker: raw.BuyerIsMM,
	}, nil
}
