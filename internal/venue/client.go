// Package venue implements the perpetual-futures venue client (C1): REST +
// WebSocket market data, order placement, a paper-trading variant, and the
// rate limiter and reconnect/backoff machinery they share.
package venue

import (
	"context"
	"time"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// TradeCallback is invoked for every normalised public trade.
type TradeCallback func(symbol string, trade types.Trade)

// BookCallback is invoked for every order-book snapshot or delta.
type BookCallback func(symbol string, msg BookMessage)

// BookMessage is the normalised order-book wire message (§6): either a
// full snapshot or an incremental delta, tagged by Type and carrying a
// monotonic UpdateID for gap detection.
type BookMessage struct {
	Type     BookMessageType
	UpdateID int64
	Bids     []types.OrderBookLevel
	Asks     []types.OrderBookLevel
	TsMs     int64
}

// BookMessageType distinguishes a full snapshot from an incremental delta.
type BookMessageType string

const (
	BookMessageSnapshot BookMessageType = "snapshot"
	BookMessageDelta    BookMessageType = "delta"
)

// Client is the venue-neutral interface consumed by the rest of the
// engine. A live PerpFuturesClient and a PaperClient both satisfy it, so
// the orchestra and position manager never know which mode they're in.
type Client interface {
	// Markets / REST.
	FetchMarkets(ctx context.Context) ([]string, error)
	FetchOHLCV(ctx context.Context, symbol string, tf string, limit int, since *time.Time) ([]types.Candle, error)
	FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error)
	FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchBalance(ctx context.Context) (decimal.Decimal, error)

	// Trading.
	PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// WebSocket subscriptions. Callbacks fire on the client's own
	// goroutines; consumers must not block in them.
	SubscribeTrades(symbol string, cb TradeCallback) error
	SubscribeBook(symbol string, cb BookCallback) error
	Unsubscribe(symbol string) error

	// Lifecycle.
	Start(ctx context.Context) error
	Stop() error
}

// Config configures either venue-client variant.
type Config struct {
	BaseURL           string
	WSURL             string
	APIKey            string
	APISecret         string
	RateLimitPerSec   float64
	RateLimitBurst    int
	PingInterval      time.Duration
	MaxBackoff        time.Duration
	ResubscribeBatch  int
	PaperSlippageBps  decimal.Decimal
	PaperStartBalance decimal.Decimal
}

// DefaultConfig returns sensible defaults modeled on the teacher's Binance
// adapter defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://fapi.example.com",
		WSURL:             "wss://fstream.example.com/ws",
		RateLimitPerSec:   20,
		RateLimitBurst:    40,
		PingInterval:      15 * time.Second,
		MaxBackoff:        60 * time.Second,
		ResubscribeBatch:  10,
		PaperSlippageBps:  decimal.NewFromFloat(2),
		PaperStartBalance: decimal.NewFromInt(10000),
	}
}
