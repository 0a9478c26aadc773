package venue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperClient is the simulated-exchange variant used when trading_mode =
// paper (§4.1). It fills market orders at mid +/- slippage_bps, tracks a
// quote-currency balance, and emits identical Order shapes to the live
// client so callers cannot tell the two apart.
type PaperClient struct {
	logger *zap.Logger
	cfg    Config
	live   *PerpFuturesClient // used only for market data (REST + WS)

	mu      sync.Mutex
	balance decimal.Decimal
	orders  map[string]*types.Order
}

// NewPaperClient builds a paper-trading client backed by a real client for
// market data (it never routes orders through it).
func NewPaperClient(logger *zap.Logger, cfg Config, marketData *PerpFuturesClient) *PaperClient {
	return &PaperClient{
		logger:  logger.Named("paper-venue"),
		cfg:     cfg,
		live:    marketData,
		balance: cfg.PaperStartBalance,
		orders:  make(map[string]*types.Order),
	}
}

func (p *PaperClient) Start(ctx context.Context) error { return p.live.Start(ctx) }
func (p *PaperClient) Stop() error                     { return p.live.Stop() }

func (p *PaperClient) FetchMarkets(ctx context.Context) ([]string, error) {
	return p.live.FetchMarkets(ctx)
}
func (p *PaperClient) FetchOHLCV(ctx context.Context, symbol, tf string, limit int, since *time.Time) ([]types.Candle, error) {
	return p.live.FetchOHLCV(ctx, symbol, tf, limit, since)
}
func (p *PaperClient) FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error) {
	return p.live.FetchOrderBook(ctx, symbol)
}
func (p *PaperClient) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return p.live.FetchOpenInterest(ctx, symbol)
}
func (p *PaperClient) FetchBalance(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *PaperClient) SubscribeTrades(symbol string, cb TradeCallback) error {
	return p.live.SubscribeTrades(symbol, cb)
}
func (p *PaperClient) SubscribeBook(symbol string, cb BookCallback) error {
	return p.live.SubscribeBook(symbol, cb)
}
func (p *PaperClient) Unsubscribe(symbol string) error { return p.live.Unsubscribe(symbol) }

// PlaceOrder simulates a fill. Market orders fill immediately at
// mid +/- slippage_bps (buy pays up, sell receives down); limit orders
// are accepted resting at their limit price (no partial-book matching
// simulation).
func (p *PaperClient) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := *order
	out.ID = uuid.NewString()
	out.ExchangeID = out.ID
	out.CreatedAt = time.Now()

	if order.Type == types.OrderTypeMarket {
		book, err := p.live.FetchOrderBook(ctx, order.Symbol)
		if err != nil {
			return nil, err
		}
		mid := book.Mid()
		slip := mid.Mul(p.cfg.PaperSlippageBps).Div(decimal.NewFromInt(10000))
		fillPrice := mid
		if order.Side == types.OrderSideBuy {
			fillPrice = mid.Add(slip)
		} else {
			fillPrice = mid.Sub(slip)
		}

		now := time.Now()
		out.Status = types.OrderStatusFilled
		out.FilledQty = order.Qty
		out.AvgFillPrice = fillPrice
		out.FilledAt = &now

		notional := fillPrice.Mul(order.Qty)
		if order.Side == types.OrderSideBuy {
			p.balance = p.balance.Sub(notional)
		} else {
			p.balance = p.balance.Add(notional)
		}
	} else {
		out.Status = types.OrderStatusOpen
	}

	p.orders[out.ID] = &out
	result := out
	return &result, nil
}

func (p *PaperClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return nil
	}
	o.Status = types.OrderStatusCancelled
	return nil
}
