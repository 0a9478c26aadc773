package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/il101/breakout-engine/internal/errs"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PerpFuturesClient is the live REST + WebSocket implementation of Client
// for a single perpetual-futures venue.
type PerpFuturesClient struct {
	logger      *zap.Logger
	cfg         Config
	httpClient  *http.Client
	rateLimiter *RateLimiter

	ws *wsManager
}

// NewPerpFuturesClient builds a live venue client.
func NewPerpFuturesClient(logger *zap.Logger, cfg Config) *PerpFuturesClient {
	c := &PerpFuturesClient{
		logger:      logger.Named("venue"),
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
	}
	c.ws = newWSManager(c.logger, cfg)
	return c
}

func (c *PerpFuturesClient) Start(ctx context.Context) error {
	return c.ws.start(ctx)
}

func (c *PerpFuturesClient) Stop() error {
	return c.ws.stop()
}

func (c *PerpFuturesClient) SubscribeTrades(symbol string, cb TradeCallback) error {
	return c.ws.subscribeTrades(symbol, cb)
}

func (c *PerpFuturesClient) SubscribeBook(symbol string, cb BookCallback) error {
	return c.ws.subscribeBook(symbol, cb)
}

func (c *PerpFuturesClient) Unsubscribe(symbol string) error {
	return c.ws.unsubscribe(symbol)
}

func (c *PerpFuturesClient) classifyHTTPError(err error) error {
	if err == nil {
		return nil
	}
	return errs.Classify(errs.ClassTransient, fmt.Errorf("%w: %v", errs.ErrNetwork, err))
}

func (c *PerpFuturesClient) FetchMarkets(ctx context.Context) ([]string, error) {
	if err := c.rateLimiter.Wait(ctx, "markets"); err != nil {
		return nil, err
	}
	var out []struct {
		Symbol string `json:"symbol"`
	}
	if err := c.getJSON(ctx, "/fapi/v1/exchangeInfo", nil, &out); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(out))
	for _, m := range out {
		symbols = append(symbols, m.Symbol)
	}
	return symbols, nil
}

func (c *PerpFuturesClient) FetchOHLCV(ctx context.Context, symbol, tf string, limit int, since *time.Time) ([]types.Candle, error) {
	if err := c.rateLimiter.Wait(ctx, "ohlcv"); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", tf)
	q.Set("limit", strconv.Itoa(limit))
	if since != nil {
		q.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}

	var raw [][]any
	if err := c.getJSON(ctx, "/fapi/v1/klines", q, &raw); err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		ts, _ := row[0].(float64)
		candles = append(candles, types.Candle{
			TsMs:   int64(ts),
			Open:   toDecimal(row[1]),
			High:   toDecimal(row[2]),
			Low:    toDecimal(row[3]),
			Close:  toDecimal(row[4]),
			Volume: toDecimal(row[5]),
		})
	}
	return candles, nil
}

func toDecimal(v any) decimal.Decimal {
	switch s := v.(type) {
	case string:
		d, _ := decimal.NewFromString(s)
		return d
	case float64:
		return decimal.NewFromFloat(s)
	default:
		return decimal.Zero
	}
}

func (c *PerpFuturesClient) FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error) {
	if err := c.rateLimiter.Wait(ctx, "depth"); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", "100")

	var raw struct {
		LastUpdateID int64      `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	}
	if err := c.getJSON(ctx, "/fapi/v1/depth", q, &raw); err != nil {
		return nil, err
	}

	return &types.OrderBookSnapshot{
		Symbol: symbol,
		TsMs:   time.Now().UnixMilli(),
		Bids:   parseLevels(raw.Bids),
		Asks:   parseLevels(raw.Asks),
	}, nil
}

func parseLevels(rows [][]string) []types.OrderBookLevel {
	out := make([]types.OrderBookLevel, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		price, _ := decimal.NewFromString(r[0])
		size, _ := decimal.NewFromString(r[1])
		out = append(out, types.OrderBookLevel{Price: price, Size: size})
	}
	return out
}

func (c *PerpFuturesClient) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := c.rateLimiter.Wait(ctx, "oi"); err != nil {
		return decimal.Zero, err
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	var raw struct {
		OpenInterest string `json:"openInterest"`
	}
	if err := c.getJSON(ctx, "/fapi/v1/openInterest", q, &raw); err != nil {
		return decimal.Zero, err
	}
	d, _ := decimal.NewFromString(raw.OpenInterest)
	return d, nil
}

func (c *PerpFuturesClient) FetchBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := c.rateLimiter.Wait(ctx, "balance"); err != nil {
		return decimal.Zero, err
	}
	var raw []struct {
		Asset  string `json:"asset"`
		Free   string `json:"availableBalance"`
	}
	if err := c.signedGetJSON(ctx, "/fapi/v2/balance", nil, &raw); err != nil {
		return decimal.Zero, err
	}
	for _, b := range raw {
		if b.Asset == "USDT" {
			d, _ := decimal.NewFromString(b.Free)
			return d, nil
		}
	}
	return decimal.Zero, nil
}

func (c *PerpFuturesClient) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	if err := c.rateLimiter.Wait(ctx, "order"); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", string(order.Type))
	params.Set("quantity", order.Qty.String())
	if order.Type == types.OrderTypeLimit {
		params.Set("price", order.Price.String())
		params.Set("timeInForce", "GTC")
	}

	var raw struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		AvgPrice    string `json:"avgPrice"`
	}
	if err := c.signedPostJSON(ctx, "/fapi/v1/order", params, &raw); err != nil {
		return nil, err
	}

	filled, _ := decimal.NewFromString(raw.ExecutedQty)
	avg, _ := decimal.NewFromString(raw.AvgPrice)
	out := *order
	out.ExchangeID = strconv.FormatInt(raw.OrderID, 10)
	out.Status = mapOrderStatus(raw.Status)
	out.FilledQty = filled
	out.AvgFillPrice = avg
	return &out, nil
}

func mapOrderStatus(venueStatus string) types.OrderStatus {
	switch venueStatus {
	case "NEW":
		return types.OrderStatusOpen
	case "FILLED":
		return types.OrderStatusFilled
	case "CANCELED", "EXPIRED":
		return types.OrderStatusCancelled
	case "REJECTED":
		return types.OrderStatusRejected
	default:
		return types.OrderStatusPending
	}
}

func (c *PerpFuturesClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := c.rateLimiter.Wait(ctx, "cancel"); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	var raw map[string]any
	return c.signedDeleteJSON(ctx, "/fapi/v1/order", params, &raw)
}

func (c *PerpFuturesClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if q != nil {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *PerpFuturesClient) signedGetJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.signedRequest(ctx, http.MethodGet, path, q, out)
}

func (c *PerpFuturesClient) signedPostJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.signedRequest(ctx, http.MethodPost, path, q, out)
}

func (c *PerpFuturesClient) signedDeleteJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.signedRequest(ctx, http.MethodDelete, path, q, out)
}

func (c *PerpFuturesClient) signedRequest(ctx context.Context, method, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(q.Encode()))
	q.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	u := c.cfg.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	return c.do(req, out)
}

func (c *PerpFuturesClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyHTTPError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classifyHTTPError(err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusTooManyRequests:
		return errs.Classify(errs.ClassTransient, errs.ErrRateLimitExceeded)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.Classify(errs.ClassValidation, fmt.Errorf("%w: %s", errs.ErrAuth, body))
	case http.StatusBadRequest:
		return errs.Classify(errs.ClassValidation, fmt.Errorf("%w: %s", errs.ErrBadRequest, body))
	default:
		return errs.Classify(errs.ClassTransient, fmt.Errorf("%w: status %d: %s", errs.ErrNetwork, resp.StatusCode, body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.Classify(errs.ClassProtocol, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
