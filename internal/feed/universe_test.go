package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/il101/breakout-engine/internal/features/orderbook"
	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/il101/breakout-engine/internal/feed"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnknownSymbol = errors.New("unknown symbol")

type fakeVenue struct {
	candles map[string][]types.Candle
}

func (f *fakeVenue) FetchMarkets(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeVenue) FetchOHLCV(ctx context.Context, symbol, tf string, limit int, since *time.Time) ([]types.Candle, error) {
	c, ok := f.candles[symbol]
	if !ok {
		return nil, errUnknownSymbol
	}
	return c, nil
}
func (f *fakeVenue) FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error) {
	return nil, nil
}
func (f *fakeVenue) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}
func (f *fakeVenue) FetchBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeVenue) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	return order, nil
}
func (f *fakeVenue) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (f *fakeVenue) SubscribeTrades(symbol string, cb venue.TradeCallback) error   { return nil }
func (f *fakeVenue) SubscribeBook(symbol string, cb venue.BookCallback) error      { return nil }
func (f *fakeVenue) Unsubscribe(symbol string) error                              { return nil }
func (f *fakeVenue) Start(ctx context.Context) error                              { return nil }
func (f *fakeVenue) Stop() error                                                  { return nil }

func candleSeries(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		close := decimal.NewFromFloat(c)
		out[i] = types.Candle{
			TsMs:   int64(i) * 300_000,
			Open:   close,
			High:   close.Add(decimal.NewFromFloat(0.5)),
			Low:    close.Sub(decimal.NewFromFloat(0.5)),
			Close:  close,
			Volume: decimal.NewFromInt(100),
		}
	}
	return out
}

func TestMarketsAssemblesIndicatorsFromCandles(t *testing.T) {
	v := &fakeVenue{candles: map[string][]types.Candle{
		"BTCUSDT": candleSeries([]float64{100, 101, 99, 102, 103, 101, 104, 105, 103, 106, 107, 105, 108, 109, 107, 110, 111, 109, 112, 113}),
		"ETHUSDT": candleSeries([]float64{50, 51, 49, 52, 53, 51, 54, 55, 53, 56, 57, 55, 58, 59, 57, 60, 61, 59, 62, 63}),
	}}
	logger := zap.NewNop()
	u := feed.New(logger, feed.DefaultConfig([]string{"ETHUSDT"}), v, trades.New(logger), orderbook.New(logger))

	markets, btc, err := u.Markets(context.Background())
	require.NoError(t, err)
	require.Nil(t, btc) // BTCUSDT wasn't in the tracked symbol list
	require.Len(t, markets, 1)

	md := markets[0]
	require.Equal(t, "ETHUSDT", md.Symbol)
	require.True(t, md.ATR5m.GreaterThan(decimal.Zero))
	require.True(t, md.ATR15m.GreaterThan(md.ATR5m))
	require.True(t, md.BBWidthPct.GreaterThanOrEqual(decimal.Zero))
	require.True(t, md.BTCCorrelation.GreaterThan(decimal.NewFromFloat(-1)))
	require.True(t, md.BTCCorrelation.LessThanOrEqual(decimal.NewFromInt(1)))
	require.True(t, md.Price.Equal(decimal.NewFromInt(63)))
}

func TestMarketsSkipsSymbolsOnFetchError(t *testing.T) {
	v := &fakeVenue{candles: map[string][]types.Candle{}}
	logger := zap.NewNop()
	u := feed.New(logger, feed.DefaultConfig([]string{"DOESNOTEXIST"}), v, trades.New(logger), orderbook.New(logger))

	markets, _, err := u.Markets(context.Background())
	require.NoError(t, err)
	require.Empty(t, markets) // fetch error for the only tracked symbol is skipped, not fatal
}
