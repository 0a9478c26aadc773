// Package feed assembles the per-cycle market-data universe the scanner
// evaluates: OHLCV candles and derived indicators (ATR, Bollinger width)
// pulled from the venue client, joined with the live trade-flow,
// order-book, and activity metrics the feature trackers maintain from
// the venue's websocket streams. Polling shape is adapted from the
// teacher's MarketDataService subscribe/poll loop.
package feed

import (
	"context"

	"github.com/il101/breakout-engine/internal/features/orderbook"
	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config tunes candle history depth and the BTC reference symbol used
// for the scanner's correlation filter.
type Config struct {
	Symbols        []string
	BTCSymbol      string
	CandleInterval string
	CandleLimit    int
	ATRPeriod      int
	BBPeriod       int
}

// DefaultConfig mirrors a typical 5m/14-period ATR setup.
func DefaultConfig(symbols []string) Config {
	return Config{
		Symbols:        symbols,
		BTCSymbol:      "BTCUSDT",
		CandleInterval: "5m",
		CandleLimit:    100,
		ATRPeriod:      14,
		BBPeriod:       20,
	}
}

// Universe assembles types.MarketData for every tracked symbol each
// cycle. It satisfies orchestrator.MarketDataSource.
type Universe struct {
	logger *zap.Logger
	cfg    Config
	client venue.Client
	trades *trades.Aggregator
	book   *orderbook.Manager
}

// New builds a Universe over an already-subscribed venue client and the
// feature trackers it feeds.
func New(logger *zap.Logger, cfg Config, client venue.Client, tr *trades.Aggregator, book *orderbook.Manager) *Universe {
	return &Universe{
		logger: logger.Named("feed"),
		cfg:    cfg,
		client: client,
		trades: tr,
		book:   book,
	}
}

// Markets fetches fresh candles for every tracked symbol and assembles
// the scanner's input slice, plus the BTC reference market used for the
// correlation filter.
func (u *Universe) Markets(ctx context.Context) ([]types.MarketData, *types.MarketData, error) {
	out := make([]types.MarketData, 0, len(u.cfg.Symbols))

	btcCandles, err := u.fetchCandles(ctx, u.cfg.BTCSymbol)
	if err != nil {
		u.logger.Warn("btc reference candle fetch failed", zap.Error(err))
	}
	btcCloses := closes(btcCandles)

	var btcMarket *types.MarketData
	for _, symbol := range u.cfg.Symbols {
		md, err := u.buildMarket(ctx, symbol, btcCloses)
		if err != nil {
			u.logger.Warn("market assembly failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		out = append(out, md)
		if symbol == u.cfg.BTCSymbol {
			btcMarket = &out[len(out)-1]
		}
	}
	return out, btcMarket, nil
}

func (u *Universe) fetchCandles(ctx context.Context, symbol string) ([]types.Candle, error) {
	return u.client.FetchOHLCV(ctx, symbol, u.cfg.CandleInterval, u.cfg.CandleLimit, nil)
}

func (u *Universe) buildMarket(ctx context.Context, symbol string, btcCloses []decimal.Decimal) (types.MarketData, error) {
	candles, err := u.fetchCandles(ctx, symbol)
	if err != nil {
		return types.MarketData{}, err
	}

	oi, err := u.client.FetchOpenInterest(ctx, symbol)
	if err != nil {
		oi = decimal.Zero
	}

	md := types.MarketData{
		Symbol:         symbol,
		Candles5m:      candles,
		OIUSD:          &oi,
		BTCCorrelation: pearson(closes(candles), btcCloses),
	}

	if len(candles) > 0 {
		last := candles[len(candles)-1]
		md.Price = last.Close
		md.TsMs = last.TsMs
		md.Volume24hUSD = sumVolumeUSD(candles)
	}

	md.ATR5m = averageTrueRange(candles, u.cfg.ATRPeriod)
	md.ATR15m = md.ATR5m.Mul(decimal.NewFromInt(3)) // 3x5m bars approximates a 15m ATR without refetching
	md.BBWidthPct = bollingerWidthPct(candles, u.cfg.BBPeriod)

	if m, ok := u.trades.GetMetrics(symbol); ok {
		md.TradesPerMinute = m.TPM60s
	}
	if snap, ok := u.book.GetSnapshot(symbol); ok {
		md.L2Depth = buildL2Depth(snap, u.book, symbol)
	}

	return md, nil
}

func closes(candles []types.Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func sumVolumeUSD(candles []types.Candle) decimal.Decimal {
	total := decimal.Zero
	for _, c := range candles {
		total = total.Add(c.Volume.Mul(c.Close))
	}
	return total
}

// averageTrueRange returns the simple mean of the true range over the
// trailing period bars (no Wilder smoothing).
func averageTrueRange(candles []types.Candle, period int) decimal.Decimal {
	if len(candles) < 2 {
		return decimal.Zero
	}
	start := 1
	if len(candles) > period+1 {
		start = len(candles) - period
	}

	sum := decimal.Zero
	count := 0
	for i := start; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		high, low := candles[i].High, candles[i].Low
		tr := decimal.Max(high.Sub(low), high.Sub(prevClose).Abs(), low.Sub(prevClose).Abs())
		sum = sum.Add(tr)
		count++
	}
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}

// bollingerWidthPct computes (upper-lower)/middle over a trailing SMA
// and 2-stddev band, expressed as a percentage of the middle band.
func bollingerWidthPct(candles []types.Candle, period int) decimal.Decimal {
	if len(candles) < period || period <= 0 {
		return decimal.Zero
	}
	window := candles[len(candles)-period:]

	sum := decimal.Zero
	for _, c := range window {
		sum = sum.Add(c.Close)
	}
	mean := sum.Div(decimal.NewFromInt(int64(period)))

	variance := decimal.Zero
	for _, c := range window {
		diff := c.Close.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(period)))
	stdDev := sqrtDecimal(variance)

	if mean.IsZero() {
		return decimal.Zero
	}
	upper := mean.Add(stdDev.Mul(decimal.NewFromInt(2)))
	lower := mean.Sub(stdDev.Mul(decimal.NewFromInt(2)))
	return upper.Sub(lower).Div(mean).Mul(decimal.NewFromInt(100))
}

// pearson computes the Pearson correlation coefficient between two
// equal-length-truncated close series.
func pearson(a, b []decimal.Decimal) decimal.Decimal {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return decimal.Zero
	}
	a, b = a[len(a)-n:], b[len(b)-n:]

	meanA, meanB := mean(a), mean(b)

	var cov, varA, varB decimal.Decimal
	for i := 0; i < n; i++ {
		da := a[i].Sub(meanA)
		db := b[i].Sub(meanB)
		cov = cov.Add(da.Mul(db))
		varA = varA.Add(da.Mul(da))
		varB = varB.Add(db.Mul(db))
	}
	denom := sqrtDecimal(varA.Mul(varB))
	if denom.IsZero() {
		return decimal.Zero
	}
	return cov.Div(denom)
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// sqrtDecimal uses float64 round-tripping; acceptable for the
// dimensionless indicator ratios computed here (never on money amounts).
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	if f <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(sqrtFloat(f))
}

func sqrtFloat(f float64) float64 {
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func buildL2Depth(snap *types.OrderBookSnapshot, book *orderbook.Manager, symbol string) *types.L2Depth {
	// GetAggregatedDepth returns base-asset size; valued at mid for the USD fields.
	depthMid := snap.Mid()
	bid05 := book.GetAggregatedDepth(symbol, types.OrderSideBuy, decimal.NewFromFloat(50)).Mul(depthMid)
	ask05 := book.GetAggregatedDepth(symbol, types.OrderSideSell, decimal.NewFromFloat(50)).Mul(depthMid)
	bid03 := book.GetAggregatedDepth(symbol, types.OrderSideBuy, decimal.NewFromFloat(30)).Mul(depthMid)
	ask03 := book.GetAggregatedDepth(symbol, types.OrderSideSell, decimal.NewFromFloat(30)).Mul(depthMid)

	var spreadBps decimal.Decimal
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		bestBid, bestAsk := snap.Bids[0].Price, snap.Asks[0].Price
		mid := bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
		if !mid.IsZero() {
			spreadBps = bestAsk.Sub(bestBid).Div(mid).Mul(decimal.NewFromInt(10000))
		}
	}

	return &types.L2Depth{
		BidUSD05Pct: bid05,
		AskUSD05Pct: ask05,
		BidUSD03Pct: bid03,
		AskUSD03Pct: ask03,
		SpreadBps:   spreadBps,
		Imbalance:   book.GetImbalance(symbol, decimal.NewFromFloat(5)),
	}
}
