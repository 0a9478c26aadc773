package scanner_test

import (
	"context"
	"testing"

	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/internal/scanner"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func goodMarket(symbol string) types.MarketData {
	candles := make([]types.Candle, 30)
	for i := range candles {
		candles[i] = types.Candle{
			TsMs:   int64(i),
			Open:   decimal.NewFromInt(100),
			High:   decimal.NewFromInt(101),
			Low:    decimal.NewFromInt(99),
			Close:  decimal.NewFromInt(100),
			Volume: decimal.NewFromInt(1000),
		}
	}
	return types.MarketData{
		Symbol:          symbol,
		Price:           decimal.NewFromInt(100),
		Volume24hUSD:    decimal.NewFromInt(10_000_000),
		TradesPerMinute: decimal.NewFromInt(50),
		ATR5m:           decimal.NewFromFloat(2.5),
		ATR15m:          decimal.NewFromFloat(2.5),
		BBWidthPct:      decimal.NewFromFloat(1),
		BTCCorrelation:  decimal.NewFromFloat(0.1),
		Candles5m:       candles,
	}
}

func testScanner() *scanner.Scanner {
	cfg := types.ScannerConfig{
		MaxCandidates: 10,
		BatchSize:     20,
		Concurrency:   2,
		ScoreWeights: types.ScoreWeights{
			VolSurge:        decimal.NewFromFloat(0.25),
			ATRQuality:      decimal.NewFromFloat(0.25),
			Correlation:     decimal.NewFromFloat(0.25),
			TradesPerMinute: decimal.NewFromFloat(0.25),
		},
	}
	liq := types.LiquidityFilterConfig{
		Min24hVolumeUSD:    decimal.NewFromInt(1_000_000),
		MaxSpreadBps:       decimal.NewFromInt(50),
		MinTradesPerMinute: decimal.NewFromInt(1),
	}
	vol := types.VolatilityFilterConfig{
		ATRRangeMin:          decimal.NewFromFloat(0.001),
		ATRRangeMax:          decimal.NewFromFloat(0.1),
		BBWidthPercentileMax: decimal.NewFromFloat(10),
		VolumeSurge1hMin:     decimal.Zero,
		VolumeSurge5mMin:     decimal.Zero,
	}
	return scanner.New(zap.NewNop(), cfg, liq, vol, decimal.NewFromFloat(0.9), levels.DefaultConfig(), nil)
}

func TestScanAssignsSequentialRanks(t *testing.T) {
	s := testScanner()
	markets := []types.MarketData{goodMarket("AAA/USDT"), goodMarket("BBB/USDT")}

	results := s.Scan(context.Background(), markets, nil)
	require.Len(t, results, 2)
	require.Equal(t, 1, results[0].Rank)
	require.Equal(t, 2, results[1].Rank)
}

func TestScanMissingL2DepthSkipsSpreadAndDepthFiltersAsPassed(t *testing.T) {
	s := testScanner()
	md := goodMarket("AAA/USDT") // L2Depth left nil
	results := s.Scan(context.Background(), []types.MarketData{md}, nil)
	require.Len(t, results, 1)

	r := results[0]
	for _, key := range []string{"liquidity.spread_bps", "liquidity.depth_0_5pct", "liquidity.depth_0_3pct"} {
		passed, ok := r.FilterResults[key]
		require.True(t, ok, "%s should be recorded even without L2 depth", key)
		require.True(t, passed, "%s should be skipped-passed, not failed", key)
	}
	require.Equal(t, "no L2 depth", r.FilterDetails["liquidity.spread_bps"].Reason)
	require.True(t, r.PassedAllFilters)
}

func TestScanRespectsBlacklist(t *testing.T) {
	s := testScanner()
	md := goodMarket("BAD/USDT")
	results := scanner.New(zap.NewNop(), types.ScannerConfig{
		MaxCandidates:   10,
		SymbolBlacklist: []string{"BAD/USDT"},
		ScoreWeights:    types.ScoreWeights{},
	}, types.LiquidityFilterConfig{}, types.VolatilityFilterConfig{}, decimal.NewFromInt(1), levels.DefaultConfig(), nil).
		Scan(context.Background(), []types.MarketData{md}, nil)
	require.Empty(t, results)
	_ = s
}
