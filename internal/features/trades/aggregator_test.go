package trades_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOnTradeComputesRollingMetrics(t *testing.T) {
	agg := trades.New(zap.NewNop())

	base := int64(1_700_000_000_000)
	agg.OnTrade("BTC/USDT", types.Trade{TsMs: base, Price: decimal.NewFromInt(100), Amount: decimal.NewFromInt(2), Side: types.OrderSideBuy})
	agg.OnTrade("BTC/USDT", types.Trade{TsMs: base + 1000, Price: decimal.NewFromInt(100), Amount: decimal.NewFromInt(3), Side: types.OrderSideSell})
	m := agg.OnTrade("BTC/USDT", types.Trade{TsMs: base + 2000, Price: decimal.NewFromInt(101), Amount: decimal.NewFromInt(1), Side: types.OrderSideBuy})

	require.Equal(t, "BTC/USDT", m.Symbol)
	require.True(t, m.TPS10s.GreaterThan(decimal.Zero))
	require.True(t, m.VolDelta60s.Equal(decimal.NewFromInt(0))) // 2 + 1 buy - 3 sell = 0
}

func TestOnTradeEvictsOutsideLongWindow(t *testing.T) {
	agg := trades.New(zap.NewNop())
	base := int64(0)

	agg.OnTrade("ETH/USDT", types.Trade{TsMs: base, Price: decimal.NewFromInt(1), Amount: decimal.NewFromInt(5), Side: types.OrderSideBuy})
	m := agg.OnTrade("ETH/USDT", types.Trade{TsMs: base + 301*1000, Price: decimal.NewFromInt(1), Amount: decimal.NewFromInt(1), Side: types.OrderSideBuy})

	require.True(t, m.VolDelta300s.Equal(decimal.NewFromInt(1)), "first trade should have been evicted from the 300s window")
}

func TestGetMetricsUnknownSymbol(t *testing.T) {
	agg := trades.New(zap.NewNop())
	_, ok := agg.GetMetrics("DOES/NOTEXIST")
	require.False(t, ok)
}
