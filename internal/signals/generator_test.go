package signals_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/internal/signals"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func testSignalConfig() types.SignalConfig {
	return types.SignalConfig{
		MomentumEpsilon:          dec(0.001),
		MomentumVolumeMultiplier: dec(1.5),
		MomentumBodyRatioMin:     dec(0.5),
		RetestMaxPierceATR:       dec(0.5),
		RetestPierceTolerance:    dec(0.01),
		L2ImbalanceThreshold:     dec(-1), // effectively disabled for most tests
		VWAPGapMaxATR:            dec(5),
		SLATRMultiplier:          dec(1.0),
	}
}

func flatCandles(n int, price float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = types.Candle{
			TsMs:   int64(i) * 300000,
			Open:   dec(price),
			High:   dec(price + 0.5),
			Low:    dec(price - 0.5),
			Close:  dec(price),
			Volume: dec(100),
		}
	}
	return out
}

func TestGenerateMomentumFiresOnStrongBreakout(t *testing.T) {
	candles := flatCandles(25, 100)
	last := candles[len(candles)-1]
	last.Close = dec(102)
	last.Open = dec(100)
	last.High = dec(102.2)
	last.Low = dec(99.9)
	last.Volume = dec(500)
	candles[len(candles)-1] = last

	md := types.MarketData{
		Symbol:    "BTCUSDT",
		Price:     dec(102),
		ATR5m:     dec(1),
		Candles5m: candles,
		TsMs:      1000,
	}
	scan := types.ScanResult{
		Symbol:     "BTCUSDT",
		Score:      dec(2),
		MarketData: md,
		Levels: []types.TradingLevel{
			{Price: dec(100), Type: types.LevelResistance},
		},
	}

	g := signals.New(zap.NewNop(), diagnostics.NopSink{}, nil, nil, signals.NewBreakoutHistory(0))
	sig := g.Generate(scan, testSignalConfig(), types.StrategyMomentum)

	require.NotNil(t, sig)
	require.Equal(t, types.StrategyMomentum, sig.Strategy)
	require.Equal(t, types.PositionSideLong, sig.Side)
}

func TestGenerateReturnsNilWhenNoLevels(t *testing.T) {
	g := signals.New(zap.NewNop(), diagnostics.NopSink{}, nil, nil, signals.NewBreakoutHistory(0))
	scan := types.ScanResult{MarketData: types.MarketData{Candles5m: flatCandles(25, 100)}}
	sig := g.Generate(scan, testSignalConfig(), types.StrategyMomentum)
	require.Nil(t, sig)
}

func TestGenerateMomentumRejectsWeakBody(t *testing.T) {
	candles := flatCandles(25, 100)
	last := candles[len(candles)-1]
	last.Close = dec(102)
	last.Open = dec(101.9)
	last.High = dec(105)
	last.Low = dec(95)
	last.Volume = dec(500)
	candles[len(candles)-1] = last

	md := types.MarketData{Symbol: "BTCUSDT", ATR5m: dec(1), Candles5m: candles, TsMs: 1000}
	scan := types.ScanResult{
		MarketData: md,
		Score:      dec(1),
		Levels:     []types.TradingLevel{{Price: dec(100), Type: types.LevelResistance}},
	}

	g := signals.New(zap.NewNop(), diagnostics.NopSink{}, nil, nil, signals.NewBreakoutHistory(0))
	sig := g.Generate(scan, testSignalConfig(), types.StrategyMomentum)
	require.Nil(t, sig)
}

// TestGeneratePicksHigherConfidenceWhenBothStrategiesFire exercises the
// both-fire case of §4.8's output selection: two levels are set up so
// momentum breaks out cleanly through one and retest hugs the other,
// and momentum's far larger breakout/volume margins give it the higher
// confidence. Even though retest is the preferred strategy, the
// stronger momentum signal must win.
func TestGeneratePicksHigherConfidenceWhenBothStrategiesFire(t *testing.T) {
	base := flatCandles(20, 95)
	mid := []types.Candle{
		{TsMs: 6000000, Open: dec(101.85), High: dec(101.95), Low: dec(101.8), Close: dec(101.9), Volume: dec(100)},
		{TsMs: 6300000, Open: dec(101.9), High: dec(101.95), Low: dec(101.8), Close: dec(101.88), Volume: dec(100)},
		{TsMs: 6600000, Open: dec(101.88), High: dec(101.95), Low: dec(101.8), Close: dec(101.92), Volume: dec(100)},
		{TsMs: 6900000, Open: dec(101.92), High: dec(101.98), Low: dec(101.85), Close: dec(101.9), Volume: dec(100)},
	}
	last := types.Candle{TsMs: 7200000, Open: dec(101.5), High: dec(102.1), Low: dec(101.4), Close: dec(102), Volume: dec(500)}
	candles := append(append(base, mid...), last)

	md := types.MarketData{Symbol: "BTCUSDT", Price: dec(102), ATR5m: dec(3), Candles5m: candles, TsMs: last.TsMs}
	scan := types.ScanResult{
		Symbol:     "BTCUSDT",
		Score:      dec(1),
		MarketData: md,
		Levels: []types.TradingLevel{
			{Price: dec(95), Type: types.LevelResistance},    // momentum breaks out through this
			{Price: dec(101.9), Type: types.LevelResistance}, // retest hugs this
		},
	}

	history := signals.NewBreakoutHistory(0)
	history.Record("BTCUSDT", signals.BreakoutRecord{TsMs: last.TsMs - 1000, LevelPrice: dec(101.9), Side: types.PositionSideLong})

	g := signals.New(zap.NewNop(), diagnostics.NopSink{}, nil, nil, history)
	sig := g.Generate(scan, testSignalConfig(), types.StrategyRetest)

	require.NotNil(t, sig)
	require.Equal(t, types.StrategyMomentum, sig.Strategy, "higher-confidence momentum signal should win even though retest was preferred")
}

func TestBreakoutHistoryMatchesWithinToleranceAndWindow(t *testing.T) {
	h := signals.NewBreakoutHistory(0)
	h.Record("BTCUSDT", signals.BreakoutRecord{TsMs: 1000, LevelPrice: dec(100), Side: types.PositionSideLong})

	require.True(t, h.HasMatch("BTCUSDT", dec(100.05), types.PositionSideLong, dec(0.01), 2000, 10000))
	require.False(t, h.HasMatch("BTCUSDT", dec(100.05), types.PositionSideShort, dec(0.01), 2000, 10000))
	require.False(t, h.HasMatch("BTCUSDT", dec(100.05), types.PositionSideLong, dec(0.01), 50000, 10000))
}
