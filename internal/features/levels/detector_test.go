package levels_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func candle(ts int64, o, h, l, c string) types.Candle {
	open, _ := decimal.NewFromString(o)
	high, _ := decimal.NewFromString(h)
	low, _ := decimal.NewFromString(l)
	close, _ := decimal.NewFromString(c)
	return types.Candle{TsMs: ts, Open: open, High: high, Low: low, Close: close, Volume: decimal.NewFromInt(100)}
}

func TestDetectFindsRepeatedResistanceTouch(t *testing.T) {
	candles := []types.Candle{
		candle(0, "100", "105", "99", "101"),
		candle(1, "101", "110", "100", "102"), // pivot high near 110
		candle(2, "102", "104", "101", "101"),
		candle(3, "101", "111", "100", "103"), // pivot high near 111
		candle(4, "103", "105", "102", "102"),
	}
	atr := decimal.NewFromInt(2)

	found := levels.Detect(candles, atr, levels.DefaultConfig())
	require.NotEmpty(t, found)

	hasResistance := false
	for _, l := range found {
		if l.Type == types.LevelResistance {
			hasResistance = true
		}
	}
	require.True(t, hasResistance)
}

func TestCheckApproachQualityRejectsSteepSlope(t *testing.T) {
	bars := []types.Candle{
		candle(0, "100", "101", "99", "100"),
		candle(1, "100", "101", "99", "120"),
	}
	q := levels.CheckApproachQuality(bars, levels.DefaultConfig())
	require.False(t, q.Valid)
	require.Equal(t, "slope too steep", q.Reason)
}

func TestCheckApproachQualityTooFewBars(t *testing.T) {
	q := levels.CheckApproachQuality([]types.Candle{candle(0, "1", "1", "1", "1")}, levels.DefaultConfig())
	require.False(t, q.Valid)
}
