package activity_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/features/activity"
	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func metricsWith(tpm, tps, volDelta int64) trades.Metrics {
	return trades.Metrics{
		Symbol:      "BTC/USDT",
		TPM60s:      decimal.NewFromInt(tpm),
		TPS10s:      decimal.NewFromInt(tps),
		VolDelta60s: decimal.NewFromInt(volDelta),
		LastUpdate:  1,
	}
}

func TestUpdateFirstPointHasZeroZScore(t *testing.T) {
	tr := activity.New(zap.NewNop(), activity.DefaultConfig())
	m := tr.Update("BTC/USDT", metricsWith(10, 1, 5))
	require.True(t, m.ActivityIndex.Equal(decimal.Zero), "no history yet, z-scores must be zero")
	require.False(t, m.IsDrop)
}

func TestUpdateDetectsActivityDrop(t *testing.T) {
	cfg := activity.DefaultConfig()
	cfg.DropWindow = 5
	tr := activity.New(zap.NewNop(), cfg)

	for i := 0; i < 6; i++ {
		tr.Update("BTC/USDT", metricsWith(int64(100+i), int64(10+i), int64(50+i)))
	}
	m := tr.Update("BTC/USDT", metricsWith(1, 1, 1))

	require.True(t, m.IsDrop, "a sharp collapse in all three inputs should register as a drop")
}
