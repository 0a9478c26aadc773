package density_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/features/density"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotWithBidWall(size string) *types.OrderBookSnapshot {
	d, _ := decimal.NewFromString(size)
	return &types.OrderBookSnapshot{
		Symbol: "BTC/USDT",
		Bids: []types.OrderBookLevel{
			{Price: decimal.NewFromInt(100), Size: d},
			{Price: decimal.NewFromInt(99), Size: decimal.NewFromInt(1)},
		},
		Asks: []types.OrderBookLevel{
			{Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)},
		},
	}
}

func TestDetectDensitiesEmitsDetectedThenEaten(t *testing.T) {
	cfg := density.DefaultConfig()
	cfg.LookbackWindow = 5
	det := density.New(zap.NewNop(), cfg)

	// Warm up the median with small buckets so a later large one qualifies.
	for i := 0; i < 3; i++ {
		det.DetectDensities("BTC/USDT", snapshotWithBidWall("1"))
	}

	events := det.DetectDensities("BTC/USDT", snapshotWithBidWall("50"))
	require.NotEmpty(t, events)

	found := false
	for _, e := range events {
		if e.Type == density.EventDetected {
			found = true
		}
	}
	require.True(t, found, "a large bucket relative to history should be detected as a density")

	tracked := det.TrackedLevels("BTC/USDT")
	require.Len(t, tracked, 1)

	// Shrink the wall below the eat-ratio threshold.
	eatenEvents := det.DetectDensities("BTC/USDT", snapshotWithBidWall("5"))
	eaten := false
	for _, e := range eatenEvents {
		if e.Type == density.EventEaten {
			eaten = true
		}
	}
	require.True(t, eaten)
}

func TestDetectDensitiesEmptyBookReturnsNoEvents(t *testing.T) {
	det := density.New(zap.NewNop(), density.DefaultConfig())
	events := det.DetectDensities("BTC/USDT", &types.OrderBookSnapshot{})
	require.Empty(t, events)
}
