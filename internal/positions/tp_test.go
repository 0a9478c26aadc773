package positions_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func longPos() *types.Position {
	return &types.Position{
		ID:     "pos-1",
		Symbol: "BTCUSDT",
		Side:   types.PositionSideLong,
		Entry:  dec(100),
		SL:     dec(98),
		Qty:    dec(10),
	}
}

func TestBuildTPLadderFixed(t *testing.T) {
	pos := longPos()
	cfgs := []types.TPLevelConfig{
		{LevelName: "tp1", RewardMultiple: dec(1), SizePct: dec(0.5), PlacementMode: types.TPPlacementFixed},
		{LevelName: "tp2", RewardMultiple: dec(2), SizePct: dec(0.5), PlacementMode: types.TPPlacementFixed},
	}
	levels := positions.BuildTPLadder(cfgs, pos, types.TPSmartPlacementConfig{}, nil, false)
	require.Len(t, levels, 2)
	// R = 2; tp1 = 100 + 1*2 = 102; tp2 = 100 + 2*2 = 104
	require.True(t, levels[0].Price.Equal(dec(102)))
	require.True(t, levels[1].Price.Equal(dec(104)))
}

func TestBuildTPLadderSmartAvoidsObstacle(t *testing.T) {
	pos := longPos()
	cfgs := []types.TPLevelConfig{
		{LevelName: "tp1", RewardMultiple: dec(1), SizePct: dec(1), PlacementMode: types.TPPlacementSmart},
	}
	smart := types.TPSmartPlacementConfig{MaxAdjustmentBps: dec(500)}
	// fixed tp1 = 102; obstacle sits right at 102 with a wide buffer
	obstacles := []positions.TPObstacle{{Price: dec(102), BufferBps: dec(200)}}
	levels := positions.BuildTPLadder(cfgs, pos, smart, obstacles, false)
	require.Len(t, levels, 1)
	require.True(t, levels[0].Price.LessThan(dec(102)))
}

func TestBuildTPLadderAdaptiveWidensOnVolatility(t *testing.T) {
	pos := longPos()
	cfgs := []types.TPLevelConfig{
		{LevelName: "tp1", RewardMultiple: dec(1), SizePct: dec(1), PlacementMode: types.TPPlacementAdaptive},
	}
	smart := types.TPSmartPlacementConfig{VolatilityWidenFactor: dec(0.5)}
	levels := positions.BuildTPLadder(cfgs, pos, smart, nil, true)
	// R=2, widened multiple = 1*1.5 = 1.5 -> tp = 100 + 2*1.5 = 103
	require.True(t, levels[0].Price.Equal(dec(103)))
}

func TestBuildTPLadderShortMirrorsSign(t *testing.T) {
	pos := longPos()
	pos.Side = types.PositionSideShort
	pos.Entry = dec(100)
	pos.SL = dec(102)
	cfgs := []types.TPLevelConfig{
		{LevelName: "tp1", RewardMultiple: dec(1), SizePct: dec(1), PlacementMode: types.TPPlacementFixed},
	}
	levels := positions.BuildTPLadder(cfgs, pos, types.TPSmartPlacementConfig{}, nil, false)
	// R=2, short tp1 = 100 - 2 = 98
	require.True(t, levels[0].Price.Equal(dec(98)))
}
