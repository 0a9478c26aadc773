package positions_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPositionConfig() types.PositionConfig {
	return types.PositionConfig{
		TPLevels: []types.TPLevelConfig{
			{LevelName: "tp1", RewardMultiple: dec(1), SizePct: dec(0.5), PlacementMode: types.TPPlacementFixed},
			{LevelName: "tp2", RewardMultiple: dec(2), SizePct: dec(0.5), PlacementMode: types.TPPlacementFixed},
		},
		BreakevenTriggerR:   dec(1),
		BreakevenBufferBps:  dec(10),
		TrailingActivationR: dec(1.5),
		TrailingStepBps:     dec(100),
		EntryConfirmBars:    2,
		EntryConfirmMaxSlip: dec(0.01),
	}
}

func TestManagerOpenBuildsTPLadderAndPendingState(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	m.Open(pos, dec(100), nil, false)

	got, ok := m.Get("pos-1")
	require.True(t, ok)
	require.Equal(t, string(positions.StatePending), got.FSMState)
	require.Len(t, got.TPLevels, 2)
}

func TestManagerOnFillTransitionsToEntryConfirm(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	m.Open(pos, dec(100), nil, false)
	m.OnFill("pos-1", dec(100.05))

	got, _ := m.Get("pos-1")
	require.Equal(t, string(positions.StateEntryConfirm), got.FSMState)
	require.Equal(t, types.PositionStatusOpen, got.Status)
}

func TestManagerEntryConfirmAdvancesToRunningWithinSlip(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	m.Open(pos, dec(100), nil, false)
	m.OnFill("pos-1", dec(100)) // no slip

	m.OnBarClose("pos-1", types.Candle{})
	m.OnBarClose("pos-1", types.Candle{})

	got, _ := m.Get("pos-1")
	require.Equal(t, string(positions.StateRunning), got.FSMState)
}

func TestManagerEntryConfirmFailsOnExcessiveSlip(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	m.Open(pos, dec(100), nil, false)
	m.OnFill("pos-1", dec(105)) // 5% slip, way over 1% max

	m.OnBarClose("pos-1", types.Candle{})
	m.OnBarClose("pos-1", types.Candle{})

	got, _ := m.Get("pos-1")
	require.Equal(t, string(positions.StateExiting), got.FSMState)
}

func runToRunning(m *positions.Manager, pos *types.Position) {
	m.Open(pos, dec(100), nil, false)
	m.OnFill(pos.ID, pos.Entry)
	m.OnBarClose(pos.ID, types.Candle{})
	m.OnBarClose(pos.ID, types.Candle{})
}

func TestManagerUpdatePriceTriggersBreakeven(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos() // entry 100, sl 98, R=2
	runToRunning(m, pos)

	m.UpdatePrice("pos-1", dec(102.5)) // rMultiple = 1.25 >= trigger 1; tp1 at 102 is crossed in the same update

	got, _ := m.Get("pos-1")
	require.Equal(t, string(positions.StatePartialClosed), got.FSMState)
	require.True(t, got.SL.GreaterThan(pos.Entry))
}

func TestManagerUpdatePriceHitsStopLoss(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	runToRunning(m, pos)

	m.UpdatePrice("pos-1", dec(97))

	got, _ := m.Get("pos-1")
	require.Equal(t, string(positions.StateExiting), got.FSMState)
}

func TestManagerUpdatePriceHitsTPAndGoesPartial(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	runToRunning(m, pos)

	m.UpdatePrice("pos-1", dec(102)) // tp1 at entry+1*R=102

	got, _ := m.Get("pos-1")
	require.True(t, got.TPLevels[0].Triggered)
	require.Equal(t, types.PositionStatusPartial, got.Status)
}

// TestManagerTPHitAtBreakevenTriggerAlsoMovesToBreakeven pins the
// ordering in UpdatePrice: the breakeven check runs before the TP-ladder
// check, so a price that satisfies both in the same update first moves
// SL to breakeven and then takes the position to partial_closed.
// longPos's tp1 (reward_multiple=1) and BreakevenTriggerR (1) both
// trigger at entry+1*R.
func TestManagerTPHitAtBreakevenTriggerAlsoMovesToBreakeven(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos() // entry 100, sl 98, R=2; tp1 and breakeven both trigger at 102
	runToRunning(m, pos)

	m.UpdatePrice("pos-1", dec(102))

	got, _ := m.Get("pos-1")
	require.True(t, got.TPLevels[0].Triggered)
	require.Equal(t, string(positions.StatePartialClosed), got.FSMState)
	require.True(t, got.SL.Equal(dec(100.1)), "SL should move to breakeven (entry + 10 bps) before the tp1 partial close")
}

func TestManagerCompleteExitClosesAndRemoves(t *testing.T) {
	m := positions.New(zap.NewNop(), testPositionConfig(), nil)
	pos := longPos()
	m.Open(pos, dec(100), nil, false)
	m.RequestExit("pos-1", "manual")
	m.CompleteExit("pos-1", dec(50))

	_, ok := m.Get("pos-1")
	require.False(t, ok)
	require.Equal(t, types.PositionStatusClosed, pos.Status)
	require.NotNil(t, pos.ClosedAt)
}
