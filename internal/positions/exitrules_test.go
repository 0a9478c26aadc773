package positions_test

import (
	"testing"
	"time"

	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/stretchr/testify/require"
)

func testExitRulesConfig() types.ExitRulesConfig {
	maxHold := dec(4)
	timeStop := dec(30)
	return types.ExitRulesConfig{
		FailedBreakoutEnabled: true,
		FailedBreakoutBars:    2,

		ActivityDropEnabled:    true,
		ActivityDropWindowBars: 3,
		ActivityDropThreshold:  dec(0.5),

		WeakImpulseEnabled:    true,
		WeakImpulseCheckBars:  3,
		WeakImpulseMinMovePct: dec(1),

		MaxHoldTimeHours: &maxHold,
		TimeStopMinutes:  &timeStop,
	}
}

func TestCheckExitRulesFailedBreakout(t *testing.T) {
	pos := longPos()
	pos.BreakoutLevel = dec(99)
	state := positions.MarketState{CurrentPrice: dec(98.5), BarsSinceEntry: 3}

	signals := positions.CheckExitRules(pos, testExitRulesConfig(), state)
	found := false
	for _, s := range signals {
		if s.RuleName == "failed_breakout" {
			found = true
			require.Equal(t, positions.UrgencyImmediate, s.Urgency)
		}
	}
	require.True(t, found)
}

func TestCheckExitRulesActivityDrop(t *testing.T) {
	pos := longPos()
	state := positions.MarketState{
		BarsSinceEntry:         4,
		CurrentVolume:          dec(100),
		CurrentMomentum:        dec(1),
		AvgVolumeBeforeEntry:   dec(1000),
		AvgMomentumBeforeEntry: dec(10),
		HasPreEntryBaseline:    true,
	}
	signals := positions.CheckExitRules(pos, testExitRulesConfig(), state)
	var got *positions.ExitRuleSignal
	for i := range signals {
		if signals[i].RuleName == "activity_drop" {
			got = &signals[i]
		}
	}
	require.NotNil(t, got)
	require.Equal(t, positions.UrgencyNormal, got.Urgency)
}

func TestCheckExitRulesWeakImpulse(t *testing.T) {
	pos := longPos() // entry 100
	pos.HighestSeen = dec(100.3)
	state := positions.MarketState{BarsSinceEntry: 5}
	signals := positions.CheckExitRules(pos, testExitRulesConfig(), state)
	found := false
	for _, s := range signals {
		if s.RuleName == "weak_impulse" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCheckExitRulesMaxHoldTime(t *testing.T) {
	pos := longPos()
	state := positions.MarketState{EntryTime: time.Now().Add(-5 * time.Hour)}
	signals := positions.CheckExitRules(pos, testExitRulesConfig(), state)
	found := false
	for _, s := range signals {
		if s.RuleName == "max_hold_time" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCheckExitRulesTimeStopOnlyWhenUnprofitable(t *testing.T) {
	pos := longPos()
	state := positions.MarketState{EntryTime: time.Now().Add(-time.Hour), CurrentPrice: dec(99)}
	signals := positions.CheckExitRules(pos, testExitRulesConfig(), state)
	found := false
	for _, s := range signals {
		if s.RuleName == "time_stop" {
			found = true
		}
	}
	require.True(t, found)

	stateProfitable := positions.MarketState{EntryTime: time.Now().Add(-time.Hour), CurrentPrice: dec(105)}
	signals = positions.CheckExitRules(pos, testExitRulesConfig(), stateProfitable)
	for _, s := range signals {
		require.NotEqual(t, "time_stop", s.RuleName)
	}
}

func TestHighestPrioritySignalPicksImmediateOverNormal(t *testing.T) {
	signals := []positions.ExitRuleSignal{
		{RuleName: "activity_drop", Urgency: positions.UrgencyNormal, Confidence: dec(0.9)},
		{RuleName: "failed_breakout", Urgency: positions.UrgencyImmediate, Confidence: dec(0.5)},
	}
	best, ok := positions.HighestPrioritySignal(signals)
	require.True(t, ok)
	require.Equal(t, "failed_breakout", best.RuleName)
}

func TestHighestPrioritySignalBreaksTiesByConfidence(t *testing.T) {
	signals := []positions.ExitRuleSignal{
		{RuleName: "a", Urgency: positions.UrgencyNormal, Confidence: dec(0.4)},
		{RuleName: "b", Urgency: positions.UrgencyNormal, Confidence: dec(0.8)},
	}
	best, ok := positions.HighestPrioritySignal(signals)
	require.True(t, ok)
	require.Equal(t, "b", best.RuleName)
}

func TestHighestPrioritySignalEmpty(t *testing.T) {
	_, ok := positions.HighestPrioritySignal(nil)
	require.False(t, ok)
}
