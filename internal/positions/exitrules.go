package positions

import (
	"fmt"
	"time"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Urgency orders exit signals for the highest-priority pick (§4.10).
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyImmediate
)

// MarketState is the snapshot the exit-rules checker evaluates a
// position against, grounded on the reference checker's state object.
type MarketState struct {
	CurrentPrice    decimal.Decimal
	CurrentVolume   decimal.Decimal
	CurrentMomentum decimal.Decimal
	BarsSinceEntry  int
	EntryTime       time.Time

	AvgVolumeBeforeEntry   decimal.Decimal
	AvgMomentumBeforeEntry decimal.Decimal
	HasPreEntryBaseline    bool
}

// ExitRuleSignal is one triggered exit rule.
type ExitRuleSignal struct {
	RuleName   string
	Reason     string
	Urgency    Urgency
	Confidence decimal.Decimal
}

// CheckExitRules evaluates every enabled rule in cfg against pos/state
// and returns every triggered signal (§4.10).
func CheckExitRules(pos *types.Position, cfg types.ExitRulesConfig, state MarketState) []ExitRuleSignal {
	var signals []ExitRuleSignal

	if cfg.FailedBreakoutEnabled {
		if s := checkFailedBreakout(pos, cfg, state); s != nil {
			signals = append(signals, *s)
		}
	}
	if cfg.ActivityDropEnabled {
		if s := checkActivityDrop(cfg, state); s != nil {
			signals = append(signals, *s)
		}
	}
	if cfg.WeakImpulseEnabled {
		if s := checkWeakImpulse(pos, cfg, state); s != nil {
			signals = append(signals, *s)
		}
	}
	if cfg.MaxHoldTimeHours != nil {
		if s := checkMaxHoldTime(*cfg.MaxHoldTimeHours, state); s != nil {
			signals = append(signals, *s)
		}
	}
	if cfg.TimeStopMinutes != nil {
		if s := checkTimeStop(pos, *cfg.TimeStopMinutes, state); s != nil {
			signals = append(signals, *s)
		}
	}

	return signals
}

// HighestPrioritySignal picks the signal with the greatest urgency,
// breaking ties by confidence (§4.10).
func HighestPrioritySignal(signals []ExitRuleSignal) (ExitRuleSignal, bool) {
	if len(signals) == 0 {
		return ExitRuleSignal{}, false
	}
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Urgency > best.Urgency || (s.Urgency == best.Urgency && s.Confidence.GreaterThan(best.Confidence)) {
			best = s
		}
	}
	return best, true
}

func checkFailedBreakout(pos *types.Position, cfg types.ExitRulesConfig, state MarketState) *ExitRuleSignal {
	if state.BarsSinceEntry < cfg.FailedBreakoutBars {
		return nil
	}
	long := pos.Side == types.PositionSideLong
	failed := false
	if long {
		failed = state.CurrentPrice.LessThanOrEqual(pos.BreakoutLevel)
	} else {
		failed = state.CurrentPrice.GreaterThanOrEqual(pos.BreakoutLevel)
	}
	if !failed {
		return nil
	}
	return &ExitRuleSignal{
		RuleName:   "failed_breakout",
		Reason:     fmt.Sprintf("price %s recrossed breakout level %s", state.CurrentPrice, pos.BreakoutLevel),
		Urgency:    UrgencyImmediate,
		Confidence: decimal.NewFromFloat(0.9),
	}
}

func checkActivityDrop(cfg types.ExitRulesConfig, state MarketState) *ExitRuleSignal {
	if !state.HasPreEntryBaseline {
		return nil
	}
	if state.BarsSinceEntry < cfg.ActivityDropWindowBars {
		return nil
	}

	volumeRatio := decimal.NewFromInt(1)
	if state.AvgVolumeBeforeEntry.GreaterThan(decimal.Zero) {
		volumeRatio = state.CurrentVolume.Div(state.AvgVolumeBeforeEntry)
	}
	momentumRatio := decimal.NewFromInt(1)
	if state.AvgMomentumBeforeEntry.GreaterThan(decimal.Zero) {
		momentumRatio = state.CurrentMomentum.Div(state.AvgMomentumBeforeEntry)
	}

	dropped := volumeRatio.LessThan(cfg.ActivityDropThreshold) || momentumRatio.LessThan(cfg.ActivityDropThreshold)
	if !dropped {
		return nil
	}

	minRatio := volumeRatio
	if momentumRatio.LessThan(minRatio) {
		minRatio = momentumRatio
	}
	confidence := decimal.NewFromFloat(0.5)
	if cfg.ActivityDropThreshold.GreaterThan(decimal.Zero) {
		confidence = confidence.Add(decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(1).Sub(minRatio.Div(cfg.ActivityDropThreshold))))
	}
	if confidence.GreaterThan(decimal.NewFromFloat(0.95)) {
		confidence = decimal.NewFromFloat(0.95)
	}

	return &ExitRuleSignal{
		RuleName:   "activity_drop",
		Reason:     fmt.Sprintf("volume ratio %s, momentum ratio %s below threshold %s", volumeRatio, momentumRatio, cfg.ActivityDropThreshold),
		Urgency:    UrgencyNormal,
		Confidence: confidence,
	}
}

func checkWeakImpulse(pos *types.Position, cfg types.ExitRulesConfig, state MarketState) *ExitRuleSignal {
	if state.BarsSinceEntry < cfg.WeakImpulseCheckBars {
		return nil
	}

	var moveDistance decimal.Decimal
	if pos.Side == types.PositionSideLong {
		moveDistance = pos.HighestSeen.Sub(pos.Entry)
	} else {
		moveDistance = pos.Entry.Sub(pos.LowestSeen)
	}
	if pos.Entry.IsZero() {
		return nil
	}
	movePct := moveDistance.Div(pos.Entry).Mul(decimal.NewFromInt(100))

	if !movePct.LessThan(cfg.WeakImpulseMinMovePct) {
		return nil
	}

	confidence := decimal.NewFromFloat(0.6)
	if cfg.WeakImpulseMinMovePct.GreaterThan(decimal.Zero) {
		confidence = confidence.Add(decimal.NewFromFloat(0.3).Mul(decimal.NewFromInt(1).Sub(movePct.Div(cfg.WeakImpulseMinMovePct))))
	}
	if confidence.GreaterThan(decimal.NewFromFloat(0.9)) {
		confidence = decimal.NewFromFloat(0.9)
	}

	return &ExitRuleSignal{
		RuleName:   "weak_impulse",
		Reason:     fmt.Sprintf("only %s%% movement after %d bars (min %s%%)", movePct, state.BarsSinceEntry, cfg.WeakImpulseMinMovePct),
		Urgency:    UrgencyNormal,
		Confidence: confidence,
	}
}

func checkMaxHoldTime(maxHoldHours decimal.Decimal, state MarketState) *ExitRuleSignal {
	maxHold := time.Duration(maxHoldHours.InexactFloat64() * float64(time.Hour))
	if time.Since(state.EntryTime) < maxHold {
		return nil
	}
	return &ExitRuleSignal{
		RuleName:   "max_hold_time",
		Reason:     fmt.Sprintf("held past max_hold_time_hours=%s", maxHoldHours),
		Urgency:    UrgencyNormal,
		Confidence: decimal.NewFromInt(1),
	}
}

func checkTimeStop(pos *types.Position, timeStopMinutes decimal.Decimal, state MarketState) *ExitRuleSignal {
	stop := time.Duration(timeStopMinutes.InexactFloat64() * float64(time.Minute))
	if time.Since(state.EntryTime) < stop {
		return nil
	}
	profitable := false
	if pos.Side == types.PositionSideLong {
		profitable = state.CurrentPrice.GreaterThan(pos.Entry)
	} else {
		profitable = state.CurrentPrice.LessThan(pos.Entry)
	}
	if profitable {
		return nil
	}
	return &ExitRuleSignal{
		RuleName:   "time_stop",
		Reason:     fmt.Sprintf("not profitable after time_stop_minutes=%s", timeStopMinutes),
		Urgency:    UrgencyLow,
		Confidence: decimal.NewFromFloat(0.7),
	}
}
