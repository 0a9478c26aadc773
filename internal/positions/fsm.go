// Package positions implements the position manager and exit FSM (C10):
// per-position lifecycle state machine, multi-level take-profit ladder,
// the rule-driven exit checker, and the pre-entry validator. Adapted
// from the teacher's order manager (position bookkeeping, linked
// bracket orders) generalized onto an explicit FSM.
package positions

import (
	"fmt"
	"sync"
	"time"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FSMState is one state of the per-position lifecycle (§4.10).
type FSMState string

const (
	StatePending       FSMState = "pending"
	StateEntryConfirm  FSMState = "entry_confirm"
	StateRunning       FSMState = "running"
	StateBreakeven     FSMState = "breakeven"
	StatePartialClosed FSMState = "partial_closed"
	StateTrailing      FSMState = "trailing"
	StateExiting       FSMState = "exiting"
	StateClosed        FSMState = "closed"
)

// Transition records one FSM state change for diagnostics/audit.
type Transition struct {
	PositionID string
	From       FSMState
	To         FSMState
	Reason     string
	TsMs       int64
}

// TransitionSink receives FSM transitions as they happen.
type TransitionSink interface {
	OnTransition(t Transition)
}

type nopTransitionSink struct{}

func (nopTransitionSink) OnTransition(Transition) {}

type tracked struct {
	pos *types.Position

	mu sync.Mutex

	barsSinceFill     int
	fillSlip          decimal.Decimal
	preEntryAvgVolume decimal.Decimal
}

// Manager owns the FSM and TP ladder for every open position.
type Manager struct {
	logger *zap.Logger
	cfg    types.PositionConfig
	sink   TransitionSink

	mu        sync.RWMutex
	positions map[string]*tracked
}

// New builds a Manager.
func New(logger *zap.Logger, cfg types.PositionConfig, sink TransitionSink) *Manager {
	if sink == nil {
		sink = nopTransitionSink{}
	}
	return &Manager{
		logger:    logger.Named("position-manager"),
		cfg:       cfg,
		sink:      sink,
		positions: make(map[string]*tracked),
	}
}

// Open registers a new position in the pending state, building its TP
// ladder from the configured levels. obstacles (density zones, nearby
// S/R) are only consulted by smart/adaptive placement modes.
func (m *Manager) Open(pos *types.Position, preEntryAvgVolume decimal.Decimal, obstacles []TPObstacle, volatilityExpanded bool) {
	pos.Status = types.PositionStatusPending
	pos.FSMState = string(StatePending)
	pos.HighestSeen = pos.Entry
	pos.LowestSeen = pos.Entry
	pos.TPLevels = BuildTPLadder(m.cfg.TPLevels, pos, m.cfg.TPSmartPlacement, obstacles, volatilityExpanded)

	m.mu.Lock()
	m.positions[pos.ID] = &tracked{
		pos:               pos,
		preEntryAvgVolume: preEntryAvgVolume,
	}
	m.mu.Unlock()
}

// OnFill transitions pending -> entry_confirm and records the fill
// slippage against the intended entry.
func (m *Manager) OnFill(positionID string, fillPrice decimal.Decimal) {
	t := m.get(positionID)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pos.FSMState != string(StatePending) {
		return
	}
	t.fillSlip = fillPrice.Sub(t.pos.Entry).Abs().Div(t.pos.Entry)
	t.pos.Status = types.PositionStatusOpen
	m.transition(t, StateEntryConfirm, "filled")
}

// OnBarClose advances the entry-confirm gate: after EntryConfirmBars
// bars it moves the position to running, or to exiting when the fill
// slippage exceeded EntryConfirmMaxSlip. Positions in any other state
// are left unchanged.
func (m *Manager) OnBarClose(positionID string, candle types.Candle) {
	t := m.get(positionID)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pos.FSMState == string(StateEntryConfirm) {
		t.barsSinceFill++
		if t.barsSinceFill >= m.cfg.EntryConfirmBars {
			if t.fillSlip.LessThanOrEqual(m.cfg.EntryConfirmMaxSlip) {
				m.transition(t, StateRunning, "entry confirmed")
			} else {
				m.transition(t, StateExiting, "entry confirm failed: slippage too high")
			}
		}
	}
}

// UpdatePrice feeds the latest price into the running FSM: SL touch,
// breakeven trigger, TP-ladder hits, and trailing-stop maintenance, in
// that order.
func (m *Manager) UpdatePrice(positionID string, price decimal.Decimal) {
	t := m.get(positionID)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.pos
	if price.GreaterThan(pos.HighestSeen) {
		pos.HighestSeen = price
	}
	if pos.LowestSeen.IsZero() || price.LessThan(pos.LowestSeen) {
		pos.LowestSeen = price
	}

	switch FSMState(pos.FSMState) {
	case StateRunning, StateBreakeven, StatePartialClosed, StateTrailing:
	default:
		return
	}

	if m.slTouched(pos, price) {
		m.transition(t, StateExiting, "stop loss touched")
		return
	}

	rUnit := pos.RUnit()
	if rUnit.IsZero() {
		return
	}
	rMultiple := price.Sub(pos.Entry).Div(rUnit).Mul(decimal.NewFromInt(int64(positionSign(pos))))

	if FSMState(pos.FSMState) == StateRunning && rMultiple.GreaterThanOrEqual(m.cfg.BreakevenTriggerR) {
		buffer := pos.Entry.Mul(m.cfg.BreakevenBufferBps).Div(decimal.NewFromInt(10000))
		if positionSign(pos) > 0 {
			pos.SL = pos.Entry.Add(buffer)
		} else {
			pos.SL = pos.Entry.Sub(buffer)
		}
		m.transition(t, StateBreakeven, "breakeven trigger reached")
	}

	if idx, hit := nextUntriggeredTPHit(pos, price); hit {
		m.applyTPHit(t, idx, price)
		if allTPsTriggered(pos) {
			m.transition(t, StateExiting, "last take-profit hit")
			return
		}
		if FSMState(pos.FSMState) == StateRunning || FSMState(pos.FSMState) == StateBreakeven {
			m.transition(t, StatePartialClosed, fmt.Sprintf("tp%d hit", idx))
		}
	}

	if FSMState(pos.FSMState) == StatePartialClosed && rMultiple.GreaterThanOrEqual(m.cfg.TrailingActivationR) {
		m.transition(t, StateTrailing, "trailing activation reached")
	}

	if FSMState(pos.FSMState) == StateTrailing {
		m.applyTrailingStop(pos)
	}
}

// slTouched reports whether price has crossed the position's stop.
func (m *Manager) slTouched(pos *types.Position, price decimal.Decimal) bool {
	if positionSign(pos) > 0 {
		return price.LessThanOrEqual(pos.SL)
	}
	return price.GreaterThanOrEqual(pos.SL)
}

// applyTrailingStop ratchets SL toward the highest (long) / lowest
// (short) seen price, never loosening it (§4.10).
func (m *Manager) applyTrailingStop(pos *types.Position) {
	stepFrac := m.cfg.TrailingStepBps.Div(decimal.NewFromInt(10000))
	if positionSign(pos) > 0 {
		candidate := pos.HighestSeen.Mul(decimal.NewFromInt(1).Sub(stepFrac))
		if candidate.GreaterThan(pos.SL) {
			pos.SL = candidate
		}
		return
	}
	candidate := pos.LowestSeen.Mul(decimal.NewFromInt(1).Add(stepFrac))
	if pos.SL.IsZero() || candidate.LessThan(pos.SL) {
		pos.SL = candidate
	}
}

// RequestExit forces a transition to exiting regardless of current
// state, used by the exit-rules checker and manual intervention.
func (m *Manager) RequestExit(positionID, reason string) {
	t := m.get(positionID)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if FSMState(t.pos.FSMState) == StateClosed || FSMState(t.pos.FSMState) == StateExiting {
		return
	}
	m.transition(t, StateExiting, reason)
}

// CompleteExit finalizes a position's closure with the realised PnL.
func (m *Manager) CompleteExit(positionID string, realizedPnLUSD decimal.Decimal) {
	t := m.get(positionID)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	closedAt := time.Now()
	t.pos.ClosedAt = &closedAt
	t.pos.RealizedPnLUSD = t.pos.RealizedPnLUSD.Add(realizedPnLUSD)
	t.pos.Status = types.PositionStatusClosed
	m.transition(t, StateClosed, "exit complete")

	m.mu.Lock()
	delete(m.positions, positionID)
	m.mu.Unlock()
}

// Get returns the tracked Position, if any.
func (m *Manager) Get(positionID string) (*types.Position, bool) {
	t := m.get(positionID)
	if t == nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos, true
}

// Open positions currently tracked.
func (m *Manager) OpenPositions() []*types.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Position, 0, len(m.positions))
	for _, t := range m.positions {
		out = append(out, t.pos)
	}
	return out
}

func (m *Manager) get(positionID string) *tracked {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[positionID]
}

func (m *Manager) transition(t *tracked, to FSMState, reason string) {
	from := FSMState(t.pos.FSMState)
	t.pos.FSMState = string(to)
	if to == StatePartialClosed {
		t.pos.Status = types.PositionStatusPartial
	}
	m.sink.OnTransition(Transition{PositionID: t.pos.ID, From: from, To: to, Reason: reason})
	m.logger.Info("position transition",
		zap.String("position", t.pos.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason))
}

// positionSign returns +1 for a long (entry > sl) and -1 for a short.
func positionSign(pos *types.Position) int {
	if pos.Side == types.PositionSideLong {
		return 1
	}
	return -1
}
