package signals

import (
	"sync"
	"time"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// BreakoutRecord is one entry in a symbol's breakout history (§4.8).
type BreakoutRecord struct {
	TsMs       int64
	LevelPrice decimal.Decimal
	Side       types.PositionSide
}

// BreakoutHistory is a per-symbol deque of breakout records with a TTL
// (7 days by default), consulted by the retest strategy's
// previous_breakout predicate. Records are added only through Record;
// the engine's position-opening path does not call it.
type BreakoutHistory struct {
	ttl time.Duration

	mu      sync.Mutex
	records map[string][]BreakoutRecord
}

// NewBreakoutHistory builds a history with the given TTL (defaults to
// 7 days if zero).
func NewBreakoutHistory(ttl time.Duration) *BreakoutHistory {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &BreakoutHistory{ttl: ttl, records: make(map[string][]BreakoutRecord)}
}

// Record appends a breakout for symbol, evicting entries past the TTL.
func (h *BreakoutHistory) Record(symbol string, rec BreakoutRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := rec.TsMs - h.ttl.Milliseconds()
	list := append(h.records[symbol], rec)
	kept := list[:0]
	for _, r := range list {
		if r.TsMs >= cutoff {
			kept = append(kept, r)
		}
	}
	h.records[symbol] = kept
}

// HasMatch reports whether a breakout at levelPrice (within tolerance
// fraction) and side exists for symbol within the last windowMs
// milliseconds of nowMs.
func (h *BreakoutHistory) HasMatch(symbol string, levelPrice decimal.Decimal, side types.PositionSide, tolerance decimal.Decimal, nowMs, windowMs int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := nowMs - windowMs
	tol := levelPrice.Mul(tolerance)
	for _, r := range h.records[symbol] {
		if r.TsMs < cutoff || r.Side != side {
			continue
		}
		if r.LevelPrice.Sub(levelPrice).Abs().LessThanOrEqual(tol) {
			return true
		}
	}
	return false
}
