// Package activity implements the activity tracker (C5): a composite
// z-score activity index built from trade-flow metrics, with drop
// detection against a trailing window. Grounded on the original
// activity-index z-score reconstruction.
package activity

import (
	"math"
	"sync"

	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls the trailing window and drop threshold (§4.5).
type Config struct {
	HistorySize   int             // number of historical index points retained per symbol
	DropWindow    int             // window size including the current point; the trailing mean uses the DropWindow-1 points before it
	DropThreshold decimal.Decimal // drop_fraction = (prev_mean-current)/|prev_mean| >= this triggers a drop
}

// DefaultConfig mirrors the reference tracker: 10-point trailing window
// (last 9 excluding current), drop_fraction >= 0.5.
func DefaultConfig() Config {
	return Config{
		HistorySize:   120,
		DropWindow:    10,
		DropThreshold: decimal.NewFromFloat(0.5),
	}
}

// Metrics is one point of the activity index for a symbol (§4.5).
type Metrics struct {
	Symbol        string
	TPMZ          decimal.Decimal
	TPSZ          decimal.Decimal
	VolDeltaZ     decimal.Decimal
	ActivityIndex decimal.Decimal
	IsDrop        bool
	LastUpdate    int64
}

type symbolState struct {
	mu      sync.Mutex
	history []decimal.Decimal // activity_index history, newest last
	tpmHist []decimal.Decimal // raw tpm_60s inputs, newest last
	tpsHist []decimal.Decimal // raw tps_10s inputs, newest last
	volHist []decimal.Decimal // raw |vol_delta_60s| inputs, newest last
	last    Metrics
	hasLast bool
}

// Tracker maintains the per-symbol activity index history.
type Tracker struct {
	logger *zap.Logger
	cfg    Config

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New builds a Tracker.
func New(logger *zap.Logger, cfg Config) *Tracker {
	return &Tracker{
		logger:  logger.Named("activity-tracker"),
		cfg:     cfg,
		symbols: make(map[string]*symbolState),
	}
}

func (t *Tracker) stateFor(symbol string) *symbolState {
	t.mu.RLock()
	s, ok := t.symbols[symbol]
	t.mu.RUnlock()
	if ok {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.symbols[symbol]; ok {
		return s
	}
	s = &symbolState{}
	t.symbols[symbol] = s
	return s
}

// Update folds in the latest trade metrics for symbol, computing the
// composite z-score index and checking for a drop against the trailing
// mean (excluding the current point, per §4.5).
func (t *Tracker) Update(symbol string, m trades.Metrics) Metrics {
	s := t.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	tpmZ := zScoreAgainst(s.tpmHist, toFloat(m.TPM60s))
	tpsZ := zScoreAgainst(s.tpsHist, toFloat(m.TPS10s))
	volZ := zScoreAgainst(s.volHist, toFloat(m.VolDelta60s.Abs()))

	index := decimal.NewFromFloat(tpmZ + tpsZ + volZ)

	isDrop := false
	if len(s.history) >= 2 {
		trailing := s.history
		if len(trailing) > t.cfg.DropWindow-1 {
			trailing = trailing[len(trailing)-(t.cfg.DropWindow-1):]
		}
		prevMean := meanOf(trailing)
		if !prevMean.IsZero() {
			dropFraction := prevMean.Sub(index).Div(prevMean.Abs())
			isDrop = dropFraction.GreaterThanOrEqual(t.cfg.DropThreshold)
		}
	}

	s.history = append(s.history, index)
	if len(s.history) > t.cfg.HistorySize {
		s.history = s.history[len(s.history)-t.cfg.HistorySize:]
	}
	s.tpmHist = append(s.tpmHist, m.TPM60s)
	s.tpsHist = append(s.tpsHist, m.TPS10s)
	s.volHist = append(s.volHist, m.VolDelta60s.Abs())
	if n := len(s.tpmHist) - t.cfg.HistorySize; n > 0 {
		s.tpmHist, s.tpsHist, s.volHist = s.tpmHist[n:], s.tpsHist[n:], s.volHist[n:]
	}

	result := Metrics{
		Symbol:        symbol,
		TPMZ:          decimal.NewFromFloat(tpmZ),
		TPSZ:          decimal.NewFromFloat(tpsZ),
		VolDeltaZ:     decimal.NewFromFloat(volZ),
		ActivityIndex: index,
		IsDrop:        isDrop,
		LastUpdate:    m.LastUpdate,
	}
	s.last = result
	s.hasLast = true
	return result
}

// GetMetrics returns the most recent activity metrics computed for
// symbol, if any.
func (t *Tracker) GetMetrics(symbol string) (Metrics, bool) {
	t.mu.RLock()
	s, ok := t.symbols[symbol]
	t.mu.RUnlock()
	if !ok {
		return Metrics{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// zScoreAgainst computes (value - mean(history)) / stddev(history),
// returning 0 when history is too short or has zero variance.
func zScoreAgainst(history []decimal.Decimal, value float64) float64 {
	if len(history) < 2 {
		return 0
	}
	floats := make([]float64, len(history))
	for i, h := range history {
		floats[i] = toFloat(h)
	}
	mean := 0.0
	for _, f := range floats {
		mean += f
	}
	mean /= float64(len(floats))

	variance := 0.0
	for _, f := range floats {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(floats))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (value - mean) / stddev
}

func meanOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
