// Package trades implements the trades aggregator (C2): per-symbol rolling
// trade windows and the metrics derived from them.
package trades

import (
	"sync"
	"time"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics is the published snapshot of derived trade-flow metrics for one
// symbol (§4.2).
type Metrics struct {
	Symbol          string
	TPM10s          decimal.Decimal
	TPM60s          decimal.Decimal
	TPS10s          decimal.Decimal
	BuySellRatio60s decimal.Decimal
	VolDelta10s     decimal.Decimal
	VolDelta60s     decimal.Decimal
	VolDelta300s    decimal.Decimal
	LastUpdate      int64
}

type symbolState struct {
	mu     sync.Mutex
	window []types.Trade // ascending ts_ms, bounded to the 300s window
	last   Metrics
}

// Aggregator maintains the 10s/60s/300s rolling trade windows per symbol.
// Writes are single-writer per symbol (the stream consumer that calls
// OnTrade); readers see a monotonically advancing Metrics.LastUpdate.
type Aggregator struct {
	logger *zap.Logger

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New builds an Aggregator.
func New(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		logger:  logger.Named("trades-aggregator"),
		symbols: make(map[string]*symbolState),
	}
}

func (a *Aggregator) stateFor(symbol string) *symbolState {
	a.mu.RLock()
	s, ok := a.symbols[symbol]
	a.mu.RUnlock()
	if ok {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.symbols[symbol]; ok {
		return s
	}
	s = &symbolState{}
	a.symbols[symbol] = s
	return s
}

const windowLongSec = 300

// OnTrade appends a trade to the symbol's window, evicts entries older
// than 300s, and recomputes cached metrics.
func (a *Aggregator) OnTrade(symbol string, trade types.Trade) Metrics {
	s := a.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = append(s.window, trade)
	cutoff := trade.TsMs - windowLongSec*1000
	evictBefore := 0
	for evictBefore < len(s.window) && s.window[evictBefore].TsMs < cutoff {
		evictBefore++
	}
	if evictBefore > 0 {
		s.window = append([]types.Trade(nil), s.window[evictBefore:]...)
	}

	m := computeMetrics(symbol, s.window, trade.TsMs)
	s.last = m
	return m
}

func computeMetrics(symbol string, window []types.Trade, now int64) Metrics {
	var (
		count10s, count60s     int
		buy60s, sell60s        int
		volDelta10, volDelta60, volDelta300 decimal.Decimal
	)
	volDelta10, volDelta60, volDelta300 = decimal.Zero, decimal.Zero, decimal.Zero

	for _, t := range window {
		age := now - t.TsMs
		signed := t.Amount
		if t.Side == types.OrderSideSell {
			signed = signed.Neg()
		}
		volDelta300 = volDelta300.Add(signed)

		if age <= 60*1000 {
			count60s++
			volDelta60 = volDelta60.Add(signed)
			if t.Side == types.OrderSideBuy {
				buy60s++
			} else {
				sell60s++
			}
		}
		if age <= 10*1000 {
			count10s++
			volDelta10 = volDelta10.Add(signed)
		}
	}

	tpm10s := decimal.NewFromInt(int64(count10s)).Div(decimal.NewFromFloat(10.0 / 60.0))
	tpm60s := decimal.NewFromInt(int64(count60s))
	tps10s := decimal.NewFromInt(int64(count10s)).Div(decimal.NewFromInt(10))

	sellDenom := sell60s
	if sellDenom < 1 {
		sellDenom = 1
	}
	buySellRatio := decimal.NewFromInt(int64(buy60s)).Div(decimal.NewFromInt(int64(sellDenom)))

	return Metrics{
		Symbol:          symbol,
		TPM10s:          tpm10s,
		TPM60s:          tpm60s,
		TPS10s:          tps10s,
		BuySellRatio60s: buySellRatio,
		VolDelta10s:     volDelta10,
		VolDelta60s:     volDelta60,
		VolDelta300s:    volDelta300,
		LastUpdate:      now,
	}
}

// GetMetrics returns the last computed metrics for symbol, or a zero value
// if no trades have been observed yet.
func (a *Aggregator) GetMetrics(symbol string) (Metrics, bool) {
	a.mu.RLock()
	s, ok := a.symbols[symbol]
	a.mu.RUnlock()
	if !ok {
		return Metrics{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.LastUpdate == 0 {
		return Metrics{}, false
	}
	return s.last, true
}
