// Package orderbook implements the order-book manager (C3): per-symbol
// snapshot+delta book with bucketed depth aggregation and imbalance.
package orderbook

import (
	"sort"
	"sync"

	"github.com/il101/breakout-engine/internal/errs"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager holds the current OrderBookSnapshot per symbol. Mutated only by
// UpdateSnapshot/ApplyMessage (single writer per symbol, the stream
// consumer); readers get a consistent copy via GetSnapshot.
type Manager struct {
	logger *zap.Logger

	mu        sync.RWMutex
	books     map[string]*types.OrderBookSnapshot
	lastSeqID map[string]int64
}

// New builds an order-book Manager.
func New(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger.Named("orderbook-manager"),
		books:     make(map[string]*types.OrderBookSnapshot),
		lastSeqID: make(map[string]int64),
	}
}

// UpdateSnapshot replaces the current book for symbol wholesale.
func (m *Manager) UpdateSnapshot(symbol string, snap *types.OrderBookSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[symbol] = snap
}

// ApplyMessage applies a venue.BookMessage, enforcing the monotonic
// update-id ordering rule (§4.1): a full snapshot always replaces state; a
// delta whose UpdateID is not exactly lastSeq+1 is a gap and forces a
// resync (errs.ErrOrderBookGap), clearing the stored book for the symbol.
func (m *Manager) ApplyMessage(symbol string, msg venue.BookMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Type == venue.BookMessageSnapshot {
		m.books[symbol] = &types.OrderBookSnapshot{
			Symbol: symbol,
			TsMs:   msg.TsMs,
			Bids:   sortDesc(msg.Bids),
			Asks:   sortAsc(msg.Asks),
		}
		m.lastSeqID[symbol] = msg.UpdateID
		return nil
	}

	last, ok := m.lastSeqID[symbol]
	if !ok || (last != 0 && msg.UpdateID != last+1) {
		delete(m.books, symbol)
		delete(m.lastSeqID, symbol)
		return errs.Classify(errs.ClassProtocol, errs.ErrOrderBookGap)
	}

	existing, ok := m.books[symbol]
	if !ok {
		return errs.Classify(errs.ClassProtocol, errs.ErrOrderBookGap)
	}

	merged := &types.OrderBookSnapshot{
		Symbol: symbol,
		TsMs:   msg.TsMs,
		Bids:   mergeLevels(existing.Bids, msg.Bids, true),
		Asks:   mergeLevels(existing.Asks, msg.Asks, false),
	}
	m.books[symbol] = merged
	m.lastSeqID[symbol] = msg.UpdateID
	return nil
}

func mergeLevels(existing, deltas []types.OrderBookLevel, desc bool) []types.OrderBookLevel {
	byPrice := make(map[string]decimal.Decimal, len(existing))
	priceOf := make(map[string]decimal.Decimal, len(existing))
	for _, l := range existing {
		key := l.Price.String()
		byPrice[key] = l.Size
		priceOf[key] = l.Price
	}

	for _, d := range deltas {
		key := d.Price.String()
		if d.Size.IsZero() {
			delete(byPrice, key)
			continue
		}
		byPrice[key] = d.Size
		priceOf[key] = d.Price
	}

	out := make([]types.OrderBookLevel, 0, len(byPrice))
	for key, size := range byPrice {
		out = append(out, types.OrderBookLevel{Price: priceOf[key], Size: size})
	}
	if desc {
		sort.Slice(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	}
	return out
}

func sortDesc(levels []types.OrderBookLevel) []types.OrderBookLevel {
	out := append([]types.OrderBookLevel(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	return out
}

func sortAsc(levels []types.OrderBookLevel) []types.OrderBookLevel {
	out := append([]types.OrderBookLevel(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out
}

// GetSnapshot returns a consistent read of the current book for symbol.
func (m *Manager) GetSnapshot(symbol string) (*types.OrderBookSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.books[symbol]
	return s, ok
}

// GetAggregatedDepth returns the cumulative size on side within rangeBps of
// best price.
func (m *Manager) GetAggregatedDepth(symbol string, side types.OrderSide, rangeBps decimal.Decimal) decimal.Decimal {
	snap, ok := m.GetSnapshot(symbol)
	if !ok {
		return decimal.Zero
	}
	mid := snap.Mid()
	if mid.IsZero() {
		return decimal.Zero
	}

	levels := snap.Bids
	limit := snap.BestBid().Price.Mul(decimal.NewFromInt(1).Sub(rangeBps.Div(decimal.NewFromInt(10000))))
	if side == types.OrderSideSell {
		levels = snap.Asks
		limit = snap.BestAsk().Price.Mul(decimal.NewFromInt(1).Add(rangeBps.Div(decimal.NewFromInt(10000))))
	}

	total := decimal.Zero
	for _, l := range levels {
		if side == types.OrderSideBuy && l.Price.LessThan(limit) {
			break
		}
		if side == types.OrderSideSell && l.Price.GreaterThan(limit) {
			break
		}
		total = total.Add(l.Size)
	}
	return total
}

// GetImbalance returns (bid-ask)/(bid+ask) for depth aggregated within
// rangeBps of best, in [-1, 1].
func (m *Manager) GetImbalance(symbol string, rangeBps decimal.Decimal) decimal.Decimal {
	bidDepth := m.GetAggregatedDepth(symbol, types.OrderSideBuy, rangeBps)
	askDepth := m.GetAggregatedDepth(symbol, types.OrderSideSell, rangeBps)
	total := bidDepth.Add(askDepth)
	if total.IsZero() {
		return decimal.Zero
	}
	return bidDepth.Sub(askDepth).Div(total)
}
