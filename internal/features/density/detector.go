// Package density implements the density detector (C4): bucketed
// order-book liquidity walls, tracked across updates until eaten or
// withdrawn. Grounded on the bucket-aggregation / k-median-threshold
// algorithm used for liquidity wall detection.
package density

import (
	"sort"
	"sync"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls bucketing and detection thresholds (§4.4).
type Config struct {
	KDensity             decimal.Decimal // bucket size multiple of median to qualify as a density
	BucketTicks           int             // bucket width in multiples of tick size
	LookbackWindow        int             // number of most recent bucket sizes (across updates) kept for the median
	EnterOnEatRatio        decimal.Decimal // eaten_ratio at which a density is considered consumed
	TickSizeFraction      decimal.Decimal // tick_size = mid * TickSizeFraction
}

// DefaultConfig mirrors the reference thresholds: k=7.0, bucket_ticks=3,
// a lookback of the last 300 bucket sizes, enter_on_density_eat_ratio=0.75.
func DefaultConfig() Config {
	return Config{
		KDensity:         decimal.NewFromFloat(7.0),
		BucketTicks:      3,
		LookbackWindow:   300,
		EnterOnEatRatio:  decimal.NewFromFloat(0.75),
		TickSizeFraction: decimal.NewFromFloat(0.0001),
	}
}

// EventType enumerates the lifecycle transitions of a tracked density.
type EventType string

const (
	EventDetected EventType = "detected"
	EventEaten    EventType = "eaten"
	EventRemoved  EventType = "removed"
)

// Level is a tracked liquidity wall at a bucketed price, matched across
// updates by (side, price within 0.1%).
type Level struct {
	Side         types.OrderSide
	Price        decimal.Decimal
	InitialSize  decimal.Decimal
	CurrentSize  decimal.Decimal
}

// EatenRatio is the fraction of the original size consumed so far.
func (l Level) EatenRatio() decimal.Decimal {
	if l.InitialSize.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(l.CurrentSize.Div(l.InitialSize))
}

// Event is emitted whenever a tracked level is first detected, crosses
// the eat-ratio threshold, or disappears from the book entirely.
type Event struct {
	Type  EventType
	Level Level
}

type symbolState struct {
	mu       sync.Mutex
	history  []decimal.Decimal // median-sized history of bucket sizes, newest last
	tracked  map[string]Level  // keyed by side+bucketed price
}

// Detector maintains per-symbol tracked densities from successive
// order-book snapshots.
type Detector struct {
	logger *zap.Logger
	cfg    Config

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New builds a Detector.
func New(logger *zap.Logger, cfg Config) *Detector {
	return &Detector{
		logger:  logger.Named("density-detector"),
		cfg:     cfg,
		symbols: make(map[string]*symbolState),
	}
}

func (d *Detector) stateFor(symbol string) *symbolState {
	d.mu.RLock()
	s, ok := d.symbols[symbol]
	d.mu.RUnlock()
	if ok {
		return s
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.symbols[symbol]; ok {
		return s
	}
	s = &symbolState{tracked: make(map[string]Level)}
	d.symbols[symbol] = s
	return s
}

// DetectDensities aggregates the snapshot's levels into price buckets
// sized at mid*TickSizeFraction*BucketTicks, computes a rolling median
// over the last LookbackWindow bucket sizes, and flags buckets whose size
// exceeds KDensity times that median as densities. It also reconciles
// against previously tracked levels, emitting detected/eaten/removed
// events (§4.4).
func (d *Detector) DetectDensities(symbol string, snap *types.OrderBookSnapshot) []Event {
	mid := snap.Mid()
	if mid.IsZero() {
		return nil
	}
	tickSize := mid.Mul(d.cfg.TickSizeFraction).Mul(decimal.NewFromInt(int64(d.cfg.BucketTicks)))
	if tickSize.IsZero() {
		return nil
	}

	bidBuckets := bucketize(snap.Bids, tickSize)
	askBuckets := bucketize(snap.Asks, tickSize)

	s := d.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	allSizes := make([]decimal.Decimal, 0, len(bidBuckets)+len(askBuckets))
	for _, b := range bidBuckets {
		allSizes = append(allSizes, b)
	}
	for _, b := range askBuckets {
		allSizes = append(allSizes, b)
	}
	s.history = append(s.history, allSizes...)
	if len(s.history) > d.cfg.LookbackWindow {
		s.history = s.history[len(s.history)-d.cfg.LookbackWindow:]
	}
	median := medianOf(s.history)
	threshold := median.Mul(d.cfg.KDensity)

	seen := make(map[string]struct{})
	var events []Event

	consider := func(side types.OrderSide, buckets map[string]decimal.Decimal) {
		for priceKey, size := range buckets {
			price, _ := decimal.NewFromString(priceKey)
			key := matchKey(side, price, s.tracked)
			seen[key] = struct{}{}

			existing, tracked := s.tracked[key]
			if !tracked {
				if threshold.IsPositive() && size.GreaterThanOrEqual(threshold) {
					lvl := Level{Side: side, Price: price, InitialSize: size, CurrentSize: size}
					s.tracked[key] = lvl
					events = append(events, Event{Type: EventDetected, Level: lvl})
				}
				continue
			}

			existing.CurrentSize = size
			s.tracked[key] = existing
			if existing.EatenRatio().GreaterThanOrEqual(d.cfg.EnterOnEatRatio) {
				events = append(events, Event{Type: EventEaten, Level: existing})
				delete(s.tracked, key)
				delete(seen, key)
			}
		}
	}

	consider(types.OrderSideBuy, bidBuckets)
	consider(types.OrderSideSell, askBuckets)

	for key, lvl := range s.tracked {
		if _, ok := seen[key]; !ok {
			events = append(events, Event{Type: EventRemoved, Level: lvl})
			delete(s.tracked, key)
		}
	}

	return events
}

// matchKey finds an existing tracked bucket within 0.1% of price on the
// same side, or synthesizes a fresh key for a new one.
func matchKey(side types.OrderSide, price decimal.Decimal, tracked map[string]Level) string {
	tol := price.Mul(decimal.NewFromFloat(0.001))
	for key, lvl := range tracked {
		if lvl.Side != side {
			continue
		}
		if lvl.Price.Sub(price).Abs().LessThanOrEqual(tol) {
			return key
		}
	}
	return string(side) + ":" + price.String()
}

func bucketize(levels []types.OrderBookLevel, tickSize decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, l := range levels {
		bucket := l.Price.Div(tickSize).Floor().Mul(tickSize)
		key := bucket.String()
		out[key] = out[key].Add(l.Size)
	}
	return out
}

func medianOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}

// TrackedLevels returns a snapshot of the currently tracked densities for
// symbol.
func (d *Detector) TrackedLevels(symbol string) []Level {
	s := d.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Level, 0, len(s.tracked))
	for _, l := range s.tracked {
		out = append(out, l)
	}
	return out
}
