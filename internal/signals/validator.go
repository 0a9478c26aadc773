// Package signals implements the signal generator (C8): momentum and
// retest strategies sharing a predicate Validator that records every
// check to the diagnostics sink.
package signals

import (
	"time"

	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/pkg/types"
)

// Predicate is one named check contributing to a strategy's pass/fail
// decision.
type Predicate struct {
	Name      string
	Value     float64
	Threshold float64
	Passed    bool
}

// Validator evaluates a sequence of predicates for one symbol, recording
// each to the diagnostics sink, and tracks whether all passed.
type Validator struct {
	sink       diagnostics.Sink
	component  string
	symbol     string
	predicates []Predicate
}

// NewValidator builds a Validator for one symbol under one strategy
// component name ("momentum" or "retest").
func NewValidator(sink diagnostics.Sink, component, symbol string) *Validator {
	if sink == nil {
		sink = diagnostics.NopSink{}
	}
	return &Validator{sink: sink, component: component, symbol: symbol}
}

// Check records a predicate outcome and returns it for chaining.
func (v *Validator) Check(name string, value, threshold float64, passed bool) bool {
	v.predicates = append(v.predicates, Predicate{Name: name, Value: value, Threshold: threshold, Passed: passed})
	p := passed
	v.sink.Record(types.DiagnosticsEvent{
		TsMs:      time.Now().UnixMilli(),
		Component: v.component,
		Stage:     name,
		Symbol:    v.symbol,
		Payload:   map[string]any{"value": value, "threshold": threshold},
		Passed:    &p,
	})
	return passed
}

// AllPassed reports whether every recorded predicate passed.
func (v *Validator) AllPassed() bool {
	for _, p := range v.predicates {
		if !p.Passed {
			return false
		}
	}
	return len(v.predicates) > 0
}

// Predicates returns the recorded checks, in evaluation order.
func (v *Validator) Predicates() []Predicate {
	return v.predicates
}

// Margins returns, for each predicate, the normalised distance from its
// threshold in [-1, 1]-ish space (used by confidence scoring).
func (v *Validator) Margins() []float64 {
	out := make([]float64, len(v.predicates))
	for i, p := range v.predicates {
		if p.Threshold == 0 {
			out[i] = 0
			continue
		}
		out[i] = (p.Value - p.Threshold) / p.Threshold
	}
	return out
}
