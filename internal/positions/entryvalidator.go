package positions

import (
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// ValidationPriority ranks how much a failed check matters (§4.10).
type ValidationPriority int

const (
	PriorityLow ValidationPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// ValidationResult is the outcome of one entry-gate check.
type ValidationResult int

const (
	ResultPassed ValidationResult = iota
	ResultFailed
	ResultSkipped
)

// CheckResult is one named check's verdict, with a [0,1] confidence
// contribution and a human-readable reason when it fails.
type CheckResult struct {
	RuleName string
	Result   ValidationResult
	Priority ValidationPriority
	Score    decimal.Decimal
	Reason   string
}

// DensityZone is a [Low, High] price band to avoid entering inside.
type DensityZone struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// EntrySignal is the snapshot the entry validator gates before a
// position is opened.
type EntrySignal struct {
	BreakoutPrice  decimal.Decimal
	CurrentPrice   decimal.Decimal
	EntryPrice     decimal.Decimal
	StopLoss       decimal.Decimal
	BreakoutVolume decimal.Decimal
	AvgVolume      decimal.Decimal
	CurrentVolume  decimal.Decimal
	PriceChangePct decimal.Decimal

	BarsSinceBreakout int
	DensityZones      []DensityZone

	IsFlat          bool
	IsConsolidating bool
	NoiseLevel      decimal.Decimal

	IsLong bool
}

// ValidationReport aggregates every check run against one EntrySignal.
type ValidationReport struct {
	Checks        []CheckResult
	IsValid       bool
	FailedCritical []string
	Warnings      []string
	Confidence    decimal.Decimal
}

// GetCheck returns the named check, if it ran.
func (r *ValidationReport) GetCheck(name string) *CheckResult {
	for i := range r.Checks {
		if r.Checks[i].RuleName == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// PassedChecks returns every check that passed.
func (r *ValidationReport) PassedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Result == ResultPassed {
			out = append(out, c)
		}
	}
	return out
}

// FailedChecks returns every check that failed (critical or not).
func (r *ValidationReport) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Result == ResultFailed {
			out = append(out, c)
		}
	}
	return out
}

// EntryValidator runs the §4.10 pre-entry gate: volume confirmation,
// momentum slope, density avoidance, clean breakout, market quality.
// Thresholds for volume/momentum are shared with the signal generator
// (§4.8) rather than duplicated under a second config block.
type EntryValidator struct {
	entryCfg   types.EntryRulesConfig
	sigCfg     types.SignalConfig
	marketCfg  *types.MarketQualityConfig
}

// NewEntryValidator builds a validator. marketCfg may be nil, which
// skips the market-quality check entirely.
func NewEntryValidator(sigCfg types.SignalConfig, marketCfg *types.MarketQualityConfig) *EntryValidator {
	return &EntryValidator{entryCfg: sigCfg.EntryRules, sigCfg: sigCfg, marketCfg: marketCfg}
}

// Validate runs every configured check and aggregates the report.
// breakout_quality is skipped only when sig.BreakoutPrice is zero
// (CleanBreakoutEnabled switches just its minimum-distance part): it is
// the one check that can invalidate a signal outright.
func (v *EntryValidator) Validate(sig EntrySignal) ValidationReport {
	var report ValidationReport

	report.Checks = append(report.Checks, v.checkVolumeConfirmation(sig))
	report.Checks = append(report.Checks, v.checkMomentumConfirmation(sig))
	report.Checks = append(report.Checks, v.checkDensityAvoidance(sig))
	report.Checks = append(report.Checks, v.checkMarketQuality(sig))
	report.Checks = append(report.Checks, v.checkBreakoutQuality(sig))

	report.IsValid = true
	var scoreSum decimal.Decimal
	scored := 0
	for _, c := range report.Checks {
		if c.Result == ResultSkipped {
			continue
		}
		scored++
		scoreSum = scoreSum.Add(c.Score)
		if c.Result == ResultFailed {
			if c.Priority == PriorityCritical {
				report.IsValid = false
				report.FailedCritical = append(report.FailedCritical, c.RuleName)
			} else {
				report.Warnings = append(report.Warnings, c.Reason)
			}
		}
	}
	if scored > 0 {
		report.Confidence = scoreSum.Div(decimal.NewFromInt(int64(scored)))
	} else {
		report.Confidence = decimal.NewFromInt(1)
	}
	return report
}

func (v *EntryValidator) checkVolumeConfirmation(sig EntrySignal) CheckResult {
	const name = "volume_confirmation"
	if !v.entryCfg.VolumeConfirmationEnabled {
		return CheckResult{RuleName: name, Result: ResultSkipped, Priority: PriorityHigh}
	}
	multiplier := v.sigCfg.MomentumVolumeMultiplier
	if sig.AvgVolume.IsZero() {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityHigh,
			Score: decimal.NewFromFloat(0.3), Reason: "no average volume baseline"}
	}
	ratio := sig.BreakoutVolume.Div(sig.AvgVolume)
	if ratio.GreaterThanOrEqual(multiplier) {
		score := ratio.Div(multiplier)
		if score.GreaterThan(decimal.NewFromInt(1)) {
			score = decimal.NewFromInt(1)
		}
		return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityHigh, Score: score}
	}
	score := ratio.Div(multiplier).Mul(decimal.NewFromFloat(0.6))
	return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityHigh, Score: score,
		Reason: "breakout volume below confirmation multiplier"}
}

func (v *EntryValidator) checkMomentumConfirmation(sig EntrySignal) CheckResult {
	const name = "momentum_confirmation"
	if !v.entryCfg.MomentumSlopeEnabled {
		return CheckResult{RuleName: name, Result: ResultSkipped, Priority: PriorityMedium}
	}
	minSlope := v.sigCfg.MomentumEpsilon
	slope := sig.PriceChangePct
	if !sig.IsLong {
		slope = slope.Neg()
	}
	if slope.GreaterThanOrEqual(minSlope) {
		score := decimal.NewFromFloat(0.7)
		if minSlope.GreaterThan(decimal.Zero) {
			score = score.Add(decimal.NewFromFloat(0.3).Mul(slope.Div(minSlope).Sub(decimal.NewFromInt(1))))
		}
		if score.GreaterThan(decimal.NewFromInt(1)) {
			score = decimal.NewFromInt(1)
		}
		if score.LessThan(decimal.NewFromFloat(0.7)) {
			score = decimal.NewFromFloat(0.7)
		}
		return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityMedium, Score: score}
	}
	return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityMedium,
		Score: decimal.NewFromFloat(0.3), Reason: "weak momentum slope"}
}

func (v *EntryValidator) checkDensityAvoidance(sig EntrySignal) CheckResult {
	const name = "density_avoidance"
	if !v.entryCfg.DensityAvoidanceEnabled {
		return CheckResult{RuleName: name, Result: ResultSkipped, Priority: PriorityMedium}
	}
	if len(sig.DensityZones) == 0 {
		return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityMedium, Score: decimal.NewFromInt(1)}
	}
	for _, z := range sig.DensityZones {
		if sig.EntryPrice.GreaterThanOrEqual(z.Low) && sig.EntryPrice.LessThanOrEqual(z.High) {
			return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityMedium,
				Score: decimal.NewFromFloat(0.2), Reason: "entry price sits inside a density zone"}
		}
	}
	return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityMedium, Score: decimal.NewFromFloat(0.8)}
}

func (v *EntryValidator) checkMarketQuality(sig EntrySignal) CheckResult {
	const name = "market_quality"
	if v.marketCfg == nil || !v.entryCfg.MarketQualityEnabled {
		return CheckResult{RuleName: name, Result: ResultSkipped, Priority: PriorityHigh}
	}
	if v.marketCfg.FlatFilterEnabled && sig.IsFlat {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityHigh,
			Score: decimal.NewFromFloat(0.2), Reason: "market is flat"}
	}
	if sig.IsConsolidating {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityHigh,
			Score: decimal.NewFromFloat(0.3), Reason: "market is consolidating"}
	}
	if sig.NoiseLevel.GreaterThan(v.marketCfg.NoiseThreshold) {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityHigh,
			Score: decimal.NewFromFloat(0.3), Reason: "noise level above threshold"}
	}
	return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityHigh, Score: decimal.NewFromFloat(0.9)}
}

func (v *EntryValidator) checkBreakoutQuality(sig EntrySignal) CheckResult {
	const name = "breakout_quality"
	if sig.BreakoutPrice.IsZero() {
		return CheckResult{RuleName: name, Result: ResultSkipped, Priority: PriorityCritical}
	}

	distancePct := sig.CurrentPrice.Sub(sig.BreakoutPrice).Abs().Div(sig.BreakoutPrice).Mul(decimal.NewFromInt(100))
	if v.entryCfg.CleanBreakoutEnabled && distancePct.LessThan(v.entryCfg.CleanBreakoutMinDistancePct) {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityCritical,
			Score: decimal.NewFromFloat(0.1), Reason: "breakout distance too small"}
	}
	if sig.BarsSinceBreakout > v.entryCfg.MaxBarsSinceBreakout {
		return CheckResult{RuleName: name, Result: ResultFailed, Priority: PriorityCritical,
			Score: decimal.NewFromFloat(0.1), Reason: "too late: bars since breakout exceeds max"}
	}
	return CheckResult{RuleName: name, Result: ResultPassed, Priority: PriorityCritical, Score: decimal.NewFromFloat(0.9)}
}

// String renders a ValidationPriority for logging.
func (p ValidationPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// String renders a ValidationResult for logging.
func (r ValidationResult) String() string {
	switch r {
	case ResultPassed:
		return "passed"
	case ResultFailed:
		return "failed"
	default:
		return "skipped"
	}
}
