// Package levels implements the level detector (C6): horizontal
// support/resistance clustering from a candle sequence, with a
// round-number bonus, cascade detection, and a pre-breakout approach
// quality test.
package levels

import (
	"math"
	"sort"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Config controls clustering tolerance and scoring (§4.6).
type Config struct {
	ATRMultiple              decimal.Decimal   // clustering tolerance = ATR * this
	RecencyHalfLifeBars      decimal.Decimal   // touches decay with this half-life
	RoundNumberEnabled       bool
	RoundStepCandidates      []decimal.Decimal // e.g. 100, 1000, round psychological steps
	RoundNumberTolerance     decimal.Decimal   // fraction of price considered "near" a round step
	RoundNumberBonus         decimal.Decimal
	CascadeMinLevels         int
	CascadeRadiusBps         decimal.Decimal
	ApproachMaxSlopePct      decimal.Decimal
	ApproachMinConsolidation int
}

// DefaultConfig mirrors typical breakout-detector presets.
func DefaultConfig() Config {
	return Config{
		ATRMultiple:              decimal.NewFromFloat(0.25),
		RecencyHalfLifeBars:      decimal.NewFromInt(50),
		RoundNumberEnabled:       true,
		RoundStepCandidates:      []decimal.Decimal{decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.NewFromInt(1000)},
		RoundNumberTolerance:     decimal.NewFromFloat(0.001),
		RoundNumberBonus:         decimal.NewFromFloat(0.5),
		CascadeMinLevels:         3,
		CascadeRadiusBps:         decimal.NewFromFloat(20),
		ApproachMaxSlopePct:      decimal.NewFromFloat(0.5),
		ApproachMinConsolidation: 3,
	}
}

// touch is one high/low pivot observed at a bar index.
type touch struct {
	barIndex int
	price    decimal.Decimal
}

// Detect clusters swing highs/lows in candles into TradingLevels using an
// ATR-derived tolerance band, scoring strength from touch count, recency
// decay, and the round-number bonus, and flagging cascades.
func Detect(candles []types.Candle, atr decimal.Decimal, cfg Config) []types.TradingLevel {
	if len(candles) < 3 || atr.IsZero() {
		return nil
	}
	tolerance := atr.Mul(cfg.ATRMultiple)

	highs := pivotHighs(candles)
	lows := pivotLows(candles)

	resistance := cluster(highs, tolerance, types.LevelResistance, len(candles)-1, cfg, candles)
	support := cluster(lows, tolerance, types.LevelSupport, len(candles)-1, cfg, candles)

	all := append(resistance, support...)
	annotateCascades(all, cfg)

	sort.Slice(all, func(i, j int) bool { return all[i].Strength.GreaterThan(all[j].Strength) })
	return all
}

func pivotHighs(candles []types.Candle) []touch {
	var out []touch
	for i := 1; i < len(candles)-1; i++ {
		if candles[i].High.GreaterThanOrEqual(candles[i-1].High) && candles[i].High.GreaterThanOrEqual(candles[i+1].High) {
			out = append(out, touch{barIndex: i, price: candles[i].High})
		}
	}
	return out
}

func pivotLows(candles []types.Candle) []touch {
	var out []touch
	for i := 1; i < len(candles)-1; i++ {
		if candles[i].Low.LessThanOrEqual(candles[i-1].Low) && candles[i].Low.LessThanOrEqual(candles[i+1].Low) {
			out = append(out, touch{barIndex: i, price: candles[i].Low})
		}
	}
	return out
}

// cluster groups touches within tolerance of each other's running mean
// price into TradingLevels.
func cluster(touches []touch, tolerance decimal.Decimal, lvlType types.LevelType, lastBar int, cfg Config, candles []types.Candle) []types.TradingLevel {
	sort.Slice(touches, func(i, j int) bool { return touches[i].price.LessThan(touches[j].price) })

	var groups [][]touch
	for _, t := range touches {
		placed := false
		for gi, g := range groups {
			mean := meanPrice(g)
			if t.price.Sub(mean).Abs().LessThanOrEqual(tolerance) {
				groups[gi] = append(g, t)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []touch{t})
		}
	}

	out := make([]types.TradingLevel, 0, len(groups))
	for _, g := range groups {
		price := meanPrice(g)
		touchCount := len(g)

		recency := decimal.Zero
		for _, t := range g {
			age := decimal.NewFromInt(int64(lastBar - t.barIndex))
			decay := decayWeight(age, cfg.RecencyHalfLifeBars)
			recency = recency.Add(decay)
		}

		strength := decimal.NewFromInt(int64(touchCount)).Add(recency)
		isRound := cfg.RoundNumberEnabled && isNearRoundNumber(price, cfg.RoundStepCandidates, cfg.RoundNumberTolerance)
		roundBonus := decimal.Zero
		if isRound {
			roundBonus = cfg.RoundNumberBonus
			strength = strength.Add(roundBonus)
		}

		sort.Slice(g, func(i, j int) bool { return g[i].barIndex < g[j].barIndex })
		var firstTs, lastTs int64
		if len(g) > 0 && g[0].barIndex < len(candles) {
			firstTs = candles[g[0].barIndex].TsMs
		}
		if len(g) > 0 && g[len(g)-1].barIndex < len(candles) {
			lastTs = candles[g[len(g)-1].barIndex].TsMs
		}

		out = append(out, types.TradingLevel{
			Price:         price,
			Type:          lvlType,
			TouchCount:    touchCount,
			Strength:      strength,
			FirstTouchTs:  firstTs,
			LastTouchTs:   lastTs,
			IsRoundNumber: isRound,
			RoundBonus:    roundBonus,
		})
	}
	return out
}

func meanPrice(g []touch) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range g {
		sum = sum.Add(t.price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(g))))
}

// decayWeight approximates exp(-age/halfLife * ln2) using decimal math via
// a float bridge; tolerable here since this only scores relative strength.
func decayWeight(age, halfLife decimal.Decimal) decimal.Decimal {
	if halfLife.IsZero() {
		return decimal.NewFromInt(1)
	}
	a, _ := age.Float64()
	h, _ := halfLife.Float64()
	weight := math.Pow(2, -a/h)
	return decimal.NewFromFloat(weight)
}

func isNearRoundNumber(price decimal.Decimal, steps []decimal.Decimal, tolerance decimal.Decimal) bool {
	tol := price.Mul(tolerance)
	for _, step := range steps {
		if step.IsZero() {
			continue
		}
		nearest := price.Div(step).Round(0).Mul(step)
		if price.Sub(nearest).Abs().LessThanOrEqual(tol) {
			return true
		}
	}
	return false
}

// annotateCascades flags each level whose price sits inside a band with
// >= CascadeMinLevels (including itself) within CascadeRadiusBps.
func annotateCascades(levels []types.TradingLevel, cfg Config) {
	for i := range levels {
		count := 0
		for j := range levels {
			if i == j {
				continue
			}
			distBps := levels[i].Price.Sub(levels[j].Price).Abs().Div(levels[i].Price).Mul(decimal.NewFromInt(10000))
			if distBps.LessThanOrEqual(cfg.CascadeRadiusBps) {
				count++
			}
		}
		levels[i].CascadeSize = count + 1
		levels[i].InCascade = count+1 >= cfg.CascadeMinLevels
	}
}

// ApproachQuality is the result of the pre-breakout approach-quality test
// (§4.6).
type ApproachQuality struct {
	Valid              bool
	SlopePctPerBar     decimal.Decimal
	ConsolidationBars  int
	Reason             string
}

// CheckApproachQuality evaluates the bars immediately preceding a touch
// for a shallow slope and a period of narrow range ("consolidation")
// before the touch.
func CheckApproachQuality(preBreakoutBars []types.Candle, cfg Config) ApproachQuality {
	if len(preBreakoutBars) < 2 {
		return ApproachQuality{Valid: false, Reason: "insufficient bars"}
	}

	first := preBreakoutBars[0].Close
	last := preBreakoutBars[len(preBreakoutBars)-1].Close
	if first.IsZero() {
		return ApproachQuality{Valid: false, Reason: "zero reference price"}
	}
	bars := decimal.NewFromInt(int64(len(preBreakoutBars) - 1))
	if bars.IsZero() {
		bars = decimal.NewFromInt(1)
	}
	slopePct := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Div(bars).Abs()

	consolidation := countConsolidationBars(preBreakoutBars)

	if slopePct.GreaterThan(cfg.ApproachMaxSlopePct) {
		return ApproachQuality{Valid: false, SlopePctPerBar: slopePct, ConsolidationBars: consolidation, Reason: "slope too steep"}
	}
	if consolidation < cfg.ApproachMinConsolidation {
		return ApproachQuality{Valid: false, SlopePctPerBar: slopePct, ConsolidationBars: consolidation, Reason: "insufficient consolidation"}
	}
	return ApproachQuality{Valid: true, SlopePctPerBar: slopePct, ConsolidationBars: consolidation, Reason: "ok"}
}

// countConsolidationBars counts a trailing run of bars whose range is
// narrow relative to the median range of the window.
func countConsolidationBars(bars []types.Candle) int {
	if len(bars) == 0 {
		return 0
	}
	ranges := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		ranges[i] = b.High.Sub(b.Low)
	}
	sorted := append([]decimal.Decimal(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	median := sorted[len(sorted)/2]
	if median.IsZero() {
		return len(bars)
	}

	count := 0
	for i := len(ranges) - 1; i >= 0; i-- {
		if ranges[i].LessThanOrEqual(median.Mul(decimal.NewFromFloat(1.2))) {
			count++
		} else {
			break
		}
	}
	return count
}
