package signals

import (
	"time"

	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/internal/features/activity"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderBookProvider is the slice of the order-book manager the signal
// generator needs: book imbalance within a bps range.
type OrderBookProvider interface {
	GetImbalance(symbol string, rangeBps decimal.Decimal) decimal.Decimal
}

// ActivityProvider is the slice of the activity tracker the signal
// generator needs.
type ActivityProvider interface {
	GetMetrics(symbol string) (activity.Metrics, bool)
}

// Generator produces at most one Signal per symbol per cycle by trying
// the preferred strategy first, falling back to the other, and picking
// the higher-confidence signal if both fire (§4.8).
type Generator struct {
	logger  *zap.Logger
	sink    diagnostics.Sink
	ob      OrderBookProvider
	act     ActivityProvider
	history *BreakoutHistory
}

// New builds a Generator.
func New(logger *zap.Logger, sink diagnostics.Sink, ob OrderBookProvider, act ActivityProvider, history *BreakoutHistory) *Generator {
	return &Generator{logger: logger.Named("signal-generator"), sink: sink, ob: ob, act: act, history: history}
}

// Generate evaluates both strategies against scan and returns at most
// one Signal, per the preferred-strategy-with-fallback selection rule.
func (g *Generator) Generate(scan types.ScanResult, cfg types.SignalConfig, preferred types.StrategyType) *types.Signal {
	if len(scan.Levels) == 0 {
		return nil
	}

	momentum := g.tryMomentum(scan, cfg)
	retest := g.tryRetest(scan, cfg)

	first, second := momentum, retest
	if preferred == types.StrategyRetest {
		first, second = retest, momentum
	}

	if first != nil && second != nil {
		if second.Confidence.GreaterThan(first.Confidence) {
			return second
		}
		return first
	}
	if first != nil {
		return first
	}
	return second
}

func (g *Generator) tryMomentum(scan types.ScanResult, cfg types.SignalConfig) *types.Signal {
	md := scan.MarketData
	if len(md.Candles5m) < 21 {
		return nil
	}
	last := md.Candles5m[len(md.Candles5m)-1]

	var best *types.Signal
	bestConfidence := decimal.NewFromInt(-1)

	for _, lvl := range scan.Levels {
		side := types.PositionSideLong
		if lvl.Type == types.LevelSupport {
			side = types.PositionSideShort
		}

		v := NewValidator(g.sink, "momentum", md.Symbol)

		breakoutFrac := last.Close.Sub(lvl.Price).Div(lvl.Price)
		signSign := decimal.NewFromInt(1)
		if side == types.PositionSideShort {
			signSign = decimal.NewFromInt(-1)
			breakoutFrac = breakoutFrac.Neg()
		}
		v.Check("price_breakout", toF(breakoutFrac), toF(cfg.MomentumEpsilon), breakoutFrac.GreaterThanOrEqual(cfg.MomentumEpsilon))

		meanVol := meanVolume(md.Candles5m[len(md.Candles5m)-21 : len(md.Candles5m)-1])
		volRatio := decimal.Zero
		if !meanVol.IsZero() {
			volRatio = last.Volume.Div(meanVol)
		}
		v.Check("volume_surge", toF(volRatio), toF(cfg.MomentumVolumeMultiplier), volRatio.GreaterThanOrEqual(cfg.MomentumVolumeMultiplier))

		bodyRatio := decimal.Zero
		rng := last.High.Sub(last.Low)
		if !rng.IsZero() {
			bodyRatio = last.Close.Sub(last.Open).Abs().Div(rng)
		}
		v.Check("body_ratio", toF(bodyRatio), toF(cfg.MomentumBodyRatioMin), bodyRatio.GreaterThanOrEqual(cfg.MomentumBodyRatioMin))

		imbalance := decimal.Zero
		if g.ob != nil {
			imbalance = g.ob.GetImbalance(md.Symbol, decimal.NewFromInt(50))
			if side == types.PositionSideShort {
				imbalance = imbalance.Neg()
			}
		}
		v.Check("l2_imbalance", toF(imbalance), toF(cfg.L2ImbalanceThreshold), imbalance.GreaterThanOrEqual(cfg.L2ImbalanceThreshold))

		vwap := volumeWeightedPrice(md.Candles5m)
		vwapGap := decimal.Zero
		if !md.ATR5m.IsZero() {
			vwapGap = last.Close.Sub(vwap).Abs().Div(md.ATR5m)
		}
		v.Check("vwap_gap", toF(vwapGap), toF(cfg.VWAPGapMaxATR), vwapGap.LessThanOrEqual(cfg.VWAPGapMaxATR))

		if !v.AllPassed() {
			continue
		}

		entry := lvl.Price.Add(lvl.Price.Mul(cfg.MomentumEpsilon).Mul(signSign))
		sl := structuralStop(md.Candles5m, side, cfg.SLATRMultiplier, md.ATR5m)
		confidence := confidenceFromMargins(v.Margins(), scan.Score)

		if confidence.GreaterThan(bestConfidence) {
			bestConfidence = confidence
			sig := types.Signal{
				Symbol:     md.Symbol,
				Side:       side,
				Strategy:   types.StrategyMomentum,
				Reason:     "momentum breakout",
				Entry:      entry,
				Level:      lvl.Price,
				SL:         sl,
				Confidence: confidence,
				TsMs:       md.TsMs,
				Meta:       types.SignalMeta{MarketSnapshot: md},
			}
			best = &sig
		}
	}
	return best
}

func (g *Generator) tryRetest(scan types.ScanResult, cfg types.SignalConfig) *types.Signal {
	md := scan.MarketData
	if len(md.Candles5m) < 2 {
		return nil
	}
	last := md.Candles5m[len(md.Candles5m)-1]
	nowMs := md.TsMs

	var best *types.Signal
	bestConfidence := decimal.NewFromInt(-1)

	for _, lvl := range scan.Levels {
		side := types.PositionSideLong
		if lvl.Type == types.LevelSupport {
			side = types.PositionSideShort
		}

		v := NewValidator(g.sink, "retest", md.Symbol)

		distFrac := last.Close.Sub(lvl.Price).Abs().Div(last.Close)
		v.Check("level_retest", toF(distFrac), 0.005, distFrac.LessThanOrEqual(decimal.NewFromFloat(0.005)))

		mae := maxAdverseExcursion(md.Candles5m, lvl.Price, side)
		pierceATR := decimal.Zero
		if !md.ATR5m.IsZero() {
			pierceATR = mae.Div(md.ATR5m)
		}
		pierceFrac := decimal.Zero
		if !lvl.Price.IsZero() {
			pierceFrac = mae.Div(lvl.Price)
		}
		piercePass := pierceATR.LessThanOrEqual(cfg.RetestMaxPierceATR) && pierceFrac.LessThanOrEqual(cfg.RetestPierceTolerance)
		v.Check("pierce_tolerance", toF(pierceATR), toF(cfg.RetestMaxPierceATR), piercePass)

		hasPrior := false
		if g.history != nil {
			hasPrior = g.history.HasMatch(md.Symbol, lvl.Price, side, decimal.NewFromFloat(0.002), nowMs, int64(24*time.Hour/time.Millisecond))
		}
		v.Check("previous_breakout", boolToF(hasPrior), 1, hasPrior)

		imbalance := decimal.Zero
		if g.ob != nil {
			imbalance = g.ob.GetImbalance(md.Symbol, decimal.NewFromInt(50))
			if side == types.PositionSideShort {
				imbalance = imbalance.Neg()
			}
		}
		v.Check("l2_imbalance", toF(imbalance), toF(cfg.L2ImbalanceThreshold), imbalance.GreaterThanOrEqual(cfg.L2ImbalanceThreshold))

		activityOK := true
		if g.act != nil {
			m, ok := g.act.GetMetrics(md.Symbol)
			activityOK = ok && m.ActivityIndex.GreaterThan(decimal.Zero)
		}
		v.Check("trading_activity", boolToF(activityOK), 1, activityOK)

		if !v.AllPassed() {
			continue
		}

		sl := structuralStop(md.Candles5m, side, cfg.SLATRMultiplier, md.ATR5m)
		confidence := confidenceFromMargins(v.Margins(), scan.Score)

		if confidence.GreaterThan(bestConfidence) {
			bestConfidence = confidence
			sig := types.Signal{
				Symbol:     md.Symbol,
				Side:       side,
				Strategy:   types.StrategyRetest,
				Reason:     "level retest",
				Entry:      last.Close,
				Level:      lvl.Price,
				SL:         sl,
				Confidence: confidence,
				TsMs:       md.TsMs,
				Meta:       types.SignalMeta{MarketSnapshot: md},
			}
			best = &sig
		}
	}
	return best
}

func meanVolume(candles []types.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.Volume)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}

func volumeWeightedPrice(candles []types.Candle) decimal.Decimal {
	volSum := decimal.Zero
	pvSum := decimal.Zero
	for _, c := range candles {
		typical := c.High.Add(c.Low).Add(c.Close).Div(decimal.NewFromInt(3))
		pvSum = pvSum.Add(typical.Mul(c.Volume))
		volSum = volSum.Add(c.Volume)
	}
	if volSum.IsZero() {
		return decimal.Zero
	}
	return pvSum.Div(volSum)
}

// structuralStop places the stop beyond the recent swing low/high by
// k*ATR (§4.8).
func structuralStop(candles []types.Candle, side types.PositionSide, k, atr decimal.Decimal) decimal.Decimal {
	lookback := candles
	if len(lookback) > 20 {
		lookback = lookback[len(lookback)-20:]
	}
	if side == types.PositionSideLong {
		low := lookback[0].Low
		for _, c := range lookback {
			if c.Low.LessThan(low) {
				low = c.Low
			}
		}
		return low.Sub(atr.Mul(k))
	}
	high := lookback[0].High
	for _, c := range lookback {
		if c.High.GreaterThan(high) {
			high = c.High
		}
	}
	return high.Add(atr.Mul(k))
}

// maxAdverseExcursion measures, for a retest candidate, how far price
// pierced through the level against the trade direction.
func maxAdverseExcursion(candles []types.Candle, level decimal.Decimal, side types.PositionSide) decimal.Decimal {
	lookback := candles
	if len(lookback) > 5 {
		lookback = lookback[len(lookback)-5:]
	}
	worst := decimal.Zero
	for _, c := range lookback {
		var pierce decimal.Decimal
		if side == types.PositionSideLong {
			pierce = level.Sub(c.Low)
		} else {
			pierce = c.High.Sub(level)
		}
		if pierce.GreaterThan(worst) {
			worst = pierce
		}
	}
	return worst
}

// confidenceFromMargins combines normalised predicate margins with the
// underlying scan score into a [0,1] confidence (§4.8).
func confidenceFromMargins(margins []float64, scanScore decimal.Decimal) decimal.Decimal {
	if len(margins) == 0 {
		return decimal.Zero
	}
	sum := 0.0
	for _, m := range margins {
		if m > 1 {
			m = 1
		}
		if m < 0 {
			m = 0
		}
		sum += m
	}
	avgMargin := sum / float64(len(margins))

	scoreF, _ := scanScore.Float64()
	scoreComponent := (scoreF + 3) / 6 // scanner scores are clipped to [-3,3]
	if scoreComponent > 1 {
		scoreComponent = 1
	}
	if scoreComponent < 0 {
		scoreComponent = 0
	}

	combined := 0.7*avgMargin + 0.3*scoreComponent
	if combined > 1 {
		combined = 1
	}
	if combined < 0 {
		combined = 0
	}
	return decimal.NewFromFloat(combined)
}

func toF(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
