package positions

import (
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// TPObstacle is a price smart/adaptive placement should avoid clipping
// through: a density zone or a nearby support/resistance level, each
// with its own clearance buffer.
type TPObstacle struct {
	Price     decimal.Decimal
	BufferBps decimal.Decimal
}

var bps = decimal.NewFromInt(10000)

// BuildTPLadder computes the TP price for each configured level (§4.10):
// fixed = entry + R*reward_multiple*sign; smart starts from fixed and
// pulls back within max_adjustment_bps to clear obstacles (and
// optionally snaps to a round-number step); adaptive additionally
// widens the fixed distance when realised volatility has expanded
// since entry.
func BuildTPLadder(cfgs []types.TPLevelConfig, pos *types.Position, smart types.TPSmartPlacementConfig, obstacles []TPObstacle, volatilityExpanded bool) []types.TPLevel {
	r := pos.RUnit()
	sign := decimal.NewFromInt(int64(positionSign(pos)))

	out := make([]types.TPLevel, 0, len(cfgs))
	for _, c := range cfgs {
		rewardMultiple := c.RewardMultiple
		if c.PlacementMode == types.TPPlacementAdaptive && volatilityExpanded {
			rewardMultiple = rewardMultiple.Mul(decimal.NewFromInt(1).Add(smart.VolatilityWidenFactor))
		}

		price := pos.Entry.Add(r.Mul(rewardMultiple).Mul(sign))

		if c.PlacementMode == types.TPPlacementSmart || c.PlacementMode == types.TPPlacementAdaptive {
			price = avoidObstacles(price, sign, smart.MaxAdjustmentBps, obstacles)
			if smart.SnapToRoundNumbers {
				price = snapToRoundNumber(price, smart.MaxAdjustmentBps)
			}
		}

		out = append(out, types.TPLevel{
			RewardMultiple: c.RewardMultiple,
			PctSize:        c.SizePct,
			PlacementMode:  c.PlacementMode,
			Price:          price,
		})
	}
	return out
}

// avoidObstacles pulls price back toward entry (by at most maxAdjBps)
// whenever it falls within an obstacle's clearance buffer, so the TP
// fills before the dense zone / level rather than inside it.
func avoidObstacles(price decimal.Decimal, sign, maxAdjBps decimal.Decimal, obstacles []TPObstacle) decimal.Decimal {
	budget := maxAdjBps
	for _, ob := range obstacles {
		if budget.LessThanOrEqual(decimal.Zero) {
			break
		}
		distFrac := price.Sub(ob.Price).Abs().Div(price)
		bufferFrac := ob.BufferBps.Div(bps)
		if distFrac.GreaterThanOrEqual(bufferFrac) {
			continue
		}
		neededBps := bufferFrac.Sub(distFrac).Mul(bps)
		if neededBps.GreaterThan(budget) {
			neededBps = budget
		}
		adj := price.Mul(neededBps.Div(bps))
		price = price.Sub(adj.Mul(sign))
		budget = budget.Sub(neededBps)
	}
	return price
}

// snapToRoundNumber pulls price to the nearest whole-number step if
// that lies within maxAdjBps of the unsnapped price.
func snapToRoundNumber(price, maxAdjBps decimal.Decimal) decimal.Decimal {
	nearest := price.Round(0)
	if nearest.Equal(price) {
		return price
	}
	distBps := nearest.Sub(price).Abs().Div(price).Mul(bps)
	if distBps.LessThanOrEqual(maxAdjBps) {
		return nearest
	}
	return price
}

// nextUntriggeredTPHit finds the first untriggered TP level whose price
// has been crossed by the given price.
func nextUntriggeredTPHit(pos *types.Position, price decimal.Decimal) (int, bool) {
	sign := positionSign(pos)
	for i := range pos.TPLevels {
		tp := &pos.TPLevels[i]
		if tp.Triggered {
			continue
		}
		crossed := false
		if sign > 0 {
			crossed = price.GreaterThanOrEqual(tp.Price)
		} else {
			crossed = price.LessThanOrEqual(tp.Price)
		}
		if crossed {
			return i, true
		}
		break // ladder fills in order; a later untriggered TP can't fire before an earlier one
	}
	return 0, false
}

// applyTPHit marks TP index idx triggered at price and books the
// realised PnL of its PctSize share of Qty. Qty itself is left
// unchanged, so every share is taken of the original quantity.
func (m *Manager) applyTPHit(t *tracked, idx int, price decimal.Decimal) {
	tp := &t.pos.TPLevels[idx]
	tp.Triggered = true
	tp.Price = price

	closedQty := t.pos.Qty.Mul(tp.PctSize)
	pnl := closedQty.Mul(price.Sub(t.pos.Entry)).Mul(decimal.NewFromInt(int64(positionSign(t.pos))))
	t.pos.RealizedPnLUSD = t.pos.RealizedPnLUSD.Add(pnl)
}

// allTPsTriggered reports whether every TP level has fired.
func allTPsTriggered(pos *types.Position) bool {
	for _, tp := range pos.TPLevels {
		if !tp.Triggered {
			return false
		}
	}
	return len(pos.TPLevels) > 0
}
