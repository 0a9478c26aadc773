// Package risk implements the risk manager (C9): R-unit position
// sizing plus the concurrent/correlation/daily-loss/kill-switch gates.
// Adapted wholesale from the teacher's execution risk manager, with
// percent-of-portfolio limits replaced by the R-unit/equity sizing
// model and the violation list replaced by a single evaluate call.
package risk

import (
	"sync"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepthProvider is the slice of the order-book manager the sizing model
// needs: aggregated depth (cumulative base-asset size) on a side within
// rangeBps. size converts it to notional at the signal's entry price.
type DepthProvider interface {
	GetAggregatedDepth(symbol string, side types.OrderSide, rangeBps decimal.Decimal) decimal.Decimal
}

// CorrelationProvider estimates the correlation between two symbols.
// The default implementation derives it from each symbol's correlation
// to BTC, since that is the only correlation figure the scanner already
// tracks per-symbol (see DESIGN.md for this Open Question resolution).
type CorrelationProvider interface {
	Correlation(a, b string) decimal.Decimal
}

// SizingResult is the §4.9 sizing output.
type SizingResult struct {
	Quantity          decimal.Decimal
	NotionalUSD       decimal.Decimal
	RiskUSD           decimal.Decimal
	RiskR             decimal.Decimal
	StopDistance      decimal.Decimal
	IsValid           bool
	Reason            string
	PrecisionAdjusted bool
}

// LimitsStatus is the result of a per-cycle limits check.
type LimitsStatus struct {
	KillSwitchTriggered bool
	OverallStatus       string
}

type openPosition struct {
	symbol string
}

// Manager tracks daily realised R/loss and open-position state and
// gates new signals against the configured limits.
type Manager struct {
	logger *zap.Logger
	cfg    types.RiskConfig
	depth  DepthProvider
	corr   CorrelationProvider

	mu                 sync.RWMutex
	sessionStartEquity decimal.Decimal
	dailyRealizedR     decimal.Decimal // informational: cumulative realised R-multiples today
	dailyRealizedPnL   decimal.Decimal // signed USD PnL today; negative = net loss
	openPositions      map[string]openPosition
	killSwitchActive   bool
	killSwitchReason   string
}

// New builds a Manager. sessionStartEquity anchors the kill-switch
// threshold for the trading session.
func New(logger *zap.Logger, cfg types.RiskConfig, depth DepthProvider, corr CorrelationProvider, sessionStartEquity decimal.Decimal) *Manager {
	return &Manager{
		logger:             logger.Named("risk-manager"),
		cfg:                cfg,
		depth:              depth,
		corr:               corr,
		sessionStartEquity: sessionStartEquity,
		openPositions:      make(map[string]openPosition),
	}
}

// EvaluateSignalRisk runs all gates and computes R-unit sizing for a
// candidate signal against the current equity (§4.9).
func (m *Manager) EvaluateSignalRisk(signal types.Signal, equity decimal.Decimal) (approved bool, size SizingResult, reason string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.killSwitchActive {
		return false, SizingResult{IsValid: false, Reason: "kill switch active"}, m.killSwitchReason
	}

	if len(m.openPositions) >= m.cfg.MaxConcurrentPositions {
		return false, SizingResult{IsValid: false, Reason: "max concurrent positions"}, "max_concurrent_positions"
	}

	if m.corr != nil {
		for _, p := range m.openPositions {
			c := m.corr.Correlation(signal.Symbol, p.symbol).Abs()
			if c.GreaterThanOrEqual(m.cfg.CorrelationLimit) {
				return false, SizingResult{IsValid: false, Reason: "correlation limit"}, "correlation_limit"
			}
		}
	}

	dailyRiskFloor := m.cfg.DailyRiskLimit.Mul(equity).Neg()
	if m.dailyRealizedPnL.LessThanOrEqual(dailyRiskFloor) {
		return false, SizingResult{IsValid: false, Reason: "daily risk limit"}, "daily_risk_limit"
	}

	size = m.size(signal, equity)
	if !size.IsValid {
		return false, size, size.Reason
	}

	return true, size, "approved"
}

// size computes the R-unit quantity and applies the max-notional and
// max-depth-fraction clamps (§4.9).
func (m *Manager) size(signal types.Signal, equity decimal.Decimal) SizingResult {
	stopDistance := signal.Entry.Sub(signal.SL).Abs()
	if stopDistance.IsZero() {
		return SizingResult{IsValid: false, Reason: "zero stop distance"}
	}

	riskUSD := equity.Mul(m.cfg.RiskPerTrade)
	quantity := riskUSD.Div(stopDistance)
	precisionAdjusted := false

	notional := quantity.Mul(signal.Entry)
	if notional.GreaterThan(m.cfg.MaxPositionSizeUSD) {
		quantity = m.cfg.MaxPositionSizeUSD.Div(signal.Entry)
		notional = m.cfg.MaxPositionSizeUSD
		precisionAdjusted = true
	}

	if m.depth != nil && !m.cfg.MaxDepthFraction.IsZero() {
		side := types.OrderSideBuy
		if signal.Side == types.PositionSideShort {
			side = types.OrderSideSell
		}
		bookDepth := m.depth.GetAggregatedDepth(signal.Symbol, side, m.cfg.DepthRangeBps)
		maxNotionalFromDepth := bookDepth.Mul(signal.Entry).Mul(m.cfg.MaxDepthFraction)
		if !bookDepth.IsZero() && notional.GreaterThan(maxNotionalFromDepth) {
			notional = maxNotionalFromDepth
			quantity = notional.Div(signal.Entry)
			precisionAdjusted = true
		}
	}

	if quantity.LessThanOrEqual(decimal.Zero) {
		return SizingResult{IsValid: false, Reason: "non-positive quantity after clamping"}
	}

	actualRiskUSD := quantity.Mul(stopDistance)
	riskR := decimal.NewFromInt(1)
	if !riskUSD.IsZero() {
		riskR = actualRiskUSD.Div(riskUSD)
	}

	return SizingResult{
		Quantity:          quantity,
		NotionalUSD:       notional,
		RiskUSD:           actualRiskUSD,
		RiskR:             riskR,
		StopDistance:      stopDistance,
		IsValid:           true,
		Reason:            "ok",
		PrecisionAdjusted: precisionAdjusted,
	}
}

// CheckRiskLimits runs the kill-switch check; called every cycle (§4.9).
func (m *Manager) CheckRiskLimits(equity decimal.Decimal) LimitsStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	killThreshold := m.cfg.KillSwitchLossLimit.Mul(m.sessionStartEquity).Neg()
	if !m.killSwitchActive && m.dailyRealizedPnL.LessThanOrEqual(killThreshold) {
		m.killSwitchActive = true
		m.killSwitchReason = "daily realised loss exceeded kill switch threshold"
		m.logger.Error("kill switch activated",
			zap.String("dailyRealizedPnL", m.dailyRealizedPnL.String()),
			zap.String("threshold", killThreshold.String()))
	}

	status := "normal"
	if m.killSwitchActive {
		status = "halted"
	} else if len(m.openPositions) >= m.cfg.MaxConcurrentPositions {
		status = "saturated"
	}

	return LimitsStatus{KillSwitchTriggered: m.killSwitchActive, OverallStatus: status}
}

// OnPositionOpened records a new open position for the concurrent and
// correlation gates.
func (m *Manager) OnPositionOpened(positionID, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openPositions[positionID] = openPosition{symbol: symbol}
}

// OnPositionClosed removes a closed position and folds its realised R
// and USD PnL into the daily tallies.
func (m *Manager) OnPositionClosed(positionID string, realizedR decimal.Decimal, realizedPnLUSD decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.openPositions, positionID)
	m.dailyRealizedR = m.dailyRealizedR.Add(realizedR)
	m.dailyRealizedPnL = m.dailyRealizedPnL.Add(realizedPnLUSD)
}

// ResetDaily clears the daily realised R/PnL tallies; called at the
// start of a new trading day.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyRealizedR = decimal.Zero
	m.dailyRealizedPnL = decimal.Zero
}

// IsKillSwitchActive reports the current kill-switch latch state.
func (m *Manager) IsKillSwitchActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.killSwitchActive
}

// ResetKillSwitch clears the latch; used after an operator-confirmed
// flat-all.
func (m *Manager) ResetKillSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killSwitchActive = false
	m.killSwitchReason = ""
}

// OpenPositionCount returns the number of positions currently tracked.
func (m *Manager) OpenPositionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.openPositions)
}
