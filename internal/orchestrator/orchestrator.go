// Package orchestrator implements the top-level cooperative cycle (C11):
// the SCANNING -> LEVEL_BUILDING -> SIGNAL_WAIT -> SIZING -> EXECUTION ->
// MANAGING state machine, its PAUSED/ERROR/EMERGENCY branches, the
// control-plane command queue, and resource self-management. Adapted
// from the teacher's TradingOrchestrator (event-driven wiring, ticker
// loops, mu-guarded lifecycle) generalized onto the named states, and
// from the autonomous agent's mainLoop/EmergencyStop shape.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/internal/features/density"
	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/internal/risk"
	"github.com/il101/breakout-engine/internal/scanner"
	"github.com/il101/breakout-engine/internal/signals"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketDataSource supplies the universe of markets (and the BTC
// reference market, for correlation) the scanner evaluates each cycle.
// Satisfied in production by the feature trackers fed off the venue
// client's websocket streams.
type MarketDataSource interface {
	Markets(ctx context.Context) ([]types.MarketData, *types.MarketData, error)
}

// Config tunes the orchestrator's cycle pacing and retry budget.
type Config struct {
	MinCycleDelay    time.Duration
	MaxCycleDelay    time.Duration
	CycleDelayStep   time.Duration
	MaxRetryAttempts int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	Resource         ResourceThresholds
}

// DefaultConfig returns sensible cycle-pacing defaults.
func DefaultConfig() Config {
	return Config{
		MinCycleDelay:    200 * time.Millisecond,
		MaxCycleDelay:    10 * time.Second,
		CycleDelayStep:   200 * time.Millisecond,
		MaxRetryAttempts: 5,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  30 * time.Second,
		Resource:         DefaultResourceThresholds(),
	}
}

// HealthStatus is the health endpoint's reported shape (§4.11 /
// user-visible behaviour).
type HealthStatus struct {
	State            State     `json:"state"`
	KillSwitchActive bool      `json:"kill_switch_active,omitempty"`
	LastError        string    `json:"last_error,omitempty"`
	OpenPositions    int       `json:"open_positions"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
}

// Orchestrator runs the cooperative cycle over the scanner, signal
// generator, risk manager, and position manager.
type Orchestrator struct {
	logger *zap.Logger
	cfg    Config
	preset types.Preset

	markets MarketDataSource
	scan    *scanner.Scanner
	signal  *signals.Generator
	riskMgr *risk.Manager
	posMgr  *positions.Manager
	entryV  *positions.EntryValidator
	density *density.Detector
	venue   venue.Client
	diag    diagnostics.Sink
	monitor *ResourceMonitor
	metrics *metrics

	// OnOptimize runs a soft-threshold optimisation pass (cache clears,
	// window compaction); defaults to a bare runtime.GC().
	OnOptimize func()

	mu         sync.RWMutex
	state      State
	prevState  State
	lastError  string
	candidates []types.ScanResult
	pending    *types.Signal
	cycleDelay time.Duration
	startedAt  time.Time
	retries    int
	lastEquity decimal.Decimal

	cmdCh chan Command
	stopCh chan struct{}
	running bool
}

// New builds an Orchestrator. venueClient is used for order placement
// and emergency flat-all; it may be a paper client in dry-run mode. reg
// registers the Prometheus instrumentation; pass nil to skip
// registration (e.g. in tests that construct more than one Orchestrator
// against the default registry).
func New(
	logger *zap.Logger,
	cfg Config,
	preset types.Preset,
	markets MarketDataSource,
	scan *scanner.Scanner,
	signal *signals.Generator,
	riskMgr *risk.Manager,
	posMgr *positions.Manager,
	densityDetector *density.Detector,
	venueClient venue.Client,
	diag diagnostics.Sink,
	reg prometheus.Registerer,
) *Orchestrator {
	if diag == nil {
		diag = diagnostics.NopSink{}
	}
	o := &Orchestrator{
		logger:     logger.Named("orchestrator"),
		cfg:        cfg,
		preset:     preset,
		markets:    markets,
		scan:       scan,
		signal:     signal,
		riskMgr:    riskMgr,
		posMgr:     posMgr,
		entryV:     positions.NewEntryValidator(preset.SignalConfig, nil),
		density:    densityDetector,
		venue:      venueClient,
		diag:       diag,
		monitor:    NewResourceMonitor(logger, cfg.Resource),
		metrics:    newMetrics(reg),
		state:      StateInitializing,
		cycleDelay: cfg.MinCycleDelay,
		cmdCh:      make(chan Command, 32),
		stopCh:     make(chan struct{}),
	}
	o.OnOptimize = o.defaultOptimize
	return o
}

// Submit enqueues a control-plane command (§6).
func (o *Orchestrator) Submit(cmd Command) {
	select {
	case o.cmdCh <- cmd:
	default:
		o.logger.Warn("command queue full, dropping command", zap.String("type", string(cmd.Type)))
	}
}

// Run drives the cooperative cycle until ctx is cancelled or stop() is
// commanded. It never blocks the caller's event loop: every suspension
// point is a channel select or a bounded venue call.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.running = true
	o.startedAt = time.Now()
	o.state = StateScanning
	o.mu.Unlock()

	o.record("orchestrator", "start", "", nil, "", nil)

	lastResourceSample := time.Now()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return
		case <-o.stopCh:
			o.shutdown()
			return
		case cmd := <-o.cmdCh:
			o.handleCommand(ctx, cmd)
			continue
		default:
		}

		if time.Since(lastResourceSample) >= o.cfg.Resource.SampleInterval {
			o.sampleResources(ctx)
			lastResourceSample = time.Now()
		}

		o.mu.RLock()
		stateLabel := string(o.state)
		o.mu.RUnlock()

		cycleStart := time.Now()
		o.runCycle(ctx)
		duration := time.Since(cycleStart)
		o.adaptDelay(duration)

		o.metrics.cycleDuration.Observe(duration.Seconds())
		o.metrics.cyclesTotal.WithLabelValues(stateLabel).Inc()
		o.metrics.openPositions.Set(float64(o.riskMgr.OpenPositionCount()))
		if o.riskMgr.IsKillSwitchActive() {
			o.metrics.killSwitch.Set(1)
		} else {
			o.metrics.killSwitch.Set(0)
		}

		select {
		case <-ctx.Done():
			o.shutdown()
			return
		case <-o.stopCh:
			o.shutdown()
			return
		case cmd := <-o.cmdCh:
			o.handleCommand(ctx, cmd)
		case <-time.After(o.cycleDelay):
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	o.record("orchestrator", "stop", "", nil, "", nil)
}

// runCycle executes exactly one step of the current state, recovering
// from panics into the ERROR state per §7's propagation policy.
func (o *Orchestrator) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.enterError(fmt.Sprintf("panic: %v", r))
		}
	}()

	o.mu.RLock()
	state := o.state
	o.mu.RUnlock()

	switch state {
	case StateScanning:
		o.stepScanning(ctx)
	case StateLevelBuilding:
		o.stepLevelBuilding()
	case StateSignalWait:
		o.stepSignalWait()
	case StateSizing:
		o.stepSizing()
	case StateExecution:
		o.stepExecution(ctx)
	case StateManaging:
		o.stepManaging(ctx)
	case StateError:
		o.stepError(ctx)
	case StatePaused, StateEmergency:
		// Commands or operator action drive these; the cycle is a no-op.
	}
}

func (o *Orchestrator) stepScanning(ctx context.Context) {
	markets, btc, err := o.markets.Markets(ctx)
	if err != nil {
		o.enterError(fmt.Sprintf("market data fetch failed: %v", err))
		return
	}

	scanStart := time.Now()
	results := o.scan.Scan(ctx, markets, btc)
	o.metrics.scanDuration.Observe(time.Since(scanStart).Seconds())

	var candidates []types.ScanResult
	for _, r := range results {
		if r.PassedAllFilters {
			candidates = append(candidates, r)
		}
	}

	if len(candidates) == 0 {
		return
	}

	o.mu.Lock()
	o.candidates = candidates
	o.state = StateLevelBuilding
	o.mu.Unlock()
	o.transition(StateScanning, StateLevelBuilding, fmt.Sprintf("%d candidates", len(candidates)))
}

func (o *Orchestrator) stepLevelBuilding() {
	levelsCfg := levels.DefaultConfig()
	levelsCfg.RoundNumberEnabled = o.preset.LevelsRules.PreferRoundNumbers
	if len(o.preset.LevelsRules.RoundStepCandidates) > 0 {
		levelsCfg.RoundStepCandidates = o.preset.LevelsRules.RoundStepCandidates
	}
	levelsCfg.CascadeMinLevels = o.preset.LevelsRules.CascadeMinLevels
	levelsCfg.CascadeRadiusBps = o.preset.LevelsRules.CascadeRadiusBps
	levelsCfg.ApproachMaxSlopePct = o.preset.LevelsRules.ApproachMaxSlopePct
	levelsCfg.ApproachMinConsolidation = o.preset.LevelsRules.ApproachMinConsolidationBars

	o.mu.Lock()
	for i := range o.candidates {
		md := o.candidates[i].MarketData
		o.candidates[i].Levels = levels.Detect(md.Candles5m, md.ATR5m, levelsCfg)
	}
	o.state = StateSignalWait
	o.mu.Unlock()
	o.transition(StateLevelBuilding, StateSignalWait, "levels built")
}

func (o *Orchestrator) stepSignalWait() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, c := range o.candidates {
		if sig := o.signal.Generate(c, o.preset.SignalConfig, o.preset.StrategyPriority); sig != nil {
			o.pending = sig
			o.state = StateSizing
			o.transitionLocked(StateSignalWait, StateSizing, "signal: "+sig.Symbol)
			return
		}
	}

	o.candidates = nil
	o.state = StateScanning
	o.transitionLocked(StateSignalWait, StateScanning, "no signal")
}

func (o *Orchestrator) stepSizing() {
	o.mu.Lock()
	sig := o.pending
	o.mu.Unlock()
	if sig == nil {
		o.mu.Lock()
		o.state = StateScanning
		o.mu.Unlock()
		return
	}

	equity := o.currentEquity()
	approved, size, reason := o.riskMgr.EvaluateSignalRisk(*sig, equity)

	o.record("risk", "evaluate_signal_risk", sig.Symbol, map[string]any{
		"approved": approved,
		"reason":   reason,
		"quantity": size.Quantity.String(),
	}, reason, &approved)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !approved {
		o.pending = nil
		o.candidates = nil
		o.state = StateScanning
		o.transitionLocked(StateSizing, StateScanning, "risk refusal: "+reason)
		return
	}

	report := o.validateEntry(sig)
	if !report.IsValid {
		o.record("positions", "entry_validation", sig.Symbol, map[string]any{
			"failed_critical": report.FailedCritical,
			"confidence":      report.Confidence.String(),
		}, "entry gate rejected", nil)
		o.pending = nil
		o.candidates = nil
		o.state = StateScanning
		o.transitionLocked(StateSizing, StateScanning, "entry gate: "+strings.Join(report.FailedCritical, ","))
		return
	}

	sig.Meta.PositionSize = size.Quantity
	o.pending = sig
	o.state = StateExecution
	o.transitionLocked(StateSizing, StateExecution, "approved")
}

// validateEntry runs the §4.10 pre-entry gate over the pending signal,
// using the signal's market snapshot for volume/price context and the
// density detector's tracked levels as avoidance zones. No market-
// quality classifier is wired into the orchestrator, so that check is
// skipped (NewEntryValidator's marketCfg is nil).
func (o *Orchestrator) validateEntry(sig *types.Signal) positions.ValidationReport {
	md := sig.Meta.MarketSnapshot
	candles := md.Candles5m

	var currentPrice, currentVol, avgVol decimal.Decimal
	if n := len(candles); n > 0 {
		last := candles[n-1]
		currentPrice = last.Close
		currentVol = last.Volume

		window := candles[:n-1]
		if len(window) > 20 {
			window = window[len(window)-20:]
		}
		avgVol = meanVolume(window)
	}

	priceChangePct := decimal.Zero
	if !sig.Level.IsZero() {
		priceChangePct = currentPrice.Sub(sig.Level).Div(sig.Level).Mul(decimal.NewFromInt(100))
	}

	entrySig := positions.EntrySignal{
		BreakoutPrice:  sig.Level,
		CurrentPrice:   currentPrice,
		EntryPrice:     sig.Entry,
		StopLoss:       sig.SL,
		BreakoutVolume: currentVol,
		AvgVolume:      avgVol,
		CurrentVolume:  currentVol,
		PriceChangePct: priceChangePct,
		DensityZones:   o.densityZones(sig.Symbol),
		IsLong:         sig.DirectionSign() > 0,
	}
	return o.entryV.Validate(entrySig)
}

// densityZones converts the density detector's tracked liquidity walls
// for symbol into avoidance bands padded by the same buffer the TP
// ladder pulls back from.
func (o *Orchestrator) densityZones(symbol string) []positions.DensityZone {
	if o.density == nil {
		return nil
	}
	levels := o.density.TrackedLevels(symbol)
	if len(levels) == 0 {
		return nil
	}
	bufferBps := o.preset.PositionConfig.TPSmartPlacement.DensityZoneBufferBps
	zones := make([]positions.DensityZone, len(levels))
	for i, l := range levels {
		buf := l.Price.Mul(bufferBps).Div(decimal.NewFromInt(10000))
		zones[i] = positions.DensityZone{Low: l.Price.Sub(buf), High: l.Price.Add(buf)}
	}
	return zones
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

func (o *Orchestrator) stepExecution(ctx context.Context) {
	o.mu.Lock()
	sig := o.pending
	o.mu.Unlock()
	if sig == nil {
		o.mu.Lock()
		o.state = StateScanning
		o.mu.Unlock()
		return
	}

	side := types.OrderSideBuy
	posSide := types.PositionSideLong
	if sig.DirectionSign() < 0 {
		side = types.OrderSideSell
		posSide = types.PositionSideShort
	}

	order := &types.Order{
		Symbol: sig.Symbol,
		Side:   side,
		Type:   types.OrderTypeMarket,
		Qty:    sig.Meta.PositionSize,
	}

	filled, err := o.venue.PlaceOrder(ctx, order)
	if err != nil {
		o.enterError(fmt.Sprintf("order placement failed: %v", err))
		return
	}

	pos := &types.Position{
		ID:            filled.ID,
		Symbol:        sig.Symbol,
		Side:          posSide,
		Strategy:      sig.Strategy,
		Qty:           filled.FilledQty,
		Entry:         filled.AvgFillPrice,
		SL:            sig.SL,
		BreakoutLevel: sig.Level,
		OpenedAt:      time.Now(),
	}
	o.posMgr.Open(pos, decimal.Zero, o.tpObstacles(sig.Symbol), false)
	o.posMgr.OnFill(pos.ID, filled.AvgFillPrice)
	o.riskMgr.OnPositionOpened(pos.ID, pos.Symbol)

	o.mu.Lock()
	o.pending = nil
	o.candidates = nil
	o.state = StateManaging
	o.transitionLocked(StateExecution, StateManaging, "filled: "+pos.ID)
	o.mu.Unlock()
}

// tpObstacles translates the density detector's currently tracked
// liquidity walls for symbol into TP-ladder obstacles the smart/adaptive
// placement mode (§4.10) pulls back from.
func (o *Orchestrator) tpObstacles(symbol string) []positions.TPObstacle {
	if o.density == nil {
		return nil
	}
	levels := o.density.TrackedLevels(symbol)
	if len(levels) == 0 {
		return nil
	}
	obstacles := make([]positions.TPObstacle, len(levels))
	for i, l := range levels {
		obstacles[i] = positions.TPObstacle{
			Price:     l.Price,
			BufferBps: o.preset.PositionConfig.TPSmartPlacement.DensityZoneBufferBps,
		}
	}
	return obstacles
}

func (o *Orchestrator) stepManaging(ctx context.Context) {
	limits := o.riskMgr.CheckRiskLimits(o.currentEquity())
	if limits.KillSwitchTriggered {
		o.enterEmergency(ctx, "kill switch triggered")
		return
	}

	if o.riskMgr.OpenPositionCount() == 0 {
		o.mu.Lock()
		o.state = StateScanning
		o.transitionLocked(StateManaging, StateScanning, "free slots")
		o.mu.Unlock()
	}
}

func (o *Orchestrator) stepError(ctx context.Context) {
	o.mu.Lock()
	o.retries++
	retries := o.retries
	o.mu.Unlock()

	if retries > o.cfg.MaxRetryAttempts {
		o.logger.Error("retry budget exhausted, remaining in ERROR", zap.Int("retries", retries))
		return
	}

	backoff := o.cfg.RetryBackoffBase * time.Duration(retries)
	if backoff > o.cfg.RetryBackoffMax {
		backoff = o.cfg.RetryBackoffMax
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(backoff):
	}

	o.mu.Lock()
	o.retries = 0
	o.candidates = nil
	o.pending = nil
	o.state = StateScanning
	o.transitionLocked(StateError, StateScanning, "retry")
	o.mu.Unlock()
}

// handleCommand applies a control-plane command (§4.11 / §6).
func (o *Orchestrator) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CommandStop:
		close(o.stopCh)
	case CommandPause:
		o.mu.Lock()
		if o.state != StatePaused {
			o.prevState = o.state
			o.transitionLocked(o.state, StatePaused, "pause command")
			o.state = StatePaused
		}
		o.mu.Unlock()
	case CommandResume:
		o.mu.Lock()
		if o.state == StatePaused {
			o.transitionLocked(StatePaused, o.prevState, "resume command")
			o.state = o.prevState
		}
		o.mu.Unlock()
	case CommandTimeStop, CommandPanicExit, CommandKillSwitch:
		o.enterEmergency(ctx, string(cmd.Type))
	case CommandRetry:
		o.mu.Lock()
		if o.state == StateError {
			o.retries = 0
		}
		o.mu.Unlock()
	}
}

// enterError transitions to ERROR and records the failing reason.
func (o *Orchestrator) enterError(reason string) {
	o.mu.Lock()
	from := o.state
	o.lastError = reason
	o.state = StateError
	o.transitionLocked(from, StateError, reason)
	o.mu.Unlock()
	o.logger.Warn("entering error state", zap.String("reason", reason))
}

// enterEmergency moves the orchestra to EMERGENCY and, for every open
// position, requests an exit and places an opposite-side market order
// for the position's full quantity. It does not cancel resting orders
// and does not latch the risk manager's kill switch. The EMERGENCY cycle
// is a no-op, so no new entries are made, and no command leads from
// EMERGENCY back to SCANNING.
func (o *Orchestrator) enterEmergency(ctx context.Context, reason string) {
	o.mu.Lock()
	from := o.state
	o.state = StateEmergency
	o.transitionLocked(from, StateEmergency, reason)
	o.mu.Unlock()

	o.logger.Error("EMERGENCY: flattening all positions", zap.String("reason", reason))

	for _, pos := range o.posMgr.OpenPositions() {
		o.posMgr.RequestExit(pos.ID, reason)
		side := types.OrderSideSell
		if pos.Side == types.PositionSideShort {
			side = types.OrderSideBuy
		}
		order := &types.Order{Symbol: pos.Symbol, Side: side, Type: types.OrderTypeMarket, Qty: pos.Qty}
		if _, err := o.venue.PlaceOrder(ctx, order); err != nil {
			o.logger.Error("emergency close failed", zap.String("symbol", pos.Symbol), zap.Error(err))
		}
	}
}

// sampleResources runs the 60s resource check and demotes the
// orchestra to PAUSED on sustained hard breaches (§5).
func (o *Orchestrator) sampleResources(ctx context.Context) {
	sample := o.monitor.Sample(ctx)
	if sample.SoftBreach && o.OnOptimize != nil {
		o.logger.Info("soft resource threshold breached, running optimisation pass",
			zap.Strings("reasons", sample.BreachReasons))
		o.OnOptimize()
	}
	if sample.HardBreach {
		o.logger.Error("hard resource threshold breached", zap.Strings("reasons", sample.BreachReasons))
	}
	if o.monitor.SustainedHardBreach() {
		o.mu.Lock()
		if o.state != StatePaused && o.state != StateEmergency {
			o.prevState = o.state
			o.transitionLocked(o.state, StatePaused, "sustained resource breach")
			o.state = StatePaused
		}
		o.mu.Unlock()
	}
}

func (o *Orchestrator) defaultOptimize() {
	runtime.GC()
}

// adaptDelay shrinks the cycle delay when cycles are fast and grows it
// otherwise, bounded by [MinCycleDelay, MaxCycleDelay] (§4.11 cycle
// pacing).
func (o *Orchestrator) adaptDelay(cycleDuration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cycleDuration < o.cfg.MinCycleDelay {
		o.cycleDelay -= o.cfg.CycleDelayStep
	} else {
		o.cycleDelay += o.cfg.CycleDelayStep
	}
	if o.cycleDelay < o.cfg.MinCycleDelay {
		o.cycleDelay = o.cfg.MinCycleDelay
	}
	if o.cycleDelay > o.cfg.MaxCycleDelay {
		o.cycleDelay = o.cfg.MaxCycleDelay
	}
}

// currentEquity returns the venue account balance. When the fetch fails
// it returns the last balance fetched successfully (zero before the
// first success).
func (o *Orchestrator) currentEquity() decimal.Decimal {
	bal, err := o.venue.FetchBalance(context.Background())
	if err != nil {
		o.logger.Warn("balance fetch failed, falling back to last known equity", zap.Error(err))
		o.mu.RLock()
		defer o.mu.RUnlock()
		return o.lastEquity
	}
	o.mu.Lock()
	o.lastEquity = bal
	o.mu.Unlock()
	return bal
}

func (o *Orchestrator) transition(from, to State, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitionLocked(from, to, reason)
}

// transitionLocked must be called with o.mu held.
func (o *Orchestrator) transitionLocked(from, to State, reason string) {
	o.logger.Debug("state transition",
		zap.String("from", string(from)), zap.String("to", string(to)), zap.String("reason", reason))
	o.metrics.stateTransitions.WithLabelValues(string(from), string(to)).Inc()
	o.record("orchestrator", "state_transition", "", map[string]any{"from": string(from), "to": string(to)}, reason, nil)
}

func (o *Orchestrator) record(component, stage, symbol string, payload map[string]any, reason string, passed *bool) {
	o.diag.Record(types.DiagnosticsEvent{
		TsMs:      time.Now().UnixMilli(),
		Component: component,
		Stage:     stage,
		Symbol:    symbol,
		Payload:   payload,
		Reason:    reason,
		Passed:    passed,
	})
}

// Health reports the orchestra's externally visible state (§4.11).
func (o *Orchestrator) Health() HealthStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return HealthStatus{
		State:            o.state,
		KillSwitchActive: o.riskMgr.IsKillSwitchActive(),
		LastError:        o.lastError,
		OpenPositions:    o.riskMgr.OpenPositionCount(),
		UptimeSeconds:    time.Since(o.startedAt).Seconds(),
	}
}
