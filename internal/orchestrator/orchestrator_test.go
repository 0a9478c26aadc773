package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/internal/features/activity"
	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/internal/orchestrator"
	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/internal/risk"
	"github.com/il101/breakout-engine/internal/scanner"
	"github.com/il101/breakout-engine/internal/signals"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emptyMarkets struct{}

func (emptyMarkets) Markets(ctx context.Context) ([]types.MarketData, *types.MarketData, error) {
	return nil, nil, nil
}

type fakeDepth struct{}

func (fakeDepth) GetAggregatedDepth(symbol string, side types.OrderSide, rangeBps decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1_000_000)
}

type fakeCorrelation struct{}

func (fakeCorrelation) Correlation(a, b string) decimal.Decimal { return decimal.Zero }

type fakeOrderBook struct{}

func (fakeOrderBook) GetImbalance(symbol string, rangeBps decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

type fakeActivity struct{}

func (fakeActivity) GetMetrics(symbol string) (activity.Metrics, bool) {
	return activity.Metrics{}, false
}

type fakeVenue struct {
	balance decimal.Decimal
	orders  []*types.Order
}

func (f *fakeVenue) FetchMarkets(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeVenue) FetchOHLCV(ctx context.Context, symbol, tf string, limit int, since *time.Time) ([]types.Candle, error) {
	return nil, nil
}
func (f *fakeVenue) FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error) {
	return nil, nil
}
func (f *fakeVenue) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeVenue) FetchBalance(ctx context.Context) (decimal.Decimal, error) {
	return f.balance, nil
}
func (f *fakeVenue) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	filled := *order
	filled.ID = "ord-1"
	filled.FilledQty = order.Qty
	filled.AvgFillPrice = decimal.NewFromInt(100)
	filled.Status = types.OrderStatusFilled
	f.orders = append(f.orders, &filled)
	return &filled, nil
}
func (f *fakeVenue) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (f *fakeVenue) SubscribeTrades(symbol string, cb venue.TradeCallback) error { return nil }
func (f *fakeVenue) SubscribeBook(symbol string, cb venue.BookCallback) error    { return nil }
func (f *fakeVenue) Unsubscribe(symbol string) error                            { return nil }
func (f *fakeVenue) Start(ctx context.Context) error                            { return nil }
func (f *fakeVenue) Stop() error                                                { return nil }

func testPreset() types.Preset {
	return types.Preset{
		Name:             "test",
		StrategyPriority: types.StrategyMomentum,
		Risk: types.RiskConfig{
			RiskPerTrade:           decimal.NewFromFloat(0.01),
			MaxPositionSizeUSD:     decimal.NewFromInt(10000),
			MaxDepthFraction:       decimal.NewFromFloat(0.1),
			DepthRangeBps:          decimal.NewFromInt(50),
			MaxConcurrentPositions: 3,
			DailyRiskLimit:         decimal.NewFromFloat(0.05),
			KillSwitchLossLimit:    decimal.NewFromFloat(0.15),
			CorrelationLimit:       decimal.NewFromFloat(0.8),
		},
		PositionConfig: types.PositionConfig{
			BreakevenTriggerR:   decimal.NewFromInt(1),
			BreakevenBufferBps:  decimal.NewFromInt(10),
			TrailingActivationR: decimal.NewFromFloat(1.5),
			TrailingStepBps:     decimal.NewFromInt(100),
			MaxHoldTimeHours:    decimal.NewFromInt(24),
			EntryConfirmBars:    2,
			EntryConfirmMaxSlip: decimal.NewFromFloat(0.01),
		},
		ScannerConfig: types.ScannerConfig{
			MaxCandidates: 10,
			BatchSize:     5,
			Concurrency:   2,
		},
		LevelsRules: types.LevelsRulesConfig{
			CascadeMinLevels: 2,
		},
	}
}

func testOrchestrator(t *testing.T, venueClient *fakeVenue) *orchestrator.Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	preset := testPreset()

	scan := scanner.New(logger, preset.ScannerConfig, types.LiquidityFilterConfig{}, types.VolatilityFilterConfig{},
		preset.Risk.CorrelationLimit, levels.DefaultConfig(), func() float64 { return 0.1 })
	sig := signals.New(logger, diagnostics.NopSink{}, fakeOrderBook{}, fakeActivity{}, signals.NewBreakoutHistory(7*24*time.Hour))
	riskMgr := risk.New(logger, preset.Risk, fakeDepth{}, fakeCorrelation{}, decimal.NewFromInt(100000))
	posMgr := positions.New(logger, preset.PositionConfig, nil)

	cfg := orchestrator.DefaultConfig()
	return orchestrator.New(logger, cfg, preset, emptyMarkets{}, scan, sig, riskMgr, posMgr, nil, venueClient, diagnostics.NopSink{}, nil)
}

func TestOrchestratorStartsInScanningAfterRun(t *testing.T) {
	v := &fakeVenue{balance: decimal.NewFromInt(100000)}
	o := testOrchestrator(t, v)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	o.Run(ctx)

	health := o.Health()
	require.Equal(t, orchestrator.StateScanning, health.State)
}

func TestOrchestratorPauseAndResume(t *testing.T) {
	v := &fakeVenue{balance: decimal.NewFromInt(100000)}
	o := testOrchestrator(t, v)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	o.Submit(orchestrator.Command{Type: orchestrator.CommandPause})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, orchestrator.StatePaused, o.Health().State)

	o.Submit(orchestrator.Command{Type: orchestrator.CommandResume})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, orchestrator.StateScanning, o.Health().State)

	cancel()
	<-done
}

func TestOrchestratorKillSwitchEntersEmergency(t *testing.T) {
	v := &fakeVenue{balance: decimal.NewFromInt(100000)}
	o := testOrchestrator(t, v)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	o.Submit(orchestrator.Command{Type: orchestrator.CommandKillSwitch})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, orchestrator.StateEmergency, o.Health().State)

	cancel()
	<-done
}

func TestOrchestratorStopEndsRun(t *testing.T) {
	v := &fakeVenue{balance: decimal.NewFromInt(100000)}
	o := testOrchestrator(t, v)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	o.Submit(orchestrator.Command{Type: orchestrator.CommandStop})

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("orchestrator did not stop after stop command")
	}
}

func TestDefaultResourceThresholdsClassifySoftAndHardBreach(t *testing.T) {
	logger := zap.NewNop()
	cfg := orchestrator.ResourceThresholds{
		SoftRSSPercent: 0, HardRSSPercent: 200,
		SoftCPUPercent: 200, HardCPUPercent: 200,
		DiskPath: "/", SoftDiskPercent: 200, HardDiskPercent: 200,
		SampleInterval: time.Minute, HardBreachLimit: 2,
	}
	m := orchestrator.NewResourceMonitor(logger, cfg)

	sample := m.Sample(context.Background())
	require.True(t, sample.SoftBreach)
	require.False(t, sample.HardBreach)
	require.Contains(t, sample.BreachReasons, "rss")
}

func TestResourceMonitorSustainedHardBreachRequiresConsecutiveSamples(t *testing.T) {
	logger := zap.NewNop()
	cfg := orchestrator.ResourceThresholds{
		SoftRSSPercent: 0, HardRSSPercent: 0,
		SoftCPUPercent: 200, HardCPUPercent: 200,
		DiskPath: "/", SoftDiskPercent: 200, HardDiskPercent: 200,
		SampleInterval: time.Minute, HardBreachLimit: 2,
	}
	m := orchestrator.NewResourceMonitor(logger, cfg)

	m.Sample(context.Background())
	require.False(t, m.SustainedHardBreach())
	m.Sample(context.Background())
	require.True(t, m.SustainedHardBreach())
}
