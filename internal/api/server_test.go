package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/il101/breakout-engine/internal/api"
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

type noopMarkets struct{}

func (noopMarkets) Markets(ctx context.Context) ([]types.MarketData, *types.MarketData, error) {
	return nil, nil, nil
}

type noopDepth struct{}

func (noopDepth) GetAggregatedDepth(symbol string, side types.OrderSide, rangeBps decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

type noopCorrelation struct{}

func (noopCorrelation) Correlation(a, b string) decimal.Decimal { return decimal.Zero }

type noopOrderBook struct{}

func (noopOrderBook) GetImbalance(symbol string, rangeBps decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

type noopActivity struct{}

func (noopActivity) GetMetrics(symbol string) (activity.Metrics, bool) { return activity.Metrics{}, false }

type noopVenue struct{}

func (noopVenue) FetchMarkets(ctx context.Context) ([]string, error) { return nil, nil }
func (noopVenue) FetchOHLCV(ctx context.Context, symbol, tf string, limit int, since *time.Time) ([]types.Candle, error) {
	return nil, nil
}
func (noopVenue) FetchOrderBook(ctx context.Context, symbol string) (*types.OrderBookSnapshot, error) {
	return nil, nil
}
func (noopVenue) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (noopVenue) FetchBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100000), nil
}
func (noopVenue) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	return order, nil
}
func (noopVenue) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (noopVenue) SubscribeTrades(symbol string, cb venue.TradeCallback) error   { return nil }
func (noopVenue) SubscribeBook(symbol string, cb venue.BookCallback) error      { return nil }
func (noopVenue) Unsubscribe(symbol string) error                               { return nil }
func (noopVenue) Start(ctx context.Context) error                              { return nil }
func (noopVenue) Stop() error                                                   { return nil }

func testOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	preset := types.Preset{Name: "test", StrategyPriority: types.StrategyMomentum}

	scan := scanner.New(logger, preset.ScannerConfig, types.LiquidityFilterConfig{}, types.VolatilityFilterConfig{},
		decimal.NewFromFloat(0.8), levels.DefaultConfig(), func() float64 { return 0.1 })
	sig := signals.New(logger, diagnostics.NopSink{}, noopOrderBook{}, noopActivity{}, signals.NewBreakoutHistory(7*24*time.Hour))
	riskMgr := risk.New(logger, preset.Risk, noopDepth{}, noopCorrelation{}, decimal.NewFromInt(100000))
	posMgr := positions.New(logger, preset.PositionConfig, nil)

	return orchestrator.New(logger, orchestrator.DefaultConfig(), preset, noopMarkets{}, scan, sig, riskMgr, posMgr, nil, noopVenue{}, diagnostics.NopSink{}, nil)
}

func TestHealthEndpoint(t *testing.T) {
	orch := testOrchestrator(t)
	srv := api.NewServer(zap.NewNop(), api.DefaultConfig(), orch)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health orchestrator.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
}

func TestCommandEndpointAcceptsValidCommand(t *testing.T) {
	orch := testOrchestrator(t)
	srv := api.NewServer(zap.NewNop(), api.DefaultConfig(), orch)

	body, _ := json.Marshal(map[string]string{"type": "pause"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var result orchestrator.CommandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
}

func TestCommandEndpointRejectsUnknownType(t *testing.T) {
	orch := testOrchestrator(t)
	srv := api.NewServer(zap.NewNop(), api.DefaultConfig(), orch)

	body, _ := json.Marshal(map[string]string{"type": "not_a_command"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
