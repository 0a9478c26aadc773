package positions_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/stretchr/testify/require"
)

func testSignalConfigForValidator() types.SignalConfig {
	return types.SignalConfig{
		MomentumEpsilon:          dec(0.5),
		MomentumVolumeMultiplier: dec(1.5),
		EntryRules: types.EntryRulesConfig{
			VolumeConfirmationEnabled:   true,
			MomentumSlopeEnabled:        true,
			DensityAvoidanceEnabled:     true,
			CleanBreakoutEnabled:        true,
			MarketQualityEnabled:        true,
			MaxBarsSinceBreakout:        3,
			CleanBreakoutMinDistancePct: dec(0.1),
		},
	}
}

func testMarketQualityConfig() *types.MarketQualityConfig {
	return &types.MarketQualityConfig{
		NoiseThreshold:    dec(0.3),
		FlatFilterEnabled: true,
	}
}

func goodLongSignal() positions.EntrySignal {
	return positions.EntrySignal{
		BreakoutPrice:     dec(100),
		CurrentPrice:      dec(100.5),
		EntryPrice:        dec(100.3),
		StopLoss:          dec(99),
		BreakoutVolume:    dec(1000),
		AvgVolume:         dec(500),
		CurrentVolume:     dec(800),
		PriceChangePct:    dec(0.5),
		BarsSinceBreakout: 2,
		NoiseLevel:        dec(0.15),
		IsLong:            true,
	}
}

func TestEntryValidatorAllPass(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	report := v.Validate(goodLongSignal())

	require.True(t, report.IsValid)
	require.Empty(t, report.FailedCritical)
	require.True(t, report.Confidence.GreaterThan(dec(0.6)))
}

func TestEntryValidatorInsufficientVolumeIsWarningNotCritical(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.BreakoutVolume = dec(600) // 1.2x, need 1.5x

	report := v.Validate(sig)
	check := report.GetCheck("volume_confirmation")
	require.NotNil(t, check)
	require.Equal(t, positions.ResultFailed, check.Result)
	require.True(t, report.IsValid)
	require.NotEmpty(t, report.Warnings)
}

func TestEntryValidatorVolumeCheckDisabled(t *testing.T) {
	cfg := testSignalConfigForValidator()
	cfg.EntryRules.VolumeConfirmationEnabled = false
	v := positions.NewEntryValidator(cfg, testMarketQualityConfig())

	report := v.Validate(goodLongSignal())
	check := report.GetCheck("volume_confirmation")
	require.Equal(t, positions.ResultSkipped, check.Result)
}

func TestEntryValidatorEntryInDensityZoneFails(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.DensityZones = []positions.DensityZone{{Low: dec(100), High: dec(101)}}

	report := v.Validate(sig)
	check := report.GetCheck("density_avoidance")
	require.Equal(t, positions.ResultFailed, check.Result)
}

func TestEntryValidatorNoDensityZonesPasses(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	report := v.Validate(goodLongSignal())
	check := report.GetCheck("density_avoidance")
	require.Equal(t, positions.ResultPassed, check.Result)
	require.True(t, check.Score.Equal(dec(1)))
}

func TestEntryValidatorWeakMomentumFails(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.PriceChangePct = dec(0.2) // below 0.5 min

	report := v.Validate(sig)
	check := report.GetCheck("momentum_confirmation")
	require.Equal(t, positions.ResultFailed, check.Result)
}

func TestEntryValidatorShortMomentumUsesMagnitude(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.IsLong = false
	sig.PriceChangePct = dec(-0.8)

	report := v.Validate(sig)
	check := report.GetCheck("momentum_confirmation")
	require.Equal(t, positions.ResultPassed, check.Result)
}

func TestEntryValidatorFlatMarketFails(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.IsFlat = true

	report := v.Validate(sig)
	check := report.GetCheck("market_quality")
	require.Equal(t, positions.ResultFailed, check.Result)
}

func TestEntryValidatorMarketQualityDisabledWhenConfigNil(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), nil)
	report := v.Validate(goodLongSignal())
	check := report.GetCheck("market_quality")
	require.Equal(t, positions.ResultSkipped, check.Result)
}

func TestEntryValidatorInsufficientDistanceIsCriticalFailure(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.CurrentPrice = dec(100.05) // too close to breakout price

	report := v.Validate(sig)
	require.False(t, report.IsValid)
	require.Contains(t, report.FailedCritical, "breakout_quality")
}

func TestEntryValidatorTooManyBarsIsCriticalFailure(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.BarsSinceBreakout = 5 // > max of 3

	report := v.Validate(sig)
	require.False(t, report.IsValid)
	check := report.GetCheck("breakout_quality")
	require.Equal(t, positions.ResultFailed, check.Result)
}

func TestEntryValidatorMultipleNonCriticalFailuresStillValid(t *testing.T) {
	v := positions.NewEntryValidator(testSignalConfigForValidator(), testMarketQualityConfig())
	sig := goodLongSignal()
	sig.BreakoutVolume = dec(600)
	sig.DensityZones = []positions.DensityZone{{Low: dec(100), High: dec(101)}}
	sig.PriceChangePct = dec(0.2)

	report := v.Validate(sig)
	require.True(t, report.IsValid)
	require.GreaterOrEqual(t, len(report.FailedChecks()), 3)
	require.NotEmpty(t, report.Warnings)
}
