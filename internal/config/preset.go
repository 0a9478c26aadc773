// Package config loads and validates preset bundles (§6 of the spec).
package config

import (
	"fmt"

	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Load reads a preset JSON file from path, applies environment overrides
// under the BREAKOUT_ prefix, decodes it into a types.Preset and
// validates it.
func Load(path string) (*types.Preset, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("BREAKOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read preset %s: %w", path, err)
	}

	var preset types.Preset
	decodeHook := func() []func() {
		return nil
	}
	_ = decodeHook
	if err := v.Unmarshal(&preset, viperDecimalHook()); err != nil {
		return nil, fmt.Errorf("config: decode preset %s: %w", path, err)
	}

	if err := Validate(&preset); err != nil {
		return nil, fmt.Errorf("config: invalid preset %s: %w", path, err)
	}
	return &preset, nil
}

// Validate enforces these load-time invariants: per TP level
// reward_multiple > 0, 0 < size_pct <= 1 and placement_mode in
// {fixed,smart,adaptive}, with sum(size_pct) <= 1; noise_threshold in
// [0,1]; risk_per_trade, min_24h_volume_usd and max_spread_bps
// non-negative; scan_interval_seconds >= 1; entry_confirm_bars >= 0;
// strategy_priority in {momentum,retest}. Other thresholds, bps values
// and bar windows are not checked.
func Validate(p *types.Preset) error {
	sum := decimal.Zero
	for _, tp := range p.PositionConfig.TPLevels {
		if !tp.RewardMultiple.IsPositive() {
			return fmt.Errorf("tp_levels[%s]: reward_multiple must be > 0, got %s", tp.LevelName, tp.RewardMultiple)
		}
		if !tp.SizePct.IsPositive() || tp.SizePct.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("tp_levels[%s]: size_pct must be in (0,1], got %s", tp.LevelName, tp.SizePct)
		}
		switch tp.PlacementMode {
		case types.TPPlacementFixed, types.TPPlacementSmart, types.TPPlacementAdaptive:
		default:
			return fmt.Errorf("tp_levels[%s]: invalid placement_mode %q", tp.LevelName, tp.PlacementMode)
		}
		sum = sum.Add(tp.SizePct)
	}
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tp_levels: sum of size_pct must be <= 1, got %s", sum)
	}

	if p.MarketQuality.NoiseThreshold.IsNegative() || p.MarketQuality.NoiseThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("market_quality.noise_threshold must be in [0,1], got %s", p.MarketQuality.NoiseThreshold)
	}

	if err := requireNonNegative("risk.risk_per_trade", p.Risk.RiskPerTrade); err != nil {
		return err
	}
	if err := requireNonNegative("liquidity_filters.min_24h_volume_usd", p.LiquidityFilters.Min24hVolumeUSD); err != nil {
		return err
	}
	if err := requireNonNegative("liquidity_filters.max_spread_bps", p.LiquidityFilters.MaxSpreadBps); err != nil {
		return err
	}
	if p.ScannerConfig.ScanIntervalSeconds < 1 {
		return fmt.Errorf("scanner_config.scan_interval_seconds must be >= 1")
	}
	if p.PositionConfig.EntryConfirmBars < 0 {
		return fmt.Errorf("position_config.entry_confirm_bars must be >= 0")
	}

	switch p.StrategyPriority {
	case types.StrategyMomentum, types.StrategyRetest:
	default:
		return fmt.Errorf("strategy_priority must be one of {momentum,retest}, got %q", p.StrategyPriority)
	}

	return nil
}

func requireNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%s must be non-negative, got %s", field, v)
	}
	return nil
}
