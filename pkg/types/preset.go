package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Preset is a named, validated configuration bundle defining all
// thresholds and strategy parameters for a trading session.
type Preset struct {
	Name             string   `json:"name" mapstructure:"name"`
	Description      string   `json:"description" mapstructure:"description"`
	TargetMarkets    []string `json:"target_markets" mapstructure:"target_markets"`
	StrategyPriority StrategyType `json:"strategy_priority" mapstructure:"strategy_priority"`

	Risk             RiskConfig             `json:"risk" mapstructure:"risk"`
	LiquidityFilters LiquidityFilterConfig  `json:"liquidity_filters" mapstructure:"liquidity_filters"`
	VolatilityFilters VolatilityFilterConfig `json:"volatility_filters" mapstructure:"volatility_filters"`
	SignalConfig     SignalConfig           `json:"signal_config" mapstructure:"signal_config"`
	PositionConfig   PositionConfig         `json:"position_config" mapstructure:"position_config"`
	ExitRules        ExitRulesConfig        `json:"exit_rules" mapstructure:"exit_rules"`
	FSM              FSMConfig              `json:"fsm" mapstructure:"fsm"`
	MarketQuality    MarketQualityConfig    `json:"market_quality" mapstructure:"market_quality"`
	LevelsRules      LevelsRulesConfig      `json:"levels_rules" mapstructure:"levels_rules"`
	ScannerConfig    ScannerConfig          `json:"scanner_config" mapstructure:"scanner_config"`
	ExecutionConfig  ExecutionConfig        `json:"execution_config" mapstructure:"execution_config"`
}

// RiskConfig is the §4.9 / §6 risk section of a preset.
type RiskConfig struct {
	RiskPerTrade         decimal.Decimal `json:"risk_per_trade" mapstructure:"risk_per_trade"`
	MaxConcurrentPositions int           `json:"max_concurrent_positions" mapstructure:"max_concurrent_positions"`
	DailyRiskLimit       decimal.Decimal `json:"daily_risk_limit" mapstructure:"daily_risk_limit"`
	KillSwitchLossLimit  decimal.Decimal `json:"kill_switch_loss_limit" mapstructure:"kill_switch_loss_limit"`
	CorrelationLimit     decimal.Decimal `json:"correlation_limit" mapstructure:"correlation_limit"`
	MaxPositionSizeUSD   decimal.Decimal `json:"max_position_size_usd" mapstructure:"max_position_size_usd"`
	MaxDepthFraction     decimal.Decimal `json:"max_depth_fraction" mapstructure:"max_depth_fraction"`
	DepthRangeBps        decimal.Decimal `json:"depth_range_bps" mapstructure:"depth_range_bps"`
}

// LiquidityFilterConfig is the §4.7 liquidity filter group thresholds.
type LiquidityFilterConfig struct {
	Min24hVolumeUSD    decimal.Decimal `json:"min_24h_volume_usd" mapstructure:"min_24h_volume_usd"`
	MinOIUSD           decimal.Decimal `json:"min_oi_usd" mapstructure:"min_oi_usd"`
	MaxSpreadBps       decimal.Decimal `json:"max_spread_bps" mapstructure:"max_spread_bps"`
	MinDepthUSD05Pct   decimal.Decimal `json:"min_depth_usd_0_5pct" mapstructure:"min_depth_usd_0_5pct"`
	MinDepthUSD03Pct   decimal.Decimal `json:"min_depth_usd_0_3pct" mapstructure:"min_depth_usd_0_3pct"`
	MinTradesPerMinute decimal.Decimal `json:"min_trades_per_minute" mapstructure:"min_trades_per_minute"`
}

// VolatilityFilterConfig is the §4.7 volatility filter group thresholds.
type VolatilityFilterConfig struct {
	ATRRangeMin           decimal.Decimal `json:"atr_range_min" mapstructure:"atr_range_min"`
	ATRRangeMax           decimal.Decimal `json:"atr_range_max" mapstructure:"atr_range_max"`
	BBWidthPercentileMax  decimal.Decimal `json:"bb_width_percentile_max" mapstructure:"bb_width_percentile_max"`
	VolumeSurge1hMin      decimal.Decimal `json:"volume_surge_1h_min" mapstructure:"volume_surge_1h_min"`
	VolumeSurge5mMin      decimal.Decimal `json:"volume_surge_5m_min" mapstructure:"volume_surge_5m_min"`
	OIDeltaThreshold      decimal.Decimal `json:"oi_delta_threshold" mapstructure:"oi_delta_threshold"`
}

// EntryRulesConfig gates pre-entry validation (§4.10 Entry Validator).
type EntryRulesConfig struct {
	VolumeConfirmationEnabled bool            `json:"volume_confirmation_enabled" mapstructure:"volume_confirmation_enabled"`
	MomentumSlopeEnabled      bool            `json:"momentum_slope_enabled" mapstructure:"momentum_slope_enabled"`
	DensityAvoidanceEnabled   bool            `json:"density_avoidance_enabled" mapstructure:"density_avoidance_enabled"`
	CleanBreakoutEnabled      bool            `json:"clean_breakout_enabled" mapstructure:"clean_breakout_enabled"`
	MarketQualityEnabled      bool            `json:"market_quality_enabled" mapstructure:"market_quality_enabled"`
	MaxBarsSinceBreakout      int             `json:"max_bars_since_breakout" mapstructure:"max_bars_since_breakout"`
	CleanBreakoutMinDistancePct decimal.Decimal `json:"clean_breakout_min_distance_pct" mapstructure:"clean_breakout_min_distance_pct"`
}

// SignalConfig is the §4.8 signal-generator predicate thresholds.
type SignalConfig struct {
	MomentumEpsilon           decimal.Decimal  `json:"momentum_epsilon" mapstructure:"momentum_epsilon"`
	MomentumVolumeMultiplier  decimal.Decimal  `json:"momentum_volume_multiplier" mapstructure:"momentum_volume_multiplier"`
	MomentumBodyRatioMin      decimal.Decimal  `json:"momentum_body_ratio_min" mapstructure:"momentum_body_ratio_min"`
	RetestMaxPierceATR        decimal.Decimal  `json:"retest_max_pierce_atr" mapstructure:"retest_max_pierce_atr"`
	RetestPierceTolerance     decimal.Decimal  `json:"retest_pierce_tolerance" mapstructure:"retest_pierce_tolerance"`
	L2ImbalanceThreshold      decimal.Decimal  `json:"l2_imbalance_threshold" mapstructure:"l2_imbalance_threshold"`
	VWAPGapMaxATR             decimal.Decimal  `json:"vwap_gap_max_atr" mapstructure:"vwap_gap_max_atr"`
	SLATRMultiplier           decimal.Decimal  `json:"sl_atr_multiplier" mapstructure:"sl_atr_multiplier"`
	BreakoutHistoryTTL        time.Duration    `json:"breakout_history_ttl" mapstructure:"breakout_history_ttl"`
	EntryRules                EntryRulesConfig `json:"entry_rules" mapstructure:"entry_rules"`
}

// TPLevelConfig is one rung of a configured take-profit ladder.
type TPLevelConfig struct {
	LevelName      string          `json:"level_name" mapstructure:"level_name"`
	RewardMultiple decimal.Decimal `json:"reward_multiple" mapstructure:"reward_multiple"`
	SizePct        decimal.Decimal `json:"size_pct" mapstructure:"size_pct"`
	PlacementMode  TPPlacementMode `json:"placement_mode" mapstructure:"placement_mode"`
}

// TPSmartPlacementConfig bounds smart/adaptive TP-placement adjustments.
type TPSmartPlacementConfig struct {
	MaxAdjustmentBps      decimal.Decimal `json:"max_adjustment_bps" mapstructure:"max_adjustment_bps"`
	DensityZoneBufferBps  decimal.Decimal `json:"density_zone_buffer_bps" mapstructure:"density_zone_buffer_bps"`
	SRLevelBufferBps      decimal.Decimal `json:"sr_level_buffer_bps" mapstructure:"sr_level_buffer_bps"`
	SnapToRoundNumbers    bool            `json:"snap_to_round_numbers" mapstructure:"snap_to_round_numbers"`
	VolatilityWidenFactor decimal.Decimal `json:"volatility_widen_factor" mapstructure:"volatility_widen_factor"`
}

// PositionConfig is the §4.10 position/exit ladder configuration.
type PositionConfig struct {
	TPLevels             []TPLevelConfig        `json:"tp_levels" mapstructure:"tp_levels"`
	SLMode               string                 `json:"sl_mode" mapstructure:"sl_mode"`
	BreakevenTriggerR    decimal.Decimal        `json:"breakeven_trigger_r" mapstructure:"breakeven_trigger_r"`
	BreakevenBufferBps   decimal.Decimal        `json:"breakeven_buffer_bps" mapstructure:"breakeven_buffer_bps"`
	TrailingActivationR  decimal.Decimal        `json:"trailing_activation_r" mapstructure:"trailing_activation_r"`
	TrailingStepBps      decimal.Decimal        `json:"trailing_step_bps" mapstructure:"trailing_step_bps"`
	MaxHoldTimeHours     decimal.Decimal        `json:"max_hold_time_hours" mapstructure:"max_hold_time_hours"`
	EntryConfirmBars     int                    `json:"entry_confirm_bars" mapstructure:"entry_confirm_bars"`
	EntryConfirmMaxSlip  decimal.Decimal        `json:"entry_confirm_max_slip" mapstructure:"entry_confirm_max_slip"`
	TPSmartPlacement     TPSmartPlacementConfig `json:"tp_smart_placement" mapstructure:"tp_smart_placement"`
}

// ExitRulesConfig is the §4.10 rule-driven early-exit configuration.
type ExitRulesConfig struct {
	FailedBreakoutEnabled        bool            `json:"failed_breakout_enabled" mapstructure:"failed_breakout_enabled"`
	FailedBreakoutBars           int             `json:"failed_breakout_bars" mapstructure:"failed_breakout_bars"`
	FailedBreakoutRetestThreshold decimal.Decimal `json:"failed_breakout_retest_threshold" mapstructure:"failed_breakout_retest_threshold"`

	ActivityDropEnabled     bool            `json:"activity_drop_enabled" mapstructure:"activity_drop_enabled"`
	ActivityDropWindowBars  int             `json:"activity_drop_window_bars" mapstructure:"activity_drop_window_bars"`
	ActivityDropThreshold   decimal.Decimal `json:"activity_drop_threshold" mapstructure:"activity_drop_threshold"`

	WeakImpulseEnabled        bool            `json:"weak_impulse_enabled" mapstructure:"weak_impulse_enabled"`
	WeakImpulseCheckBars      int             `json:"weak_impulse_check_bars" mapstructure:"weak_impulse_check_bars"`
	WeakImpulseMinMovePct     decimal.Decimal `json:"weak_impulse_min_move_pct" mapstructure:"weak_impulse_min_move_pct"`

	MaxHoldTimeHours *decimal.Decimal `json:"max_hold_time_hours,omitempty" mapstructure:"max_hold_time_hours"`
	TimeStopMinutes  *decimal.Decimal `json:"time_stop_minutes,omitempty" mapstructure:"time_stop_minutes"`
}

// FSMConfig tunes the position-lifecycle FSM (§4.10).
type FSMConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// MarketQualityConfig filters out noisy/flat markets in the entry validator.
type MarketQualityConfig struct {
	NoiseThreshold        decimal.Decimal `json:"noise_threshold" mapstructure:"noise_threshold"` // in [0,1]
	FlatFilterEnabled     bool            `json:"flat_filter_enabled" mapstructure:"flat_filter_enabled"`
	ConsolidationMaxRangePct decimal.Decimal `json:"consolidation_max_range_pct" mapstructure:"consolidation_max_range_pct"`
}

// LevelsRulesConfig tunes the level detector (§4.6).
type LevelsRulesConfig struct {
	MinTouches          int       `json:"min_touches" mapstructure:"min_touches"`
	PreferRoundNumbers  bool      `json:"prefer_round_numbers" mapstructure:"prefer_round_numbers"`
	RoundStepCandidates []decimal.Decimal `json:"round_step_candidates" mapstructure:"round_step_candidates"`
	CascadeMinLevels    int       `json:"cascade_min_levels" mapstructure:"cascade_min_levels"`
	CascadeRadiusBps    decimal.Decimal `json:"cascade_radius_bps" mapstructure:"cascade_radius_bps"`
	ApproachMaxSlopePct decimal.Decimal `json:"approach_max_slope_pct" mapstructure:"approach_max_slope_pct"`
	ApproachMinConsolidationBars int `json:"approach_min_consolidation_bars" mapstructure:"approach_min_consolidation_bars"`
}

// ScoreWeights weights the scanner's composite z-score components (§4.7 step 5).
type ScoreWeights struct {
	VolSurge    decimal.Decimal `json:"vol_surge" mapstructure:"vol_surge"`
	ATRQuality  decimal.Decimal `json:"atr_quality" mapstructure:"atr_quality"`
	Correlation decimal.Decimal `json:"correlation" mapstructure:"correlation"`
	TradesPerMinute decimal.Decimal `json:"trades_per_minute" mapstructure:"trades_per_minute"`
}

// ScannerConfig tunes the scanner pipeline (§4.7).
type ScannerConfig struct {
	MaxCandidates       int      `json:"max_candidates" mapstructure:"max_candidates"`
	ScanIntervalSeconds int      `json:"scan_interval_seconds" mapstructure:"scan_interval_seconds"`
	TopNByVolume        int      `json:"top_n_by_volume" mapstructure:"top_n_by_volume"`
	SymbolWhitelist     []string `json:"symbol_whitelist,omitempty" mapstructure:"symbol_whitelist"`
	SymbolBlacklist     []string `json:"symbol_blacklist,omitempty" mapstructure:"symbol_blacklist"`
	ScoreWeights        ScoreWeights `json:"score_weights" mapstructure:"score_weights"`
	BatchSize           int      `json:"batch_size" mapstructure:"batch_size"`
	Concurrency         int      `json:"concurrency" mapstructure:"concurrency"`
}

// ExecutionConfig tunes order placement mechanics (out-of-core concerns the
// venue client still needs thresholds for).
type ExecutionConfig struct {
	TakerFeeBps      decimal.Decimal `json:"taker_fee_bps" mapstructure:"taker_fee_bps"`
	MakerFeeBps      decimal.Decimal `json:"maker_fee_bps" mapstructure:"maker_fee_bps"`
	LimitOffsetBps   decimal.Decimal `json:"limit_offset_bps" mapstructure:"limit_offset_bps"`
	SpreadWidenBps   decimal.Decimal `json:"spread_widen_bps" mapstructure:"spread_widen_bps"`
	DeadmanTimeoutMs int             `json:"deadman_timeout_ms" mapstructure:"deadman_timeout_ms"`
}
