// Package types provides shared domain type definitions for the breakout engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PositionSide represents long or short.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// OrderType distinguishes market vs limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// StrategyType identifies a signal-generation strategy.
type StrategyType string

const (
	StrategyMomentum StrategyType = "momentum"
	StrategyRetest   StrategyType = "retest"
)

// LevelType distinguishes support from resistance.
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
)

// PositionStatus is the coarse lifecycle bucket of a Position (the fine-grained
// FSM state lives in positions.FSMState; this is the externally reported status).
type PositionStatus string

const (
	PositionStatusPending PositionStatus = "pending"
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusPartial PositionStatus = "partial"
	PositionStatusClosed  PositionStatus = "closed"
)

// TPPlacementMode controls how a take-profit level's price is computed.
type TPPlacementMode string

const (
	TPPlacementFixed    TPPlacementMode = "fixed"
	TPPlacementSmart    TPPlacementMode = "smart"
	TPPlacementAdaptive TPPlacementMode = "adaptive"
)

// Candle is an immutable OHLCV bar. Owned by whichever window/slice holds it.
type Candle struct {
	TsMs   int64           `json:"ts_ms"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// L2Depth is a derived order-book depth snapshot. May be absent when the
// venue omits depth data.
type L2Depth struct {
	BidUSD05Pct decimal.Decimal `json:"bid_usd_0_5pct"`
	AskUSD05Pct decimal.Decimal `json:"ask_usd_0_5pct"`
	BidUSD03Pct decimal.Decimal `json:"bid_usd_0_3pct"`
	AskUSD03Pct decimal.Decimal `json:"ask_usd_0_3pct"`
	SpreadBps   decimal.Decimal `json:"spread_bps"`
	Imbalance   decimal.Decimal `json:"imbalance"` // in [-1, 1]
}

// Trade is a single executed trade observed on the public stream.
type Trade struct {
	TsMs   int64           `json:"ts_ms"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Side   OrderSide       `json:"side"`
}

// OrderBookLevel is a single price/size pair on one side of the book.
type OrderBookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookSnapshot is the current book for a symbol: bids ordered desc by
// price, asks ordered asc. Mutated only by the delta-applier in the
// order-book manager; readers get a consistent snapshot.
type OrderBookSnapshot struct {
	Symbol string           `json:"symbol"`
	TsMs   int64            `json:"ts_ms"`
	Bids   []OrderBookLevel `json:"bids"`
	Asks   []OrderBookLevel `json:"asks"`
}

// BestBid returns the highest bid, or a zero level if the book is empty.
func (s *OrderBookSnapshot) BestBid() OrderBookLevel {
	if len(s.Bids) == 0 {
		return OrderBookLevel{}
	}
	return s.Bids[0]
}

// BestAsk returns the lowest ask, or a zero level if the book is empty.
func (s *OrderBookSnapshot) BestAsk() OrderBookLevel {
	if len(s.Asks) == 0 {
		return OrderBookLevel{}
	}
	return s.Asks[0]
}

// Mid returns the mid price between best bid and best ask, or zero if either
// side is empty.
func (s *OrderBookSnapshot) Mid() decimal.Decimal {
	bid, ask := s.BestBid().Price, s.BestAsk().Price
	if bid.IsZero() || ask.IsZero() {
		return decimal.Zero
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2))
}

// SpreadBps returns the bid/ask spread in basis points of mid price.
func (s *OrderBookSnapshot) SpreadBps() decimal.Decimal {
	mid := s.Mid()
	if mid.IsZero() {
		return decimal.Zero
	}
	bid, ask := s.BestBid().Price, s.BestAsk().Price
	return ask.Sub(bid).Div(mid).Mul(decimal.NewFromInt(10000))
}

// TradingLevel is a detected horizontal support/resistance level.
type TradingLevel struct {
	Price        decimal.Decimal `json:"price"`
	Type         LevelType       `json:"type"`
	TouchCount   int             `json:"touch_count"`
	Strength     decimal.Decimal `json:"strength"` // in [0, 1]
	FirstTouchTs int64           `json:"first_touch_ts"`
	LastTouchTs  int64           `json:"last_touch_ts"`
	IsRoundNumber bool           `json:"is_round_number"`
	RoundBonus   decimal.Decimal `json:"round_bonus"`
	InCascade    bool            `json:"in_cascade"`
	CascadeSize  int             `json:"cascade_size"`
}

// MarketData is the composite per-symbol fact table handed to the scanner.
type MarketData struct {
	Symbol          string            `json:"symbol"`
	Price           decimal.Decimal   `json:"price"`
	Volume24hUSD    decimal.Decimal   `json:"volume_24h_usd"`
	OIUSD           *decimal.Decimal  `json:"oi_usd,omitempty"`
	OIChange24h     *decimal.Decimal  `json:"oi_change_24h,omitempty"`
	TradesPerMinute decimal.Decimal   `json:"trades_per_minute"`
	ATR5m           decimal.Decimal   `json:"atr_5m"`
	ATR15m          decimal.Decimal   `json:"atr_15m"`
	BBWidthPct      decimal.Decimal   `json:"bb_width_pct"`
	BTCCorrelation  decimal.Decimal   `json:"btc_correlation"` // in [-1, 1]
	L2Depth         *L2Depth          `json:"l2_depth,omitempty"`
	Candles5m       []Candle          `json:"candles_5m"`
	TsMs            int64             `json:"ts_ms"`
}

// FilterDetail records the evaluated value, threshold, and reason for a
// single scanner filter predicate.
type FilterDetail struct {
	Value     decimal.Decimal `json:"value"`
	Threshold decimal.Decimal `json:"threshold"`
	Reason    string          `json:"reason"`
}

// ScanResult is one row of scanner output. Invariant: PassedAllFilters ==
// AND of all FilterResults values.
type ScanResult struct {
	Symbol           string                  `json:"symbol"`
	Score            decimal.Decimal         `json:"score"`
	Rank             int                     `json:"rank"`
	MarketData       MarketData              `json:"market_data"`
	FilterResults    map[string]bool         `json:"filter_results"`
	FilterDetails    map[string]FilterDetail `json:"filter_details"`
	ScoreComponents  map[string]decimal.Decimal `json:"score_components"`
	Levels           []TradingLevel          `json:"levels"`
	TsMs             int64                   `json:"ts"`
	PassedAllFilters bool                    `json:"passed_all_filters"`
}

// SignalMeta carries ancillary context attached to a Signal.
type SignalMeta struct {
	PositionSize   decimal.Decimal `json:"position_size,omitempty"`
	MarketSnapshot MarketData      `json:"market_snapshot,omitempty"`
}

// Signal is a candidate trade emitted by the signal generator.
type Signal struct {
	Symbol     string          `json:"symbol"`
	Side       PositionSide    `json:"side"`
	Strategy   StrategyType    `json:"strategy"`
	Reason     string          `json:"reason"`
	Entry      decimal.Decimal `json:"entry"`
	Level      decimal.Decimal `json:"level"`
	SL         decimal.Decimal `json:"sl"`
	TP1        *decimal.Decimal `json:"tp1,omitempty"`
	TP2        *decimal.Decimal `json:"tp2,omitempty"`
	Confidence decimal.Decimal `json:"confidence"` // in [0, 1]
	TsMs       int64           `json:"ts"`
	Meta       SignalMeta      `json:"meta"`
}

// DirectionSign returns +1 for a long (entry > sl) and -1 for a short.
func (s Signal) DirectionSign() int {
	if s.Entry.GreaterThan(s.SL) {
		return 1
	}
	return -1
}

// TPLevel is one rung of a position's take-profit ladder.
type TPLevel struct {
	RewardMultiple decimal.Decimal `json:"reward_multiple"`
	PctSize        decimal.Decimal `json:"pct_size"`
	PlacementMode  TPPlacementMode `json:"placement_mode"`
	Triggered      bool            `json:"triggered"`
	Price          decimal.Decimal `json:"price"`
}

// Position is an engine-managed position. Invariant: sum of TPLevels.PctSize
// <= 1.0; SL defines the 1R unit as |Entry - SL|.
type Position struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Side             PositionSide    `json:"side"`
	Strategy         StrategyType    `json:"strategy"`
	Qty              decimal.Decimal `json:"qty"`
	Entry            decimal.Decimal `json:"entry"`
	SL               decimal.Decimal `json:"sl"`
	TPLevels         []TPLevel       `json:"tp_levels"`
	Status           PositionStatus  `json:"status"`
	RealizedPnLUSD   decimal.Decimal `json:"realized_pnl_usd"`
	UnrealizedPnLR   decimal.Decimal `json:"unrealized_pnl_r"`
	HighestSeen      decimal.Decimal `json:"highest_seen"`
	LowestSeen       decimal.Decimal `json:"lowest_seen"`
	OpenedAt         time.Time       `json:"opened_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	FSMState         string          `json:"fsm_state"`
	BreakoutLevel    decimal.Decimal `json:"breakout_level"`
}

// RUnit returns the price distance that defines one R for this position.
func (p *Position) RUnit() decimal.Decimal {
	return p.Entry.Sub(p.SL).Abs()
}

// Order is a request/response record for a single exchange order.
type Order struct {
	ID           string          `json:"id"`
	PositionID   string          `json:"position_id,omitempty"`
	Symbol       string          `json:"symbol"`
	Side         OrderSide       `json:"side"`
	Type         OrderType       `json:"type"`
	Qty          decimal.Decimal `json:"qty"`
	Price        decimal.Decimal `json:"price,omitempty"`
	Status       OrderStatus     `json:"status"`
	FilledQty    decimal.Decimal `json:"filled_qty"`
	AvgFillPrice decimal.Decimal `json:"avg_fill_price,omitempty"`
	FeesUSD      decimal.Decimal `json:"fees_usd"`
	CreatedAt    time.Time       `json:"created_at"`
	FilledAt     *time.Time      `json:"filled_at,omitempty"`
	ExchangeID   string          `json:"exchange_id,omitempty"`
}

// DiagnosticsEvent is an append-only, JSONL-shaped diagnostics record.
type DiagnosticsEvent struct {
	TsMs      int64          `json:"ts"`
	Component string         `json:"component"`
	Stage     string         `json:"stage"`
	Symbol    string         `json:"symbol,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Passed    *bool          `json:"passed,omitempty"`
}
