package orderbook_test

import (
	"testing"

	"github.com/il101/breakout-engine/internal/features/orderbook"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestApplyMessageSnapshotThenDelta(t *testing.T) {
	m := orderbook.New(zap.NewNop())

	err := m.ApplyMessage("BTC/USDT", venue.BookMessage{
		Type:     venue.BookMessageSnapshot,
		UpdateID: 1,
		Bids:     []types.OrderBookLevel{{Price: dec("100"), Size: dec("2")}},
		Asks:     []types.OrderBookLevel{{Price: dec("101"), Size: dec("2")}},
	})
	require.NoError(t, err)

	err = m.ApplyMessage("BTC/USDT", venue.BookMessage{
		Type:     venue.BookMessageDelta,
		UpdateID: 2,
		Bids:     []types.OrderBookLevel{{Price: dec("100"), Size: dec("3")}},
	})
	require.NoError(t, err)

	snap, ok := m.GetSnapshot("BTC/USDT")
	require.True(t, ok)
	require.True(t, snap.BestBid().Size.Equal(dec("3")))
}

func TestApplyMessageGapForcesResync(t *testing.T) {
	m := orderbook.New(zap.NewNop())

	require.NoError(t, m.ApplyMessage("BTC/USDT", venue.BookMessage{
		Type: venue.BookMessageSnapshot, UpdateID: 1,
		Bids: []types.OrderBookLevel{{Price: dec("100"), Size: dec("2")}},
		Asks: []types.OrderBookLevel{{Price: dec("101"), Size: dec("2")}},
	}))

	err := m.ApplyMessage("BTC/USDT", venue.BookMessage{Type: venue.BookMessageDelta, UpdateID: 5})
	require.Error(t, err)

	_, ok := m.GetSnapshot("BTC/USDT")
	require.False(t, ok, "gap must clear stored book so callers resync from REST")
}

func TestGetImbalanceBalancedBook(t *testing.T) {
	m := orderbook.New(zap.NewNop())
	require.NoError(t, m.ApplyMessage("BTC/USDT", venue.BookMessage{
		Type: venue.BookMessageSnapshot, UpdateID: 1,
		Bids: []types.OrderBookLevel{{Price: dec("100"), Size: dec("5")}},
		Asks: []types.OrderBookLevel{{Price: dec("101"), Size: dec("5")}},
	}))

	imb := m.GetImbalance("BTC/USDT", dec("100"))
	require.True(t, imb.Equal(decimal.Zero))
}
