package venue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// wsManager owns a single WebSocket connection that carries both public
// trades and order-book deltas (§4.1, §5). It reconnects with capped
// exponential backoff and re-issues subscriptions in batches of <=10
// topics on reconnect. Subscriptions requested while disconnected are
// queued and flushed post-connect.
type wsManager struct {
	logger *zap.Logger
	cfg    Config

	mu          sync.Mutex
	connected   bool
	tradeSubs   map[string]TradeCallback
	bookSubs    map[string]BookCallback
	pendingSubs []string

	stopCh chan struct{}
	doneCh chan struct{}
}

func newWSManager(logger *zap.Logger, cfg Config) *wsManager {
	return &wsManager{
		logger:    logger.Named("ws"),
		cfg:       cfg,
		tradeSubs: make(map[string]TradeCallback),
		bookSubs:  make(map[string]BookCallback),
	}
}

func (m *wsManager) start(ctx context.Context) error {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(ctx)
	return nil
}

func (m *wsManager) stop() error {
	if m.stopCh != nil {
		close(m.stopCh)
		<-m.doneCh
	}
	return nil
}

func (m *wsManager) subscribeTrades(symbol string, cb TradeCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeSubs[symbol] = cb
	m.queueResubscribe(symbol)
	return nil
}

func (m *wsManager) subscribeBook(symbol string, cb BookCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookSubs[symbol] = cb
	m.queueResubscribe(symbol)
	return nil
}

func (m *wsManager) unsubscribe(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tradeSubs, symbol)
	delete(m.bookSubs, symbol)
	return nil
}

// queueResubscribe must be called with m.mu held.
func (m *wsManager) queueResubscribe(symbol string) {
	if !m.connected {
		m.pendingSubs = append(m.pendingSubs, symbol)
	}
}

func (m *wsManager) run(ctx context.Context) {
	defer close(m.doneCh)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.cfg.WSURL, nil)
		if err != nil {
			m.logger.Warn("websocket dial failed, backing off", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleepOrStop(backoff, m.stopCh, ctx) {
				return
			}
			backoff = nextBackoff(backoff, m.cfg.MaxBackoff)
			continue
		}

		backoff = time.Second
		m.setConnected(true)
		m.resubscribeAll(conn)

		m.readLoop(ctx, conn)

		m.setConnected(false)
		conn.Close()

		if !sleepOrStop(backoff, m.stopCh, ctx) {
			return
		}
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepOrStop(d time.Duration, stopCh <-chan struct{}, ctx context.Context) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (m *wsManager) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// resubscribeAll re-issues every active subscription (plus anything
// queued while disconnected) in batches of <=ResubscribeBatch topics.
func (m *wsManager) resubscribeAll(conn *websocket.Conn) {
	m.mu.Lock()
	symbols := make(map[string]struct{})
	for s := range m.tradeSubs {
		symbols[s] = struct{}{}
	}
	for s := range m.bookSubs {
		symbols[s] = struct{}{}
	}
	for _, s := range m.pendingSubs {
		symbols[s] = struct{}{}
	}
	m.pendingSubs = nil
	m.mu.Unlock()

	batch := m.cfg.ResubscribeBatch
	if batch <= 0 {
		batch = 10
	}
	topics := make([]string, 0, len(symbols))
	for s := range symbols {
		topics = append(topics, s)
	}
	for i := 0; i < len(topics); i += batch {
		end := i + batch
		if end > len(topics) {
			end = len(topics)
		}
		msg := subscribeMessage{Method: "SUBSCRIBE", Params: topics[i:end], ID: time.Now().UnixNano()}
		_ = conn.WriteJSON(msg)
		time.Sleep(50 * time.Millisecond)
	}
}

type subscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// wireTradeMsg is the normalised publicTrade stream shape from §6:
// {i,T,p,v,S}.
type wireTradeMsg struct {
	Symbol string `json:"i"`
	TsMs   int64  `json:"T"`
	Price  string `json:"p"`
	Amount string `json:"v"`
	Side   string `json:"S"`
}

// wireBookMsg is the normalised orderbook.N.SYMBOL stream shape from §6.
type wireBookMsg struct {
	Symbol string     `json:"symbol"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	UpdateID int64    `json:"u"`
	Type   string     `json:"type"`
}

func (m *wsManager) readLoop(ctx context.Context, conn *websocket.Conn) {
	pingTicker := time.NewTicker(m.cfg.PingInterval)
	defer pingTicker.Stop()

	msgCh := make(chan []byte, 64)
	errCh := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			msgCh <- data
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-pingTicker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		case err := <-errCh:
			m.logger.Warn("websocket read error", zap.Error(err))
			return
		case data := <-msgCh:
			m.dispatch(data)
		}
	}
}

func (m *wsManager) dispatch(data []byte) {
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		m.logger.Debug("unparseable ws message, skipped", zap.Error(err))
		return
	}

	if _, isTrade := probe["S"]; isTrade {
		var t wireTradeMsg
		if err := json.Unmarshal(data, &t); err != nil {
			return
		}
		price, _ := decimal.NewFromString(t.Price)
		amount, _ := decimal.NewFromString(t.Amount)
		side := types.OrderSideBuy
		if t.Side == "sell" {
			side = types.OrderSideSell
		}
		m.mu.Lock()
		cb, ok := m.tradeSubs[t.Symbol]
		m.mu.Unlock()
		if ok && cb != nil {
			cb(t.Symbol, types.Trade{TsMs: t.TsMs, Price: price, Amount: amount, Side: side})
		}
		return
	}

	if _, isBook := probe["b"]; isBook {
		var b wireBookMsg
		if err := json.Unmarshal(data, &b); err != nil {
			return
		}
		msgType := BookMessageDelta
		if b.Type == "snapshot" {
			msgType = BookMessageSnapshot
		}
		m.mu.Lock()
		cb, ok := m.bookSubs[b.Symbol]
		m.mu.Unlock()
		if ok && cb != nil {
			cb(b.Symbol, BookMessage{
				Type:     msgType,
				UpdateID: b.UpdateID,
				Bids:     parseLevels(b.Bids),
				Asks:     parseLevels(b.Asks),
				TsMs:     time.Now().UnixMilli(),
			})
		}
	}
}
