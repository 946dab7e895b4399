// Package stream is the market-data push transport named in spec.md
// §6: subscriber-initiated subscribe/unsubscribe messages naming a
// channel in {trades, orderbook}, with the server pushing {type,data}
// frames as the engine produces them. It runs its own net/http server
// (grounded on luxfi-dex's pkg/api/websocket_server.go, which likewise
// keeps its gorilla/websocket listener separate from the fasthttp-based
// REST surface) and is registered once with the engine as a single
// engine.EventSink; it never touches a book's mutex.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"clob-engine/src/engine"
)

const (
	ChannelTrades    = "trades"
	ChannelOrderbook = "orderbook"

	// connOutboxSize is the bounded per-connection outbound queue from
	// spec.md §5: a slow subscriber must never block the matching path,
	// so overflow drops the oldest queued frame rather than backpressure.
	connOutboxSize = 256
)

// Frame is the wire shape of every server push.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type tradeView struct {
	TradeID       string `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	Timestamp     int64  `json:"timestamp"`
}

type levelView struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type snapshotView struct {
	Symbol    string      `json:"symbol"`
	Timestamp int64       `json:"timestamp"`
	Bids      []levelView `json:"bids"`
	Asks      []levelView `json:"asks"`
}

type subscribeMessage struct {
	Op      string `json:"op"` // "subscribe" or "unsubscribe"
	Channel string `json:"channel"`
}

// conn wraps one websocket connection with its own bounded, drop-oldest
// outbound queue and its subscribed channel set.
type conn struct {
	ws      *websocket.Conn
	send    chan []byte
	mu      sync.RWMutex
	subbed  map[string]bool
	dropped int64
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:     ws,
		send:   make(chan []byte, connOutboxSize),
		subbed: make(map[string]bool),
	}
}

func (c *conn) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subbed[channel]
}

func (c *conn) setSubscribed(channel string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.subbed[channel] = true
	} else {
		delete(c.subbed, channel)
	}
}

// enqueue is the drop-oldest, never-block send used by Hub fan-out.
func (c *conn) enqueue(payload []byte) {
	select {
	case c.send <- payload:
		return
	default:
	}
	select {
	case <-c.send:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	default:
	}
	select {
	case c.send <- payload:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// Hub tracks connected subscribers and implements engine.EventSink.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*conn]struct{}),
	}
}

var _ engine.EventSink = (*Hub)(nil)

func (h *Hub) OnTrade(t engine.Trade) {
	frame := Frame{
		Type: "trade",
		Data: tradeView{
			TradeID:       t.TradeID,
			Symbol:        t.Symbol,
			Price:         t.Price.String(),
			Quantity:      t.Quantity.String(),
			AggressorSide: string(t.AggressorSide),
			Timestamp:     t.Timestamp,
		},
	}
	h.broadcast(ChannelTrades, frame)
}

func (h *Hub) OnBookSnapshot(s engine.BookSnapshot) {
	view := snapshotView{Symbol: s.Symbol, Timestamp: s.Timestamp}
	for _, l := range s.Bids {
		view.Bids = append(view.Bids, levelView{Price: l.Price.String(), Quantity: l.Quantity.String()})
	}
	for _, l := range s.Asks {
		view.Asks = append(view.Asks, levelView{Price: l.Price.String(), Quantity: l.Quantity.String()})
	}
	h.broadcast(ChannelOrderbook, Frame{Type: "orderbook", Data: view})
}

func (h *Hub) broadcast(channel string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal stream frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c.isSubscribed(channel) {
			c.enqueue(payload)
		}
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// ConnectionCount reports how many subscribers are currently attached.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ServeHTTP upgrades the connection, then pumps its outbound queue in a
// writer goroutine while reading subscribe/unsubscribe control messages
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newConn(ws)
	h.add(c)
	defer func() {
		h.remove(c)
		ws.Close()
	}()

	done := make(chan struct{})
	go c.writer(done)

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			close(done)
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn().Err(err).Msg("malformed subscribe message")
			continue
		}
		switch msg.Op {
		case "subscribe":
			c.setSubscribed(msg.Channel, true)
		case "unsubscribe":
			c.setSubscribed(msg.Channel, false)
		default:
			log.Warn().Str("op", msg.Op).Msg("unknown stream op")
		}
	}
}

func (c *conn) writer(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
