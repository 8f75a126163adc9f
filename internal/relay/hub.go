package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/engine"
	"mql_bridge/internal/event"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	inboxSize      = 1024
	clientBuffer   = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxClientFrame = 512
)

var _ engine.EventHandler = (*Hub)(nil)

// Hub fans bridge events out to WebSocket subscribers.
// All sequencing and client bookkeeping happens on the Run goroutine; the
// callbacks only encode and enqueue.
type Hub struct {
	logger *slog.Logger

	inbox      chan *event.Event
	register   chan *client
	unregister chan *client
	clients    map[*client]struct{}
	done       chan struct{}

	nextSeq  uint64
	nclients atomic.Int64
	dropped  atomic.Uint64
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With(slog.String("module", "relay")),
		inbox:      make(chan *event.Event, inboxSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
		nextSeq:    1,
	}
}

// Run is the hub loop. It must run in a single goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.nclients.Store(int64(len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case ev := <-h.inbox:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev *event.Event) {
	defer event.Release(ev)

	ev.Seq = h.nextSeq
	h.nextSeq++

	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", slog.String("type", string(ev.Type)), slog.Any("error", err))
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// 느린 클라이언트는 끊음
			h.logger.Warn("Dropping slow relay client", slog.String("remote", c.remote))
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.nclients.Store(int64(len(h.clients)))
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	return int(h.nclients.Load())
}

// Dropped returns how many events were discarded because the inbox was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) publish(typ event.Type, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to encode event data", slog.String("type", string(typ)), slog.Any("error", err))
		return
	}

	ev := event.Acquire()
	ev.Type = typ
	ev.Ts = time.Now().UnixMilli()
	ev.Data = append(ev.Data[:0], b...)

	select {
	case h.inbox <- ev:
	default: // DROP
		h.dropped.Add(1)
		event.Release(ev)
	}
}

func (h *Hub) OnOrderEvent(diff domain.OrderDiff) {
	h.publish(event.TypeOrders, diff)
}

func (h *Hub) OnMessage(msg domain.Message) {
	h.publish(event.TypeMessage, msg)
}

type tickData struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
}

func (h *Hub) OnTick(symbol string, bid, ask decimal.Decimal) {
	h.publish(event.TypeTick, tickData{Symbol: symbol, Bid: bid, Ask: ask})
}

func (h *Hub) OnBarData(bar domain.Bar) {
	h.publish(event.TypeBar, bar)
}

func (h *Hub) OnHistoricData(series domain.HistoricSeries) {
	h.publish(event.TypeHistoricData, series)
}

func (h *Hub) OnHistoricTrades(trades domain.HistoricTrades) {
	h.publish(event.TypeHistoricTrades, trades)
}

// client is one WebSocket subscriber.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for close; subscribers never send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
