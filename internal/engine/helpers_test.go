package engine

import (
	"os"
	"sync"
	"testing"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/infra"

	"github.com/shopspring/decimal"
)

type tickEvent struct {
	Symbol   string
	Bid, Ask decimal.Decimal
}

// recordingHandler captures every callback.
type recordingHandler struct {
	mu       sync.Mutex
	orders   []domain.OrderDiff
	messages []domain.Message
	ticks    []tickEvent
	bars     []domain.Bar
	series   []domain.HistoricSeries
	trades   []domain.HistoricTrades
}

func (h *recordingHandler) OnOrderEvent(diff domain.OrderDiff) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append(h.orders, diff)
}

func (h *recordingHandler) OnMessage(msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) OnTick(symbol string, bid, ask decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ticks = append(h.ticks, tickEvent{Symbol: symbol, Bid: bid, Ask: ask})
}

func (h *recordingHandler) OnBarData(bar domain.Bar) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bars = append(h.bars, bar)
}

func (h *recordingHandler) OnHistoricData(series domain.HistoricSeries) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.series = append(h.series, series)
}

func (h *recordingHandler) OnHistoricTrades(trades domain.HistoricTrades) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades = append(h.trades, trades)
}

func (h *recordingHandler) tickCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ticks)
}

func testOptions() Options {
	return Options{
		SleepDelay:         time.Millisecond,
		MaxRetry:           200 * time.Millisecond,
		LoadOrdersFromFile: true,
		CommandSlots:       50,
		CommandIDWrap:      100000,
	}
}

func newTestClient(t *testing.T, dir string, h EventHandler, options ...Option) *Client {
	t.Helper()
	if h != nil {
		options = append(options, WithHandler(h))
	}
	c, err := NewClient(dir, testOptions(), options...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(c.Disconnect)
	return c
}

// Worker and poller indexes as built by buildWorkers.
const (
	wOrders = iota
	wMessages
	wMarket
	wBars
	wHistoric
)

// poll runs one cycle of a stream synchronously, bypassing the gate.
func poll(c *Client, w, p int) int {
	return c.workers[w].polls[p]()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newMetricsClient(t *testing.T, h EventHandler) (*Client, *infra.Metrics) {
	m := infra.NewMetrics()
	return newTestClient(t, t.TempDir(), h, WithMetrics(m)), m
}
