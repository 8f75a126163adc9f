package engine

import (
	"log/slog"
	"runtime/debug"

	"mql_bridge/internal/domain"

	"github.com/shopspring/decimal"
)

// EventHandler receives bridge events. Callbacks run on the poller goroutine
// of their stream, so a slow handler delays only that stream.
type EventHandler interface {
	OnOrderEvent(diff domain.OrderDiff)
	OnMessage(msg domain.Message)
	OnTick(symbol string, bid, ask decimal.Decimal)
	OnBarData(bar domain.Bar)
	OnHistoricData(series domain.HistoricSeries)
	OnHistoricTrades(trades domain.HistoricTrades)
}

// NopHandler ignores every event. Embed it to implement only some callbacks.
type NopHandler struct{}

func (NopHandler) OnOrderEvent(domain.OrderDiff) {}
func (NopHandler) OnMessage(domain.Message) {}
func (NopHandler) OnTick(string, decimal.Decimal, decimal.Decimal) {}
func (NopHandler) OnBarData(domain.Bar) {}
func (NopHandler) OnHistoricData(domain.HistoricSeries) {}
func (NopHandler) OnHistoricTrades(domain.HistoricTrades) {}

// Handlers fans each event out to every handler in order.
type Handlers []EventHandler

func (hs Handlers) OnOrderEvent(diff domain.OrderDiff) {
	for _, h := range hs {
		h.OnOrderEvent(diff)
	}
}

func (hs Handlers) OnMessage(msg domain.Message) {
	for _, h := range hs {
		h.OnMessage(msg)
	}
}

func (hs Handlers) OnTick(symbol string, bid, ask decimal.Decimal) {
	for _, h := range hs {
		h.OnTick(symbol, bid, ask)
	}
}

func (hs Handlers) OnBarData(bar domain.Bar) {
	for _, h := range hs {
		h.OnBarData(bar)
	}
}

func (hs Handlers) OnHistoricData(series domain.HistoricSeries) {
	for _, h := range hs {
		h.OnHistoricData(series)
	}
}

func (hs Handlers) OnHistoricTrades(trades domain.HistoricTrades) {
	for _, h := range hs {
		h.OnHistoricTrades(trades)
	}
}

// guard runs one callback and turns a panic into a log line, so a faulty
// handler never stops its stream.
func guard(logger *slog.Logger, stream domain.Stream, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("HANDLER_PANIC",
				slog.String("stream", string(stream)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
