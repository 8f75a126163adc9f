package engine

import (
	"context"
	"log/slog"

	"mql_bridge/internal/domain"
)

// buildWorkers wires one worker per stream; historic data and trades share one.
func (c *Client) buildWorkers() []*worker {
	orders := &Poller[domain.OrderBook]{
		stream: domain.StreamOrders,
		path:   c.paths.Orders,
		slot:   c.store.Orders,
		parse:  domain.ParseOrderBook,
		notify: c.notifyOrders,
	}
	messages := &Poller[domain.MessageLog]{
		stream: domain.StreamMessages,
		path:   c.paths.Messages,
		slot:   c.store.Messages,
		parse:  parseMessageLog,
		merge:  mergeMessages,
		notify: c.notifyMessages,
	}
	market := &Poller[domain.MarketData]{
		stream: domain.StreamMarketData,
		path:   c.paths.MarketData,
		slot:   c.store.Market,
		parse:  domain.ParseMarketData,
		notify: c.notifyTicks,
	}
	bars := &Poller[domain.BarData]{
		stream: domain.StreamBarData,
		path:   c.paths.BarData,
		slot:   c.store.Bars,
		parse:  domain.ParseBarData,
		notify: c.notifyBars,
	}
	historic := &Poller[domain.HistoricData]{
		stream:  domain.StreamHistoricData,
		path:    c.paths.HistoricData,
		slot:    c.store.Historic,
		parse:   domain.ParseHistoricData,
		merge:   domain.HistoricData.Merge,
		notify:  c.notifyHistoricData,
		oneShot: true,
	}
	trades := &Poller[domain.HistoricTrades]{
		stream:  domain.StreamHistoricTrades,
		path:    c.paths.HistoricTrades,
		slot:    c.store.Trades,
		parse:   domain.ParseHistoricTrades,
		notify:  c.notifyHistoricTrades,
		oneShot: true,
	}

	configure(c, orders)
	configure(c, messages)
	configure(c, market)
	configure(c, bars)
	configure(c, historic)
	configure(c, trades)

	newWorker := func(name string, polls ...func() int) *worker {
		return &worker{name: name, delay: c.opts.SleepDelay, gate: &c.gate, polls: polls}
	}
	return []*worker{
		newWorker("orders", orders.Poll),
		newWorker("messages", messages.Poll),
		newWorker("market_data", market.Poll),
		newWorker("bar_data", bars.Poll),
		newWorker("historic", historic.Poll, trades.Poll),
	}
}

func configure[T any](c *Client, p *Poller[T]) {
	p.logger = c.logger
	p.metrics = c.metrics
	p.removeDelay = c.opts.SleepDelay
	p.seedFromSlot()
}

func (c *Client) notifyOrders(prev, next domain.OrderBook) int {
	diff := domain.DiffOrders(prev.Orders, next.Orders)

	// verbose면 주문 변화를 info로 남김
	level := slog.LevelDebug
	if c.opts.Verbose {
		level = slog.LevelInfo
	}
	for _, o := range diff.Removed {
		c.logger.Log(context.Background(), level, "Order removed",
			slog.String("ticket", o.Ticket), slog.String("symbol", o.Symbol),
			slog.String("type", o.Type), slog.String("lots", o.Lots.String()))
	}
	for _, o := range diff.Added {
		c.logger.Log(context.Background(), level, "New order",
			slog.String("ticket", o.Ticket), slog.String("symbol", o.Symbol),
			slog.String("type", o.Type), slog.String("lots", o.Lots.String()))
	}

	if diff.Empty() {
		return 0
	}
	guard(c.logger, domain.StreamOrders, func() { c.handler.OnOrderEvent(diff) })
	return 1
}

func mergeMessages(prev, next domain.MessageLog) domain.MessageLog {
	return domain.MessageLog{
		Messages:   next.Messages,
		LastMillis: max(prev.LastMillis, next.LastMillis),
	}
}

func (c *Client) notifyMessages(prev, next domain.MessageLog) int {
	pending := domain.PendingMessages(next.Messages, prev.LastMillis)
	for _, m := range pending {
		guard(c.logger, domain.StreamMessages, func() { c.handler.OnMessage(m) })
		if m.IsError() {
			c.logger.Warn("Host error message",
				slog.Int64("millis", m.Millis),
				slog.String("error_type", m.ErrorType),
				slog.String("description", m.Description))
		}
		if c.archiver != nil {
			if err := c.archiver.ArchiveMessage(c.session, m); err != nil {
				c.logger.Warn("Failed to archive message", slog.Int64("millis", m.Millis), slog.Any("error", err))
			}
		}
	}
	return len(pending)
}

func (c *Client) notifyTicks(prev, next domain.MarketData) int {
	changed := domain.ChangedTicks(prev, next)
	for _, t := range changed {
		guard(c.logger, domain.StreamMarketData, func() { c.handler.OnTick(t.Symbol, t.Bid, t.Ask) })
	}
	return len(changed)
}

func (c *Client) notifyBars(prev, next domain.BarData) int {
	changed := domain.ChangedBars(prev, next)
	for _, b := range changed {
		guard(c.logger, domain.StreamBarData, func() { c.handler.OnBarData(b) })
	}
	return len(changed)
}

func (c *Client) notifyHistoricData(_, next domain.HistoricData) int {
	keys := next.Keys()
	for _, k := range keys {
		series := next[k]
		guard(c.logger, domain.StreamHistoricData, func() { c.handler.OnHistoricData(series) })
	}
	return len(keys)
}

func (c *Client) notifyHistoricTrades(_, next domain.HistoricTrades) int {
	guard(c.logger, domain.StreamHistoricTrades, func() { c.handler.OnHistoricTrades(next) })
	return 1
}
