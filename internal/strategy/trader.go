package strategy

import (
	"context"
	"log/slog"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/engine"

	"github.com/shopspring/decimal"
)

const traderQueue = 64

// OrderSender is the part of the command API a Trader needs.
type OrderSender interface {
	OpenOrder(ctx context.Context, req domain.OrderRequest) error
}

// Trader feeds tick mid prices to a Strategy and turns its actions into
// market orders. Orders go out from Run, so a busy command pool never stalls
// the tick stream.
type Trader struct {
	engine.NopHandler

	strategy Strategy
	lots     decimal.Decimal
	magic    int64
	logger   *slog.Logger

	queue chan Action
}

func NewTrader(s Strategy, lots decimal.Decimal, magic int64, logger *slog.Logger) *Trader {
	if logger == nil {
		logger = slog.Default()
	}
	if lots.IsZero() {
		lots = domain.DefaultLots
	}
	return &Trader{
		strategy: s,
		lots:     lots,
		magic:    magic,
		logger:   logger.With(slog.String("module", "strategy")),
		queue:    make(chan Action, traderQueue),
	}
}

// OnTick runs the strategy on the tick's mid price.
func (t *Trader) OnTick(symbol string, bid, ask decimal.Decimal) {
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	for _, action := range t.strategy.OnPrice(symbol, mid) {
		t.logger.Info("STRATEGY_ACTION", slog.String("type", action.Type.String()), slog.String("symbol", action.Symbol), slog.String("price", action.Price.String()))
		select {
		case t.queue <- action:
		default: // DROP
			t.logger.Warn("Strategy queue full, action dropped", slog.String("type", action.Type.String()))
		}
	}
}

// Run sends queued actions through sender until ctx is done.
func (t *Trader) Run(ctx context.Context, sender OrderSender) {
	for {
		select {
		case <-ctx.Done():
			return
		case action := <-t.queue:
			t.execute(ctx, sender, action)
		}
	}
}

func (t *Trader) execute(ctx context.Context, sender OrderSender, action Action) {
	orderType := domain.OrderTypeBuy
	if action.Type == ActionSell {
		orderType = domain.OrderTypeSell
	}
	req := domain.OrderRequest{
		Symbol:  action.Symbol,
		Type:    orderType,
		Lots:    t.lots,
		Magic:   t.magic,
		Comment: "sma_cross",
	}
	if err := sender.OpenOrder(ctx, req); err != nil {
		t.logger.Error("Failed to open order", slog.String("symbol", action.Symbol), slog.Any("error", err))
	}
}
