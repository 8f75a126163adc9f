package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mql_bridge/internal/domain"

	"github.com/shopspring/decimal"
)

// Defaults applied when a request leaves a field empty
const (
	DefaultSymbol            = "EURUSD"
	DefaultBarTimeframe      = "M1"
	DefaultHistoricTimeframe = "D1"
	DefaultHistoricDays      = 30
	DefaultTradesLookback    = 30
)

// Commands is the typed command API over a Dispatcher. Methods return an
// error only when the arguments cannot be encoded; delivery is never reported.
type Commands struct {
	d      *Dispatcher
	settle time.Duration
	now    func() time.Time
}

// NewCommands wraps d. settle is the pause after ResetCommandIDs.
func NewCommands(d *Dispatcher, settle time.Duration) *Commands {
	return &Commands{d: d, settle: settle, now: time.Now}
}

// Dispatcher returns the underlying dispatcher.
func (c *Commands) Dispatcher() *Dispatcher {
	return c.d
}

// SubscribeSymbols requests ticks for symbols. The host replaces its
// subscription list with every call.
func (c *Commands) SubscribeSymbols(ctx context.Context, symbols ...string) error {
	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	payload, err := domain.JoinFields(args...)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdSubscribeSymbols, payload)
	return nil
}

// SubscribeSymbolsBarData requests bars for each pair; no pair means EURUSD M1.
func (c *Commands) SubscribeSymbolsBarData(ctx context.Context, pairs ...domain.SymbolTimeframe) error {
	if len(pairs) == 0 {
		pairs = []domain.SymbolTimeframe{{Symbol: DefaultSymbol, Timeframe: DefaultBarTimeframe}}
	}
	args := make([]any, 0, len(pairs)*2)
	for _, p := range pairs {
		args = append(args, p.Symbol, p.Timeframe)
	}
	payload, err := domain.JoinFields(args...)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdSubscribeSymbolsBarData, payload)
	return nil
}

// HistoricRequest selects a candle range. Zero values mean EURUSD, D1 and
// the last 30 days.
type HistoricRequest struct {
	Symbol    string
	Timeframe string
	Start     time.Time
	End       time.Time
}

func (c *Commands) GetHistoricData(ctx context.Context, req HistoricRequest) error {
	now := c.now()
	if req.Symbol == "" {
		req.Symbol = DefaultSymbol
	}
	if req.Timeframe == "" {
		req.Timeframe = DefaultHistoricTimeframe
	}
	if req.End.IsZero() {
		req.End = now
	}
	if req.Start.IsZero() {
		req.Start = now.AddDate(0, 0, -DefaultHistoricDays)
	}
	if req.Start.After(req.End) {
		return fmt.Errorf("%w: start %s after end %s", domain.ErrInvalidPayload, req.Start, req.End)
	}

	payload, err := domain.JoinFields(req.Symbol, req.Timeframe, req.Start, req.End)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdGetHistoricData, payload)
	return nil
}

// GetHistoricTrades requests closed trades of the last lookbackDays (30 if <= 0).
func (c *Commands) GetHistoricTrades(ctx context.Context, lookbackDays int) error {
	if lookbackDays <= 0 {
		lookbackDays = DefaultTradesLookback
	}
	payload, err := domain.JoinFields(lookbackDays)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdGetHistoricTrades, payload)
	return nil
}

// OpenOrder sends OPEN_ORDER. An empty symbol means EURUSD, an empty type buy.
func (c *Commands) OpenOrder(ctx context.Context, req domain.OrderRequest) error {
	if req.Symbol == "" {
		req.Symbol = DefaultSymbol
	}
	if req.Type == "" {
		req.Type = domain.OrderTypeBuy
	}
	req.Type = strings.ToLower(req.Type)

	payload, err := req.Payload()
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdOpenOrder, payload)
	return nil
}

func (c *Commands) ModifyOrder(ctx context.Context, req domain.ModifyRequest) error {
	payload, err := req.Payload()
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdModifyOrder, payload)
	return nil
}

// CloseOrder closes lots of ticket; zero lots closes the whole position.
func (c *Commands) CloseOrder(ctx context.Context, ticket int64, lots decimal.Decimal) error {
	if lots.IsNegative() {
		return fmt.Errorf("%w: negative lots %s", domain.ErrInvalidPayload, lots)
	}
	payload, err := domain.JoinFields(ticket, lots)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdCloseOrder, payload)
	return nil
}

func (c *Commands) CloseAllOrders(ctx context.Context) error {
	c.d.Send(ctx, domain.CmdCloseAllOrders, "")
	return nil
}

func (c *Commands) CloseOrdersBySymbol(ctx context.Context, symbol string) error {
	payload, err := domain.JoinFields(symbol)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdCloseOrdersBySymbol, payload)
	return nil
}

func (c *Commands) CloseOrdersByMagic(ctx context.Context, magic int64) error {
	payload, err := domain.JoinFields(magic)
	if err != nil {
		return err
	}
	c.d.Send(ctx, domain.CmdCloseOrdersByMagic, payload)
	return nil
}

// ResetCommandIDs restarts id sequencing on both sides and waits for the
// host to settle before returning.
func (c *Commands) ResetCommandIDs(ctx context.Context) error {
	c.d.Reset(ctx)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.settle):
		return nil
	}
}
