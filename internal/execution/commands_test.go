package execution

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"mql_bridge/internal/domain"

	"github.com/shopspring/decimal"
)

func TestCommands_Payloads(t *testing.T) {
	fixed := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		call    func(ctx context.Context, c *Commands) error
		cmd     domain.CommandName
		payload string
	}{
		{
			name:    "subscribe symbols",
			call:    func(ctx context.Context, c *Commands) error { return c.SubscribeSymbols(ctx, "EURUSD", "GBPUSD") },
			cmd:     domain.CmdSubscribeSymbols,
			payload: "EURUSD,GBPUSD",
		},
		{
			name:    "bar data default pair",
			call:    func(ctx context.Context, c *Commands) error { return c.SubscribeSymbolsBarData(ctx) },
			cmd:     domain.CmdSubscribeSymbolsBarData,
			payload: "EURUSD,M1",
		},
		{
			name: "bar data pairs",
			call: func(ctx context.Context, c *Commands) error {
				return c.SubscribeSymbolsBarData(ctx,
					domain.SymbolTimeframe{Symbol: "EURUSD", Timeframe: "M1"},
					domain.SymbolTimeframe{Symbol: "GBPUSD", Timeframe: "H1"})
			},
			cmd:     domain.CmdSubscribeSymbolsBarData,
			payload: "EURUSD,M1,GBPUSD,H1",
		},
		{
			name:    "historic data defaults",
			call:    func(ctx context.Context, c *Commands) error { return c.GetHistoricData(ctx, HistoricRequest{}) },
			cmd:     domain.CmdGetHistoricData,
			payload: "EURUSD,D1,1709251200,1711843200",
		},
		{
			name:    "historic trades default",
			call:    func(ctx context.Context, c *Commands) error { return c.GetHistoricTrades(ctx, 0) },
			cmd:     domain.CmdGetHistoricTrades,
			payload: "30",
		},
		{
			name: "open order",
			call: func(ctx context.Context, c *Commands) error {
				return c.OpenOrder(ctx, domain.OrderRequest{
					Symbol:   "EURUSD",
					Type:     "BUYLIMIT",
					Lots:     decimal.RequireFromString("0.10"),
					Price:    decimal.RequireFromString("1.085"),
					StopLoss: decimal.RequireFromString("1.08"),
					Magic:    42,
					Comment:  "scalp",
				})
			},
			cmd:     domain.CmdOpenOrder,
			payload: "EURUSD,buylimit,0.1,1.085,1.08,0,42,scalp,0",
		},
		{
			name:    "open order defaults",
			call:    func(ctx context.Context, c *Commands) error { return c.OpenOrder(ctx, domain.OrderRequest{}) },
			cmd:     domain.CmdOpenOrder,
			payload: "EURUSD,buy,0.01,0,0,0,0,,0",
		},
		{
			name: "modify order",
			call: func(ctx context.Context, c *Commands) error {
				return c.ModifyOrder(ctx, domain.ModifyRequest{Ticket: 123, StopLoss: decimal.RequireFromString("1.07"), Expiration: fixed})
			},
			cmd:     domain.CmdModifyOrder,
			payload: "123,0,1.07,0,1711843200",
		},
		{
			name:    "close whole order",
			call:    func(ctx context.Context, c *Commands) error { return c.CloseOrder(ctx, 123, decimal.Zero) },
			cmd:     domain.CmdCloseOrder,
			payload: "123,0",
		},
		{
			name:    "close all",
			call:    func(ctx context.Context, c *Commands) error { return c.CloseAllOrders(ctx) },
			cmd:     domain.CmdCloseAllOrders,
			payload: "",
		},
		{
			name:    "close by symbol",
			call:    func(ctx context.Context, c *Commands) error { return c.CloseOrdersBySymbol(ctx, "GBPUSD") },
			cmd:     domain.CmdCloseOrdersBySymbol,
			payload: "GBPUSD",
		},
		{
			name:    "close by magic",
			call:    func(ctx context.Context, c *Commands) error { return c.CloseOrdersByMagic(ctx, 7) },
			cmd:     domain.CmdCloseOrdersByMagic,
			payload: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, paths, _ := newTestDispatcher(t, DispatcherConfig{})
			c := NewCommands(d, 0)
			c.now = func() time.Time { return fixed }

			if err := tt.call(context.Background(), c); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			cmd := readSlot(t, paths, 0)
			if cmd.Name != tt.cmd || cmd.Payload != tt.payload {
				t.Errorf("got %s|%s, want %s|%s", cmd.Name, cmd.Payload, tt.cmd, tt.payload)
			}
		})
	}
}

func TestCommands_RejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, c *Commands) error
		want error
	}{
		{"comma in comment", func(ctx context.Context, c *Commands) error {
			return c.OpenOrder(ctx, domain.OrderRequest{Comment: "a,b"})
		}, domain.ErrInvalidPayload},
		{"unknown order type", func(ctx context.Context, c *Commands) error {
			return c.OpenOrder(ctx, domain.OrderRequest{Type: "market"})
		}, domain.ErrInvalidOrderType},
		{"framing in symbol", func(ctx context.Context, c *Commands) error {
			return c.SubscribeSymbols(ctx, "EUR:>USD")
		}, domain.ErrInvalidPayload},
		{"negative lots", func(ctx context.Context, c *Commands) error {
			return c.CloseOrder(ctx, 1, decimal.NewFromInt(-1))
		}, domain.ErrInvalidPayload},
		{"inverted range", func(ctx context.Context, c *Commands) error {
			now := time.Now()
			return c.GetHistoricData(ctx, HistoricRequest{Start: now, End: now.Add(-time.Hour)})
		}, domain.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, paths, rec := newTestDispatcher(t, DispatcherConfig{})
			c := NewCommands(d, 0)

			err := tt.call(context.Background(), c)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if _, err := os.Stat(paths.CommandSlot(0)); !os.IsNotExist(err) {
				t.Error("rejected command reached a slot")
			}
			if d.LastID() != 0 || len(rec.records()) != 0 {
				t.Error("rejected command touched the dispatcher")
			}
		})
	}
}

func TestCommands_ResetSettles(t *testing.T) {
	d, paths, _ := newTestDispatcher(t, DispatcherConfig{})
	c := NewCommands(d, 30*time.Millisecond)

	start := time.Now()
	if err := c.ResetCommandIDs(context.Background()); err != nil {
		t.Fatalf("ResetCommandIDs failed: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("reset returned before the settle delay")
	}
	if cmd := readSlot(t, paths, 0); cmd.Name != domain.CmdResetCommandIDs {
		t.Errorf("slot holds %+v", cmd)
	}
}
