package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/engine"
	"mql_bridge/internal/event"
	"mql_bridge/internal/infra"
	"mql_bridge/internal/infra/storage"
	"mql_bridge/internal/relay"
	"mql_bridge/internal/strategy"
)

const shutdownTimeout = 5 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config  *infra.Config
	Logger  *slog.Logger
	Metrics *infra.Metrics
	Journal *storage.Journal
	Hub     *relay.Hub
	Relay   *relay.Server
	Trader  *strategy.Trader
	Client  *engine.Client
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads config and wires every component. A missing MetaTrader
// directory is returned as a *domain.ConfigError.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	slog.Info("🚀 Bootstrapping MQL bridge...", slog.String("app", cfg.App.Name))

	// 3. Metrics
	b.Metrics = infra.NewMetrics()

	options := []engine.Option{
		engine.WithLogger(b.Logger),
		engine.WithMetrics(b.Metrics),
	}

	// 4. Journal (DB)
	if cfg.Storage.Enabled {
		journal, err := storage.NewJournal(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		b.Journal = journal
		options = append(options, engine.WithRecorder(journal), engine.WithArchiver(journal))
		slog.Info("✅ Journal initialized", slog.String("path", cfg.Storage.Path))
	}

	// 5. Event consumers
	var handlers engine.Handlers
	if cfg.Relay.Enabled {
		event.Warmup()
		b.Hub = relay.NewHub(b.Logger)
		handlers = append(handlers, b.Hub)
	}
	if s := cfg.Strategy; s.Enabled {
		strat := strategy.NewSMACrossStrategy(s.Symbol, s.ShortPeriod, s.LongPeriod)
		b.Trader = strategy.NewTrader(strat, s.Lots, s.Magic, b.Logger)
		handlers = append(handlers, b.Trader)
	}
	if len(handlers) > 0 {
		options = append(options, engine.WithHandler(handlers))
	}

	// 6. Bridge client
	client, err := engine.NewClient(cfg.Bridge.MetaTraderDir, engine.OptionsFromConfig(cfg.Bridge), options...)
	if err != nil {
		b.Close()
		return err
	}
	b.Client = client

	if b.Hub != nil {
		b.Relay = relay.NewServer(cfg.Relay.ListenAddr, b.Hub, client, b.Metrics, b.Logger)
	}

	slog.Info("✅ Bridge client ready", slog.String("session", client.Session()))
	return nil
}

// Run connects the bridge and blocks until ctx is done.
func (b *Bootstrap) Run(ctx context.Context) error {
	defer b.Close()

	if b.Hub != nil {
		go b.Hub.Run(ctx)
	}
	if b.Relay != nil {
		go func() {
			if err := b.Relay.ListenAndServe(); err != nil {
				slog.Error("Relay server failed", slog.Any("error", err))
			}
		}()
	}
	if b.Trader != nil {
		go b.Trader.Run(ctx, b.Client.Commands())
	}

	if err := b.Client.Connect(ctx); err != nil {
		return fmt.Errorf("connect bridge: %w", err)
	}
	if b.Client.State() == engine.StatePollingIdle {
		if err := b.Client.Start(); err != nil {
			return err
		}
	}
	b.subscribe(ctx)

	slog.InfoContext(ctx, "✨ MQL bridge fully operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")
	return nil
}

func (b *Bootstrap) subscribe(ctx context.Context) {
	cmds := b.Client.Commands()
	bridge := b.Config.Bridge

	if len(bridge.Symbols) > 0 {
		if err := cmds.SubscribeSymbols(ctx, bridge.Symbols...); err != nil {
			slog.Error("Failed to subscribe symbols", slog.Any("error", err))
		}
	}
	if len(bridge.BarData) > 0 {
		pairs := make([]domain.SymbolTimeframe, 0, len(bridge.BarData))
		for _, key := range bridge.BarData {
			st, err := domain.SplitKey(key)
			if err != nil {
				continue // Validate에서 이미 확인됨
			}
			pairs = append(pairs, st)
		}
		if err := cmds.SubscribeSymbolsBarData(ctx, pairs...); err != nil {
			slog.Error("Failed to subscribe bar data", slog.Any("error", err))
		}
	}
}

// Close releases everything Initialize opened. Safe to call more than once.
func (b *Bootstrap) Close() {
	if b.Client != nil {
		b.Client.Disconnect()
	}
	if b.Relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := b.Relay.Shutdown(ctx); err != nil {
			slog.Warn("Relay shutdown failed", slog.Any("error", err))
		}
		cancel()
		b.Relay = nil
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("Journal close failed", slog.Any("error", err))
		}
		b.Journal = nil
	}
}
