package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/execution"
	"mql_bridge/internal/infra"

	"github.com/google/uuid"
)

// State is the client lifecycle position.
type State int

const (
	StateConstructed State = iota // paths checked, persisted state loaded
	StatePollingIdle              // workers running, gated off
	StateActive                   // events flow
	StateStopped                  // terminal
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "CONSTRUCTED"
	case StatePollingIdle:
		return "POLLING_IDLE"
	case StateActive:
		return "ACTIVE"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Options are the protocol knobs of one client.
type Options struct {
	SleepDelay         time.Duration
	MaxRetry           time.Duration
	LoadOrdersFromFile bool
	Verbose            bool
	CommandSlots       int
	CommandIDWrap      int
	ResetSettle        time.Duration
}

// OptionsFromConfig maps the bridge config section.
func OptionsFromConfig(b infra.BridgeConfig) Options {
	return Options{
		SleepDelay:         b.SleepDelay(),
		MaxRetry:           b.MaxRetry(),
		LoadOrdersFromFile: b.LoadOrdersFromFile,
		Verbose:            b.Verbose,
		CommandSlots:       b.CommandSlots,
		CommandIDWrap:      b.CommandIDWrap,
		ResetSettle:        b.ResetSettle(),
	}
}

const (
	DefaultSleepDelay    = execution.DefaultPollDelay
	DefaultCommandSlots  = execution.DefaultSlots
	DefaultCommandIDWrap = execution.DefaultIDWrap
)

// normalized fills in values the protocol cannot run with. Zero MaxRetry
// (one slot pass) and zero ResetSettle are valid and kept.
func (o Options) normalized() Options {
	if o.SleepDelay <= 0 {
		o.SleepDelay = DefaultSleepDelay
	}
	if o.CommandSlots <= 0 {
		o.CommandSlots = DefaultCommandSlots
	}
	if o.CommandIDWrap <= 1 {
		o.CommandIDWrap = DefaultCommandIDWrap
	}
	o.MaxRetry = max(o.MaxRetry, 0)
	o.ResetSettle = max(o.ResetSettle, 0)
	return o
}

// Option customizes a Client.
type Option func(*Client)

// WithHandler registers the event consumer. Without one the client starts
// delivering as soon as it connects.
func WithHandler(h EventHandler) Option {
	return func(c *Client) { c.handler = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *infra.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRecorder journals every command send.
func WithRecorder(r domain.CommandRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithArchiver stores every delivered message.
func WithArchiver(a domain.MessageArchiver) Option {
	return func(c *Client) { c.archiver = a }
}

func WithSession(id string) Option {
	return func(c *Client) { c.session = id }
}

// Client bridges one MetaTrader data directory.
type Client struct {
	paths domain.Paths
	opts  Options

	handler   EventHandler
	autoStart bool
	logger    *slog.Logger
	metrics   *infra.Metrics
	recorder  domain.CommandRecorder
	archiver  domain.MessageArchiver
	session   string

	store    *Store
	commands *execution.Commands
	gate     Gate
	workers  []*worker

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient validates dir, loads persisted state and prepares the workers.
// Nothing is polled until Connect.
func NewClient(dir string, opts Options, options ...Option) (*Client, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &domain.ConfigError{Field: "bridge.metatrader_dir", Err: fmt.Errorf("%w: %s", domain.ErrDirNotFound, dir)}
	}

	opts = opts.normalized()
	c := &Client{
		paths: domain.NewPaths(dir),
		opts:  opts,
	}
	for _, o := range options {
		o(c)
	}
	if c.handler == nil {
		c.handler = NopHandler{}
		c.autoStart = true
	}
	if c.session == "" {
		c.session = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("module", "bridge"), slog.String("session", c.session))

	if err := os.MkdirAll(c.paths.Root, 0755); err != nil {
		c.logger.Warn("Failed to create exchange directory", slog.String("dir", c.paths.Root), slog.Any("error", err))
	}

	c.store = NewStore(c.paths, opts.LoadOrdersFromFile)
	c.store.Load(c.logger)

	dispatcher := execution.NewDispatcher(c.paths, execution.DispatcherConfig{
		Slots:     opts.CommandSlots,
		IDWrap:    opts.CommandIDWrap,
		PollDelay: opts.SleepDelay,
		MaxRetry:  opts.MaxRetry,
		Session:   c.session,
	}, c.recorder, c.metrics, c.logger)
	c.commands = execution.NewCommands(dispatcher, opts.ResetSettle)

	c.workers = c.buildWorkers()
	c.setState(StateConstructed)
	return c, nil
}

// Connect starts the workers, runs the id reset handshake and, when no
// handler was registered, opens the gate.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateConstructed {
		st := c.state
		c.mu.Unlock()
		if st == StateStopped {
			return domain.ErrStopped
		}
		return fmt.Errorf("connect: client already %s", st)
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.gate.active.Store(true)
	for _, w := range c.workers {
		c.wg.Add(1)
		go w.run(ctx, &c.wg)
	}
	c.setStateLocked(StatePollingIdle)
	c.mu.Unlock()

	c.logger.Info("Bridge connected",
		slog.String("dir", c.paths.Root),
		slog.Int("workers", len(c.workers)),
		slog.Duration("sleep_delay", c.opts.SleepDelay),
	)

	if err := c.commands.ResetCommandIDs(ctx); err != nil {
		return fmt.Errorf("reset command ids: %w", err)
	}

	if c.autoStart {
		return c.Start()
	}
	return nil
}

// Start opens the gate so pollers deliver events.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateStopped:
		return domain.ErrStopped
	case StateConstructed:
		return fmt.Errorf("start: client not connected")
	case StateActive:
		return nil
	}
	c.gate.started.Store(true)
	c.setStateLocked(StateActive)
	c.logger.Info("Bridge started")
	return nil
}

// Disconnect stops every worker and waits for them to exit. In-flight reads
// are not drained.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.gate.active.Store(false)
	c.gate.started.Store(false)
	if c.cancel != nil {
		c.cancel()
	}
	c.setStateLocked(StateStopped)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("Bridge stopped")
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(s)
}

func (c *Client) setStateLocked(s State) {
	c.state = s
	c.metrics.SetLifecycle(int(s))
}

// Commands returns the command API bound to this client's directory.
func (c *Client) Commands() *execution.Commands {
	return c.commands
}

func (c *Client) Session() string {
	return c.session
}

func (c *Client) Paths() domain.Paths {
	return c.paths
}

// ======================================================================================
// Read accessors (copies)
// ======================================================================================

func (c *Client) OpenOrders() map[string]domain.Order {
	return maps.Clone(c.store.Orders.Current().Data.Orders)
}

func (c *Client) AccountInfo() domain.AccountInfo {
	return c.store.Orders.Current().Data.AccountInfo
}

func (c *Client) MarketData() domain.MarketData {
	return maps.Clone(c.store.Market.Current().Data)
}

func (c *Client) BarData() domain.BarData {
	return maps.Clone(c.store.Bars.Current().Data)
}

func (c *Client) HistoricData() domain.HistoricData {
	return maps.Clone(c.store.Historic.Current().Data)
}

func (c *Client) HistoricTrades() domain.HistoricTrades {
	return maps.Clone(c.store.Trades.Current().Data)
}

// LastMessageMillis is the newest message timestamp already delivered.
func (c *Client) LastMessageMillis() int64 {
	return c.store.Messages.Current().Data.LastMillis
}
