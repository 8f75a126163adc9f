package execution

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/infra"
)

const (
	DefaultSlots     = 50
	DefaultIDWrap    = 100000
	DefaultPollDelay = 5 * time.Millisecond
)

// DispatcherConfig sizes the slot pool and the retry window.
type DispatcherConfig struct {
	Slots     int
	IDWrap    int
	PollDelay time.Duration // pause between full slot scans
	MaxRetry  time.Duration
	Session   string
}

// Delivery describes where a command landed.
type Delivery struct {
	ID       int
	Slot     int
	Attempts int
}

// Dispatcher owns the command id counter and the command slot files.
// One send runs at a time; the lock covers id assignment through the slot write.
type Dispatcher struct {
	mu     sync.Mutex
	lastID int

	paths domain.Paths
	cfg   DispatcherConfig

	recorder domain.CommandRecorder
	metrics  *infra.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. recorder and metrics may be nil.
func NewDispatcher(paths domain.Paths, cfg DispatcherConfig, recorder domain.CommandRecorder, metrics *infra.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Slots <= 0 {
		cfg.Slots = DefaultSlots
	}
	if cfg.IDWrap <= 1 {
		cfg.IDWrap = DefaultIDWrap
	}
	if cfg.PollDelay <= 0 {
		cfg.PollDelay = DefaultPollDelay
	}
	return &Dispatcher{
		paths:    paths,
		cfg:      cfg,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.With(slog.String("module", "dispatcher")),
	}
}

// Send writes a command into the first vacant slot. It is fire-and-forget:
// a command that finds no slot before the deadline is logged and dropped.
func (d *Dispatcher) Send(ctx context.Context, name domain.CommandName, payload string) {
	_, _ = d.send(ctx, name, payload)
}

// Reset restarts id sequencing and announces it to the host in one locked step.
func (d *Dispatcher) Reset(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastID = 0
	_, _ = d.sendLocked(ctx, domain.CmdResetCommandIDs, "")
}

// LastID returns the id of the most recent send.
func (d *Dispatcher) LastID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastID
}

func (d *Dispatcher) send(ctx context.Context, name domain.CommandName, payload string) (Delivery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendLocked(ctx, name, payload)
}

func (d *Dispatcher) sendLocked(ctx context.Context, name domain.CommandName, payload string) (Delivery, error) {
	d.lastID = (d.lastID + 1) % d.cfg.IDWrap
	cmd := domain.Command{ID: d.lastID, Name: name, Payload: payload}
	line := []byte(cmd.Encode())

	deadline := time.Now().Add(d.cfg.MaxRetry)
	delivery := Delivery{ID: cmd.ID, Slot: -1}

	var err error
	for {
		delivery.Attempts++
		if slot, ok := d.claim(line); ok {
			delivery.Slot = slot
			break
		}
		if !time.Now().Before(deadline) {
			err = domain.ErrSendTimeout
			break
		}
		d.metrics.RecordSlotRetry()

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(d.cfg.PollDelay):
		}
		if err != nil {
			break
		}
	}

	d.record(cmd, delivery, err)
	return delivery, err
}

// claim scans slots 0..N-1 and writes line into the first one that does not exist.
func (d *Dispatcher) claim(line []byte) (int, bool) {
	for i := 0; i < d.cfg.Slots; i++ {
		err := infra.CreateExclusive(d.paths.CommandSlot(i), line)
		if err == nil {
			return i, true
		}
		if !errors.Is(err, fs.ErrExist) {
			d.logger.Warn("Failed to write command slot", slog.Int("slot", i), slog.Any("error", err))
		}
	}
	return -1, false
}

func (d *Dispatcher) record(cmd domain.Command, delivery Delivery, sendErr error) {
	status := domain.CommandStatusSent
	if sendErr != nil {
		status = domain.CommandStatusDropped
		d.logger.Error("COMMAND_DROPPED",
			slog.Int("id", cmd.ID),
			slog.String("name", string(cmd.Name)),
			slog.Int("attempts", delivery.Attempts),
			slog.Any("error", sendErr),
		)
	} else {
		d.logger.Debug("Command sent",
			slog.Int("id", cmd.ID),
			slog.String("name", string(cmd.Name)),
			slog.Int("slot", delivery.Slot),
		)
	}
	d.metrics.RecordCommand(status)

	if d.recorder == nil {
		return
	}
	rec := &domain.CommandRecord{
		Session:   d.cfg.Session,
		CommandID: cmd.ID,
		Name:      string(cmd.Name),
		Payload:   cmd.Payload,
		Slot:      delivery.Slot,
		Status:    status,
		Attempts:  delivery.Attempts,
		CreatedAt: time.Now(),
	}
	if err := d.recorder.RecordCommand(rec); err != nil {
		d.logger.Warn("Failed to journal command", slog.Int("id", cmd.ID), slog.Any("error", err))
	}
}
