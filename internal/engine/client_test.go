package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mql_bridge/internal/domain"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestNewClient_MissingDir(t *testing.T) {
	_, err := NewClient(filepath.Join(t.TempDir(), "nope"), testOptions())
	if !errors.Is(err, domain.ErrDirNotFound) {
		t.Fatalf("expected ErrDirNotFound, got %v", err)
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestNewClient_ZeroOptions(t *testing.T) {
	c, err := NewClient(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer c.Disconnect()

	if c.opts.SleepDelay != DefaultSleepDelay || c.opts.CommandSlots != DefaultCommandSlots || c.opts.CommandIDWrap != DefaultCommandIDWrap {
		t.Errorf("opts = %+v", c.opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if c.Commands().Dispatcher().LastID() != 1 {
		t.Errorf("LastID = %d, want 1", c.Commands().Dispatcher().LastID())
	}
	if _, err := os.Stat(c.Paths().CommandSlot(0)); err != nil {
		t.Errorf("reset command not written: %v", err)
	}
}

func TestLifecycle_GatedUntilStart(t *testing.T) {
	h := &recordingHandler{}
	c := newTestClient(t, t.TempDir(), h)
	if c.State() != StateConstructed {
		t.Fatalf("state = %s", c.State())
	}

	writeFile(t, c.Paths().MarketData, `{"EURUSD":{"bid":1.1,"ask":1.2}}`)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if c.State() != StatePollingIdle {
		t.Fatalf("state after connect = %s", c.State())
	}

	data, err := os.ReadFile(c.Paths().CommandSlot(0))
	if err != nil {
		t.Fatalf("reset command not written: %v", err)
	}
	if cmd, _ := domain.ParseCommand(string(data)); cmd.Name != domain.CmdResetCommandIDs {
		t.Errorf("slot 0 = %q", data)
	}

	time.Sleep(30 * time.Millisecond)
	if h.tickCount() != 0 {
		t.Fatal("events delivered before Start")
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.State() != StateActive {
		t.Fatalf("state after start = %s", c.State())
	}
	if !waitFor(t, time.Second, func() bool { return h.tickCount() == 1 }) {
		t.Fatalf("tick not delivered after Start, got %d", h.tickCount())
	}

	c.Disconnect()
	if c.State() != StateStopped {
		t.Errorf("state after disconnect = %s", c.State())
	}

	// loops are gone: new content is not observed
	writeFile(t, c.Paths().MarketData, `{"EURUSD":{"bid":1.1,"ask":1.3}}`)
	time.Sleep(20 * time.Millisecond)
	if h.tickCount() != 1 {
		t.Error("event delivered after Disconnect")
	}

	if err := c.Start(); !errors.Is(err, domain.ErrStopped) {
		t.Errorf("Start after stop = %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, domain.ErrStopped) {
		t.Errorf("Connect after stop = %v", err)
	}
}

func TestLifecycle_AutoStartWithoutHandler(t *testing.T) {
	c := newTestClient(t, t.TempDir(), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if c.State() != StateActive {
		t.Errorf("state = %s, want ACTIVE", c.State())
	}

	writeFile(t, c.Paths().MarketData, `{"EURUSD":{"bid":1.1,"ask":1.2}}`)
	if !waitFor(t, time.Second, func() bool { return len(c.MarketData()) == 1 }) {
		t.Error("state not updated without a handler")
	}
}

func TestLifecycle_StartBeforeConnect(t *testing.T) {
	c := newTestClient(t, t.TempDir(), &recordingHandler{})
	if err := c.Start(); err == nil {
		t.Error("Start before Connect should fail")
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateConstructed: "CONSTRUCTED",
		StatePollingIdle: "POLLING_IDLE",
		StateActive:      "ACTIVE",
		StateStopped:     "STOPPED",
		State(9):         "UNKNOWN",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d.String() = %s, want %s", s, s.String(), want)
		}
	}
}
