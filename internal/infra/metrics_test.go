package infra

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"mql_bridge/internal/domain"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordPoll(domain.StreamOrders)
	m.RecordPoll(domain.StreamOrders)
	m.RecordUnchanged(domain.StreamOrders)
	m.RecordEvents(domain.StreamMarketData, 3)
	m.RecordEvents(domain.StreamMarketData, 0)
	m.RecordMalformed(domain.StreamBarData)

	if got := m.Value("mql_bridge_poll_cycles_total", "orders"); got != 2 {
		t.Errorf("Expected 2 poll cycles, got %v", got)
	}
	if got := m.Value("mql_bridge_poll_unchanged_total", "orders"); got != 1 {
		t.Errorf("Expected 1 unchanged, got %v", got)
	}
	if got := m.Value("mql_bridge_events_total", "market_data"); got != 3 {
		t.Errorf("Expected 3 events, got %v", got)
	}
	if got := m.Value("mql_bridge_malformed_total", "bar_data"); got != 1 {
		t.Errorf("Expected 1 malformed, got %v", got)
	}
}

func TestMetrics_Commands(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand(domain.CommandStatusSent)
	m.RecordCommand(domain.CommandStatusSent)
	m.RecordCommand(domain.CommandStatusDropped)
	m.RecordSlotRetry()
	m.SetLifecycle(2)

	if got := m.Value("mql_bridge_commands_total", "sent"); got != 2 {
		t.Errorf("Expected 2 sent, got %v", got)
	}
	if got := m.Value("mql_bridge_commands_total", "dropped"); got != 1 {
		t.Errorf("Expected 1 dropped, got %v", got)
	}
	if got := m.Value("mql_bridge_command_slot_retries_total"); got != 1 {
		t.Errorf("Expected 1 retry, got %v", got)
	}
	if got := m.Value("mql_bridge_lifecycle_state"); got != 2 {
		t.Errorf("Expected lifecycle 2, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordPoll(domain.StreamOrders)
	m.RecordCommand(domain.CommandStatusSent)
	m.SetLifecycle(1)
	if m.Value("anything") != 0 {
		t.Error("nil metrics should read 0")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordPoll(domain.StreamMessages)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mql_bridge_poll_cycles_total{stream="messages"} 1`) {
		t.Errorf("metrics output missing poll counter:\n%s", body)
	}
}
