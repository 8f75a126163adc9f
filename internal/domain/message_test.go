package domain

import "testing"

func TestParseMessages_SortedNumerically(t *testing.T) {
	// "999" sorts after "1000" as text but before it as a number
	raw := `{"1000":{"type":"INFO","message":"second"},"999":{"type":"INFO","message":"first"},
	         "1001":{"type":"ERROR","error_type":"OPEN_ORDER","description":"not enough money"}}`

	msgs, err := ParseMessages([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Millis != 999 || msgs[1].Millis != 1000 || msgs[2].Millis != 1001 {
		t.Errorf("Wrong order: %d, %d, %d", msgs[0].Millis, msgs[1].Millis, msgs[2].Millis)
	}
	if msgs[0].Text != "first" {
		t.Errorf("Text = %q", msgs[0].Text)
	}
	if !msgs[2].IsError() || msgs[2].ErrorType != "OPEN_ORDER" || msgs[2].Description != "not enough money" {
		t.Errorf("Unexpected error message: %+v", msgs[2])
	}
	if msgs[2].Time().UnixMilli() != 1001 {
		t.Errorf("Time() = %v", msgs[2].Time())
	}
}

func TestParseMessages_BadKey(t *testing.T) {
	if _, err := ParseMessages([]byte(`{"abc":{"type":"INFO"}}`)); err == nil {
		t.Error("Expected error for non-numeric timestamp key")
	}
}

func TestPendingMessages(t *testing.T) {
	msgs := []Message{{Millis: 10}, {Millis: 20}, {Millis: 30}}

	tests := []struct {
		after int64
		want  int
	}{
		{0, 3},
		{10, 2},
		{25, 1},
		{30, 0},
		{99, 0},
	}
	for _, tt := range tests {
		if got := PendingMessages(msgs, tt.after); len(got) != tt.want {
			t.Errorf("PendingMessages(after=%d) = %d messages, want %d", tt.after, len(got), tt.want)
		}
	}

	if MaxMillis(msgs, 0) != 30 {
		t.Error("MaxMillis should be 30")
	}
	if MaxMillis(msgs, 50) != 50 {
		t.Error("MaxMillis should keep a higher floor")
	}
}
