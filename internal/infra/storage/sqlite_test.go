package storage

import (
	"path/filepath"
	"testing"

	"mql_bridge/internal/domain"
)

func setupTestJournal(t *testing.T) *Journal {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal", "test.db"))
	if err != nil {
		t.Fatalf("failed to open test journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func TestRecordAndListCommands(t *testing.T) {
	j := setupTestJournal(t)

	for i, status := range []string{domain.CommandStatusSent, domain.CommandStatusSent, domain.CommandStatusDropped} {
		rec := &domain.CommandRecord{
			Session:   "s1",
			CommandID: i + 1,
			Name:      "OPEN_ORDER",
			Payload:   "EURUSD,buy,0.01,0,0,0,0,,0",
			Slot:      i,
			Status:    status,
			Attempts:  1,
		}
		if err := j.RecordCommand(rec); err != nil {
			t.Fatalf("RecordCommand failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected primary key to be assigned")
		}
	}

	recent, err := j.RecentCommands(2)
	if err != nil {
		t.Fatalf("RecentCommands failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].CommandID != 3 {
		t.Errorf("expected newest first, got command id %d", recent[0].CommandID)
	}
	if recent[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	dropped, err := j.CountCommands(domain.CommandStatusDropped)
	if err != nil {
		t.Fatalf("CountCommands failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
}

func TestArchiveMessages(t *testing.T) {
	j := setupTestJournal(t)

	msgs := []domain.Message{
		{Millis: 1000, Type: domain.MessageTypeInfo, Text: "hello", Raw: []byte(`{"type":"INFO","message":"hello"}`)},
		{Millis: 2000, Type: domain.MessageTypeError, ErrorType: "OPEN_ORDER", Description: "not enough money"},
		{Millis: 3000, Type: domain.MessageTypeInfo, Text: "done"},
	}
	for _, m := range msgs {
		if err := j.ArchiveMessage("s1", m); err != nil {
			t.Fatalf("ArchiveMessage failed: %v", err)
		}
	}

	recs, err := j.MessagesSince(1000)
	if err != nil {
		t.Fatalf("MessagesSince failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 messages after 1000, got %d", len(recs))
	}
	if recs[0].Millis != 2000 || recs[1].Millis != 3000 {
		t.Errorf("unexpected order: %d, %d", recs[0].Millis, recs[1].Millis)
	}
	if recs[0].Text != "OPEN_ORDER: not enough money" {
		t.Errorf("error text = %q", recs[0].Text)
	}

	all, _ := j.MessagesSince(0)
	if all[0].Raw != `{"type":"INFO","message":"hello"}` {
		t.Errorf("raw not preserved: %q", all[0].Raw)
	}
}
