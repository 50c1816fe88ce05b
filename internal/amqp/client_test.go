package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEventMessage(t *testing.T) {
	msg := NewLedgerEventMessage("expense_created", 7, 42)

	if msg.Kind != "expense_created" {
		t.Errorf("Kind = %q, want expense_created", msg.Kind)
	}
	if msg.GroupID != 7 || msg.EntityID != 42 {
		t.Errorf("ids = (%d, %d), want (7, 42)", msg.GroupID, msg.EntityID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestLedgerEventMessageJSON(t *testing.T) {
	msg := &LedgerEventMessage{
		Kind:      "payment_recorded",
		GroupID:   3,
		EntityID:  99,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventMessageFromJSON() error = %v", err)
	}
	if parsed.Kind != msg.Kind || parsed.GroupID != msg.GroupID || parsed.EntityID != msg.EntityID {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEventMessageInvalidJSON(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte(`{"group_id": "seven"}`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}
