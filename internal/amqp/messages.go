package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage notifies downstream consumers that the ledger
// changed. It carries only identifiers; consumers fetch whatever state
// they need from the database.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	GroupID   int64     `json:"group_id"`
	EntityID  int64     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(kind string, groupID, entityID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		GroupID:   groupID,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
