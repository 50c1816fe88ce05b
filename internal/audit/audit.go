// Package audit records who changed what in the ledger. Recording is
// fire and forget: entries are queued to a background worker and a full
// queue or a broken store never surfaces to the caller.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded mutation. Details holds the operation's payload
// as JSON; when the original details could not be serialized, Details
// describes the failure instead so the entry is still written.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	GroupID   int64     `json:"group_id"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	Details   []byte    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists audit entries. ListByGroup returns newest first.
type Store interface {
	Save(ctx context.Context, e Entry) error
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]Entry, error)
}

// NewEntry builds an entry, serializing details. A value that cannot be
// marshaled is replaced with a degraded payload naming the failure.
func NewEntry(groupID, actorID int64, action string, details any) Entry {
	payload, err := json.Marshal(details)
	if err != nil {
		payload, _ = json.Marshal(map[string]any{
			"degraded":    true,
			"reason":      err.Error(),
			"detail_type": fmt.Sprintf("%T", details),
		})
	}
	return Entry{
		ID:        uuid.New(),
		GroupID:   groupID,
		ActorID:   actorID,
		Action:    action,
		Details:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
