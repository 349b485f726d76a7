// Package outbox is the handoff point for the audit sink: the coordinator
// appends one row per successful mutation inside the mutation's own
// transaction, so an audit row exists exactly when the change it describes
// committed. Draining the table belongs to the caller layer.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit handoff row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	Action        string
	Payload       json.RawMessage
	CreatedAt     time.Time
}

// Store persists outbox entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// NewEntry builds an entry with the before/after snapshots the audit sink
// expects, marshalled into the payload.
func NewEntry(aggregateType, aggregateID, action string, before, after any, now time.Time) (Entry, error) {
	payload, err := json.Marshal(struct {
		Before any `json:"before,omitempty"`
		After  any `json:"after,omitempty"`
	}{Before: before, After: after})
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Action:        action,
		Payload:       payload,
		CreatedAt:     now,
	}, nil
}
