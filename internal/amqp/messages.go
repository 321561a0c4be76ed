package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the write that produced a TransactionEvent.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent announces a change to one user's transactions. It
// carries ids only; consumers re-read current state from the store.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewTransactionEvent(typ EventType, userID, txID int64) TransactionEvent {
	return TransactionEvent{
		Type:          typ,
		UserID:        userID,
		TransactionID: txID,
		OccurredAt:    time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return TransactionEvent{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.UserID <= 0 {
		return TransactionEvent{}, fmt.Errorf("event without user_id")
	}
	return e, nil
}
