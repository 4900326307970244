// Package queue defines the lifecycle events exchanged over the message
// broker together with the AMQP publisher and consumer that carry them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeContactCreated       = "contact.created"
	TypeRequestStatusChanged = "request.status_changed"
)

// Event is published after a lifecycle change has been committed.  It
// carries enough for downstream consumers (notifications, analytics) to
// act without querying the primary database, but never the private
// contact fields of either club.
type Event struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	OccurredAt     string `json:"occurred_at"`
	PostingID      string `json:"posting_id"`
	OwnerID        string `json:"owner_id"`
	RequesterID    string `json:"requester_id"`
	Message        string `json:"message,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Status         string `json:"status"`
}

// ContactCreated builds the event emitted when a new contact is stored.
func ContactCreated(postingID, ownerID, requesterID, message string) Event {
	return newEvent(TypeContactCreated, Event{
		PostingID:   postingID,
		OwnerID:     ownerID,
		RequesterID: requesterID,
		Message:     message,
		Status:      "pending",
	})
}

// RequestStatusChanged builds the event emitted when an owner answers a
// contact.
func RequestStatusChanged(postingID, ownerID, requesterID, previous, status string) Event {
	return newEvent(TypeRequestStatusChanged, Event{
		PostingID:      postingID,
		OwnerID:        ownerID,
		RequesterID:    requesterID,
		PreviousStatus: previous,
		Status:         status,
	})
}

func newEvent(typ string, ev Event) Event {
	ev.ID = uuid.NewString()
	ev.Type = typ
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	return ev
}
