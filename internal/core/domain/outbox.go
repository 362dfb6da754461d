package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger change published through the outbox.
type EventType string

const (
	EventJournalCreated     EventType = "journal.created"
	EventJournalUpdated     EventType = "journal.updated"
	EventJournalPosted      EventType = "journal.posted"
	EventJournalDeleted     EventType = "journal.deleted"
	EventJournalLineDeleted EventType = "journal.line_deleted"
)

// OutboxStatus tracks delivery of an outbox event.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusPublished OutboxStatus = "PUBLISHED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxEvent is a ledger event recorded in the same transaction as the change it describes.
type OutboxEvent struct {
	ID            int64        `json:"id"`
	EventID       uuid.UUID    `json:"eventId"`
	AggregateID   int64        `json:"aggregateId"`
	EventType     EventType    `json:"eventType"`
	Payload       []byte       `json:"payload"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastAttemptAt *time.Time   `json:"lastAttemptAt,omitempty"`
}
