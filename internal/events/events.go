// Package events publishes ledger domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Byiringiro215/lms/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultExchange = "lms.events"
	exchangeType    = "topic"
	eventVersion    = "1.0.0"

	// Event types double as routing keys.
	EventTypeBorrowingCreated  = "borrowing.created"
	EventTypeBorrowingReturned = "borrowing.returned"
	EventTypeOverdueMarked     = "overdue.marked"
)

// Event is the envelope every message carries.
type Event struct {
	EventID      string `json:"eventId"`
	EventType    string `json:"eventType"`
	EventVersion string `json:"eventVersion"`
	Timestamp    string `json:"timestamp"`
	Payload      any    `json:"payload"`
}

type BorrowingPayload struct {
	BorrowingID string     `json:"borrowingId"`
	UserID      string     `json:"userId"`
	BookID      string     `json:"bookId"`
	BorrowDate  time.Time  `json:"borrowDate"`
	DueDate     time.Time  `json:"dueDate"`
	ReturnDate  *time.Time `json:"returnDate,omitempty"`
	Status      string     `json:"status"`
}

type OverdueMarkedPayload struct {
	Marked  int64     `json:"marked"`
	SweptAt time.Time `json:"sweptAt"`
}

// NewEvent wraps payload in a fresh envelope.
func NewEvent(eventType string, payload any) Event {
	return Event{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		EventVersion: eventVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Payload:      payload,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func borrowingPayload(b *entities.Borrowing) BorrowingPayload {
	return BorrowingPayload{
		BorrowingID: b.ID,
		UserID:      b.UserID,
		BookID:      b.BookID,
		BorrowDate:  b.BorrowDate,
		DueDate:     b.DueDate,
		ReturnDate:  b.ReturnDate,
		Status:      string(b.Status),
	}
}

// Publisher is implemented by AMQPPublisher and NoopPublisher.
type Publisher interface {
	PublishBorrowingCreated(ctx context.Context, b *entities.Borrowing) error
	PublishBorrowingReturned(ctx context.Context, b *entities.Borrowing) error
	PublishOverdueMarked(ctx context.Context, marked int64, at time.Time) error
	IsHealthy() bool
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBorrowingCreated(context.Context, *entities.Borrowing) error { return nil }
func (NoopPublisher) PublishBorrowingReturned(context.Context, *entities.Borrowing) error { return nil }
func (NoopPublisher) PublishOverdueMarked(context.Context, int64, time.Time) error { return nil }
func (NoopPublisher) IsHealthy() bool { return true }
func (NoopPublisher) Close() error { return nil }
