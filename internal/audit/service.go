package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/database/audit"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	log     *zap.Logger
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			s.log.Warn("Failed to log audit event",
				zap.String("action", event.Action),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every LogAsync write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogBorrow records a borrow attempt by actorID.
func (s *Service) LogBorrow(actorID string, b *entities.Borrowing, bookID string, err error) {
	event := &entities.AuditEvent{
		UserID:     actorID,
		EventType:  entities.AuditEventBorrow,
		Action:     "borrow",
		EntityType: "book",
		EntityID:   bookID,
		Status:     entities.AuditStatusSuccess,
	}
	if b != nil {
		event.EntityType = "borrowing"
		event.EntityID = b.ID
		event.Description = "Borrowed book " + b.BookID
		event.Metadata = encodeMetadata(map[string]any{
			"book_id":  b.BookID,
			"user_id":  b.UserID,
			"due_date": b.DueDate,
		})
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogReturn records a return attempt by actorID.
func (s *Service) LogReturn(actorID, borrowingID string, err error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventReturn,
		Action:      "return",
		Description: "Returned borrowing " + borrowingID,
		EntityType:  "borrowing",
		EntityID:    borrowingID,
		Status:      entities.AuditStatusSuccess,
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogCatalog records a change to the book catalog.
func (s *Service) LogCatalog(actorID, action string, book *entities.Book) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: fmt.Sprintf("%s: %s", action, book.Title),
		EntityType:  "book",
		EntityID:    book.ID,
		Status:      entities.AuditStatusSuccess,
		Metadata: encodeMetadata(map[string]any{
			"isbn":         book.ISBN,
			"code":         book.Code,
			"total_copies": book.TotalCopies,
		}),
	}
	s.LogAsync(event)
}

// LogSweep records an overdue sweep run. trigger names what started it
// (schedule, task, cli).
func (s *Service) LogSweep(trigger string, marked int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSweep,
		Action:      "overdue_sweep",
		Description: fmt.Sprintf("Marked %d borrowings overdue", marked),
		EntityType:  "borrowing",
		Status:      entities.AuditStatusSuccess,
		Metadata: encodeMetadata(map[string]any{
			"trigger": trigger,
			"marked":  marked,
		}),
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID, action, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogUser records a change made to a user record by actorID.
func (s *Service) LogUser(actorID, targetID, action, description string) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventUser,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "user",
		EntityID:    targetID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// ListEvents retrieves a page of audit events.
func (s *Service) ListEvents(ctx context.Context, filter audit.Filter, p pagination.Params) (pagination.Page[entities.AuditEvent], error) {
	events, total, err := s.repo.ListEvents(ctx, filter, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[entities.AuditEvent]{}, err
	}
	return pagination.NewPage(events, total, p), nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func withError(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

func encodeMetadata(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
