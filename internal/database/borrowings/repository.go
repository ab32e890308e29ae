// Package borrowings provides database operations for the borrowing ledger.
//
// Every statement that changes a book's available copies or a borrowing's
// status is a single conditional UPDATE. Callers combine them inside
// Transaction so the counter and the ledger row change together.
package borrowings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/entities"
)

// Repository handles borrowing ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrowings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle so other repositories can join a transaction.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Transaction runs fn inside a single database transaction. Any error
// returned by fn rolls back every statement issued through repo.
func (r *Repository) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// CountOpenByUser counts borrowings the user has not returned yet.
func (r *Repository) CountOpenByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Borrowing{}).
		Where("user_id = ? AND return_date IS NULL", userID).
		Count(&n).Error
	return n, err
}

// HasOverdue reports whether the user holds any overdue borrowing.
func (r *Repository) HasOverdue(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Borrowing{}).
		Where("user_id = ? AND return_date IS NULL AND status = ?", userID, entities.BorrowingStatusOverdue).
		Count(&n).Error
	return n > 0, err
}

// HasOpenForBook reports whether the user already holds a copy of the book.
func (r *Repository) HasOpenForBook(ctx context.Context, userID, bookID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Borrowing{}).
		Where("user_id = ? AND book_id = ? AND return_date IS NULL", userID, bookID).
		Count(&n).Error
	return n > 0, err
}

// TakeCopy decrements the book's available copies if at least one is left.
// It reports false when no copy was available.
func (r *Repository) TakeCopy(ctx context.Context, bookID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// PutBackCopy increments the book's available copies, never above total copies.
func (r *Repository) PutBackCopy(ctx context.Context, bookID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreateBorrowing inserts a new ledger row, generating an id when none is set.
func (r *Repository) CreateBorrowing(ctx context.Context, b *entities.Borrowing) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Omit("User", "Book").Create(b).Error
}

// GetBorrowing retrieves a borrowing with its book. Returns
// gorm.ErrRecordNotFound when absent.
func (r *Repository) GetBorrowing(ctx context.Context, id string) (*entities.Borrowing, error) {
	var b entities.Borrowing
	if err := r.db.WithContext(ctx).Preload("Book").Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOpenBorrowing retrieves a borrowing that has not been returned.
func (r *Repository) GetOpenBorrowing(ctx context.Context, id string) (*entities.Borrowing, error) {
	var b entities.Borrowing
	err := r.db.WithContext(ctx).
		Where("id = ? AND return_date IS NULL", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkReturned stamps the return date on an open borrowing. It reports false
// when the borrowing was already returned.
func (r *Repository) MarkReturned(ctx context.Context, id string, at time.Time) (bool, error) {
	at = at.UTC()
	result := r.db.WithContext(ctx).Model(&entities.Borrowing{}).
		Where("id = ? AND return_date IS NULL", id).
		Updates(map[string]any{
			"return_date": at,
			"status":      entities.BorrowingStatusReturned,
			"updated_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByUser returns a page of the user's borrowings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]entities.Borrowing, int64, error) {
	var items []entities.Borrowing
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Borrowing{}).Where("user_id = ?", userID)
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Book").
		Order("borrow_date DESC, id ASC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	return items, total, err
}

// MarkOverdue moves every active borrowing whose due date is before now into
// the overdue state and returns how many rows changed. Rows already overdue
// or returned are not touched, so repeated runs are no-ops.
func (r *Repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).Model(&entities.Borrowing{}).
		Where("status = ? AND return_date IS NULL AND due_date < ?", entities.BorrowingStatusActive, now).
		Updates(map[string]any{
			"status":     entities.BorrowingStatusOverdue,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
