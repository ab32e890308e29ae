// Package books provides database operations for the book catalog.
//
// The available-copies counter is only changed through AdjustCopies here and
// through the borrowings package; both use single conditional UPDATE
// statements so concurrent writers cannot lose updates.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(ctx, id)
package books

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/entities"
)

// ListFilter narrows a catalog listing.
type ListFilter struct {
	Category entities.Category
	Query    string // substring of title or author
	Limit    int
	Offset   int
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Transaction runs fn inside a single database transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// ListBooks returns a page of books ordered by title and the total match count.
func (r *Repository) ListBooks(ctx context.Context, filter ListFilter) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Book{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("title ASC, id ASC").Limit(filter.Limit).Offset(filter.Offset).Find(&books).Error
	return books, total, err
}

// GetBookByID retrieves a book. Returns gorm.ErrRecordNotFound when absent.
func (r *Repository) GetBookByID(ctx context.Context, id string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookByISBN retrieves a book by its ISBN.
func (r *Repository) GetBookByISBN(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// UpdateFields applies a partial update of descriptive columns.
// Copy counters are not accepted here; use AdjustCopies.
func (r *Repository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	delete(fields, "available_copies")
	delete(fields, "total_copies")
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Updates(fields).Error
}

// AdjustCopies changes total and available copies by delta in one statement.
// It reports false when the change would push available copies below zero,
// meaning more copies are on loan than the new total allows.
func (r *Repository) AdjustCopies(ctx context.Context, id string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND total_copies + ? >= 1", id, delta, delta).
		Updates(map[string]any{
			"total_copies":     gorm.Expr("total_copies + ?", delta),
			"available_copies": gorm.Expr("available_copies + ?", delta),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountBorrowings returns how many borrowings reference the book in total
// and how many of them are still open.
func (r *Repository) CountBorrowings(ctx context.Context, bookID string) (total, open int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&entities.Borrowing{}).Where("book_id = ?", bookID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = db.Model(&entities.Borrowing{}).Where("book_id = ? AND return_date IS NULL", bookID).Count(&open).Error
	return total, open, err
}

// DeleteBook removes a book row. Foreign keys reject the delete while any
// borrowing references it.
func (r *Repository) DeleteBook(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Book{})
	return result.RowsAffected == 1, result.Error
}
