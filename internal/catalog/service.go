// Package catalog manages the book catalog: listing, creation, partial updates
// and deletion of books. Changes to total copies keep the available-copies
// counter consistent with the loans already out.
package catalog

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/database"
	"github.com/Byiringiro215/lms/internal/database/books"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

// Auditor receives catalog changes.
type Auditor interface {
	LogCatalog(actorID, action string, book *entities.Book)
}

type CreateInput struct {
	Title         string
	Author        string
	ISBN          string
	Category      string
	Description   string
	PublishedYear int
	TotalCopies   int
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title         *string
	Author        *string
	ISBN          *string
	Category      *string
	Description   *string
	PublishedYear *int
	TotalCopies   *int
}

type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Query    string
}

type Service struct {
	repo    *books.Repository
	log     *zap.Logger
	auditor Auditor
}

func NewService(repo *books.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// List returns a page of books ordered by title.
func (s *Service) List(ctx context.Context, q ListQuery) (pagination.Page[entities.Book], error) {
	p := pagination.Normalize(q.Page, q.Limit, pagination.DefaultOpts)

	filter := books.ListFilter{
		Query:  strings.TrimSpace(q.Query),
		Limit:  p.Limit,
		Offset: p.Offset(),
	}
	if q.Category != "" {
		category, err := entities.ParseCategory(q.Category)
		if err != nil {
			return pagination.Page[entities.Book]{}, apperr.Validation("Invalid category %q", q.Category)
		}
		filter.Category = category
	}

	items, total, err := s.repo.ListBooks(ctx, filter)
	if err != nil {
		return pagination.Page[entities.Book]{}, apperr.Service(err, "Failed to list books")
	}
	return pagination.NewPage(items, total, p), nil
}

func (s *Service) Get(ctx context.Context, id string) (*entities.Book, error) {
	book, err := s.repo.GetBookByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Book not found")
	}
	if err != nil {
		return nil, apperr.Service(err, "Failed to load book")
	}
	return book, nil
}

// Create adds a book with all copies available.
func (s *Service) Create(ctx context.Context, requester entities.Identity, in CreateInput) (*entities.Book, error) {
	if !requester.Role.IsPrivileged() {
		return nil, apperr.Authorization("Only librarians can add books")
	}

	category, err := entities.ParseCategory(in.Category)
	if err != nil {
		return nil, apperr.Validation("Invalid category %q", in.Category)
	}
	if in.TotalCopies < 1 {
		return nil, apperr.Validation("totalCopies must be at least 1")
	}

	book := &entities.Book{
		ID:              uuid.NewString(),
		Code:            NewCode(category),
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		ISBN:            strings.TrimSpace(in.ISBN),
		Category:        category,
		Description:     in.Description,
		PublishedYear:   in.PublishedYear,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if book.Title == "" || book.Author == "" || book.ISBN == "" {
		return nil, apperr.Validation("title, author and isbn are required")
	}

	if err := s.repo.CreateBook(ctx, book); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("ISBN already exists")
		}
		return nil, apperr.Service(err, "Failed to create book")
	}

	s.audit(requester, "book_create", book)
	s.log.Info("Book created",
		zap.String("book_id", book.ID),
		zap.String("code", book.Code),
		zap.String("isbn", book.ISBN),
	)
	return book, nil
}

// Update applies a partial update. A change to total copies shifts available
// copies by the same delta and may not drop below the copies out on loan.
func (s *Service) Update(ctx context.Context, requester entities.Identity, id string, in UpdateInput) (*entities.Book, error) {
	if !requester.Role.IsPrivileged() {
		return nil, apperr.Authorization("Only librarians can update books")
	}

	fields := map[string]any{}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		if strings.TrimSpace(*in.Author) == "" {
			return nil, apperr.Validation("author cannot be empty")
		}
		fields["author"] = strings.TrimSpace(*in.Author)
	}
	if in.ISBN != nil {
		if strings.TrimSpace(*in.ISBN) == "" {
			return nil, apperr.Validation("isbn cannot be empty")
		}
		fields["isbn"] = strings.TrimSpace(*in.ISBN)
	}
	if in.Category != nil {
		category, err := entities.ParseCategory(*in.Category)
		if err != nil {
			return nil, apperr.Validation("Invalid category %q", *in.Category)
		}
		fields["category"] = category
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.PublishedYear != nil {
		fields["published_year"] = *in.PublishedYear
	}
	if in.TotalCopies != nil && *in.TotalCopies < 1 {
		return nil, apperr.Validation("totalCopies must be at least 1")
	}

	var updated *entities.Book
	err := s.repo.Transaction(ctx, func(repo *books.Repository) error {
		current, err := repo.GetBookByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Book not found")
		}
		if err != nil {
			return err
		}

		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return err
		}

		if in.TotalCopies != nil && *in.TotalCopies != current.TotalCopies {
			if *in.TotalCopies < current.BorrowedCopies() {
				return apperr.Validation("totalCopies cannot be lower than copies currently borrowed")
			}
			ok, err := repo.AdjustCopies(ctx, id, *in.TotalCopies-current.TotalCopies)
			if err != nil {
				return err
			}
			if !ok {
				// a borrow landed between the read and the update
				return apperr.Validation("totalCopies cannot be lower than copies currently borrowed")
			}
		}

		updated, err = repo.GetBookByID(ctx, id)
		return err
	})
	if err != nil {
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("ISBN already exists")
		}
		return nil, apperr.Service(err, "Failed to update book")
	}

	s.audit(requester, "book_update", updated)
	return updated, nil
}

// Delete removes a book that no borrowing has ever referenced.
func (s *Service) Delete(ctx context.Context, requester entities.Identity, id string) error {
	if !requester.Role.IsPrivileged() {
		return apperr.Authorization("Only librarians can delete books")
	}

	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	total, open, err := s.repo.CountBorrowings(ctx, id)
	if err != nil {
		return apperr.Service(err, "Failed to check borrowings")
	}
	if open > 0 {
		return apperr.Conflict("Book has active borrowings")
	}
	if total > 0 {
		return apperr.Conflict("Book has borrowing history")
	}

	deleted, err := s.repo.DeleteBook(ctx, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperr.Conflict("Book has borrowing history")
		}
		return apperr.Service(err, "Failed to delete book")
	}
	if !deleted {
		return apperr.NotFound("Book not found")
	}

	s.audit(requester, "book_delete", book)
	s.log.Info("Book deleted", zap.String("book_id", id))
	return nil
}

func (s *Service) audit(requester entities.Identity, action string, book *entities.Book) {
	if s.auditor != nil {
		s.auditor.LogCatalog(requester.UserID, action, book)
	}
}

// NewCode builds a display code such as "PRO-1a2b3c4d".
func NewCode(category entities.Category) string {
	id := uuid.New()
	return category.Code() + "-" + hex.EncodeToString(id[:4])
}
