// Package ledger owns the borrowing state machine and the available-copies
// counter of every book.
//
// Borrow and Return each run in one store transaction. The counter is only
// changed through conditional UPDATE statements, so concurrent borrows of the
// last copy produce exactly one success. Side effects (audit, metrics,
// events) run after commit and never fail the operation.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/database"
	"github.com/Byiringiro215/lms/internal/database/books"
	"github.com/Byiringiro215/lms/internal/database/borrowings"
	"github.com/Byiringiro215/lms/internal/database/users"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

const sideEffectTimeout = 10 * time.Second

// Sweep triggers recorded in the audit log.
const (
	TriggerSchedule = "schedule"
	TriggerTask     = "task"
	TriggerCLI      = "cli"
)

type Config struct {
	StudentBorrowLimit int
	MaxLoanDays        int // 0 disables the upper bound on dueDate
	TxTimeout          time.Duration
	Retry              database.RetryConfig
}

// Auditor receives a record of every ledger operation.
type Auditor interface {
	LogBorrow(actorID string, b *entities.Borrowing, bookID string, err error)
	LogReturn(actorID, borrowingID string, err error)
	LogSweep(trigger string, marked int64, err error)
}

// Recorder receives operation outcomes and timings.
type Recorder interface {
	ObserveBorrow(err error, elapsed time.Duration)
	ObserveReturn(err error, elapsed time.Duration)
	ObserveSweep(marked int64, elapsed time.Duration)
}

// Publisher emits domain events after commit.
type Publisher interface {
	PublishBorrowingCreated(ctx context.Context, b *entities.Borrowing) error
	PublishBorrowingReturned(ctx context.Context, b *entities.Borrowing) error
	PublishOverdueMarked(ctx context.Context, marked int64, at time.Time) error
}

type BorrowRequest struct {
	UserID  string
	BookID  string
	DueDate time.Time
}

type Service struct {
	repo      *borrowings.Repository
	cfg       Config
	log       *zap.Logger
	auditor   Auditor
	recorder  Recorder
	publisher Publisher
	now       func() time.Time
}

// NewService validates cfg and returns a ledger bound to repo.
func NewService(repo *borrowings.Repository, cfg Config, log *zap.Logger) (*Service, error) {
	if cfg.StudentBorrowLimit <= 0 {
		return nil, apperr.Configuration("student borrow limit must be a positive integer, got %d", cfg.StudentBorrowLimit)
	}
	if cfg.MaxLoanDays < 0 {
		return nil, apperr.Configuration("max loan days must not be negative, got %d", cfg.MaxLoanDays)
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = database.DefaultRetryConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		cfg:       cfg,
		log:       log,
		auditor:   nopAuditor{},
		recorder:  nopRecorder{},
		publisher: nopPublisher{},
		now:       time.Now,
	}, nil
}

func (s *Service) SetAuditor(a Auditor) {
	if a != nil {
		s.auditor = a
	}
}

func (s *Service) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

func (s *Service) SetPublisher(p Publisher) {
	if p != nil {
		s.publisher = p
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Borrow lends one copy of req.BookID to req.UserID. Only the user themselves
// may borrow.
func (s *Service) Borrow(ctx context.Context, requester entities.Identity, req BorrowRequest) (*entities.Borrowing, error) {
	start := time.Now()
	borrowing, err := s.borrow(ctx, requester, req)
	s.recorder.ObserveBorrow(err, time.Since(start))
	s.auditor.LogBorrow(requester.UserID, borrowing, req.BookID, err)

	if err != nil {
		return nil, err
	}

	s.afterCommit(func(ctx context.Context) error {
		return s.publisher.PublishBorrowingCreated(ctx, borrowing)
	})

	s.log.Info("Book borrowed",
		zap.String("borrowing_id", borrowing.ID),
		zap.String("user_id", borrowing.UserID),
		zap.String("book_id", borrowing.BookID),
	)
	return borrowing, nil
}

func (s *Service) borrow(ctx context.Context, requester entities.Identity, req BorrowRequest) (*entities.Borrowing, error) {
	if requester.UserID != req.UserID {
		return nil, apperr.Authorization("You can only borrow books for yourself")
	}
	if req.BookID == "" {
		return nil, apperr.Validation("bookId is required")
	}

	now := s.now().UTC()
	due := req.DueDate.UTC()
	if !due.After(now) {
		return nil, apperr.Validation("dueDate must be in the future")
	}
	if s.cfg.MaxLoanDays > 0 && due.After(now.AddDate(0, 0, s.cfg.MaxLoanDays)) {
		return nil, apperr.Validation("dueDate must be within %d days", s.cfg.MaxLoanDays)
	}

	var created *entities.Borrowing
	err := s.runTx(ctx, func(ctx context.Context, repo *borrowings.Repository) error {
		userRepo := users.NewRepository(repo.DB())
		bookRepo := books.NewRepository(repo.DB())

		user, err := userRepo.GetUserForUpdate(ctx, req.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User not found")
		}
		if err != nil {
			return err
		}

		if user.Role.HasBorrowLimit() {
			open, err := repo.CountOpenByUser(ctx, user.ID)
			if err != nil {
				return err
			}
			if open >= int64(s.cfg.StudentBorrowLimit) {
				return apperr.LimitExceeded("Borrowing limit reached")
			}
		}

		overdue, err := repo.HasOverdue(ctx, user.ID)
		if err != nil {
			return err
		}
		if overdue {
			return apperr.Policy("Cannot borrow: Overdue items exist")
		}

		holding, err := repo.HasOpenForBook(ctx, user.ID, req.BookID)
		if err != nil {
			return err
		}
		if holding {
			return apperr.Conflict("Book already borrowed by this user")
		}

		book, err := bookRepo.GetBookByID(ctx, req.BookID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Book not found")
		}
		if err != nil {
			return err
		}

		taken, err := repo.TakeCopy(ctx, book.ID)
		if err != nil {
			return err
		}
		if !taken {
			return apperr.Unavailable("Book not available")
		}

		b := &entities.Borrowing{
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowDate: now,
			DueDate:    due,
			Status:     entities.BorrowingStatusActive,
		}
		if err := repo.CreateBorrowing(ctx, b); err != nil {
			return err
		}

		book.AvailableCopies--
		b.Book = book
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Return closes an open borrowing and puts the copy back. The owner or a
// privileged user may return it.
func (s *Service) Return(ctx context.Context, borrowingID string, requester entities.Identity) (bool, error) {
	start := time.Now()
	returned, err := s.doReturn(ctx, borrowingID, requester)
	s.recorder.ObserveReturn(err, time.Since(start))
	s.auditor.LogReturn(requester.UserID, borrowingID, err)

	if err != nil {
		return false, err
	}

	s.afterCommit(func(ctx context.Context) error {
		return s.publisher.PublishBorrowingReturned(ctx, returned)
	})

	s.log.Info("Book returned",
		zap.String("borrowing_id", returned.ID),
		zap.String("user_id", returned.UserID),
		zap.String("book_id", returned.BookID),
		zap.String("returned_by", requester.UserID),
	)
	return true, nil
}

func (s *Service) doReturn(ctx context.Context, borrowingID string, requester entities.Identity) (*entities.Borrowing, error) {
	var returned *entities.Borrowing
	err := s.runTx(ctx, func(ctx context.Context, repo *borrowings.Repository) error {
		b, err := repo.GetOpenBorrowing(ctx, borrowingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Borrowing not found or already returned")
		}
		if err != nil {
			return err
		}

		if !requester.CanActFor(b.UserID) {
			return apperr.Authorization("You can only return your own borrowings")
		}

		at := s.now().UTC()
		ok, err := repo.MarkReturned(ctx, b.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("Borrowing not found or already returned")
		}

		restored, err := repo.PutBackCopy(ctx, b.BookID)
		if err != nil {
			return err
		}
		if !restored {
			s.log.Warn("Returned copy exceeds total copies; counter left unchanged",
				zap.String("book_id", b.BookID),
				zap.String("borrowing_id", b.ID),
			)
		}

		b.ReturnDate = &at
		b.Status = entities.BorrowingStatusReturned
		returned = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// Get returns one borrowing to its owner or a privileged user.
func (s *Service) Get(ctx context.Context, borrowingID string, requester entities.Identity) (*entities.Borrowing, error) {
	b, err := s.repo.GetBorrowing(ctx, borrowingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Borrowing not found")
	}
	if err != nil {
		return nil, apperr.Service(err, "Failed to load borrowing")
	}
	if !requester.CanActFor(b.UserID) {
		return nil, apperr.Authorization("You can only view your own borrowings")
	}
	return b, nil
}

// ListByUser pages through a user's borrowings, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, requester entities.Identity, page, limit int) (pagination.Page[entities.Borrowing], error) {
	if !requester.CanActFor(userID) {
		return pagination.Page[entities.Borrowing]{}, apperr.Authorization("You can only view your own borrowings")
	}

	p := pagination.Normalize(page, limit, pagination.DefaultOpts)
	items, total, err := s.repo.ListByUser(ctx, userID, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[entities.Borrowing]{}, apperr.Service(err, "Failed to list borrowings")
	}
	return pagination.NewPage(items, total, p), nil
}

// SweepOverdue moves every active borrowing past its due date to overdue.
// Running it again with the same clock changes nothing.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time, trigger string) (int64, error) {
	start := time.Now()

	var marked int64
	err := s.runTx(ctx, func(ctx context.Context, repo *borrowings.Repository) error {
		n, err := repo.MarkOverdue(ctx, now)
		if err != nil {
			return err
		}
		marked = n
		return nil
	})

	s.recorder.ObserveSweep(marked, time.Since(start))
	s.auditor.LogSweep(trigger, marked, err)

	if err != nil {
		s.log.Error("Overdue sweep failed", zap.String("trigger", trigger), zap.Error(err))
		return 0, err
	}

	s.log.Info("Overdue sweep completed",
		zap.String("trigger", trigger),
		zap.Int64("marked", marked),
	)

	if marked > 0 {
		at := now
		s.afterCommit(func(ctx context.Context) error {
			return s.publisher.PublishOverdueMarked(ctx, marked, at)
		})
	}
	return marked, nil
}

// runTx runs fn in a transaction bounded by TxTimeout, retrying lock
// conflicts. Domain errors pass through; anything else becomes a
// ServiceError.
func (s *Service) runTx(ctx context.Context, fn func(ctx context.Context, repo *borrowings.Repository) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	err := database.RetryWithBackoff(ctx, s.cfg.Retry, func() error {
		return s.repo.Transaction(ctx, func(repo *borrowings.Repository) error {
			return fn(ctx, repo)
		})
	})
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Service(err, "Ledger transaction timed out")
	}
	return apperr.Service(err, "Ledger transaction failed")
}

// afterCommit runs a best-effort side effect in the background.
func (s *Service) afterCommit(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn("Failed to publish ledger event", zap.Error(err))
		}
	}()
}

type nopAuditor struct{}

func (nopAuditor) LogBorrow(string, *entities.Borrowing, string, error) {}
func (nopAuditor) LogReturn(string, string, error) {}
func (nopAuditor) LogSweep(string, int64, error) {}

type nopRecorder struct{}

func (nopRecorder) ObserveBorrow(error, time.Duration) {}
func (nopRecorder) ObserveReturn(error, time.Duration) {}
func (nopRecorder) ObserveSweep(int64, time.Duration) {}

type nopPublisher struct{}

func (nopPublisher) PublishBorrowingCreated(context.Context, *entities.Borrowing) error { return nil }
func (nopPublisher) PublishBorrowingReturned(context.Context, *entities.Borrowing) error { return nil }
func (nopPublisher) PublishOverdueMarked(context.Context, int64, time.Time) error { return nil }
