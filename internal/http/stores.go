package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/Byiringiro215/lms/internal/analytics"
	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/catalog"
	dbanalytics "github.com/Byiringiro215/lms/internal/database/analytics"
	dbaudit "github.com/Byiringiro215/lms/internal/database/audit"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/pagination"
	"github.com/Byiringiro215/lms/internal/scheduler"
	"github.com/Byiringiro215/lms/internal/users"
)

// This file consolidates the service interfaces used by HTTP controllers.
// Each controller depends only on the operations it calls.

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Authenticator turns external tokens into sessions.
type Authenticator interface {
	Login(ctx context.Context, provider, token string, client auth.ClientInfo) (*auth.LoginResult, error)
	Logout(identity entities.Identity, client auth.ClientInfo)
	HasProvider(name string) bool
}

type BookCatalog interface {
	List(ctx context.Context, q catalog.ListQuery) (pagination.Page[entities.Book], error)
	Get(ctx context.Context, id string) (*entities.Book, error)
	Create(ctx context.Context, requester entities.Identity, in catalog.CreateInput) (*entities.Book, error)
	Update(ctx context.Context, requester entities.Identity, id string, in catalog.UpdateInput) (*entities.Book, error)
	Delete(ctx context.Context, requester entities.Identity, id string) error
}

type UserDirectory interface {
	Profile(ctx context.Context, requester entities.Identity) (*entities.User, error)
	Get(ctx context.Context, requester entities.Identity, id string) (*entities.User, error)
	List(ctx context.Context, requester entities.Identity, page, limit int, role string) (pagination.Page[entities.User], error)
	Update(ctx context.Context, requester entities.Identity, id string, in users.UpdateInput) (*entities.User, error)
}

type BorrowingLedger interface {
	Borrow(ctx context.Context, requester entities.Identity, req ledger.BorrowRequest) (*entities.Borrowing, error)
	Return(ctx context.Context, borrowingID string, requester entities.Identity) (bool, error)
	Get(ctx context.Context, borrowingID string, requester entities.Identity) (*entities.Borrowing, error)
	ListByUser(ctx context.Context, userID string, requester entities.Identity, page, limit int) (pagination.Page[entities.Borrowing], error)
}

type AnalyticsReader interface {
	TopBorrowed(ctx context.Context, requester entities.Identity, limit int) ([]dbanalytics.BookBorrowCount, error)
	OverdueList(ctx context.Context, requester entities.Identity, page, limit int) (pagination.Page[dbanalytics.OverdueRow], error)
	TrendsByRole(ctx context.Context, requester entities.Identity) ([]analytics.RoleTrend, error)
	Summary(ctx context.Context, requester entities.Identity) (dbanalytics.Summary, error)
}

type AuditReader interface {
	ListEvents(ctx context.Context, filter dbaudit.Filter, p pagination.Params) (pagination.Page[entities.AuditEvent], error)
}

// TaskQueue enqueues background tasks and reports their progress.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, id string) (backlite.TaskStatus, error)
}

type SweepStatusReader interface {
	Status(ctx context.Context) (scheduler.SweepStatus, error)
}
