// Package analytics serves the librarian dashboards: most borrowed books,
// overdue loans, borrowing volume by role and catalog totals. Every
// operation is restricted to privileged roles.
package analytics

import (
	"context"

	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/database/analytics"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

type RoleTrend struct {
	Role        entities.Role `json:"role"`
	BorrowCount int64         `json:"borrowCount"`
}

type Service struct {
	repo *analytics.Repository
	log  *zap.Logger
}

func NewService(repo *analytics.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func authorize(requester entities.Identity) error {
	if !requester.Role.IsPrivileged() {
		return apperr.Authorization("Analytics are only available to librarians")
	}
	return nil
}

// TopBorrowed ranks books by how often they were ever borrowed. Ties are
// broken by book id.
func (s *Service) TopBorrowed(ctx context.Context, requester entities.Identity, limit int) ([]analytics.BookBorrowCount, error) {
	if err := authorize(requester); err != nil {
		return nil, err
	}

	p := pagination.Normalize(1, limit, pagination.TopListOpts)
	rows, err := s.repo.TopBorrowed(ctx, p.Limit)
	if err != nil {
		return nil, apperr.Service(err, "Failed to load top borrowed books")
	}
	return rows, nil
}

// OverdueList pages through overdue loans, earliest due date first.
func (s *Service) OverdueList(ctx context.Context, requester entities.Identity, page, limit int) (pagination.Page[analytics.OverdueRow], error) {
	if err := authorize(requester); err != nil {
		return pagination.Page[analytics.OverdueRow]{}, err
	}

	p := pagination.Normalize(page, limit, pagination.DefaultOpts)
	rows, total, err := s.repo.OverdueList(ctx, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[analytics.OverdueRow]{}, apperr.Service(err, "Failed to load overdue borrowings")
	}
	return pagination.NewPage(rows, total, p), nil
}

// TrendsByRole counts borrowings per borrower role. Every role is present,
// in entities.AllRoles order, with zero when it has no borrowings.
func (s *Service) TrendsByRole(ctx context.Context, requester entities.Identity) ([]RoleTrend, error) {
	if err := authorize(requester); err != nil {
		return nil, err
	}

	rows, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, apperr.Service(err, "Failed to load borrowing trends")
	}

	counts := make(map[entities.Role]int64, len(rows))
	for _, row := range rows {
		role, err := entities.ParseRole(row.Role)
		if err != nil {
			s.log.Warn("Skipping borrowings with unknown role", zap.String("role", row.Role))
			continue
		}
		counts[role] += row.BorrowCount
	}

	trends := make([]RoleTrend, 0, len(entities.AllRoles))
	for _, role := range entities.AllRoles {
		trends = append(trends, RoleTrend{Role: role, BorrowCount: counts[role]})
	}
	return trends, nil
}

func (s *Service) Summary(ctx context.Context, requester entities.Identity) (analytics.Summary, error) {
	if err := authorize(requester); err != nil {
		return analytics.Summary{}, err
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return analytics.Summary{}, apperr.Service(err, "Failed to load summary")
	}
	return summary, nil
}
