// Package analytics runs the read-only rollups behind the librarian
// dashboards. Queries are built with goqu for the connected dialect and
// scanned with sqlx.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jmoiron/sqlx"

	"github.com/Byiringiro215/lms/internal/entities"
)

const (
	tableBooks      = "books"
	tableBorrowings = "borrowings"
	tableUsers      = "users"

	aliasBorrowCount = "borrow_count"
)

type BookBorrowCount struct {
	BookID      string `db:"book_id" json:"bookId"`
	Code        string `db:"code" json:"code"`
	Title       string `db:"title" json:"title"`
	Author      string `db:"author" json:"author"`
	ISBN        string `db:"isbn" json:"isbn"`
	Category    string `db:"category" json:"category"`
	BorrowCount int64  `db:"borrow_count" json:"borrowCount"`
}

type OverdueRow struct {
	BorrowingID string    `db:"borrowing_id" json:"borrowingId"`
	BorrowDate  time.Time `db:"borrow_date" json:"borrowDate"`
	DueDate     time.Time `db:"due_date" json:"dueDate"`
	UserID      string    `db:"user_id" json:"userId"`
	UserName    string    `db:"user_name" json:"userName"`
	UserEmail   string    `db:"user_email" json:"userEmail"`
	UserRole    string    `db:"user_role" json:"userRole"`
	BookID      string    `db:"book_id" json:"bookId"`
	BookCode    string    `db:"book_code" json:"bookCode"`
	BookTitle   string    `db:"book_title" json:"bookTitle"`
}

type RoleCount struct {
	Role        string `db:"role"`
	BorrowCount int64  `db:"borrow_count"`
}

type Summary struct {
	Books           int64 `db:"books" json:"books"`
	TotalCopies     int64 `db:"total_copies" json:"totalCopies"`
	AvailableCopies int64 `db:"available_copies" json:"availableCopies"`
	OpenLoans       int64 `db:"open_loans" json:"openLoans"`
	OverdueLoans    int64 `db:"overdue_loans" json:"overdueLoans"`
}

type Repository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// NewRepository binds the repository to db using a goqu dialect name
// ("sqlite3" or "postgres").
func NewRepository(db *sqlx.DB, dialect string) *Repository {
	return &Repository{db: db, dialect: goqu.Dialect(dialect)}
}

// TopBorrowed counts every borrowing, open or closed, per book.
func (r *Repository) TopBorrowed(ctx context.Context, limit int) ([]BookBorrowCount, error) {
	stmt := r.dialect.
		From(goqu.T(tableBorrowings).As("br")).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("br.book_id")))).
		Select(
			goqu.I("b.id").As("book_id"),
			goqu.I("b.code"),
			goqu.I("b.title"),
			goqu.I("b.author"),
			goqu.I("b.isbn"),
			goqu.I("b.category"),
			goqu.COUNT(goqu.I("br.id")).As(aliasBorrowCount),
		).
		GroupBy(goqu.I("b.id"), goqu.I("b.code"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.isbn"), goqu.I("b.category")).
		Order(goqu.C(aliasBorrowCount).Desc(), goqu.I("b.id").Asc()).
		Limit(uint(limit)).
		Prepared(true)

	rows := []BookBorrowCount{}
	if err := r.selectInto(ctx, &rows, stmt); err != nil {
		return nil, err
	}
	return rows, nil
}

// OverdueList pages through overdue borrowings with their user and book,
// earliest due date first.
func (r *Repository) OverdueList(ctx context.Context, limit, offset int) ([]OverdueRow, int64, error) {
	base := r.dialect.
		From(goqu.T(tableBorrowings).As("br")).
		Join(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("br.user_id")))).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("br.book_id")))).
		Where(goqu.I("br.status").Eq(string(entities.BorrowingStatusOverdue)))

	var total int64
	if err := r.getInto(ctx, &total, base.Select(goqu.COUNT("*")).Prepared(true)); err != nil {
		return nil, 0, err
	}

	stmt := base.
		Select(
			goqu.I("br.id").As("borrowing_id"),
			goqu.I("br.borrow_date"),
			goqu.I("br.due_date"),
			goqu.I("u.id").As("user_id"),
			goqu.I("u.name").As("user_name"),
			goqu.I("u.email").As("user_email"),
			goqu.I("u.role").As("user_role"),
			goqu.I("b.id").As("book_id"),
			goqu.I("b.code").As("book_code"),
			goqu.I("b.title").As("book_title"),
		).
		Order(goqu.I("br.due_date").Asc(), goqu.I("br.id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true)

	rows := []OverdueRow{}
	if err := r.selectInto(ctx, &rows, stmt); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountByRole counts every borrowing grouped by the borrower's role. Roles
// without borrowings are absent.
func (r *Repository) CountByRole(ctx context.Context) ([]RoleCount, error) {
	stmt := r.dialect.
		From(goqu.T(tableBorrowings).As("br")).
		Join(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("br.user_id")))).
		Select(goqu.I("u.role"), goqu.COUNT(goqu.I("br.id")).As(aliasBorrowCount)).
		GroupBy(goqu.I("u.role")).
		Prepared(true)

	rows := []RoleCount{}
	if err := r.selectInto(ctx, &rows, stmt); err != nil {
		return nil, err
	}
	return rows, nil
}

// Summary totals the catalog and the open loans.
func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var s Summary

	catalog := r.dialect.From(tableBooks).Select(
		goqu.COUNT("*").As("books"),
		goqu.COALESCE(goqu.SUM("total_copies"), 0).As("total_copies"),
		goqu.COALESCE(goqu.SUM("available_copies"), 0).As("available_copies"),
	).Prepared(true)
	if err := r.getInto(ctx, &s, catalog); err != nil {
		return Summary{}, err
	}

	open := r.dialect.From(tableBorrowings).
		Where(goqu.C("return_date").IsNull()).
		Select(goqu.COUNT("*")).
		Prepared(true)
	if err := r.getInto(ctx, &s.OpenLoans, open); err != nil {
		return Summary{}, err
	}

	overdue := r.dialect.From(tableBorrowings).
		Where(goqu.C("status").Eq(string(entities.BorrowingStatusOverdue))).
		Select(goqu.COUNT("*")).
		Prepared(true)
	if err := r.getInto(ctx, &s.OverdueLoans, overdue); err != nil {
		return Summary{}, err
	}

	return s, nil
}

func (r *Repository) selectInto(ctx context.Context, dest any, stmt *goqu.SelectDataset) error {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := r.db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to run query: %w", err)
	}
	return nil
}

func (r *Repository) getInto(ctx context.Context, dest any, stmt *goqu.SelectDataset) error {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := r.db.GetContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to run query: %w", err)
	}
	return nil
}
