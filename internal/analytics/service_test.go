package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/database"
	"github.com/Byiringiro215/lms/internal/database/analytics"
	"github.com/Byiringiro215/lms/internal/entities"
)

var (
	librarian = entities.Identity{UserID: "lib", Role: entities.RoleLibrarian}
	admin     = entities.Identity{UserID: "adm", Role: entities.RoleAdmin}
	student   = entities.Identity{UserID: "s1", Role: entities.RoleStudent}
	teacher   = entities.Identity{UserID: "t1", Role: entities.RoleTeacher}
)

func setupTestDB(t *testing.T) (*Service, *gorm.DB) {
	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   database.MemoryPath,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB, err := db.SQLX()
	require.NoError(t, err)

	return NewService(analytics.NewRepository(sqlxDB, db.SQLDialect()), nil), db.DB
}

// seed builds three books and a borrowing history:
// b2 borrowed 3 times, b1 and b3 twice each, one overdue loan per student.
func seed(t *testing.T, db *gorm.DB) {
	for _, u := range []entities.User{
		{ID: "s1", Name: "Sam", Role: entities.RoleStudent},
		{ID: "s2", Name: "Sue", Role: entities.RoleStudent},
		{ID: "t1", Name: "Tom", Role: entities.RoleTeacher},
	} {
		u.ExternalID = "ext-" + u.ID
		u.Email = u.ID + "@example.com"
		require.NoError(t, db.Create(&u).Error)
	}
	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, db.Create(&entities.Book{
			ID: id, Code: "NOV-" + id, Title: "Title " + id, Author: "A", ISBN: "isbn-" + id,
			Category: entities.CategoryNovel, TotalCopies: 5, AvailableCopies: 5,
		}).Error)
	}

	now := time.Now().UTC()
	loans := []struct {
		user, book string
		status     entities.BorrowingStatus
		due        time.Time
	}{
		{"s1", "b2", entities.BorrowingStatusOverdue, now.Add(-48 * time.Hour)},
		{"s2", "b2", entities.BorrowingStatusOverdue, now.Add(-72 * time.Hour)},
		{"t1", "b2", entities.BorrowingStatusReturned, now.Add(-24 * time.Hour)},
		{"t1", "b1", entities.BorrowingStatusActive, now.Add(24 * time.Hour)},
		{"s1", "b1", entities.BorrowingStatusReturned, now.Add(-24 * time.Hour)},
		{"t1", "b3", entities.BorrowingStatusActive, now.Add(24 * time.Hour)},
		{"s2", "b3", entities.BorrowingStatusReturned, now.Add(-24 * time.Hour)},
	}
	for i, l := range loans {
		b := entities.Borrowing{
			ID: fmt.Sprintf("l%d", i), UserID: l.user, BookID: l.book,
			BorrowDate: now.Add(-240 * time.Hour), DueDate: l.due, Status: l.status,
		}
		if l.status == entities.BorrowingStatusReturned {
			b.ReturnDate = &now
		} else {
			require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", l.book).
				Update("available_copies", gorm.Expr("available_copies - 1")).Error)
		}
		require.NoError(t, db.Create(&b).Error)
	}
}

func TestStudentAndTeacherAreForbidden(t *testing.T) {
	svc, _ := setupTestDB(t)
	ctx := context.Background()

	for _, who := range []entities.Identity{student, teacher} {
		_, err := svc.TopBorrowed(ctx, who, 5)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

		_, err = svc.TopBorrowed(ctx, who, -10)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

		_, err = svc.OverdueList(ctx, who, 1, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

		_, err = svc.TrendsByRole(ctx, who)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

		_, err = svc.Summary(ctx, who)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	}
}

func TestTopBorrowed(t *testing.T) {
	svc, db := setupTestDB(t)
	seed(t, db)

	rows, err := svc.TopBorrowed(context.Background(), librarian, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "b2", rows[0].BookID)
	assert.Equal(t, int64(3), rows[0].BorrowCount)
	assert.Equal(t, "Title b2", rows[0].Title)
	// equal counts are ordered by book id
	assert.Equal(t, "b1", rows[1].BookID)
	assert.Equal(t, "b3", rows[2].BookID)

	rows, err = svc.TopBorrowed(context.Background(), admin, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestTopBorrowed_Empty(t *testing.T) {
	svc, _ := setupTestDB(t)

	rows, err := svc.TopBorrowed(context.Background(), librarian, 5)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestOverdueList(t *testing.T) {
	svc, db := setupTestDB(t)
	seed(t, db)

	page, err := svc.OverdueList(context.Background(), librarian, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Items, 2)

	assert.Equal(t, "s2", page.Items[0].UserID, "earliest due date first")
	assert.Equal(t, "Sue", page.Items[0].UserName)
	assert.Equal(t, "b2", page.Items[0].BookID)
	assert.True(t, page.Items[0].DueDate.Before(page.Items[1].DueDate))

	page, err = svc.OverdueList(context.Background(), librarian, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s1", page.Items[0].UserID)
	assert.False(t, page.HasMore())
}

func TestTrendsByRole(t *testing.T) {
	svc, db := setupTestDB(t)

	trends, err := svc.TrendsByRole(context.Background(), librarian)
	require.NoError(t, err)
	require.Len(t, trends, 4)
	for _, tr := range trends {
		assert.Zero(t, tr.BorrowCount)
	}

	seed(t, db)
	trends, err = svc.TrendsByRole(context.Background(), librarian)
	require.NoError(t, err)
	assert.Equal(t, []RoleTrend{
		{Role: entities.RoleStudent, BorrowCount: 4},
		{Role: entities.RoleTeacher, BorrowCount: 3},
		{Role: entities.RoleLibrarian, BorrowCount: 0},
		{Role: entities.RoleAdmin, BorrowCount: 0},
	}, trends)
}

func TestSummary(t *testing.T) {
	svc, db := setupTestDB(t)

	empty, err := svc.Summary(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, analytics.Summary{}, empty)

	seed(t, db)
	summary, err := svc.Summary(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Books)
	assert.Equal(t, int64(15), summary.TotalCopies)
	assert.Equal(t, int64(11), summary.AvailableCopies)
	assert.Equal(t, int64(4), summary.OpenLoans)
	assert.Equal(t, int64(2), summary.OverdueLoans)
}
