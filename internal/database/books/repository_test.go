package books

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Byiringiro215/lms/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Borrowing{}))

	return NewRepository(db), db
}

func newBook(id, title, isbn string, copies int) *entities.Book {
	return &entities.Book{
		ID:              id,
		Code:            "PRO-" + id,
		Title:           title,
		Author:          "Author " + id,
		ISBN:            isbn,
		Category:        entities.CategoryProgramming,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBook(ctx, newBook("b1", "Go in Action", "111", 2)))

	book, err := repo.GetBookByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", book.Title)
	assert.Equal(t, 2, book.AvailableCopies)

	byISBN, err := repo.GetBookByISBN(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "b1", byISBN.ID)

	_, err = repo.GetBookByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListBooks(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBook(ctx, newBook("b1", "Zen of Go", "1", 1)))
	require.NoError(t, repo.CreateBook(ctx, newBook("b2", "Algorithms", "2", 1)))
	novel := newBook("b3", "Anna Karenina", "3", 1)
	novel.Category = entities.CategoryNovel
	require.NoError(t, repo.CreateBook(ctx, novel))

	books, total, err := repo.ListBooks(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, books, 2)
	assert.Equal(t, "Algorithms", books[0].Title)
	assert.Equal(t, "Anna Karenina", books[1].Title)

	books, total, err = repo.ListBooks(ctx, ListFilter{Category: entities.CategoryNovel, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "b3", books[0].ID)

	books, total, err = repo.ListBooks(ctx, ListFilter{Query: "zen", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "b1", books[0].ID)
}

func TestRepository_UpdateFieldsIgnoresCounters(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateBook(ctx, newBook("b1", "Old", "1", 2)))

	err := repo.UpdateFields(ctx, "b1", map[string]any{
		"title":            "New",
		"available_copies": 99,
		"total_copies":     99,
	})
	require.NoError(t, err)

	book, err := repo.GetBookByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "New", book.Title)
	assert.Equal(t, 2, book.TotalCopies)
	assert.Equal(t, 2, book.AvailableCopies)
}

func TestRepository_AdjustCopies(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	book := newBook("b1", "Go", "1", 3)
	require.NoError(t, repo.CreateBook(ctx, book))
	// two copies on loan
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", "b1").Update("available_copies", 1).Error)

	ok, err := repo.AdjustCopies(ctx, "b1", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.GetBookByID(ctx, "b1")
	assert.Equal(t, 5, got.TotalCopies)
	assert.Equal(t, 3, got.AvailableCopies)

	ok, err = repo.AdjustCopies(ctx, "b1", -4)
	require.NoError(t, err)
	assert.False(t, ok, "cannot drop below the two copies on loan")

	ok, err = repo.AdjustCopies(ctx, "b1", -3)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ = repo.GetBookByID(ctx, "b1")
	assert.Equal(t, 2, got.TotalCopies)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestRepository_DeleteBook_RejectedWhenReferenced(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBook(ctx, newBook("b1", "Go", "1", 1)))
	require.NoError(t, repo.CreateBook(ctx, newBook("b2", "Rust", "2", 1)))
	require.NoError(t, db.Create(&entities.User{ID: "u1", ExternalID: "e1", Email: "u1@example.com", Role: entities.RoleStudent}).Error)
	require.NoError(t, db.Create(&entities.Borrowing{
		ID: "l1", UserID: "u1", BookID: "b1",
		BorrowDate: time.Now(), DueDate: time.Now().Add(24 * time.Hour),
		Status: entities.BorrowingStatusActive,
	}).Error)

	total, open, err := repo.CountBorrowings(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), open)

	_, err = repo.DeleteBook(ctx, "b1")
	assert.Error(t, err)

	deleted, err := repo.DeleteBook(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteBook(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}
