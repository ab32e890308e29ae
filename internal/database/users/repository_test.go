package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Byiringiro215/lms/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}))

	return NewRepository(db)
}

func TestRepository_CreateUser(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	user := &entities.User{ExternalID: "ext-1", Email: "alice@example.com", Name: "Alice", Role: entities.RoleStudent}
	require.NoError(t, repo.CreateUser(ctx, user))

	assert.Len(t, user.ID, 36)

	found, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.Equal(t, entities.RoleStudent, found.Role)
}

func TestRepository_CreateUser_DuplicateExternalID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &entities.User{ExternalID: "ext-1", Email: "a@example.com", Role: entities.RoleStudent}))
	err := repo.CreateUser(ctx, &entities.User{ExternalID: "ext-1", Email: "b@example.com", Role: entities.RoleStudent})
	assert.Error(t, err)
}

func TestRepository_Lookups(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	user := &entities.User{ExternalID: "ext-9", Email: "bob@example.com", Name: "Bob", Role: entities.RoleTeacher}
	require.NoError(t, repo.CreateUser(ctx, user))

	byExt, err := repo.GetUserByExternalID(ctx, "ext-9")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byExt.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	locked, err := repo.GetUserForUpdate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", locked.Name)

	_, err = repo.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListUsers(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i, name := range []string{"Carol", "Alice", "Bob"} {
		role := entities.RoleStudent
		if i == 0 {
			role = entities.RoleLibrarian
		}
		require.NoError(t, repo.CreateUser(ctx, &entities.User{
			ExternalID: "ext-" + name,
			Email:      name + "@example.com",
			Name:       name,
			Role:       role,
		}))
	}

	all, total, err := repo.ListUsers(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "Alice", all[0].Name)
	assert.Equal(t, "Carol", all[2].Name)

	students, total, err := repo.ListUsers(ctx, entities.RoleStudent, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, students, 1)
	assert.Equal(t, "Alice", students[0].Name)
}

func TestRepository_UpdateUser(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	user := &entities.User{ExternalID: "ext-1", Email: "a@example.com", Name: "A", Role: entities.RoleStudent}
	require.NoError(t, repo.CreateUser(ctx, user))

	require.NoError(t, repo.UpdateUser(ctx, user.ID, map[string]any{"role": entities.RoleLibrarian, "name": "Ann"}))

	updated, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleLibrarian, updated.Role)
	assert.Equal(t, "Ann", updated.Name)
}
