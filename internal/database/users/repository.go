// Package users provides database operations for the user directory.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByExternalID(ctx, externalID)
package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Byiringiro215/lms/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateUser inserts a user, generating an id when none is set.
func (r *Repository) CreateUser(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user. Returns gorm.ErrRecordNotFound when absent.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate retrieves a user and locks the row until the surrounding
// transaction ends. SQLite ignores the lock clause; its writer lock already
// serializes transactions.
func (r *Repository) GetUserForUpdate(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByExternalID retrieves a user by the id issued by the identity provider.
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns a page of users ordered by name, optionally filtered by role.
func (r *Repository) ListUsers(ctx context.Context, role entities.Role, limit, offset int) ([]entities.User, int64, error) {
	var users []entities.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("name ASC, id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

// UpdateUser saves changed columns of an existing user.
func (r *Repository) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(fields).Error
}
