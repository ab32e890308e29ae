// Package users maintains the local user directory. Users are created on
// their first successful identity exchange; their role is assigned then and
// afterwards only changed by a librarian.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/database"
	"github.com/Byiringiro215/lms/internal/database/users"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

// Auditor receives user directory changes.
type Auditor interface {
	LogUser(actorID, targetID, action, description string)
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name *string
	Role *string
}

type Service struct {
	repo    *users.Repository
	log     *zap.Logger
	auditor Auditor
}

func NewService(repo *users.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// Upsert finds the local user for an external identity, by external id and
// then by email, creating one when neither matches. Email and name are
// refreshed on every call; the role is only taken from ext on creation.
func (s *Service) Upsert(ctx context.Context, ext entities.ExternalIdentity) (*entities.User, error) {
	ext.ExternalID = strings.TrimSpace(ext.ExternalID)
	ext.Email = strings.ToLower(strings.TrimSpace(ext.Email))
	ext.Name = strings.TrimSpace(ext.Name)
	if ext.ExternalID == "" || ext.Email == "" {
		return nil, apperr.Validation("identity is missing an id or email")
	}
	if ext.Role == "" {
		ext.Role = entities.RoleStudent
	}
	if !ext.Role.Valid() {
		return nil, apperr.Validation("Invalid role %q", ext.Role)
	}

	user, err := s.findExisting(ctx, ext)
	if err != nil {
		return nil, apperr.Service(err, "Failed to look up user")
	}

	if user == nil {
		user = &entities.User{
			ExternalID: ext.ExternalID,
			Email:      ext.Email,
			Name:       ext.Name,
			Role:       ext.Role,
		}
		err := s.repo.CreateUser(ctx, user)
		if database.IsUniqueViolation(err) {
			// a concurrent exchange created the user first
			user, err = s.findExisting(ctx, ext)
			if err == nil && user == nil {
				err = errors.New("user vanished after unique violation")
			}
		}
		if err != nil {
			return nil, apperr.Service(err, "Failed to create user")
		}
		s.log.Info("User created",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
		)
		return user, nil
	}

	fields := map[string]any{}
	if user.ExternalID != ext.ExternalID {
		fields["external_id"] = ext.ExternalID
	}
	if user.Email != ext.Email {
		fields["email"] = ext.Email
	}
	if ext.Name != "" && user.Name != ext.Name {
		fields["name"] = ext.Name
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.repo.UpdateUser(ctx, user.ID, fields); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Email already belongs to another user")
		}
		return nil, apperr.Service(err, "Failed to update user")
	}
	return s.load(ctx, user.ID)
}

func (s *Service) findExisting(ctx context.Context, ext entities.ExternalIdentity) (*entities.User, error) {
	user, err := s.repo.GetUserByExternalID(ctx, ext.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err = s.repo.GetUserByEmail(ctx, ext.Email)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// Profile returns the requester's own record.
func (s *Service) Profile(ctx context.Context, requester entities.Identity) (*entities.User, error) {
	return s.load(ctx, requester.UserID)
}

// Get returns a user to themselves or to a privileged user.
func (s *Service) Get(ctx context.Context, requester entities.Identity, id string) (*entities.User, error) {
	if !requester.CanActFor(id) {
		return nil, apperr.Authorization("You can only view your own profile")
	}
	return s.load(ctx, id)
}

// List pages through users, optionally filtered by role.
func (s *Service) List(ctx context.Context, requester entities.Identity, page, limit int, role string) (pagination.Page[entities.User], error) {
	if !requester.Role.IsPrivileged() {
		return pagination.Page[entities.User]{}, apperr.Authorization("Only librarians can list users")
	}

	var filter entities.Role
	if role != "" {
		parsed, err := entities.ParseRole(role)
		if err != nil {
			return pagination.Page[entities.User]{}, apperr.Validation("Invalid role %q", role)
		}
		filter = parsed
	}

	p := pagination.Normalize(page, limit, pagination.DefaultOpts)
	items, total, err := s.repo.ListUsers(ctx, filter, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[entities.User]{}, apperr.Service(err, "Failed to list users")
	}
	return pagination.NewPage(items, total, p), nil
}

// Update changes a user's name or role. Privileged users only.
func (s *Service) Update(ctx context.Context, requester entities.Identity, id string, in UpdateInput) (*entities.User, error) {
	if !requester.Role.IsPrivileged() {
		return nil, apperr.Authorization("Only librarians can update users")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var changes []string
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		fields["name"] = name
		changes = append(changes, "name")
	}
	if in.Role != nil {
		role, err := entities.ParseRole(*in.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role %q", *in.Role)
		}
		if role != current.Role {
			fields["role"] = role
			changes = append(changes, fmt.Sprintf("role %s -> %s", current.Role, role))
		}
	}

	if err := s.repo.UpdateUser(ctx, id, fields); err != nil {
		return nil, apperr.Service(err, "Failed to update user")
	}
	if len(changes) > 0 && s.auditor != nil {
		s.auditor.LogUser(requester.UserID, id, "user_update", strings.Join(changes, ", "))
	}
	return s.load(ctx, id)
}

// Promote sets the role of the user with the given email. It bypasses
// requester checks and is only reachable from the command line.
func (s *Service) Promote(ctx context.Context, email, role string) (*entities.User, error) {
	parsed, err := entities.ParseRole(role)
	if err != nil {
		return nil, apperr.Validation("Invalid role %q", role)
	}

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Service(err, "Failed to load user")
	}

	if err := s.repo.UpdateUser(ctx, user.ID, map[string]any{"role": parsed}); err != nil {
		return nil, apperr.Service(err, "Failed to update user")
	}
	if s.auditor != nil {
		s.auditor.LogUser("", user.ID, "user_promote", fmt.Sprintf("role %s -> %s", user.Role, parsed))
	}
	user.Role = parsed
	return user, nil
}

func (s *Service) load(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Service(err, "Failed to load user")
	}
	return user, nil
}
