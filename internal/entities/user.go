package entities

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of roles a library user can hold.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleTeacher   Role = "TEACHER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleStudent, RoleTeacher, RoleLibrarian, RoleAdmin}

// ParseRole converts an external role string into a Role.
// Matching is case-insensitive; unknown values are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleLibrarian:
		return RoleLibrarian, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsPrivileged reports whether the role may manage the catalog, act on other
// users' borrowings and read analytics.
func (r Role) IsPrivileged() bool {
	switch r {
	case RoleLibrarian, RoleAdmin:
		return true
	case RoleStudent, RoleTeacher:
		return false
	}
	return false
}

// HasBorrowLimit reports whether open borrowings for this role are capped.
func (r Role) HasBorrowLimit() bool {
	switch r {
	case RoleStudent:
		return true
	case RoleTeacher, RoleLibrarian, RoleAdmin:
		return false
	}
	return true
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalID string    `gorm:"uniqueIndex;size:128;not null" json:"externalId"`
	Email      string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name       string    `gorm:"size:255" json:"name"`
	Role       Role      `gorm:"index;size:20;not null" json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
