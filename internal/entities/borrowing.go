package entities

import (
	"encoding/json"
	"time"
)

// BorrowingStatus is the single source of truth for a loan's lifecycle:
// active -> overdue -> returned, or active -> returned.
type BorrowingStatus string

const (
	BorrowingStatusActive   BorrowingStatus = "active"
	BorrowingStatusOverdue  BorrowingStatus = "overdue"
	BorrowingStatusReturned BorrowingStatus = "returned"
)

// IsOpen reports whether the loan still holds a copy of the book.
func (s BorrowingStatus) IsOpen() bool {
	return s == BorrowingStatusActive || s == BorrowingStatusOverdue
}

type Borrowing struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	UserID     string          `gorm:"size:36;not null;index:idx_borrowings_user_open,priority:1" json:"userId"`
	BookID     string          `gorm:"size:36;not null;index" json:"bookId"`
	BorrowDate time.Time       `gorm:"not null;index" json:"borrowDate"`
	DueDate    time.Time       `gorm:"not null;index:idx_borrowings_status_due,priority:2" json:"dueDate"`
	ReturnDate *time.Time      `gorm:"index:idx_borrowings_user_open,priority:2" json:"returnDate"`
	Status     BorrowingStatus `gorm:"size:20;not null;index:idx_borrowings_status_due,priority:1" json:"status"`
	User       *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"user,omitempty"`
	Book       *Book           `gorm:"foreignKey:BookID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"book,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (Borrowing) TableName() string {
	return "borrowings"
}

// IsOverdue is derived from Status; it is never stored separately.
func (b Borrowing) IsOverdue() bool {
	return b.Status == BorrowingStatusOverdue
}

func (b Borrowing) MarshalJSON() ([]byte, error) {
	type plain Borrowing
	return json.Marshal(struct {
		plain
		IsOverdue bool `json:"isOverdue"`
	}{
		plain:     plain(b),
		IsOverdue: b.IsOverdue(),
	})
}
