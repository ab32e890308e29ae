package entities

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryPhysics     Category = "PHYSICS"
	CategoryMathematics Category = "MATHEMATICS"
	CategoryNovel       Category = "NOVEL"
	CategoryProgramming Category = "PROGRAMMING"
)

var categoryCodes = map[Category]string{
	CategoryPhysics:     "PHY",
	CategoryMathematics: "MATH",
	CategoryNovel:       "NOV",
	CategoryProgramming: "PRO",
}

// ParseCategory accepts any casing of a known category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := categoryCodes[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Code returns the short prefix used in a book's display code.
func (c Category) Code() string {
	return categoryCodes[c]
}

type Book struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Code            string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Title           string    `gorm:"index;size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	ISBN            string    `gorm:"column:isbn;uniqueIndex;size:20;not null" json:"isbn"`
	Category        Category  `gorm:"index;size:20;not null" json:"category"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	PublishedYear   int       `json:"publishedYear,omitempty"`
	TotalCopies     int       `gorm:"not null;check:total_copies >= 1" json:"totalCopies"`
	AvailableCopies int       `gorm:"not null;check:available_copies >= 0" json:"availableCopies"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

// BorrowedCopies is the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}
