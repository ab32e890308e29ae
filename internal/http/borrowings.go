package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/ledger"
)

const dateOnlyLayout = "2006-01-02"

// BorrowingsController exposes the borrowing ledger.
type BorrowingsController struct {
	ledger BorrowingLedger
}

func NewBorrowingsController(l BorrowingLedger) *BorrowingsController {
	return &BorrowingsController{ledger: l}
}

type borrowRequest struct {
	UserID  string `json:"userId" binding:"required"`
	BookID  string `json:"bookId" binding:"required"`
	DueDate string `json:"dueDate" binding:"required"`
}

type returnResponse struct {
	Returned bool `json:"returned"`
}

// parseDueDate accepts an RFC 3339 timestamp or a calendar date. A bare date
// means the end of that day in UTC.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("dueDate must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	return d.Add(24*time.Hour - time.Second), nil
}

// Borrow lends a copy of a book to the signed-in user.
// POST /borrowings/borrow
func (bc *BorrowingsController) Borrow(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		respondAppError(c, err)
		return
	}

	borrowing, err := bc.ledger.Borrow(c.Request.Context(), identity(c), ledger.BorrowRequest{
		UserID:  req.UserID,
		BookID:  req.BookID,
		DueDate: due,
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, borrowing)
}

// POST /borrowings/return/:borrowingId
func (bc *BorrowingsController) Return(c *gin.Context) {
	returned, err := bc.ledger.Return(c.Request.Context(), c.Param("borrowingId"), identity(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, returnResponse{Returned: returned})
}

// ListByUser returns a user's borrowings, newest first.
// GET /borrowings/user/:userId?page&limit
func (bc *BorrowingsController) ListByUser(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := bc.ledger.ListByUser(c.Request.Context(), c.Param("userId"), identity(c), q.Page, q.Limit)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}

// GET /borrowings/:id
func (bc *BorrowingsController) Get(c *gin.Context) {
	borrowing, err := bc.ledger.Get(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrowing)
}
