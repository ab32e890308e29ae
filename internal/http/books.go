package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Byiringiro215/lms/internal/catalog"
)

// BooksController serves the book catalog.
type BooksController struct {
	catalog BookCatalog
}

func NewBooksController(books BookCatalog) *BooksController {
	return &BooksController{catalog: books}
}

type listBooksQuery struct {
	pageQuery
	Category string `form:"category" binding:"omitempty,category"`
	Query    string `form:"q" binding:"omitempty,max=200"`
}

type createBookRequest struct {
	Title         string `json:"title" binding:"required,max=512"`
	Author        string `json:"author" binding:"required,max=256"`
	ISBN          string `json:"isbn" binding:"required,max=20"`
	Category      string `json:"category" binding:"required,category"`
	Description   string `json:"description" binding:"omitempty,max=5000"`
	PublishedYear int    `json:"publishedYear" binding:"omitempty,min=0,max=9999"`
	TotalCopies   int    `json:"totalCopies" binding:"required,min=1"`
}

// updateBookRequest has no availableCopies field; the counter is derived
// from totalCopies and open loans.
type updateBookRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=512"`
	Author          *string `json:"author" binding:"omitempty,min=1,max=256"`
	ISBN            *string `json:"isbn" binding:"omitempty,min=1,max=20"`
	Category        *string `json:"category" binding:"omitempty,category"`
	Description     *string `json:"description" binding:"omitempty,max=5000"`
	PublishedYear   *int    `json:"publishedYear" binding:"omitempty,min=0,max=9999"`
	TotalCopies     *int    `json:"totalCopies" binding:"omitempty,min=1"`
	AvailableCopies *int    `json:"availableCopies" binding:"isdefault"`
}

// GET /books?page&limit&category&q
func (bc *BooksController) List(c *gin.Context) {
	var q listBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := bc.catalog.List(c.Request.Context(), catalog.ListQuery{
		Page:     q.Page,
		Limit:    q.Limit,
		Category: q.Category,
		Query:    q.Query,
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}

// GET /books/:id
func (bc *BooksController) Get(c *gin.Context) {
	book, err := bc.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// POST /books
func (bc *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	book, err := bc.catalog.Create(c.Request.Context(), identity(c), catalog.CreateInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		Description:   req.Description,
		PublishedYear: req.PublishedYear,
		TotalCopies:   req.TotalCopies,
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

// PATCH /books/:id
func (bc *BooksController) Update(c *gin.Context) {
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	book, err := bc.catalog.Update(c.Request.Context(), identity(c), c.Param("id"), catalog.UpdateInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		Description:   req.Description,
		PublishedYear: req.PublishedYear,
		TotalCopies:   req.TotalCopies,
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// DELETE /books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	if err := bc.catalog.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondAppError(c, err)
		return
	}
	respondSuccess(c, "Book deleted")
}
