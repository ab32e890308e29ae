package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Byiringiro215/lms/internal/users"
)

type UsersController struct {
	users UserDirectory
}

func NewUsersController(directory UserDirectory) *UsersController {
	return &UsersController{users: directory}
}

type listUsersQuery struct {
	pageQuery
	Role string `form:"role" binding:"omitempty,role"`
}

type updateUserRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=255"`
	Role *string `json:"role" binding:"omitempty,role"`
}

// Profile returns the signed-in user.
// GET /users/profile
func (uc *UsersController) Profile(c *gin.Context) {
	user, err := uc.users.Profile(c.Request.Context(), identity(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// List returns a page of users, optionally filtered by role.
// GET /users?page&limit&role
func (uc *UsersController) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := uc.users.List(c.Request.Context(), identity(c), q.Page, q.Limit, q.Role)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}

// GET /users/:id
func (uc *UsersController) Get(c *gin.Context) {
	user, err := uc.users.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update changes a user's name or role.
// PATCH /users/:id
func (uc *UsersController) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := uc.users.Update(c.Request.Context(), identity(c), c.Param("id"), users.UpdateInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
