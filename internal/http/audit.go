package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbaudit "github.com/Byiringiro215/lms/internal/database/audit"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/pagination"
)

type AuditController struct {
	audit AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{audit: reader}
}

type listAuditQuery struct {
	pageQuery
	Type   string `form:"type" binding:"omitempty,oneof=borrow return catalog sweep auth user"`
	UserID string `form:"userId"`
}

// List returns audit events, most recent first.
// GET /admin/audit?page&limit&type&userId
func (ac *AuditController) List(c *gin.Context) {
	var q listAuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	filter := dbaudit.Filter{
		EventType: entities.AuditEventType(q.Type),
		UserID:    q.UserID,
	}
	page, err := ac.audit.ListEvents(c.Request.Context(), filter, pagination.Normalize(q.Page, q.Limit, pagination.AuditLogOpts))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}
