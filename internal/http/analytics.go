package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AnalyticsController serves the librarian dashboards. The caller's role
// always comes from the session.
type AnalyticsController struct {
	analytics AnalyticsReader
}

func NewAnalyticsController(reader AnalyticsReader) *AnalyticsController {
	return &AnalyticsController{analytics: reader}
}

type topBorrowedQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// GET /analytics/top-borrowed?limit
func (ac *AnalyticsController) TopBorrowed(c *gin.Context) {
	var q topBorrowedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	rows, err := ac.analytics.TopBorrowed(c.Request.Context(), identity(c), q.Limit)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// GET /analytics/overdue?page&limit
func (ac *AnalyticsController) Overdue(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := ac.analytics.OverdueList(c.Request.Context(), identity(c), q.Page, q.Limit)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}

// GET /analytics/trends
func (ac *AnalyticsController) Trends(c *gin.Context) {
	trends, err := ac.analytics.TrendsByRole(c.Request.Context(), identity(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trends})
}

// GET /analytics/summary
func (ac *AnalyticsController) Summary(c *gin.Context) {
	summary, err := ac.analytics.Summary(c.Request.Context(), identity(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
