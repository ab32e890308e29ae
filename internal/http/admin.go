package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/scheduler"
	"github.com/Byiringiro215/lms/internal/tasks"
)

// AdminController triggers and reports background maintenance jobs.
type AdminController struct {
	tasks TaskQueue
	sweep SweepStatusReader
}

func NewAdminController(queue TaskQueue, sweep SweepStatusReader) *AdminController {
	return &AdminController{tasks: queue, sweep: sweep}
}

type taskResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// TriggerSweep enqueues an overdue sweep.
// POST /admin/sweep
func (ac *AdminController) TriggerSweep(c *gin.Context) {
	if ac.tasks == nil {
		respondAppError(c, apperr.Service(nil, "Task queue is disabled"))
		return
	}

	id, err := ac.tasks.Enqueue(tasks.SweepOverdueTask{RequestedBy: identity(c).UserID})
	if err != nil {
		requestLogger(c).Error("Failed to enqueue overdue sweep", zap.Error(err))
		respondAppError(c, apperr.Service(err, "Failed to enqueue overdue sweep"))
		return
	}

	respondAccepted(c, taskResponse{TaskID: id, Status: "pending"})
}

// SweepStatus reports the sweep schedule and the last run.
// GET /admin/sweep
func (ac *AdminController) SweepStatus(c *gin.Context) {
	if ac.sweep == nil {
		c.JSON(http.StatusOK, scheduler.SweepStatus{})
		return
	}
	status, err := ac.sweep.Status(c.Request.Context())
	if err != nil {
		respondAppError(c, apperr.Service(err, "Failed to read sweep status"))
		return
	}
	c.JSON(http.StatusOK, status)
}

// TaskStatus reports the state of a queued task.
// GET /admin/tasks/:id
func (ac *AdminController) TaskStatus(c *gin.Context) {
	if ac.tasks == nil {
		respondAppError(c, apperr.Service(nil, "Task queue is disabled"))
		return
	}

	id := c.Param("id")
	status, err := ac.tasks.Status(c.Request.Context(), id)
	if err != nil {
		respondAppError(c, apperr.Service(err, "Failed to read task status"))
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondAppError(c, apperr.NotFound("Task not found"))
		return
	}
	c.JSON(http.StatusOK, taskResponse{TaskID: id, Status: tasks.StatusName(status)})
}
