// Package handlers holds small API handlers that wrap a single service.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/scheduler"
)

// SchedulerHandler exposes the background task list.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched}
}

// RegisterRoutes registers the task routes.
func (h *SchedulerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/tasks", h.ListTasks)
	g.GET("/tasks/:id", h.GetTask)
	g.POST("/tasks/:id/run", h.RunTask)
}

// ListTasks returns all scheduled tasks.
// GET /api/v1/scheduler/tasks
func (h *SchedulerHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.ListTasks())
}

// GetTask returns information about a specific task.
// GET /api/v1/scheduler/tasks/:id
func (h *SchedulerHandler) GetTask(c echo.Context) error {
	task, err := h.scheduler.GetTask(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, task)
}

// RunTask runs a task now and waits for it to finish.
// POST /api/v1/scheduler/tasks/:id/run
func (h *SchedulerHandler) RunTask(c echo.Context) error {
	taskID := c.Param("id")
	if _, err := h.scheduler.GetTask(taskID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	if err := h.scheduler.RunNow(taskID); err != nil {
		return c.JSON(http.StatusOK, map[string]string{
			"taskId": taskID,
			"error":  err.Error(),
		})
	}
	task, _ := h.scheduler.GetTask(taskID)
	return c.JSON(http.StatusOK, task)
}
