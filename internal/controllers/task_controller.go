package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/service"
)

type TaskController struct {
	taskService  service.TaskService
	statsService service.StatsService
	logger       logging.Logger
}

func NewTaskController(taskService service.TaskService, statsService service.StatsService, logger logging.Logger) *TaskController {
	return &TaskController{
		taskService:  taskService,
		statsService: statsService,
		logger:       logger.With("component", "task_controller"),
	}
}

// ListTasks handles GET /api/tasks
func (tc *TaskController) ListTasks(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	tasks, err := tc.taskService.List(c.Request.Context(), user.Email)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// CreateTask handles POST /api/tasks. Any owner in the body is ignored.
func (tc *TaskController) CreateTask(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := tc.taskService.Create(c.Request.Context(), user.Email, &req)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PUT /api/tasks/:id
func (tc *TaskController) UpdateTask(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := tc.taskService.Update(c.Request.Context(), user.Email, c.Param("id"), &req)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (tc *TaskController) DeleteTask(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	if err := tc.taskService.Delete(c.Request.Context(), user.Email, c.Param("id")); err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Task deleted successfully"})
}

// GetStats handles GET /api/tasks/stats
func (tc *TaskController) GetStats(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	stats, err := tc.statsService.Compute(c.Request.Context(), user.Email)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
