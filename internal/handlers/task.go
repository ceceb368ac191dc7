package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create adds a task to a project
// POST /api/projects/:projectId/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(middleware.GetOrgID(c), projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// List returns a project's tasks
// GET /api/projects/:projectId/tasks
func (h *TaskHandler) List(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.taskService.List(middleware.GetOrgID(c), projectID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}

// GetByID returns one task
// GET /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) GetByID(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(middleware.GetOrgID(c), projectID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Update edits a task's non-status fields
// PATCH /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) Update(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves a task through the workflow
// PATCH /api/projects/:projectId/tasks/:taskId/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateStatus(
		middleware.GetOrgID(c), middleware.GetUserID(c), projectID, taskID,
		middleware.GetProjectRole(c), req.Status,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

type assignRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// Assign sets a task's assignee
// PATCH /api/projects/:projectId/tasks/:taskId/assign
func (h *TaskHandler) Assign(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Assign(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, taskID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Unassign clears a task's assignee
// PATCH /api/projects/:projectId/tasks/:taskId/unassign
func (h *TaskHandler) Unassign(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	task, err := h.taskService.Unassign(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete removes a task
// DELETE /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	projectID, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, taskID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "task deleted")
}

// MyTasks returns the caller's assigned tasks across active projects
// GET /api/my-tasks
func (h *TaskHandler) MyTasks(c *gin.Context) {
	tasks, err := h.taskService.MyTasks(middleware.GetOrgID(c), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}

func taskParams(c *gin.Context) (projectID, taskID uint, ok bool) {
	projectID, ok = projectParam(c)
	if !ok {
		return 0, 0, false
	}
	id, err := strconv.ParseUint(c.Param("taskId"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid task id")
		return 0, 0, false
	}
	return projectID, uint(id), true
}
