package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create creates a new project with the caller as its first manager
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(middleware.GetOrgID(c), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// List returns projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	projects, err := h.projectService.List(&services.ProjectListRequest{
		OrgID:  middleware.GetOrgID(c),
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// GetByID returns one project
// GET /api/projects/:projectId
func (h *ProjectHandler) GetByID(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(middleware.GetOrgID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Update edits project name and description
// PATCH /api/projects/:projectId
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Archive marks a project read-only
// PATCH /api/projects/:projectId/archive
func (h *ProjectHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

// Unarchive makes an archived project writable again
// PATCH /api/projects/:projectId/unarchive
func (h *ProjectHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	if err := h.projectService.SetArchived(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, archived); err != nil {
		response.Error(c, err)
		return
	}

	if archived {
		response.Message(c, "project archived")
	} else {
		response.Message(c, "project unarchived")
	}
}

func projectParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("projectId"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid project id")
		return 0, false
	}
	return uint(id), true
}
