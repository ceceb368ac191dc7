package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

type ProjectMemberHandler struct {
	projectService *services.ProjectService
}

func NewProjectMemberHandler(projectService *services.ProjectService) *ProjectMemberHandler {
	return &ProjectMemberHandler{projectService: projectService}
}

// Add puts an org user on the project
// POST /api/projects/:projectId/members
func (h *ProjectMemberHandler) Add(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.projectService.AddMember(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "member added")
}

// List returns the project's members
// GET /api/projects/:projectId/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	members, err := h.projectService.ListMembers(middleware.GetOrgID(c), projectID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

type updateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole changes a member's project role
// PATCH /api/projects/:projectId/members/:userId
func (h *ProjectMemberHandler) UpdateRole(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}
	userID, ok := userParam(c)
	if !ok {
		return
	}

	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.projectService.UpdateMemberRole(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, userID, req.Role); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "member role updated")
}

// Remove drops a member from the project
// DELETE /api/projects/:projectId/members/:userId
func (h *ProjectMemberHandler) Remove(c *gin.Context) {
	projectID, ok := projectParam(c)
	if !ok {
		return
	}
	userID, ok := userParam(c)
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(middleware.GetOrgID(c), middleware.GetUserID(c), projectID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "member removed")
}
