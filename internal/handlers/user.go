package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateInvite issues an invite to join the caller's organization
// POST /api/users/invite
func (h *UserHandler) CreateInvite(c *gin.Context) {
	var req services.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.CreateInvite(middleware.GetOrgID(c), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// AcceptInvite consumes an invite token and creates the user
// POST /api/users/accept-invite
func (h *UserHandler) AcceptInvite(c *gin.Context) {
	var req services.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.AcceptInvite(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// List returns all users of the caller's organization
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(middleware.GetOrgID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole changes a user's org role
// PATCH /api/users/:userId/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	targetID, ok := userParam(c)
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateRole(middleware.GetOrgID(c), middleware.GetUserID(c), targetID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Deactivate disables a user account
// PATCH /api/users/:userId/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	targetID, ok := userParam(c)
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(middleware.GetOrgID(c), middleware.GetUserID(c), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Reactivate re-enables a user account
// PATCH /api/users/:userId/reactivate
func (h *UserHandler) Reactivate(c *gin.Context) {
	targetID, ok := userParam(c)
	if !ok {
		return
	}

	user, err := h.userService.Reactivate(middleware.GetOrgID(c), middleware.GetUserID(c), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// GetMyProfile returns the caller's profile fields
// GET /api/users/me/profile
func (h *UserHandler) GetMyProfile(c *gin.Context) {
	user, err := h.userService.Get(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateMyProfile edits the caller's display fields
// PATCH /api/users/me/profile
func (h *UserHandler) UpdateMyProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Stats returns organization-wide dashboard counters
// GET /api/users/stats
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.userService.Stats(middleware.GetOrgID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

func userParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid user id")
		return 0, false
	}
	return uint(id), true
}
