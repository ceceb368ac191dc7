package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

type AuditHandler struct {
	audit *services.AuditRecorder
}

func NewAuditHandler(audit *services.AuditRecorder) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns recent audit entries for the organization
// GET /api/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.audit.List(&services.AuditListRequest{
		OrgID:  middleware.GetOrgID(c),
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, entries)
}

// ListMine returns the caller's own recent actions
// GET /api/audit-logs/mine
func (h *AuditHandler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.audit.ListMine(middleware.GetOrgID(c), middleware.GetUserID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, entries)
}
