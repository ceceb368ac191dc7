package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/internal/services"
)

// HealthHandler reports the state of the service's subsystems.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Audit queue mode
	queueMode := "sync"
	if q := services.GetAuditQueue(); q != nil && q.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "taskhub",
		"components": gin.H{
			"database":    dbStatus,
			"audit_queue": queueMode,
		},
	})
}
