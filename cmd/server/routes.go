package main

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/middleware"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, db *gorm.DB, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for credential-bearing public routes
	authLimiter := middleware.NewRateLimiter(5, 10)

	admin := middleware.OrgRoleRequired(models.OrgRoleAdmin)
	anyOrgRole := middleware.OrgRoleRequired(models.OrgRoleAdmin, models.OrgRoleMember)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/signup", svc.authHandler.Signup)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		// Invite acceptance is public: the token is the credential.
		api.POST("/users/accept-invite", authLimiter.Middleware(), svc.userHandler.AcceptInvite)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Users (org administration)
			protected.POST("/users/invite", admin, svc.userHandler.CreateInvite)
			protected.GET("/users", admin, svc.userHandler.List)
			protected.PATCH("/users/:userId/role", admin, svc.userHandler.UpdateRole)
			protected.PATCH("/users/:userId/deactivate", admin, svc.userHandler.Deactivate)
			protected.PATCH("/users/:userId/reactivate", admin, svc.userHandler.Reactivate)
			protected.GET("/users/me/profile", svc.userHandler.GetMyProfile)
			protected.PATCH("/users/me/profile", svc.userHandler.UpdateMyProfile)
			protected.GET("/users/stats", svc.userHandler.Stats)

			// Projects
			protected.POST("/projects", admin, svc.projectHandler.Create)
			protected.GET("/projects", anyOrgRole, svc.projectHandler.List)
			protected.GET("/projects/:projectId", anyOrgRole, svc.projectHandler.GetByID)
			protected.PATCH("/projects/:projectId", admin, svc.projectHandler.Update)
			protected.PATCH("/projects/:projectId/archive", admin, svc.projectHandler.Archive)
			protected.PATCH("/projects/:projectId/unarchive", admin, svc.projectHandler.Unarchive)

			// Project members
			manage := middleware.AdminOrProjectRole(db, models.ProjectRoleManager)
			view := middleware.AdminOrProjectRole(db, models.ProjectRoleManager, models.ProjectRoleMember)
			active := middleware.ProjectActive(db)

			protected.POST("/projects/:projectId/members", manage, active, svc.projectMemberHandler.Add)
			protected.GET("/projects/:projectId/members", view, svc.projectMemberHandler.List)
			protected.PATCH("/projects/:projectId/members/:userId", manage, active, svc.projectMemberHandler.UpdateRole)
			protected.DELETE("/projects/:projectId/members/:userId", manage, active, svc.projectMemberHandler.Remove)

			// Tasks. Reads and status moves require a real membership; the
			// status gate records the caller's project role for the
			// assignee rule.
			memberOnly := middleware.ProjectRoleRequired(db, models.ProjectRoleManager, models.ProjectRoleMember)

			protected.POST("/projects/:projectId/tasks", manage, active, svc.taskHandler.Create)
			protected.GET("/projects/:projectId/tasks", memberOnly, svc.taskHandler.List)
			protected.GET("/projects/:projectId/tasks/:taskId", memberOnly, svc.taskHandler.GetByID)
			protected.PATCH("/projects/:projectId/tasks/:taskId/assign", manage, active, svc.taskHandler.Assign)
			protected.PATCH("/projects/:projectId/tasks/:taskId/unassign", manage, active, svc.taskHandler.Unassign)
			protected.PATCH("/projects/:projectId/tasks/:taskId/status", memberOnly, active, svc.taskHandler.UpdateStatus)
			protected.PATCH("/projects/:projectId/tasks/:taskId", manage, active, svc.taskHandler.Update)
			protected.DELETE("/projects/:projectId/tasks/:taskId", manage, svc.taskHandler.Delete)
			protected.GET("/tasks/my-tasks", svc.taskHandler.MyTasks)

			// Audit trail
			protected.GET("/audit-logs", admin, svc.auditHandler.List)
			protected.GET("/audit-logs/mine", anyOrgRole, svc.auditHandler.ListMine)
		}
	}
}
