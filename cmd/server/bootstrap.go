package main

import (
	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/handlers"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/internal/services"
	"github.com/taskhubhq/taskhub/backend/internal/utils"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	auditQueue  services.AuditQueue
	auditWorker *services.AuditWorker
	maintenance *services.MaintenanceService

	authHandler          *handlers.AuthHandler
	userHandler          *handlers.UserHandler
	projectHandler       *handlers.ProjectHandler
	projectMemberHandler *handlers.ProjectMemberHandler
	taskHandler          *handlers.TaskHandler
	auditHandler         *handlers.AuditHandler
	healthHandler        *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	// Initialize audit queue (uses Redis if enabled, otherwise sync mode)
	auditQueue := services.InitAuditQueue(cfg)
	audit := services.NewAuditRecorder(db, auditQueue)

	// Start async audit worker if Redis is enabled
	var auditWorker *services.AuditWorker
	if cfg.Redis.Enabled && auditQueue.IsAsync() {
		auditWorker = services.NewAuditWorker(&cfg.Redis)
		auditWorker.SetProcessor(audit.Write)
		auditWorker.Start()
	}

	// Start maintenance sweeps
	maintenance := services.NewMaintenanceService(db, cfg.Audit)
	maintenance.StartScheduler()

	authService := services.NewAuthService(db, &cfg.JWT)
	userService := services.NewUserService(db, &cfg.Invite, audit)
	projectService := services.NewProjectService(db, audit)
	taskService := services.NewTaskService(db, audit)

	return &appServices{
		auditQueue:  auditQueue,
		auditWorker: auditWorker,
		maintenance: maintenance,

		authHandler:          handlers.NewAuthHandler(authService),
		userHandler:          handlers.NewUserHandler(userService),
		projectHandler:       handlers.NewProjectHandler(projectService),
		projectMemberHandler: handlers.NewProjectMemberHandler(projectService),
		taskHandler:          handlers.NewTaskHandler(taskService),
		auditHandler:         handlers.NewAuditHandler(audit),
		healthHandler:        handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.maintenance.StopScheduler()
	logger.Info().Msg("Schedulers stopped")

	if s.auditWorker != nil {
		s.auditWorker.Stop()
	}
	if s.auditQueue != nil {
		s.auditQueue.Close()
	}
}
