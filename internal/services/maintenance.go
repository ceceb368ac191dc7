package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// MaintenanceService runs the nightly housekeeping sweeps: expired refresh
// tokens, expired unaccepted invites, and audit entries past retention.
// Sweeps are hygiene only; expiry is always enforced at read time too.
type MaintenanceService struct {
	db            *gorm.DB
	auditCfg      config.AuditConfig
	cronScheduler *cron.Cron
}

func NewMaintenanceService(db *gorm.DB, auditCfg config.AuditConfig) *MaintenanceService {
	return &MaintenanceService{db: db, auditCfg: auditCfg}
}

func (s *MaintenanceService) StartScheduler() {
	s.cronScheduler = cron.New()

	// 03:10 daily, off the hour to avoid piling onto other jobs.
	if _, err := s.cronScheduler.AddFunc("10 3 * * *", func() {
		s.RunSweep()
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to schedule maintenance sweep")
		return
	}

	s.cronScheduler.Start()
	logger.Info().Msg("Maintenance scheduler started")
}

func (s *MaintenanceService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// RunSweep executes all sweeps once. Each sweep is independent; one failing
// does not stop the others.
func (s *MaintenanceService) RunSweep() {
	now := time.Now()

	if n, err := s.sweepRefreshTokens(now); err != nil {
		logger.Error().Err(err).Msg("Refresh token sweep failed")
	} else if n > 0 {
		logger.Info().Int64("deleted", n).Msg("Swept expired refresh tokens")
	}

	if n, err := s.sweepInvites(now); err != nil {
		logger.Error().Err(err).Msg("Invite sweep failed")
	} else if n > 0 {
		logger.Info().Int64("deleted", n).Msg("Swept expired invites")
	}

	if n, err := s.sweepAuditLogs(now); err != nil {
		logger.Error().Err(err).Msg("Audit log sweep failed")
	} else if n > 0 {
		logger.Info().Int64("deleted", n).Msg("Swept audit logs past retention")
	}
}

func (s *MaintenanceService) sweepRefreshTokens(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// sweepInvites removes invites that expired without being accepted.
// Accepted rows stay for the record.
func (s *MaintenanceService) sweepInvites(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ? AND accepted_at IS NULL", now).Delete(&models.Invite{})
	return res.RowsAffected, res.Error
}

func (s *MaintenanceService) sweepAuditLogs(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -s.auditCfg.RetentionDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
