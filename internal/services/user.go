package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/internal/utils"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// UserService covers org membership: invites, role changes and the
// activate/deactivate lifecycle. Role changes and deactivations run the
// last-admin guard inside the mutating transaction.
type UserService struct {
	db        *gorm.DB
	inviteCfg *config.InviteConfig
	audit     *AuditRecorder
}

func NewUserService(db *gorm.DB, inviteCfg *config.InviteConfig, audit *AuditRecorder) *UserService {
	return &UserService{db: db, inviteCfg: inviteCfg, audit: audit}
}

type CreateInviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

type InviteResult struct {
	Invite     *models.Invite `json:"invite"`
	InviteLink string         `json:"invite_link"`
}

// CreateInvite issues a single-use invite for an email address. At most one
// outstanding (unaccepted, unexpired) invite may exist per (email, org).
func (s *UserService) CreateInvite(orgID, createdBy uint, req *CreateInviteRequest) (*InviteResult, error) {
	if !models.ValidOrgRole(req.Role) {
		return nil, ErrInvalidRole
	}

	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var outstanding int64
	if err := s.db.Model(&models.Invite{}).
		Where("email = ? AND org_id = ? AND accepted_at IS NULL AND expires_at > ?", req.Email, orgID, time.Now()).
		Count(&outstanding).Error; err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, ErrInviteOutstanding
	}

	token, tokenHash, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	invite := models.Invite{
		OrgID:     orgID,
		Email:     req.Email,
		Role:      req.Role,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(time.Duration(s.inviteCfg.ExpireHours) * time.Hour),
		CreatedBy: createdBy,
	}
	if err := s.db.Create(&invite).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, createdBy, AuditCreateInvite, EntityInvite, invite.ID,
		map[string]interface{}{"email": req.Email, "role": req.Role})

	return &InviteResult{
		Invite:     &invite,
		InviteLink: fmt.Sprintf("%s/accept-invite?token=%s", s.inviteCfg.FrontendURL, token),
	}, nil
}

type AcceptInviteRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// AcceptInvite consumes an invite exactly once, creating the user and
// stamping the invite in one transaction.
func (s *UserService) AcceptInvite(req *AcceptInviteRequest) (*models.User, error) {
	hash := hashToken(req.Token)

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := tx.Where("token_hash = ?", hash).First(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteInvalid
			}
			return err
		}

		if invite.AcceptedAt != nil {
			return ErrInviteUsed
		}
		if time.Now().After(invite.ExpiresAt) {
			return ErrInviteExpired
		}

		var existing models.User
		if err := tx.Where("email = ?", invite.Email).First(&existing).Error; err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		passwordHash, err := utils.HashPassword(req.Password)
		if err != nil {
			return err
		}

		user = models.User{
			OrgID:        invite.OrgID,
			Email:        invite.Email,
			PasswordHash: passwordHash,
			Role:         invite.Role,
			IsActive:     true,
			Name:         defaultName(invite.Email),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&invite).Update("accepted_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(user.OrgID, user.ID, AuditAcceptInvite, EntityUser, user.ID,
		map[string]interface{}{"email": user.Email})

	return &user, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users of the organization, oldest first.
func (s *UserService) List(orgID uint) ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole changes a user's org role. Self-changes are rejected before the
// last-admin guard so the caller gets the more specific message.
func (s *UserService) UpdateRole(orgID, actorID, targetID uint, role string) (*models.User, error) {
	if !models.ValidOrgRole(role) {
		return nil, ErrInvalidRole
	}
	if targetID == actorID {
		return nil, ErrCannotChangeOwnRole
	}

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND org_id = ?", targetID, orgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if role == models.OrgRoleMember {
			if err := EnsureNotLastAdmin(tx, orgID, targetID); err != nil {
				return err
			}
		}

		user.Role = role
		return tx.Model(&user).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditUpdateUserRole, EntityUser, targetID,
		map[string]interface{}{"role": role})

	return &user, nil
}

// Deactivate soft-disables a user. Users are never hard-deleted.
func (s *UserService) Deactivate(orgID, actorID, targetID uint) (*models.User, error) {
	if targetID == actorID {
		return nil, ErrCannotDeactivateSelf
	}

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND org_id = ?", targetID, orgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := EnsureNotLastAdmin(tx, orgID, targetID); err != nil {
			return err
		}

		user.IsActive = false
		if err := tx.Model(&user).Update("is_active", false).Error; err != nil {
			return err
		}

		// Outstanding refresh tokens die with the account.
		return tx.Where("user_id = ?", targetID).Delete(&models.RefreshToken{}).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditDeactivateUser, EntityUser, targetID, nil)

	return &user, nil
}

// Reactivate re-enables a previously deactivated user.
func (s *UserService) Reactivate(orgID, actorID, targetID uint) (*models.User, error) {
	if targetID == actorID {
		return nil, ErrCannotReactivateSelf
	}

	var user models.User
	if err := s.db.Where("id = ? AND org_id = ?", targetID, orgID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.IsActive = true
	if err := s.db.Model(&user).Update("is_active", true).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditReactivateUser, EntityUser, targetID, nil)

	return &user, nil
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	JobTitle  *string `json:"job_title"`
	Timezone  *string `json:"timezone"`
}

// UpdateProfile lets a user edit their own display fields.
func (s *UserService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.JobTitle != nil {
		updates["job_title"] = *req.JobTitle
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// OrgStats feeds the admin dashboard.
type OrgStats struct {
	Users        int64 `json:"users"`
	ActiveUsers  int64 `json:"active_users"`
	Projects     int64 `json:"projects"`
	OpenTasks    int64 `json:"open_tasks"`
	DoneTasks    int64 `json:"done_tasks"`
	OverdueTasks int64 `json:"overdue_tasks"`
}

func (s *UserService) Stats(orgID uint) (*OrgStats, error) {
	stats := &OrgStats{}

	if err := s.db.Model(&models.User{}).Where("org_id = ?", orgID).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	// Secondary counts are best effort, a zero beats failing the whole
	// dashboard, but the miss still gets logged.
	count := func(name string, dst *int64, q *gorm.DB) {
		if err := q.Count(dst).Error; err != nil {
			logger.Warn().Err(err).Uint("org_id", orgID).Str("stat", name).Msg("org stat count failed")
		}
	}
	count("active_users", &stats.ActiveUsers,
		s.db.Model(&models.User{}).Where("org_id = ? AND is_active = ?", orgID, true))
	count("projects", &stats.Projects,
		s.db.Model(&models.Project{}).Where("org_id = ?", orgID))
	count("open_tasks", &stats.OpenTasks,
		s.db.Model(&models.Task{}).Where("org_id = ? AND status <> ?", orgID, models.TaskStatusDone))
	count("done_tasks", &stats.DoneTasks,
		s.db.Model(&models.Task{}).Where("org_id = ? AND status = ?", orgID, models.TaskStatusDone))
	count("overdue_tasks", &stats.OverdueTasks,
		s.db.Model(&models.Task{}).
			Where("org_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?", orgID, models.TaskStatusDone, time.Now()))

	return stats, nil
}
