package services

import (
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/gorm"
)

// EnsureNotLastAdmin fails when userID is the only remaining active ADMIN of
// the organization. Callers must run it on the same *gorm.DB (transaction)
// as the demotion or deactivation it protects; the guard itself takes no
// locks.
func EnsureNotLastAdmin(tx *gorm.DB, orgID, userID uint) error {
	var admins []models.User
	if err := tx.Select("id").
		Where("org_id = ? AND role = ? AND is_active = ?", orgID, models.OrgRoleAdmin, true).
		Find(&admins).Error; err != nil {
		return err
	}

	if len(admins) == 1 && admins[0].ID == userID {
		return ErrCannotRemoveLastAdmin
	}
	return nil
}

// EnsureNotLastManager fails when userID holds the only MANAGER membership
// of the project. Same transactional contract as EnsureNotLastAdmin.
func EnsureNotLastManager(tx *gorm.DB, projectID, userID uint) error {
	var managers []models.ProjectMember
	if err := tx.Select("user_id").
		Where("project_id = ? AND role = ?", projectID, models.ProjectRoleManager).
		Find(&managers).Error; err != nil {
		return err
	}

	if len(managers) == 1 && managers[0].UserID == userID {
		return ErrCannotRemoveLastManager
	}
	return nil
}
