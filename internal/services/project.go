package services

import (
	"errors"

	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/gorm"
)

// ProjectService owns project lifecycle and membership. Demoting or removing
// a manager runs the last-manager guard inside the mutating transaction.
type ProjectService struct {
	db    *gorm.DB
	audit *AuditRecorder
}

func NewProjectService(db *gorm.DB, audit *AuditRecorder) *ProjectService {
	return &ProjectService{db: db, audit: audit}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create inserts the project and its creator's MANAGER membership in one
// transaction, so a project is never observable without a manager.
func (s *ProjectService) Create(orgID, creatorID uint, req *CreateProjectRequest) (*models.Project, error) {
	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		project = models.Project{
			OrgID:       orgID,
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   creatorID,
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		member := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      models.ProjectRoleManager,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(orgID, creatorID, AuditCreateProject, EntityProject, project.ID,
		map[string]interface{}{"name": project.Name})

	return &project, nil
}

type ProjectListRequest struct {
	OrgID  uint
	UserID uint
	Role   string // org role; ADMIN sees every project, MEMBER only joined ones
	Limit  int
	Offset int
}

// List returns projects visible to the caller, newest first.
func (s *ProjectService) List(req *ProjectListRequest) ([]models.Project, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := s.db.Where("projects.org_id = ?", req.OrgID)
	if req.Role != models.OrgRoleAdmin {
		q = q.Joins("JOIN project_members pm ON pm.project_id = projects.id AND pm.user_id = ?", req.UserID)
	}

	var projects []models.Project
	if err := q.Order("projects.created_at DESC").
		Limit(limit).Offset(req.Offset).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) GetByID(orgID, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.Where("id = ? AND org_id = ?", projectID, orgID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *ProjectService) Update(orgID, actorID, projectID uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.GetByID(orgID, projectID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.Model(project).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditUpdateProject, EntityProject, projectID, nil)

	return project, nil
}

// SetArchived toggles the read-only flag. Archiving is reversible.
func (s *ProjectService) SetArchived(orgID, actorID, projectID uint, archived bool) error {
	res := s.db.Model(&models.Project{}).
		Where("id = ? AND org_id = ?", projectID, orgID).
		Update("is_archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}

	action := AuditArchiveProject
	if !archived {
		action = AuditUnarchiveProject
	}
	s.audit.Record(orgID, actorID, action, EntityProject, projectID, nil)

	return nil
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// AddMember adds an active org user to the project. Adding an existing
// member is a no-op.
func (s *ProjectService) AddMember(orgID, actorID, projectID uint, req *AddMemberRequest) error {
	if !models.ValidProjectRole(req.Role) {
		return ErrInvalidRole
	}

	var user models.User
	if err := s.db.Where("id = ? AND org_id = ? AND is_active = ?", req.UserID, orgID, true).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var existing models.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, req.UserID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member := models.ProjectMember{
		ProjectID: projectID,
		UserID:    req.UserID,
		Role:      req.Role,
	}
	if err := s.db.Create(&member).Error; err != nil {
		return err
	}

	s.audit.Record(orgID, actorID, AuditAddProjectMember, EntityProjectMember, projectID,
		map[string]interface{}{"user_id": req.UserID, "role": req.Role})

	return nil
}

// RemoveMember drops a membership, refusing to orphan the project of its
// last manager.
func (s *ProjectService) RemoveMember(orgID, actorID, projectID, userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := EnsureNotLastManager(tx, projectID, userID); err != nil {
			return err
		}

		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProjectMemberNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(orgID, actorID, AuditRemoveProjectMember, EntityProjectMember, projectID,
		map[string]interface{}{"user_id": userID})

	return nil
}

// ProjectMemberInfo is the membership list payload.
type ProjectMemberInfo struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (s *ProjectService) ListMembers(orgID, projectID uint, limit, offset int) ([]ProjectMemberInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var members []ProjectMemberInfo
	if err := s.db.Model(&models.ProjectMember{}).
		Select("project_members.user_id, users.email, users.name, project_members.role, users.is_active").
		Joins("JOIN users ON users.id = project_members.user_id").
		Where("project_members.project_id = ? AND users.org_id = ?", projectID, orgID).
		Order("project_members.created_at ASC").
		Limit(limit).Offset(offset).
		Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMemberRole changes a project role. Demotion to MEMBER runs the
// last-manager guard first.
func (s *ProjectService) UpdateMemberRole(orgID, actorID, projectID, userID uint, role string) error {
	if !models.ValidProjectRole(role) {
		return ErrInvalidRole
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if role == models.ProjectRoleMember {
			if err := EnsureNotLastManager(tx, projectID, userID); err != nil {
				return err
			}
		}

		res := tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProjectMemberNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(orgID, actorID, AuditUpdateProjectMemberRole, EntityProjectMember, projectID,
		map[string]interface{}{"user_id": userID, "role": role})

	return nil
}
