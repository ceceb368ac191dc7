package services

import (
	"errors"
	"time"

	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/gorm"
)

// TaskService owns the task lifecycle. Every mutation re-reads the current
// row first: DONE freezes the whole task, not just its status, and the
// status workflow is a strict whitelist.
type TaskService struct {
	db    *gorm.DB
	audit *AuditRecorder
}

func NewTaskService(db *gorm.DB, audit *AuditRecorder) *TaskService {
	return &TaskService{db: db, audit: audit}
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *uint      `json:"assigned_to"`
}

// Create inserts a task in TODO. An initial assignee must already be a
// member of the project.
func (s *TaskService) Create(orgID, projectID, creatorID uint, req *CreateTaskRequest) (*models.Task, error) {
	priority := req.Priority
	if priority == 0 {
		priority = 3
	}
	if priority < 1 || priority > 5 {
		return nil, ErrInvalidTaskPriority
	}

	if req.AssignedTo != nil {
		if err := s.checkAssignee(orgID, projectID, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := models.Task{
		OrgID:       orgID,
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Status:      models.TaskStatusTodo,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   creatorID,
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, creatorID, AuditCreateTask, EntityTask, task.ID,
		map[string]interface{}{"title": task.Title, "project_id": projectID})

	return &task, nil
}

func (s *TaskService) List(orgID, projectID uint, limit, offset int) ([]models.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var tasks []models.Task
	if err := s.db.Preload("Assignee").
		Where("project_id = ? AND org_id = ?", projectID, orgID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) GetByID(orgID, projectID, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.Preload("Assignee").
		Where("id = ? AND project_id = ? AND org_id = ?", taskID, projectID, orgID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *int       `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// Update edits non-status fields. Rejected outright once the task is DONE.
func (s *TaskService) Update(orgID, actorID, projectID, taskID uint, req *UpdateTaskRequest) (*models.Task, error) {
	task, err := s.GetByID(orgID, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		return nil, ErrTaskAlreadyDone
	}

	updates := map[string]interface{}{}
	if req.Title != nil && *req.Title != "" {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		if *req.Priority < 1 || *req.Priority > 5 {
			return nil, ErrInvalidTaskPriority
		}
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if len(updates) == 0 {
		return task, nil
	}

	// Fresh statement: task carries the preloaded Assignee and a Model(task)
	// write would re-save the association over assigned_to.
	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditUpdateTask, EntityTask, taskID,
		map[string]interface{}{"title": task.Title})

	return task, nil
}

// UpdateStatus applies the workflow. Check order matters: terminal state
// first, then the transition table, then the assignee rule for project
// MEMBERs. actorProjectRole is empty for org admins acting without a
// membership row.
func (s *TaskService) UpdateStatus(orgID, actorID, projectID, taskID uint, actorProjectRole, status string) (*models.Task, error) {
	if !models.ValidTaskStatus(status) {
		return nil, ErrInvalidTaskStatus
	}

	task, err := s.GetByID(orgID, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		return nil, ErrTaskAlreadyDone
	}

	if !IsValidTaskTransition(task.Status, status) {
		return nil, ErrInvalidTransition(task.Status, status)
	}

	if actorProjectRole == models.ProjectRoleMember {
		if task.AssignedTo == nil || *task.AssignedTo != actorID {
			return nil, ErrNotAssignee
		}
	}

	from := task.Status
	task.Status = status
	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("status", status).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditUpdateTaskStatus, EntityTask, taskID,
		map[string]interface{}{"title": task.Title, "from": from, "to": status})

	return task, nil
}

// Assign sets the assignee. The target must be an active user of the same
// org and already a member of the task's project.
func (s *TaskService) Assign(orgID, actorID, projectID, taskID, userID uint) (*models.Task, error) {
	task, err := s.GetByID(orgID, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		return nil, ErrTaskAlreadyDone
	}

	if err := s.checkAssignee(orgID, projectID, userID); err != nil {
		return nil, err
	}

	task.AssignedTo = &userID
	task.Assignee = nil // preloaded assignee is stale now
	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("assigned_to", userID).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditAssignTask, EntityTask, taskID,
		map[string]interface{}{"title": task.Title, "assigned_to": userID})

	return task, nil
}

// Unassign clears the assignee.
func (s *TaskService) Unassign(orgID, actorID, projectID, taskID uint) (*models.Task, error) {
	task, err := s.GetByID(orgID, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		return nil, ErrTaskAlreadyDone
	}

	task.AssignedTo = nil
	task.Assignee = nil
	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("assigned_to", nil).Error; err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, AuditUnassignTask, EntityTask, taskID,
		map[string]interface{}{"title": task.Title})

	return task, nil
}

// Delete removes a task. Completed tasks are immutable, deletion included.
func (s *TaskService) Delete(orgID, actorID, projectID, taskID uint) error {
	task, err := s.GetByID(orgID, projectID, taskID)
	if err != nil {
		return err
	}

	if task.Status == models.TaskStatusDone {
		return ErrTaskAlreadyDone
	}

	if err := s.db.Delete(&models.Task{}, task.ID).Error; err != nil {
		return err
	}

	s.audit.Record(orgID, actorID, AuditDeleteTask, EntityTask, taskID,
		map[string]interface{}{"title": task.Title})

	return nil
}

// MyTasks returns the caller's assigned tasks across unarchived projects,
// soonest due first.
func (s *TaskService) MyTasks(orgID, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.Preload("Project").
		Joins("JOIN projects ON projects.id = tasks.project_id AND projects.is_archived = ?", false).
		Where("tasks.org_id = ? AND tasks.assigned_to = ?", orgID, userID).
		Order("tasks.due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// checkAssignee validates org membership, active flag and project
// membership of an assignment target.
func (s *TaskService) checkAssignee(orgID, projectID, userID uint) error {
	var user models.User
	if err := s.db.Where("id = ? AND org_id = ? AND is_active = ?", userID, orgID, true).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var count int64
	if err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAssigneeNotMember
	}
	return nil
}
