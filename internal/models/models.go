package models

import (
	"time"
)

// Org-level roles, stored on the user.
const (
	OrgRoleAdmin  = "ADMIN"
	OrgRoleMember = "MEMBER"
)

// Project-level roles, stored on the membership row.
const (
	ProjectRoleManager = "MANAGER"
	ProjectRoleMember  = "MEMBER"
)

// Task statuses. DONE is terminal: a done task rejects every further mutation.
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// Organization is the tenant boundary. Every user, project, task and audit
// entry belongs to exactly one organization.
type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User belongs to one organization for its whole lifetime. Users are never
// hard-deleted; admins deactivate them instead.
type User struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	OrgID        uint          `gorm:"index;not null" json:"org_id"`
	Organization *Organization `gorm:"foreignKey:OrgID" json:"organization,omitempty"`
	Email        string        `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string        `gorm:"size:255;not null" json:"-"`
	Role         string        `gorm:"size:20;default:MEMBER;not null" json:"role"` // ADMIN, MEMBER
	IsActive     bool          `gorm:"default:true" json:"is_active"`
	Name         string        `gorm:"size:200" json:"name"`
	AvatarURL    string        `gorm:"size:500" json:"avatar_url"`
	JobTitle     string        `gorm:"size:200" json:"job_title"`
	Timezone     string        `gorm:"size:100" json:"timezone"`
	LastLogin    *time.Time    `json:"last_login"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Invite is a single-use, expiring offer to join an organization. The raw
// token is only ever returned to the inviter; the row stores its hash.
type Invite struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	OrgID      uint       `gorm:"index;not null" json:"org_id"`
	Email      string     `gorm:"index;size:255;not null" json:"email"`
	Role       string     `gorm:"size:20;not null" json:"role"`
	TokenHash  string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedBy  uint       `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RefreshToken is the server-side half of a token pair. A row survives at
// most one successful rotation: the rotation transaction deletes it while
// inserting its replacement.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Project scopes tasks and memberships. Archived projects are read-only for
// every mutating sub-operation; archiving is reversible.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrgID       uint      `gorm:"index;not null" json:"org_id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsArchived  bool      `gorm:"default:false" json:"is_archived"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectMember links a user to a project with a project-scoped role,
// independent of the user's org role.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;default:MEMBER;not null" json:"role"` // MANAGER, MEMBER
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task carries a denormalized OrgID so every query stays tenant-scoped
// without joining through the project. Priority is ordinal: 1 is the most
// urgent, 5 the least, default 3.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OrgID       uint       `gorm:"index;not null" json:"org_id"`
	ProjectID   uint       `gorm:"index;not null" json:"project_id"`
	Project     *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Title       string     `gorm:"size:300;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Priority    int        `gorm:"default:3" json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `gorm:"size:20;default:TODO;not null" json:"status"`
	AssignedTo  *uint      `gorm:"index" json:"assigned_to"`
	Assignee    *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedBy   uint       `json:"created_by"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AuditLog is append-only; there is no update or delete path in the API.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrgID     uint      `gorm:"index;not null" json:"org_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Action    string    `gorm:"size:100;index;not null" json:"action"`
	Entity    string    `gorm:"size:50;not null" json:"entity"`
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"` // JSON payload
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides
func (Organization) TableName() string  { return "organizations" }
func (User) TableName() string          { return "users" }
func (Invite) TableName() string        { return "invites" }
func (RefreshToken) TableName() string  { return "refresh_tokens" }
func (Project) TableName() string       { return "projects" }
func (ProjectMember) TableName() string { return "project_members" }
func (Task) TableName() string          { return "tasks" }
func (AuditLog) TableName() string      { return "audit_logs" }

// ValidOrgRole reports whether role is one of the two org-level roles.
func ValidOrgRole(role string) bool {
	return role == OrgRoleAdmin || role == OrgRoleMember
}

// ValidProjectRole reports whether role is one of the two project-level roles.
func ValidProjectRole(role string) bool {
	return role == ProjectRoleManager || role == ProjectRoleMember
}

// ValidTaskStatus reports whether status names a known workflow state.
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}
