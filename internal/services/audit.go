package services

import (
	"encoding/json"
	"time"

	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// Audit action verbs. The set is closed; the UI groups activity by these.
const (
	AuditCreateProject           = "CREATE_PROJECT"
	AuditUpdateProject           = "UPDATE_PROJECT"
	AuditArchiveProject          = "ARCHIVE_PROJECT"
	AuditUnarchiveProject        = "UNARCHIVE_PROJECT"
	AuditAddProjectMember        = "ADD_PROJECT_MEMBER"
	AuditRemoveProjectMember     = "REMOVE_PROJECT_MEMBER"
	AuditUpdateProjectMemberRole = "UPDATE_PROJECT_MEMBER_ROLE"
	AuditCreateTask              = "CREATE_TASK"
	AuditUpdateTask              = "UPDATE_TASK"
	AuditDeleteTask              = "DELETE_TASK"
	AuditAssignTask              = "ASSIGN_TASK"
	AuditUnassignTask            = "UNASSIGN_TASK"
	AuditUpdateTaskStatus        = "UPDATE_TASK_STATUS"
	AuditCreateInvite            = "CREATE_INVITE"
	AuditAcceptInvite            = "ACCEPT_INVITE"
	AuditUpdateUserRole          = "UPDATE_USER_ROLE"
	AuditDeactivateUser          = "DEACTIVATE_USER"
	AuditReactivateUser          = "REACTIVATE_USER"
)

// Audit entity types.
const (
	EntityProject       = "PROJECT"
	EntityProjectMember = "PROJECT_MEMBER"
	EntityTask          = "TASK"
	EntityUser          = "USER"
	EntityInvite        = "INVITE"
)

// AuditRecorder appends immutable action records. Writes are best-effort:
// a failure is logged and dropped so an audit outage never blocks the
// user-facing operation that triggered it.
type AuditRecorder struct {
	db    *gorm.DB
	queue AuditQueue
}

func NewAuditRecorder(db *gorm.DB, queue AuditQueue) *AuditRecorder {
	if queue == nil {
		queue = NewSyncAuditQueue()
	}
	r := &AuditRecorder{db: db, queue: queue}
	if sq, ok := queue.(*SyncAuditQueue); ok {
		sq.SetProcessor(r.write)
	}
	return r
}

// Record enqueues one audit entry. details may be nil.
func (r *AuditRecorder) Record(orgID, userID uint, action, entity string, entityID uint, details map[string]interface{}) {
	var detailStr string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailStr = string(b)
		}
	}

	entry := &models.AuditLog{
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   detailStr,
		CreatedAt: time.Now(),
	}

	if err := r.queue.Enqueue(entry); err != nil {
		logger.Warn().Err(err).
			Str("action", action).
			Uint("org_id", orgID).
			Msg("audit entry dropped")
	}
}

// write persists a single entry. Used directly by the sync queue and by the
// async worker.
func (r *AuditRecorder) write(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// Write is the sink for the async worker.
func (r *AuditRecorder) Write(entry *models.AuditLog) error {
	return r.write(entry)
}

// AuditListRequest filters audit queries.
type AuditListRequest struct {
	OrgID  uint
	UserID uint
	Role   string // caller's org role; non-admins only see their own actions
	Limit  int
}

// List returns recent audit entries, newest first. Admins see the whole
// organization; members see only their own actions.
func (r *AuditRecorder) List(req *AuditListRequest) ([]models.AuditLog, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	q := r.db.Where("org_id = ?", req.OrgID)
	if req.Role != models.OrgRoleAdmin {
		q = q.Where("user_id = ?", req.UserID)
	}

	var entries []models.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListMine returns the caller's own recent actions regardless of role.
func (r *AuditRecorder) ListMine(orgID, userID uint, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var entries []models.AuditLog
	if err := r.db.
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Order("created_at DESC").Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
