package services

import (
	"encoding/json"
	"testing"

	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database. A single connection
// keeps every query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Invite{},
		&models.RefreshToken{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// inlineAuditQueue writes audit entries on the caller's goroutine so tests
// can assert on rows immediately after the call that produced them.
type inlineAuditQueue struct {
	processor func(entry *models.AuditLog) error
}

func (q *inlineAuditQueue) Enqueue(entry *models.AuditLog) error {
	if q.processor == nil {
		return nil
	}
	return q.processor(entry)
}

func (q *inlineAuditQueue) IsAsync() bool { return false }
func (q *inlineAuditQueue) Close() error  { return nil }

// newTestAudit builds an AuditRecorder whose queue writes synchronously.
func newTestAudit(db *gorm.DB) *AuditRecorder {
	rec := &AuditRecorder{db: db}
	rec.queue = &inlineAuditQueue{processor: rec.write}
	return rec
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:              "test-secret",
		AccessExpireMinutes: 15,
		RefreshExpireHours:  168,
	}
}

func testInviteConfig() config.InviteConfig {
	return config.InviteConfig{
		ExpireHours: 48,
		FrontendURL: "http://localhost:3000",
	}
}

// seedOrg creates an organization with one active admin.
func seedOrg(t *testing.T, db *gorm.DB, name string) (*models.Organization, *models.User) {
	t.Helper()

	org := models.Organization{Name: name, Slug: name}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	admin := seedUser(t, db, org.ID, name+"-admin@example.com", models.OrgRoleAdmin)
	return &org, admin
}

func seedUser(t *testing.T, db *gorm.DB, orgID uint, email, role string) *models.User {
	t.Helper()

	user := models.User{
		OrgID:        orgID,
		Email:        email,
		PasswordHash: "$2a$10$not.a.real.hash.for.tests.only000000000000000000000",
		Role:         role,
		IsActive:     true,
		Name:         email,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return &user
}

func seedProject(t *testing.T, db *gorm.DB, orgID, creatorID uint, name string) *models.Project {
	t.Helper()

	project := models.Project{OrgID: orgID, Name: name, CreatedBy: creatorID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to create project %s: %v", name, err)
	}
	return &project
}

func seedMember(t *testing.T, db *gorm.DB, projectID, userID uint, role string) {
	t.Helper()

	m := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to add project member: %v", err)
	}
}

func auditActions(t *testing.T, db *gorm.DB, orgID uint) []string {
	t.Helper()

	var logs []models.AuditLog
	if err := db.Where("org_id = ?", orgID).Order("id").Find(&logs).Error; err != nil {
		t.Fatalf("failed to list audit logs: %v", err)
	}
	actions := make([]string, len(logs))
	for i, l := range logs {
		actions[i] = l.Action
	}
	return actions
}

func auditDetails(t *testing.T, raw string) map[string]interface{} {
	t.Helper()

	var details map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		t.Fatalf("failed to decode audit details %q: %v", raw, err)
	}
	return details
}
