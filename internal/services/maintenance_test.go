package services

import (
	"testing"
	"time"

	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
)

func TestRunSweep(t *testing.T) {
	db := newTestDB(t)
	org, admin := seedOrg(t, db, "acme")
	svc := NewMaintenanceService(db, config.AuditConfig{RetentionDays: 90})

	now := time.Now()
	db.Create(&models.RefreshToken{UserID: admin.ID, TokenHash: "live", ExpiresAt: now.Add(time.Hour)})
	db.Create(&models.RefreshToken{UserID: admin.ID, TokenHash: "dead", ExpiresAt: now.Add(-time.Hour)})

	accepted := now.Add(-time.Minute)
	db.Create(&models.Invite{OrgID: org.ID, Email: "a@x.test", Role: models.OrgRoleMember, TokenHash: "i1", ExpiresAt: now.Add(time.Hour), CreatedBy: admin.ID})
	db.Create(&models.Invite{OrgID: org.ID, Email: "b@x.test", Role: models.OrgRoleMember, TokenHash: "i2", ExpiresAt: now.Add(-time.Hour), CreatedBy: admin.ID})
	// Accepted invites survive even past their expiry.
	db.Create(&models.Invite{OrgID: org.ID, Email: "c@x.test", Role: models.OrgRoleMember, TokenHash: "i3", ExpiresAt: now.Add(-time.Hour), AcceptedAt: &accepted, CreatedBy: admin.ID})

	db.Create(&models.AuditLog{OrgID: org.ID, UserID: admin.ID, Action: AuditCreateProject, Entity: EntityProject, CreatedAt: now})
	db.Create(&models.AuditLog{OrgID: org.ID, UserID: admin.ID, Action: AuditCreateProject, Entity: EntityProject, CreatedAt: now.AddDate(0, 0, -91)})

	svc.RunSweep()

	var tokens []models.RefreshToken
	db.Find(&tokens)
	if len(tokens) != 1 || tokens[0].TokenHash != "live" {
		t.Errorf("refresh tokens after sweep = %+v, expected only the live one", tokens)
	}

	var invites []models.Invite
	db.Order("token_hash").Find(&invites)
	if len(invites) != 2 || invites[0].TokenHash != "i1" || invites[1].TokenHash != "i3" {
		t.Errorf("invites after sweep = %d, expected the live and accepted ones", len(invites))
	}

	var logs int64
	db.Model(&models.AuditLog{}).Count(&logs)
	if logs != 1 {
		t.Errorf("audit logs after sweep = %d, expected 1", logs)
	}
}
