package services

import (
	"errors"
	"testing"

	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/gorm"
)

func newProjectService(t *testing.T) (*ProjectService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewProjectService(db, newTestAudit(db)), db
}

func TestCreateProject_CreatorBecomesManager(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")

	project, err := svc.Create(org.ID, admin.ID, &CreateProjectRequest{
		Name: "Rollout", Description: "Q4 rollout",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if project.IsArchived {
		t.Error("new project should not be archived")
	}

	var member models.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", project.ID, admin.ID).
		First(&member).Error; err != nil {
		t.Fatalf("creator membership missing: %v", err)
	}
	if member.Role != models.ProjectRoleManager {
		t.Errorf("creator role = %q, expected MANAGER", member.Role)
	}

	actions := auditActions(t, db, org.ID)
	if len(actions) != 1 || actions[0] != AuditCreateProject {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestListProjects_VisibilityByRole(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	member := seedUser(t, db, org.ID, "member@acme.test", models.OrgRoleMember)

	joined := seedProject(t, db, org.ID, admin.ID, "joined")
	seedProject(t, db, org.ID, admin.ID, "hidden")
	seedMember(t, db, joined.ID, member.ID, models.ProjectRoleMember)

	// Other org's projects are never visible.
	other, otherAdmin := seedOrg(t, db, "other")
	seedProject(t, db, other.ID, otherAdmin.ID, "foreign")

	adminView, err := svc.List(&ProjectListRequest{OrgID: org.ID, UserID: admin.ID, Role: models.OrgRoleAdmin})
	if err != nil {
		t.Fatalf("List() as admin error = %v", err)
	}
	if len(adminView) != 2 {
		t.Errorf("admin sees %d projects, expected 2", len(adminView))
	}

	memberView, err := svc.List(&ProjectListRequest{OrgID: org.ID, UserID: member.ID, Role: models.OrgRoleMember})
	if err != nil {
		t.Fatalf("List() as member error = %v", err)
	}
	if len(memberView) != 1 || memberView[0].Name != "joined" {
		t.Errorf("member view = %+v, expected only the joined project", memberView)
	}
}

func TestSetArchived(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	project := seedProject(t, db, org.ID, admin.ID, "rollout")

	if err := svc.SetArchived(org.ID, admin.ID, project.ID, true); err != nil {
		t.Fatalf("SetArchived(true) error = %v", err)
	}
	got, err := svc.GetByID(org.ID, project.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.IsArchived {
		t.Error("project should be archived")
	}

	if err := svc.SetArchived(org.ID, admin.ID, project.ID, false); err != nil {
		t.Fatalf("SetArchived(false) error = %v", err)
	}

	if err := svc.SetArchived(org.ID, admin.ID, 9999, true); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("unknown project error = %v, expected ErrProjectNotFound", err)
	}

	actions := auditActions(t, db, org.ID)
	if len(actions) != 2 || actions[0] != AuditArchiveProject || actions[1] != AuditUnarchiveProject {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestAddMember(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	member := seedUser(t, db, org.ID, "member@acme.test", models.OrgRoleMember)
	project := seedProject(t, db, org.ID, admin.ID, "rollout")

	if err := svc.AddMember(org.ID, admin.ID, project.ID, &AddMemberRequest{
		UserID: member.ID, Role: models.ProjectRoleMember,
	}); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	// Re-adding is a no-op, not an error, and keeps the original role.
	if err := svc.AddMember(org.ID, admin.ID, project.ID, &AddMemberRequest{
		UserID: member.ID, Role: models.ProjectRoleManager,
	}); err != nil {
		t.Fatalf("repeat AddMember() error = %v", err)
	}
	var m models.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", project.ID, member.ID).First(&m).Error; err != nil {
		t.Fatalf("membership missing: %v", err)
	}
	if m.Role != models.ProjectRoleMember {
		t.Errorf("role = %q, expected the original MEMBER", m.Role)
	}
}

func TestAddMember_Validation(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	project := seedProject(t, db, org.ID, admin.ID, "rollout")

	if err := svc.AddMember(org.ID, admin.ID, project.ID, &AddMemberRequest{
		UserID: admin.ID, Role: "OWNER",
	}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role error = %v, expected ErrInvalidRole", err)
	}

	// Users from another org cannot be added.
	_, otherAdmin := seedOrg(t, db, "other")
	if err := svc.AddMember(org.ID, admin.ID, project.ID, &AddMemberRequest{
		UserID: otherAdmin.ID, Role: models.ProjectRoleMember,
	}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("cross-org user error = %v, expected ErrUserNotFound", err)
	}

	// Neither can deactivated ones.
	inactive := seedUser(t, db, org.ID, "inactive@acme.test", models.OrgRoleMember)
	if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate: %v", err)
	}
	if err := svc.AddMember(org.ID, admin.ID, project.ID, &AddMemberRequest{
		UserID: inactive.ID, Role: models.ProjectRoleMember,
	}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("inactive user error = %v, expected ErrUserNotFound", err)
	}
}

func TestRemoveMember_LastManagerGuard(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	member := seedUser(t, db, org.ID, "member@acme.test", models.OrgRoleMember)
	project := seedProject(t, db, org.ID, admin.ID, "rollout")
	seedMember(t, db, project.ID, admin.ID, models.ProjectRoleManager)
	seedMember(t, db, project.ID, member.ID, models.ProjectRoleMember)

	if err := svc.RemoveMember(org.ID, admin.ID, project.ID, admin.ID); !errors.Is(err, ErrCannotRemoveLastManager) {
		t.Errorf("removing sole manager error = %v, expected ErrCannotRemoveLastManager", err)
	}

	if err := svc.RemoveMember(org.ID, admin.ID, project.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if err := svc.RemoveMember(org.ID, admin.ID, project.ID, member.ID); !errors.Is(err, ErrProjectMemberNotFound) {
		t.Errorf("repeat removal error = %v, expected ErrProjectMemberNotFound", err)
	}
}

func TestUpdateMemberRole_LastManagerGuard(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	member := seedUser(t, db, org.ID, "member@acme.test", models.OrgRoleMember)
	project := seedProject(t, db, org.ID, admin.ID, "rollout")
	seedMember(t, db, project.ID, admin.ID, models.ProjectRoleManager)
	seedMember(t, db, project.ID, member.ID, models.ProjectRoleMember)

	if err := svc.UpdateMemberRole(org.ID, admin.ID, project.ID, admin.ID, models.ProjectRoleMember); !errors.Is(err, ErrCannotRemoveLastManager) {
		t.Errorf("demoting sole manager error = %v, expected ErrCannotRemoveLastManager", err)
	}

	// Promote the member first; then the original manager can step down.
	if err := svc.UpdateMemberRole(org.ID, admin.ID, project.ID, member.ID, models.ProjectRoleManager); err != nil {
		t.Fatalf("promote error = %v", err)
	}
	if err := svc.UpdateMemberRole(org.ID, admin.ID, project.ID, admin.ID, models.ProjectRoleMember); err != nil {
		t.Errorf("demote after promote error = %v", err)
	}
}

func TestListMembers(t *testing.T) {
	svc, db := newProjectService(t)
	org, admin := seedOrg(t, db, "acme")
	member := seedUser(t, db, org.ID, "member@acme.test", models.OrgRoleMember)
	project := seedProject(t, db, org.ID, admin.ID, "rollout")
	seedMember(t, db, project.ID, admin.ID, models.ProjectRoleManager)
	seedMember(t, db, project.ID, member.ID, models.ProjectRoleMember)

	members, err := svc.ListMembers(org.ID, project.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, expected 2", len(members))
	}
	byID := map[uint]ProjectMemberInfo{}
	for _, m := range members {
		byID[m.UserID] = m
	}
	if byID[admin.ID].Role != models.ProjectRoleManager {
		t.Errorf("admin role = %q, expected MANAGER", byID[admin.ID].Role)
	}
	if byID[member.ID].Email != member.Email {
		t.Errorf("member email = %q, expected %q", byID[member.ID].Email, member.Email)
	}
}
