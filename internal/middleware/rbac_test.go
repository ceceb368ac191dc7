package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGateDB(t *testing.T) *gorm.DB {
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

	if err := db.AutoMigrate(&models.Project{}, &models.ProjectMember{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// identity primes the context the way AuthRequired would.
func identity(userID, orgID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserID, userID)
		c.Set(ContextOrgID, orgID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

func gateRequest(router *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	router.ServeHTTP(w, req)
	return w.Code
}

func TestOrgRoleRequired(t *testing.T) {
	tests := []struct {
		role    string
		allowed []string
		want    int
	}{
		{"ADMIN", []string{"ADMIN"}, http.StatusOK},
		{"MEMBER", []string{"ADMIN"}, http.StatusForbidden},
		{"MEMBER", []string{"ADMIN", "MEMBER"}, http.StatusOK},
		{"", []string{"ADMIN"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		router := gin.New()
		router.Use(identity(1, 1, tt.role))
		router.GET("/x", OrgRoleRequired(tt.allowed...), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		if got := gateRequest(router, "/x"); got != tt.want {
			t.Errorf("role %q vs %v: status = %d, expected %d", tt.role, tt.allowed, got, tt.want)
		}
	}
}

func TestProjectRoleRequired(t *testing.T) {
	db := newGateDB(t)
	db.Create(&models.Project{OrgID: 1, Name: "p"})
	db.Create(&models.ProjectMember{ProjectID: 1, UserID: 10, Role: models.ProjectRoleMember})

	newRouter := func(userID uint, orgRole string, roles ...string) *gin.Engine {
		router := gin.New()
		router.Use(identity(userID, 1, orgRole))
		router.GET("/projects/:projectId", ProjectRoleRequired(db, roles...), func(c *gin.Context) {
			c.String(http.StatusOK, GetProjectRole(c))
		})
		return router
	}

	if got := gateRequest(newRouter(10, "MEMBER", models.ProjectRoleManager, models.ProjectRoleMember), "/projects/1"); got != http.StatusOK {
		t.Errorf("member: status = %d, expected 200", got)
	}
	if got := gateRequest(newRouter(10, "MEMBER", models.ProjectRoleManager), "/projects/1"); got != http.StatusForbidden {
		t.Errorf("member vs manager-only: status = %d, expected 403", got)
	}
	if got := gateRequest(newRouter(99, "MEMBER", models.ProjectRoleMember), "/projects/1"); got != http.StatusForbidden {
		t.Errorf("non-member: status = %d, expected 403", got)
	}
	// Unlike AdminOrProjectRole, an org ADMIN without a membership is still
	// not a project member here.
	if got := gateRequest(newRouter(99, "ADMIN", models.ProjectRoleMember), "/projects/1"); got != http.StatusForbidden {
		t.Errorf("admin non-member: status = %d, expected 403", got)
	}
	if got := gateRequest(newRouter(10, "MEMBER", models.ProjectRoleMember), "/projects/abc"); got != http.StatusBadRequest {
		t.Errorf("bad project id: status = %d, expected 400", got)
	}
}

func TestAdminOrProjectRole(t *testing.T) {
	db := newGateDB(t)
	db.Create(&models.Project{OrgID: 1, Name: "p"})
	db.Create(&models.ProjectMember{ProjectID: 1, UserID: 10, Role: models.ProjectRoleManager})
	db.Create(&models.ProjectMember{ProjectID: 1, UserID: 11, Role: models.ProjectRoleMember})

	newRouter := func(userID uint, orgRole string) *gin.Engine {
		router := gin.New()
		router.Use(identity(userID, 1, orgRole))
		router.GET("/projects/:projectId", AdminOrProjectRole(db, models.ProjectRoleManager), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	// Org admins bypass the membership check entirely.
	if got := gateRequest(newRouter(99, "ADMIN"), "/projects/1"); got != http.StatusOK {
		t.Errorf("admin: status = %d, expected 200", got)
	}
	if got := gateRequest(newRouter(10, "MEMBER"), "/projects/1"); got != http.StatusOK {
		t.Errorf("manager: status = %d, expected 200", got)
	}
	if got := gateRequest(newRouter(11, "MEMBER"), "/projects/1"); got != http.StatusForbidden {
		t.Errorf("project member vs manager gate: status = %d, expected 403", got)
	}
	if got := gateRequest(newRouter(42, "MEMBER"), "/projects/1"); got != http.StatusForbidden {
		t.Errorf("non-member: status = %d, expected 403", got)
	}
}

func TestProjectActive(t *testing.T) {
	db := newGateDB(t)
	db.Create(&models.Project{OrgID: 1, Name: "open"})
	db.Create(&models.Project{OrgID: 1, Name: "closed", IsArchived: true})
	db.Create(&models.Project{OrgID: 2, Name: "foreign"})

	router := gin.New()
	router.Use(identity(1, 1, "ADMIN"))
	router.GET("/projects/:projectId", ProjectActive(db), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	if got := gateRequest(router, "/projects/1"); got != http.StatusOK {
		t.Errorf("active project: status = %d, expected 200", got)
	}
	if got := gateRequest(router, "/projects/2"); got != http.StatusForbidden {
		t.Errorf("archived project: status = %d, expected 403", got)
	}
	// A project of another org reads as not found, not forbidden.
	if got := gateRequest(router, "/projects/3"); got != http.StatusNotFound {
		t.Errorf("foreign project: status = %d, expected 404", got)
	}
	if got := gateRequest(router, "/projects/999"); got != http.StatusNotFound {
		t.Errorf("unknown project: status = %d, expected 404", got)
	}
}
