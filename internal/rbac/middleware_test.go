package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"xdial-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

func identityInjector(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func TestRequireAnyRole_SuperuserBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityInjector(auth.Identity{UserID: 1, Role: RoleQA, Superuser: true}),
		RequireAnyRole(RoleAdmin),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_DeniesOtherRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityInjector(auth.Identity{UserID: 1, Role: RoleClient, ClientID: 3}),
		RequireAnyRole(RoleAdmin, RoleOnboarding),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireCapability_ApproveGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(id auth.Identity) int {
		r := gin.New()
		r.POST("/approve",
			identityInjector(id),
			RequireCapability(func(c Capabilities) bool { return c.CanApprove }),
			func(c *gin.Context) { c.Status(200) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/approve", nil))
		return w.Code
	}

	if code := run(auth.Identity{UserID: 1, Role: RoleAdmin}); code != 200 {
		t.Fatalf("admin approve = %d", code)
	}
	if code := run(auth.Identity{UserID: 2, Role: RoleOnboarding}); code != 403 {
		t.Fatalf("onboarding approve = %d", code)
	}
}

func TestRequireAnyRole_MissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", RequireAnyRole(RoleAdmin), func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
