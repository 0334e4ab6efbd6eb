package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole_Allowed(t *testing.T) {
	c := contextWithRoles(RoleVerifier)

	if err := RequireRole(RoleVerifier)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRequireRole_AdminPassesEverything(t *testing.T) {
	c := contextWithRoles(RoleAdmin)

	if err := RequireRole(RoleVerifier)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c := contextWithRoles(RoleViewer)

	err := RequireRole(RoleVerifier)(okHandler)(c)

	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NoRoles(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := RequireRole(RoleViewer, RoleVerifier)(okHandler)(c)

	expectStatus(t, err, http.StatusForbidden)
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		granted  []string
		required []string
		want     bool
	}{
		{[]string{"viewer"}, []string{"viewer", "verifier"}, true},
		{[]string{"verifier"}, []string{"viewer"}, false},
		{[]string{"admin"}, []string{"anything"}, true},
		{nil, []string{"viewer"}, false},
	}

	for _, tt := range tests {
		if got := HasRole(tt.granted, tt.required...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") || !IsPublicPath("/health/db") {
		t.Error("health endpoints should be public")
	}
	if IsPublicPath("/api/v1/eligibility/checks") {
		t.Error("api routes should not be public")
	}
}
