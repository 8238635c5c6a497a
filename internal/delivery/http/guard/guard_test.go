package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

func TestResolveAnonymousRedirectsToLogin(t *testing.T) {
	decision := Resolve(entity.RolePatient, "")
	if decision.Allowed {
		t.Fatal("expected anonymous visitor to be denied")
	}
	if decision.RedirectTo != LoginPath {
		t.Fatalf("expected redirect to %s, got %s", LoginPath, decision.RedirectTo)
	}
}

func TestResolveMatchingRoleAllowed(t *testing.T) {
	for _, role := range []string{entity.RolePatient, entity.RoleDoctor, entity.RoleAdmin} {
		decision := Resolve(role, role)
		if !decision.Allowed {
			t.Fatalf("expected %s to access own views", role)
		}
	}
}

func TestResolveMismatchRedirectsToOwnLanding(t *testing.T) {
	tests := []struct {
		requiredRole string
		role         string
		want         string
	}{
		{entity.RoleDoctor, entity.RolePatient, "/patient/landing"},
		{entity.RoleAdmin, entity.RolePatient, "/patient/landing"},
		{entity.RolePatient, entity.RoleDoctor, "/doctor/landing"},
		{entity.RolePatient, entity.RoleAdmin, "/admin/landing"},
	}

	for _, tt := range tests {
		decision := Resolve(tt.requiredRole, tt.role)
		if decision.Allowed {
			t.Fatalf("expected %s to be denied %s views", tt.role, tt.requiredRole)
		}
		if decision.RedirectTo != tt.want {
			t.Fatalf("expected redirect to %s, got %s", tt.want, decision.RedirectTo)
		}
	}
}

func TestResolveAuthView(t *testing.T) {
	if decision := ResolveAuthView(""); !decision.Allowed {
		t.Fatal("expected anonymous visitor to see auth views")
	}

	decision := ResolveAuthView(entity.RoleDoctor)
	if decision.Allowed {
		t.Fatal("expected signed-in visitor to be bounced from auth views")
	}
	if decision.RedirectTo != "/doctor/landing" {
		t.Fatalf("expected redirect to /doctor/landing, got %s", decision.RedirectTo)
	}
}

func TestLandingPath(t *testing.T) {
	if got := LandingPath(entity.RoleAdmin); got != "/admin/landing" {
		t.Fatalf("expected /admin/landing, got %s", got)
	}
}

func requestWithRole(roleID int) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/doctor/landing", nil)
	if roleID == 0 {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.RoleIDKey, roleID)
	return req.WithContext(ctx)
}

func TestRequireRoleMiddleware(t *testing.T) {
	var served bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
	})
	handler := RequireRole(entity.RoleDoctor)(next)

	// Anonymous visitor goes to login
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(0))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != LoginPath {
		t.Fatalf("expected redirect to %s, got %s", LoginPath, got)
	}
	if served {
		t.Fatal("expected view not to be served")
	}

	// Wrong role goes to own landing
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(entity.RoleIDPatient))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/patient/landing" {
		t.Fatalf("expected redirect to /patient/landing, got %s", got)
	}

	// Matching role sees the view
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(entity.RoleIDDoctor))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !served {
		t.Fatal("expected view to be served")
	}
}

func TestAuthViewMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthView(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous visitor to see login view, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	ctx := context.WithValue(req.Context(), middleware.RoleIDKey, entity.RoleIDAdmin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/admin/landing" {
		t.Fatalf("expected redirect to /admin/landing, got %s", got)
	}
}

func TestRedirectToLanding(t *testing.T) {
	rec := httptest.NewRecorder()
	RedirectToLanding(entity.RolePatient)(rec, httptest.NewRequest(http.MethodGet, "/patient", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/patient/landing" {
		t.Fatalf("expected redirect to /patient/landing, got %s", got)
	}
}
