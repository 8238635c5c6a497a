package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediconnect/platform-api/config"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/pkg/jwt"

	"github.com/google/uuid"
)

type stubTokenStore struct {
	valid map[string]bool
}

func (s *stubTokenStore) Store(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType, ttl time.Duration) error {
	if s.valid == nil {
		s.valid = make(map[string]bool)
	}
	s.valid[tokenID] = true
	return nil
}

func (s *stubTokenStore) IsValid(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) (bool, error) {
	return s.valid[tokenID], nil
}

func (s *stubTokenStore) Revoke(ctx context.Context, tokenID string, tokenType jwt.TokenType) error {
	delete(s.valid, tokenID)
	return nil
}

func (s *stubTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	s.valid = make(map[string]bool)
	return nil
}

func newMiddlewareFixture() (*AuthMiddleware, *jwt.JWTService, *stubTokenStore) {
	jwtService := jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	store := &stubTokenStore{valid: make(map[string]bool)}
	return NewAuthMiddleware(jwtService, store), jwtService, store
}

func issueToken(t *testing.T, jwtService *jwt.JWTService, store *stubTokenStore, roleID int) (string, uuid.UUID) {
	t.Helper()

	userID := uuid.New()
	token, tokenID, err := jwtService.GenerateAccessToken(userID, "user@example.com", roleID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	store.valid[tokenID] = true
	return token, userID
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	m, _, _ := newMiddlewareFixture()
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	m, jwtService, store := newMiddlewareFixture()
	token, _ := issueToken(t, jwtService, store, entity.RoleIDPatient)
	store.valid = make(map[string]bool)

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	m, jwtService, store := newMiddlewareFixture()

	userID := uuid.New()
	token, tokenID, err := jwtService.GenerateRefreshToken(userID, "user@example.com", entity.RoleIDPatient)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	store.valid[tokenID] = true

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticatePopulatesContext(t *testing.T) {
	m, jwtService, store := newMiddlewareFixture()
	token, userID := issueToken(t, jwtService, store, entity.RoleIDDoctor)

	var gotUserID uuid.UUID
	var gotRoleID int
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotRoleID, _ = GetRoleIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotUserID != userID {
		t.Fatalf("expected user ID %s in context, got %s", userID, gotUserID)
	}
	if gotRoleID != entity.RoleIDDoctor {
		t.Fatalf("expected role ID %d in context, got %d", entity.RoleIDDoctor, gotRoleID)
	}
}

func TestIdentifyLetsAnonymousThrough(t *testing.T) {
	m, _, _ := newMiddlewareFixture()

	var hadRole bool
	handler := m.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadRole = GetRoleIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if hadRole {
		t.Fatal("expected no role for anonymous request")
	}
}

func TestIdentifyResolvesValidToken(t *testing.T) {
	m, jwtService, store := newMiddlewareFixture()
	token, _ := issueToken(t, jwtService, store, entity.RoleIDAdmin)

	var gotRoleID int
	handler := m.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRoleID, _ = GetRoleIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/landing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotRoleID != entity.RoleIDAdmin {
		t.Fatalf("expected role ID %d, got %d", entity.RoleIDAdmin, gotRoleID)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(entity.RoleIDAdmin)(next)

	// No role in context
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	// Wrong role
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req = req.WithContext(context.WithValue(req.Context(), RoleIDKey, entity.RoleIDPatient))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}

	// Matching role
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req = req.WithContext(context.WithValue(req.Context(), RoleIDKey, entity.RoleIDAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
