package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mediconnect/platform-api/config"
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/delivery/http/guard"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/service"
	"github.com/mediconnect/platform-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Stub repositories and services

type stubUserRepo struct {
	byEmail   map[string]*entity.User
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*entity.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, user *entity.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byEmail[user.Email] = user
	return nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.byEmail[email], nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) FindAll(ctx context.Context, roleID int, offset, limit int) ([]entity.User, int64, error) {
	return nil, 0, nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.byEmail[user.Email] = user
	return nil
}

type stubDoctorProfileRepo struct {
	profiles map[uuid.UUID]*entity.DoctorProfile
}

func newStubDoctorProfileRepo() *stubDoctorProfileRepo {
	return &stubDoctorProfileRepo{profiles: make(map[uuid.UUID]*entity.DoctorProfile)}
}

func (r *stubDoctorProfileRepo) Create(ctx context.Context, profile *entity.DoctorProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *stubDoctorProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error) {
	return r.profiles[userID], nil
}

func (r *stubDoctorProfileRepo) FindAll(ctx context.Context, specialization string) ([]entity.DoctorProfile, error) {
	return nil, nil
}

func (r *stubDoctorProfileRepo) Update(ctx context.Context, profile *entity.DoctorProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *stubDoctorProfileRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	delete(r.profiles, userID)
	return nil
}

type stubSessionRepo struct {
	snapshots map[uuid.UUID]entity.SessionSnapshot
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{snapshots: make(map[uuid.UUID]entity.SessionSnapshot)}
}

func (r *stubSessionRepo) Save(ctx context.Context, snapshot *entity.SessionSnapshot) error {
	r.snapshots[snapshot.UserID] = *snapshot
	return nil
}

func (r *stubSessionRepo) Find(ctx context.Context, userID uuid.UUID) (*entity.SessionSnapshot, error) {
	snapshot, ok := r.snapshots[userID]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *stubSessionRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	delete(r.snapshots, userID)
	return nil
}

type stubTokenStore struct {
	valid map[string]uuid.UUID
}

func newStubTokenStore() *stubTokenStore {
	return &stubTokenStore{valid: make(map[string]uuid.UUID)}
}

func (s *stubTokenStore) key(tokenType jwt.TokenType, tokenID string) string {
	return string(tokenType) + ":" + tokenID
}

func (s *stubTokenStore) Store(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType, ttl time.Duration) error {
	s.valid[s.key(tokenType, tokenID)] = userID
	return nil
}

func (s *stubTokenStore) IsValid(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) (bool, error) {
	owner, ok := s.valid[s.key(tokenType, tokenID)]
	return ok && owner == userID, nil
}

func (s *stubTokenStore) Revoke(ctx context.Context, tokenID string, tokenType jwt.TokenType) error {
	delete(s.valid, s.key(tokenType, tokenID))
	return nil
}

func (s *stubTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	for key, owner := range s.valid {
		if owner == userID {
			delete(s.valid, key)
		}
	}
	return nil
}

type stubActivityLog struct {
	entries []service.Entry
}

func (l *stubActivityLog) Record(ctx context.Context, entry service.Entry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *stubActivityLog) last() *service.Entry {
	if len(l.entries) == 0 {
		return nil
	}
	return &l.entries[len(l.entries)-1]
}

// Fixture

type authFixture struct {
	users      *stubUserRepo
	profiles   *stubDoctorProfileRepo
	sessions   *stubSessionRepo
	tokens     *stubTokenStore
	audit      *stubActivityLog
	serializer *service.AuthSerializer
	jwtService *jwt.JWTService
	auth       AuthUsecase
}

func newAuthFixture(t *testing.T, demoMode bool) *authFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &authFixture{
		users:      newStubUserRepo(),
		profiles:   newStubDoctorProfileRepo(),
		sessions:   newStubSessionRepo(),
		tokens:     newStubTokenStore(),
		audit:      &stubActivityLog{},
		serializer: service.NewAuthSerializer(log),
		jwtService: jwt.NewJWTService(config.JWTConfig{
			Secret:        "test-secret",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
		}),
	}
	t.Cleanup(f.serializer.Stop)

	provider := service.NewDemoIdentityProvider(config.AuthConfig{DemoMode: demoMode})
	f.auth = NewAuthUsecase(log, f.users, f.profiles, f.sessions, f.jwtService, f.tokens, f.audit, f.serializer, provider, demoMode, 0)

	return f
}

func (f *authFixture) seedUser(t *testing.T, email, password string, roleID int, active bool) *entity.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &entity.User{
		ID:        uuid.New(),
		RoleID:    roleID,
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  "User",
		IsActive:  &active,
	}
	f.users.byEmail[email] = user
	return user
}

// Tests

func TestLoginDemoAdminLandsOnAdminLanding(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if session.User.Role != entity.RoleAdmin {
		t.Fatalf("expected role admin, got %s", session.User.Role)
	}
	if got := guard.LandingPath(session.User.Role); got != "/admin/landing" {
		t.Fatalf("expected landing /admin/landing, got %s", got)
	}
	if session.Tokens.AccessToken == "" || session.Tokens.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
}

func TestLoginProvisionsResolvedIdentity(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// The resolved identity lands in the user table so audit entries
	// and bookings can reference it
	stored, err := f.users.FindByEmail(context.Background(), "patient@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected the resolved identity to be persisted")
	}
	if stored.ID != session.User.ID {
		t.Fatalf("stored ID %s does not match session ID %s", stored.ID, session.User.ID)
	}
	if stored.Password != "" {
		t.Fatal("expected no local password hash for a provider-backed account")
	}

	// Provider-backed accounts keep provider credential rules: a second
	// login with another password resolves to the same identity
	again, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "different-pass",
	})
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	if again.User.ID != session.User.ID {
		t.Fatalf("expected stable identity %s, got %s", session.User.ID, again.User.ID)
	}
}

func TestLoginRejectsDisabledProvisionedAccount(t *testing.T) {
	f := newAuthFixture(t, true)

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	stored, _ := f.users.FindByEmail(context.Background(), "patient@example.com")
	inactive := false
	stored.IsActive = &inactive

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	}); err != ErrAccountDisabled {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginPersistsSnapshotAndRestoresIdentity(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "doctor.house@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	snapshot, err := f.sessions.Find(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("Find snapshot failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("expected a persisted session snapshot")
	}
	if snapshot.Email != session.User.Email || snapshot.Role != session.User.Role {
		t.Fatalf("snapshot %s/%s does not match session %s/%s",
			snapshot.Email, snapshot.Role, session.User.Email, session.User.Role)
	}

	current, err := f.auth.GetCurrentUser(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if current.ID != session.User.ID ||
		current.Email != session.User.Email ||
		current.FirstName != session.User.FirstName ||
		current.LastName != session.User.LastName ||
		current.Role != session.User.Role {
		t.Fatalf("restored identity %+v does not match login identity %+v", current, session.User)
	}
}

func TestLoginVerifiesRegisteredPassword(t *testing.T) {
	f := newAuthFixture(t, true)
	// The stored role wins over anything the address suggests
	f.seedUser(t, "doctor.jones@example.com", "correct-horse-1", entity.RoleIDPatient, true)

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "doctor.jones@example.com",
		Password: "wrong-password",
	}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "doctor.jones@example.com",
		Password: "correct-horse-1",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.User.Role != entity.RolePatient {
		t.Fatalf("expected stored role patient, got %s", session.User.Role)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	f := newAuthFixture(t, true)
	f.seedUser(t, "patient@example.com", "password123", entity.RoleIDPatient, false)

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	}); err != ErrAccountDisabled {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginUnknownEmailOutsideDemoMode(t *testing.T) {
	f := newAuthFixture(t, false)

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsConcurrentOperation(t *testing.T) {
	f := newAuthFixture(t, true)

	release, err := f.serializer.Acquire("patient@example.com")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	if _, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	}); err != service.ErrOperationInFlight {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}
}

func TestRegisterCreatesDoctorProfile(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:           "gregory@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Gregory",
		LastName:        "House",
		Role:            entity.RoleDoctor,
		AcceptTerms:     true,
		LicenseNumber:   "MD-12345",
		Specialization:  "Diagnostics",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if session.User.Role != entity.RoleDoctor {
		t.Fatalf("expected role doctor, got %s", session.User.Role)
	}

	profile, _ := f.profiles.FindByUserID(context.Background(), session.User.ID)
	if profile == nil {
		t.Fatal("expected a doctor profile")
	}
	if profile.LicenseNumber != "MD-12345" {
		t.Fatalf("expected license MD-12345, got %s", profile.LicenseNumber)
	}

	if entry := f.audit.last(); entry == nil || entry.Action != entity.AuditActionUserRegister {
		t.Fatalf("expected %s audit entry, got %+v", entity.AuditActionUserRegister, entry)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, true)
	f.users.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	if _, err := f.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:           "taken@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Already",
		LastName:        "Taken",
		Role:            entity.RolePatient,
		AcceptTerms:     true,
	}); err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newAuthFixture(t, true)

	if _, err := f.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:           "sneaky@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Sneaky",
		LastName:        "User",
		Role:            entity.RoleAdmin,
		AcceptTerms:     true,
	}); err == nil {
		t.Fatal("expected admin self-registration to fail")
	}
}

func TestLogoutClearsSessionAndTokens(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	accessClaims, err := f.jwtService.ValidateToken(session.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	refreshClaims, err := f.jwtService.ValidateToken(session.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if err := f.auth.Logout(context.Background(), session.User.ID, accessClaims.TokenID, refreshClaims.TokenID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if snapshot, _ := f.sessions.Find(context.Background(), session.User.ID); snapshot != nil {
		t.Fatal("expected session snapshot to be deleted")
	}
	if valid, _ := f.tokens.IsValid(context.Background(), session.User.ID, accessClaims.TokenID, jwt.AccessToken); valid {
		t.Fatal("expected access token to be revoked")
	}
	if valid, _ := f.tokens.IsValid(context.Background(), session.User.ID, refreshClaims.TokenID, jwt.RefreshToken); valid {
		t.Fatal("expected refresh token to be revoked")
	}
}

func TestGetCurrentUserFallsBackToUserTable(t *testing.T) {
	f := newAuthFixture(t, true)
	user := f.seedUser(t, "patient@example.com", "password123", entity.RoleIDPatient, true)

	current, err := f.auth.GetCurrentUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if current.Email != user.Email {
		t.Fatalf("expected email %s, got %s", user.Email, current.Email)
	}

	// The snapshot is rehydrated for the next read
	if snapshot, _ := f.sessions.Find(context.Background(), user.ID); snapshot == nil {
		t.Fatal("expected snapshot to be rehydrated")
	}
}

func TestGetCurrentUserUnknownID(t *testing.T) {
	f := newAuthFixture(t, true)

	if _, err := f.auth.GetCurrentUser(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResetPasswordNeverRevealsAccounts(t *testing.T) {
	f := newAuthFixture(t, true)
	user := f.seedUser(t, "patient@example.com", "password123", entity.RoleIDPatient, true)

	if err := f.auth.ResetPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "nobody@example.com"}); err != nil {
		t.Fatalf("ResetPassword for unknown email failed: %v", err)
	}
	if err := f.auth.ResetPassword(context.Background(), &dto.ForgotPasswordRequest{Email: user.Email}); err != nil {
		t.Fatalf("ResetPassword for known email failed: %v", err)
	}

	if entry := f.audit.last(); entry == nil || entry.Action != entity.AuditActionPasswordReset {
		t.Fatalf("expected %s audit entry, got %+v", entity.AuditActionPasswordReset, entry)
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	tokens, err := f.auth.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: session.Tokens.RefreshToken,
	})
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected a new token pair")
	}

	// The old refresh token is single-use
	if _, err := f.auth.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: session.Tokens.RefreshToken,
	}); err != ErrTokenRevoked {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t, true)

	session, err := f.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := f.auth.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: session.Tokens.AccessToken,
	}); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
