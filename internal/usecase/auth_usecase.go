package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mediconnect/platform-api/internal/converter"
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/domain/repository"
	"github.com/mediconnect/platform-api/internal/service"
	"github.com/mediconnect/platform-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrLicenseAlreadyExists = errors.New("license number already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenRevoked         = errors.New("token has been revoked")
	ErrUserNotFound         = errors.New("user not found")
)

type AuthUsecase interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.SessionResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, accessTokenID, refreshTokenID string) error
	ResetPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authUsecase struct {
	log               *logrus.Logger
	userRepo          repository.UserRepository
	doctorProfileRepo repository.DoctorProfileRepository
	sessionRepo       repository.SessionRepository
	jwtService        *jwt.JWTService
	tokenStore        service.TokenStore
	activityLog       service.ActivityLog
	serializer        *service.AuthSerializer
	identityProvider  service.IdentityProvider
	demoMode          bool
	resetDelay        time.Duration
}

func NewAuthUsecase(
	log *logrus.Logger,
	userRepo repository.UserRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	sessionRepo repository.SessionRepository,
	jwtService *jwt.JWTService,
	tokenStore service.TokenStore,
	activityLog service.ActivityLog,
	serializer *service.AuthSerializer,
	identityProvider service.IdentityProvider,
	demoMode bool,
	resetDelay time.Duration,
) AuthUsecase {
	return &authUsecase{
		log:               log,
		userRepo:          userRepo,
		doctorProfileRepo: doctorProfileRepo,
		sessionRepo:       sessionRepo,
		jwtService:        jwtService,
		tokenStore:        tokenStore,
		activityLog:       activityLog,
		serializer:        serializer,
		identityProvider:  identityProvider,
		demoMode:          demoMode,
		resetDelay:        resetDelay,
	}
}

// Login authenticates by email and password. Accounts registered
// locally are verified against their bcrypt hash; in demo mode an
// unknown email is resolved by the identity provider and the resolved
// identity is persisted on first login. The request password is never
// logged on any path.
func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.SessionResponse, error) {
	release, err := u.serializer.Acquire(req.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}

	switch {
	case user != nil && user.Password != "":
		if !user.Active() {
			return nil, ErrAccountDisabled
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			return nil, ErrInvalidCredentials
		}
	case user != nil && u.demoMode:
		// Provider-backed account: no local hash, the provider checks
		// the credentials. The stored row keeps role and active state.
		if !user.Active() {
			return nil, ErrAccountDisabled
		}
		if _, err := u.identityProvider.Resolve(ctx, req.Email, req.Password); err != nil {
			u.log.Warnf("Identity provider failed: %+v", err)
			return nil, ErrInvalidCredentials
		}
	case user == nil && u.demoMode:
		user, err = u.identityProvider.Resolve(ctx, req.Email, req.Password)
		if err != nil {
			u.log.Warnf("Identity provider failed: %+v", err)
			return nil, ErrInvalidCredentials
		}
		// Persist the resolved identity so audit entries and bookings
		// have a user row to reference
		if err := u.provisionUser(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := u.sessionRepo.Save(ctx, entity.SnapshotFromUser(user)); err != nil {
		u.log.Warnf("Failed to persist session snapshot: %+v", err)
		return nil, err
	}

	u.audit(ctx, &user.ID, entity.AuditActionUserLogin, entity.AuditResourceAuth, "user logged in")

	return &dto.SessionResponse{
		User:   *converter.UserToResponse(user),
		Tokens: *tokens,
	}, nil
}

// Register creates a patient or doctor account. Admin accounts cannot
// self-register; the role comes validated from the request schema.
func (u *authUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.SessionResponse, error) {
	release, err := u.serializer.Acquire(req.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	roleID := entity.RoleIDByName(req.Role)
	if roleID != entity.RoleIDPatient && roleID != entity.RoleIDDoctor {
		return nil, ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.User{
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    roleID,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	if roleID == entity.RoleIDDoctor {
		profile := &entity.DoctorProfile{
			UserID:         user.ID,
			LicenseNumber:  req.LicenseNumber,
			Specialization: req.Specialization,
		}
		if err := u.doctorProfileRepo.Create(ctx, profile); err != nil {
			if isDuplicateKeyError(err, "license") {
				return nil, ErrLicenseAlreadyExists
			}
			u.log.Warnf("Failed to create doctor profile: %+v", err)
			return nil, err
		}
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := u.sessionRepo.Save(ctx, entity.SnapshotFromUser(user)); err != nil {
		u.log.Warnf("Failed to persist session snapshot: %+v", err)
		return nil, err
	}

	u.audit(ctx, &user.ID, entity.AuditActionUserRegister, entity.AuditResourceAuth, "registered as "+req.Role)

	return &dto.SessionResponse{
		User:   *converter.UserToResponse(user),
		Tokens: *tokens,
	}, nil
}

// Logout revokes the caller's tokens and deletes the persisted session
// snapshot. Failures are logged but never surfaced: logout always
// succeeds from the caller's point of view.
func (u *authUsecase) Logout(ctx context.Context, userID uuid.UUID, accessTokenID, refreshTokenID string) error {
	if err := u.tokenStore.Revoke(ctx, accessTokenID, jwt.AccessToken); err != nil {
		u.log.Warnf("Failed to revoke access token: %+v", err)
	}
	if err := u.tokenStore.Revoke(ctx, refreshTokenID, jwt.RefreshToken); err != nil {
		u.log.Warnf("Failed to revoke refresh token: %+v", err)
	}

	if userID != uuid.Nil {
		if err := u.sessionRepo.Delete(ctx, userID); err != nil {
			u.log.Warnf("Failed to delete session snapshot: %+v", err)
		}
		u.audit(ctx, &userID, entity.AuditActionUserLogout, entity.AuditResourceAuth, "user logged out")
	}

	return nil
}

// ResetPassword reports success whether or not the email belongs to an
// account, so the endpoint cannot be used to probe which addresses are
// registered.
func (u *authUsecase) ResetPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	release, err := u.serializer.Acquire(req.Email)
	if err != nil {
		return err
	}
	defer release()

	if err := u.simulateRoundTrip(ctx); err != nil {
		return err
	}

	user, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		u.log.Warnf("Failed to find user for password reset: %+v", err)
		return nil
	}

	if user != nil {
		u.audit(ctx, &user.ID, entity.AuditActionPasswordReset, entity.AuditResourceAuth, "password reset requested")
	}

	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	valid, err := u.tokenStore.IsValid(ctx, claims.UserID, claims.TokenID, jwt.RefreshToken)
	if err != nil {
		u.log.Warnf("Failed to check refresh token: %+v", err)
		return nil, err
	}
	if !valid {
		return nil, ErrTokenRevoked
	}

	// Rotate: the old refresh token is single-use
	if err := u.tokenStore.Revoke(ctx, claims.TokenID, jwt.RefreshToken); err != nil {
		u.log.Warnf("Failed to revoke old refresh token: %+v", err)
		return nil, err
	}

	return u.issueTokens(ctx, &entity.User{
		ID:     claims.UserID,
		Email:  claims.Email,
		RoleID: claims.RoleID,
	})
}

// GetCurrentUser restores the identity from the persisted session
// snapshot, falling back to the user table when no snapshot survives.
func (u *authUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	snapshot, err := u.sessionRepo.Find(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to read session snapshot: %+v", err)
	}
	if snapshot != nil {
		return converter.SnapshotToResponse(snapshot), nil
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// Rehydrate the snapshot for the next read
	if err := u.sessionRepo.Save(ctx, entity.SnapshotFromUser(user)); err != nil {
		u.log.Warnf("Failed to rehydrate session snapshot: %+v", err)
	}

	return converter.UserToResponse(user), nil
}

// provisionUser stores a provider-resolved identity on first login. A
// unique violation means a concurrent login already created the row.
func (u *authUsecase) provisionUser(ctx context.Context, user *entity.User) error {
	err := u.userRepo.Create(ctx, user)
	if err == nil || isDuplicateKeyError(err, "") {
		return nil
	}
	u.log.Warnf("Failed to provision user %s: %+v", user.ID, err)
	return err
}

func (u *authUsecase) issueTokens(ctx context.Context, user *entity.User) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.tokenStore.Store(ctx, user.ID, accessTokenID, jwt.AccessToken, u.jwtService.GetAccessExpiry()); err != nil {
		u.log.Warnf("Failed to store access token: %+v", err)
		return nil, err
	}
	if err := u.tokenStore.Store(ctx, user.ID, refreshTokenID, jwt.RefreshToken, u.jwtService.GetRefreshExpiry()); err != nil {
		u.log.Warnf("Failed to store refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

func (u *authUsecase) audit(ctx context.Context, userID *uuid.UUID, action, resource, detail string) {
	err := u.activityLog.Record(ctx, service.Entry{
		UserID:   userID,
		Action:   action,
		Resource: resource,
		Detail:   detail,
	})
	if err != nil {
		u.log.Warnf("Failed to record audit entry: %+v", err)
	}
}

func (u *authUsecase) simulateRoundTrip(ctx context.Context) error {
	if u.resetDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(u.resetDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique
// constraint violation containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
