package usecase

import (
	"context"
	"errors"

	"github.com/mediconnect/platform-api/internal/converter"
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/domain/repository"
	"github.com/mediconnect/platform-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")

// UserUsecase covers profile self-service and the admin user panel.
type UserUsecase interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, role string, page, limit int) (*dto.UserListResponse, *dto.PageMeta, error)
	SetUserActive(ctx context.Context, userID uuid.UUID, req *dto.SetUserActiveRequest) (*dto.UserResponse, error)
}

type userUsecase struct {
	log         *logrus.Logger
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokenStore  service.TokenStore
	activityLog service.ActivityLog
}

func NewUserUsecase(
	log *logrus.Logger,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenStore service.TokenStore,
	activityLog service.ActivityLog,
) UserUsecase {
	return &userUsecase{
		log:         log,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenStore:  tokenStore,
		activityLog: activityLog,
	}
}

// UpdateProfile changes the caller's display fields. The role is never
// touched here: it is fixed at registration.
func (u *userUsecase) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", userID, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.ProfileImage = req.ProfileImage

	if err := u.userRepo.Update(ctx, user); err != nil {
		u.log.Warnf("Failed to update user %s: %+v", userID, err)
		return nil, err
	}

	// Keep the persisted session snapshot in step with the profile
	if err := u.sessionRepo.Save(ctx, entity.SnapshotFromUser(user)); err != nil {
		u.log.Warnf("Failed to refresh session snapshot: %+v", err)
	}

	u.audit(ctx, entity.AuditActionProfileUpdate, entity.AuditResourceUser, userID)

	return converter.UserToResponse(user), nil
}

// ListUsers pages through accounts for the admin panel, optionally
// filtered by role name.
func (u *userUsecase) ListUsers(ctx context.Context, role string, page, limit int) (*dto.UserListResponse, *dto.PageMeta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	roleID := 0
	if role != "" {
		roleID = entity.RoleIDByName(role)
	}

	users, total, err := u.userRepo.FindAll(ctx, roleID, (page-1)*limit, limit)
	if err != nil {
		u.log.Warnf("Failed to list users: %+v", err)
		return nil, nil, err
	}

	meta := &dto.PageMeta{Page: page, Limit: limit, Total: total}

	return &dto.UserListResponse{
		Users: converter.UsersToResponses(users),
		Total: total,
	}, meta, nil
}

// SetUserActive flips an account's active flag. Deactivation revokes
// every outstanding token and drops the persisted session so the
// account is locked out immediately.
func (u *userUsecase) SetUserActive(ctx context.Context, userID uuid.UUID, req *dto.SetUserActiveRequest) (*dto.UserResponse, error) {
	deactivating := req.IsActive != nil && !*req.IsActive
	if actorID, ok := middleware.GetUserIDFromContext(ctx); ok && actorID == userID && deactivating {
		return nil, ErrCannotDeactivateSelf
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", userID, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.IsActive = req.IsActive
	if err := u.userRepo.Update(ctx, user); err != nil {
		u.log.Warnf("Failed to update user %s: %+v", userID, err)
		return nil, err
	}

	action := entity.AuditActionUserActivate
	if !user.Active() {
		action = entity.AuditActionUserDeactivate

		if err := u.tokenStore.RevokeAll(ctx, userID); err != nil {
			u.log.Warnf("Failed to revoke tokens for user %s: %+v", userID, err)
		}
		if err := u.sessionRepo.Delete(ctx, userID); err != nil {
			u.log.Warnf("Failed to delete session snapshot for user %s: %+v", userID, err)
		}
	}

	u.audit(ctx, action, entity.AuditResourceUser, userID)

	return converter.UserToResponse(user), nil
}

func (u *userUsecase) audit(ctx context.Context, action, resource string, subjectID uuid.UUID) {
	var actorID *uuid.UUID
	if id, ok := middleware.GetUserIDFromContext(ctx); ok {
		actorID = &id
	}

	err := u.activityLog.Record(ctx, service.Entry{
		UserID:   actorID,
		Action:   action,
		Resource: resource,
		Metadata: entity.JSON{"subject_id": subjectID.String()},
	})
	if err != nil {
		u.log.Warnf("Failed to record audit entry: %+v", err)
	}
}
