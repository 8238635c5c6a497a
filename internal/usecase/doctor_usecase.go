package usecase

import (
	"context"

	"github.com/mediconnect/platform-api/internal/converter"
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/domain/repository"
	"github.com/mediconnect/platform-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type DoctorUsecase interface {
	CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.UserResponse, error)
	GetAllDoctors(ctx context.Context, specialization string) (*dto.DoctorListResponse, error)
	GetDoctor(ctx context.Context, userID uuid.UUID) (*dto.DoctorProfileResponse, error)
	UpdateDoctor(ctx context.Context, userID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorProfileResponse, error)
	DeleteDoctor(ctx context.Context, userID uuid.UUID) error
}

type doctorUsecase struct {
	log         *logrus.Logger
	userRepo    repository.UserRepository
	doctorRepo  repository.DoctorProfileRepository
	tokenStore  service.TokenStore
	activityLog service.ActivityLog
}

func NewDoctorUsecase(
	log *logrus.Logger,
	userRepo repository.UserRepository,
	doctorRepo repository.DoctorProfileRepository,
	tokenStore service.TokenStore,
	activityLog service.ActivityLog,
) DoctorUsecase {
	return &doctorUsecase{
		log:         log,
		userRepo:    userRepo,
		doctorRepo:  doctorRepo,
		tokenStore:  tokenStore,
		activityLog: activityLog,
	}
}

// CreateDoctor onboards a doctor account with its profile. Admin only.
func (u *doctorUsecase) CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.UserResponse, error) {
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
		RoleID:    entity.RoleIDDoctor,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create doctor user: %+v", err)
		return nil, err
	}

	profile := &entity.DoctorProfile{
		UserID:          user.ID,
		LicenseNumber:   req.LicenseNumber,
		Specialization:  req.Specialization,
		Biography:       req.Biography,
		ConsultationFee: decimal.NewFromFloat(req.ConsultationFee),
	}

	if err := u.doctorRepo.Create(ctx, profile); err != nil {
		if isDuplicateKeyError(err, "license") {
			return nil, ErrLicenseAlreadyExists
		}
		u.log.Warnf("Failed to create doctor profile: %+v", err)
		return nil, err
	}

	user.DoctorProfile = profile
	u.audit(ctx, entity.AuditActionDoctorCreate, user.ID)

	return converter.UserToResponse(user), nil
}

// GetAllDoctors lists doctors, optionally filtered by specialization.
// Available to any authenticated role so patients can browse.
func (u *doctorUsecase) GetAllDoctors(ctx context.Context, specialization string) (*dto.DoctorListResponse, error) {
	profiles, err := u.doctorRepo.FindAll(ctx, specialization)
	if err != nil {
		u.log.Warnf("Failed to find doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorProfilesToResponses(profiles),
		Total:   len(profiles),
	}, nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, userID uuid.UUID) (*dto.DoctorProfileResponse, error) {
	profile, err := u.doctorRepo.FindByUserID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", userID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	return converter.DoctorProfileToResponse(profile), nil
}

func (u *doctorUsecase) UpdateDoctor(ctx context.Context, userID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorProfileResponse, error) {
	profile, err := u.doctorRepo.FindByUserID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", userID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	profile.Specialization = req.Specialization
	profile.Biography = req.Biography
	profile.ConsultationFee = decimal.NewFromFloat(req.ConsultationFee)

	if err := u.doctorRepo.Update(ctx, profile); err != nil {
		u.log.Warnf("Failed to update doctor %s: %+v", userID, err)
		return nil, err
	}

	u.audit(ctx, entity.AuditActionDoctorUpdate, userID)

	return converter.DoctorProfileToResponse(profile), nil
}

// DeleteDoctor removes the doctor profile and deactivates the account.
// The user row is kept so past appointments stay attributable.
func (u *doctorUsecase) DeleteDoctor(ctx context.Context, userID uuid.UUID) error {
	profile, err := u.doctorRepo.FindByUserID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", userID, err)
		return err
	}
	if profile == nil {
		return ErrDoctorNotFound
	}

	if err := u.doctorRepo.Delete(ctx, userID); err != nil {
		u.log.Warnf("Failed to delete doctor profile %s: %+v", userID, err)
		return err
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err == nil && user != nil {
		inactive := false
		user.IsActive = &inactive
		if err := u.userRepo.Update(ctx, user); err != nil {
			u.log.Warnf("Failed to deactivate doctor user %s: %+v", userID, err)
		}
	}

	if err := u.tokenStore.RevokeAll(ctx, userID); err != nil {
		u.log.Warnf("Failed to revoke tokens for doctor %s: %+v", userID, err)
	}

	u.audit(ctx, entity.AuditActionDoctorDelete, userID)

	return nil
}

func (u *doctorUsecase) audit(ctx context.Context, action string, doctorID uuid.UUID) {
	var actorID *uuid.UUID
	if id, ok := middleware.GetUserIDFromContext(ctx); ok {
		actorID = &id
	}

	err := u.activityLog.Record(ctx, service.Entry{
		UserID:   actorID,
		Action:   action,
		Resource: entity.AuditResourceDoctor,
		Metadata: entity.JSON{"doctor_id": doctorID.String()},
	})
	if err != nil {
		u.log.Warnf("Failed to record audit entry: %+v", err)
	}
}
