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

	"github.com/sirupsen/logrus"
)

var (
	ErrPrescriptionNotFound    = errors.New("prescription not found")
	ErrAppointmentNotCompleted = errors.New("prescriptions can only be issued for completed appointments")
)

type PrescriptionUsecase interface {
	GetMyPrescriptions(ctx context.Context) (*dto.PrescriptionListResponse, error)
	CreatePrescription(ctx context.Context, req *dto.CreatePrescriptionRequest) (*dto.PrescriptionResponse, error)
}

type prescriptionUsecase struct {
	log              *logrus.Logger
	prescriptionRepo repository.PrescriptionRepository
	appointmentRepo  repository.AppointmentRepository
	activityLog      service.ActivityLog
}

func NewPrescriptionUsecase(
	log *logrus.Logger,
	prescriptionRepo repository.PrescriptionRepository,
	appointmentRepo repository.AppointmentRepository,
	activityLog service.ActivityLog,
) PrescriptionUsecase {
	return &prescriptionUsecase{
		log:              log,
		prescriptionRepo: prescriptionRepo,
		appointmentRepo:  appointmentRepo,
		activityLog:      activityLog,
	}
}

// GetMyPrescriptions returns prescriptions issued to a patient, or
// issued by a doctor, depending on the caller's role.
func (u *prescriptionUsecase) GetMyPrescriptions(ctx context.Context) (*dto.PrescriptionListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	var prescriptions []entity.Prescription
	var err error
	if roleID == entity.RoleIDDoctor {
		prescriptions, err = u.prescriptionRepo.FindByDoctorID(ctx, userID)
	} else {
		prescriptions, err = u.prescriptionRepo.FindByPatientID(ctx, userID)
	}
	if err != nil {
		u.log.Warnf("Failed to find prescriptions for user %s: %+v", userID, err)
		return nil, err
	}

	return &dto.PrescriptionListResponse{
		Prescriptions: converter.PrescriptionsToResponses(prescriptions),
		Total:         len(prescriptions),
	}, nil
}

// CreatePrescription issues a prescription for a completed
// consultation. Only the doctor who held the consultation may issue.
func (u *prescriptionUsecase) CreatePrescription(ctx context.Context, req *dto.CreatePrescriptionRequest) (*dto.PrescriptionResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, req.AppointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", req.AppointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.DoctorID != userID {
		return nil, ErrAppointmentNotOwned
	}
	if !appointment.IsCompleted() {
		return nil, ErrAppointmentNotCompleted
	}

	prescription := &entity.Prescription{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		Medication:    req.Medication,
		Dosage:        req.Dosage,
		Instructions:  req.Instructions,
	}

	if err := u.prescriptionRepo.Create(ctx, prescription); err != nil {
		u.log.Warnf("Failed to create prescription: %+v", err)
		return nil, err
	}

	err = u.activityLog.Record(ctx, service.Entry{
		UserID:   &userID,
		Action:   entity.AuditActionPrescriptionCreate,
		Resource: entity.AuditResourcePrescription,
		Metadata: entity.JSON{
			"prescription_id": prescription.ID.String(),
			"appointment_id":  appointment.ID.String(),
		},
	})
	if err != nil {
		u.log.Warnf("Failed to record audit entry: %+v", err)
	}

	return converter.PrescriptionToResponse(prescription), nil
}
