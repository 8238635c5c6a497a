package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/mediconnect/platform-api/internal/converter"
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"
	"github.com/mediconnect/platform-api/internal/domain/repository"
	"github.com/mediconnect/platform-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentNotOwned  = errors.New("appointment does not belong to you")
	ErrAppointmentCancelled = errors.New("appointment is already cancelled")
	ErrAppointmentFinished  = errors.New("appointment is already completed")
	ErrAppointmentPast      = errors.New("cannot book an appointment in the past")
	ErrAppointmentElapsed   = errors.New("appointment time has already passed")
	ErrSlotTaken            = errors.New("doctor already has an appointment at this time")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrInvalidTimeFormat    = errors.New("invalid time format, use RFC 3339")
)

type AppointmentUsecase interface {
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error
	CompleteAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorProfileRepository
	activityLog     service.ActivityLog
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorProfileRepository,
	activityLog service.ActivityLog,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		activityLog:     activityLog,
	}
}

// GetMyAppointments returns the caller's appointments: bookings for a
// patient, the consultation calendar for a doctor.
func (u *appointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	var appointments []entity.Appointment
	var err error
	if roleID == entity.RoleIDDoctor {
		appointments, err = u.appointmentRepo.FindByDoctorID(ctx, userID)
	} else {
		appointments, err = u.appointmentRepo.FindByPatientID(ctx, userID)
	}
	if err != nil {
		u.log.Warnf("Failed to find appointments for user %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// CreateAppointment books a consultation for the logged-in patient.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if scheduledAt.Before(time.Now()) {
		return nil, ErrAppointmentPast
	}

	doctor, err := u.doctorRepo.FindByUserID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	existing, err := u.appointmentRepo.FindByDoctorAndTime(ctx, req.DoctorID, scheduledAt)
	if err != nil {
		u.log.Warnf("Failed to check doctor availability: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlotTaken
	}

	appointment := &entity.Appointment{
		PatientID:   userID,
		DoctorID:    req.DoctorID,
		ScheduledAt: scheduledAt,
		Type:        entity.AppointmentType(req.Type),
		Status:      entity.AppointmentStatusScheduled,
		Reason:      req.Reason,
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.audit(ctx, &userID, entity.AuditActionAppointmentCreate, appointment.ID)

	return converter.AppointmentToResponse(appointment), nil
}

// CancelAppointment cancels an upcoming appointment. Only a party to
// the appointment may cancel it, only while it is still scheduled, and
// only before its consultation time has passed.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}
	if appointment.PatientID != userID && appointment.DoctorID != userID {
		return ErrAppointmentNotOwned
	}
	if appointment.IsCancelled() {
		return ErrAppointmentCancelled
	}
	if appointment.IsCompleted() {
		return ErrAppointmentFinished
	}
	if appointment.ScheduledAt.Before(time.Now()) {
		return ErrAppointmentElapsed
	}

	appointment.Cancel()
	if err := u.appointmentRepo.Update(ctx, appointment); err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		return err
	}

	u.audit(ctx, &userID, entity.AuditActionAppointmentCancel, appointmentID)

	return nil
}

// CompleteAppointment marks a consultation as held and records the
// doctor's notes. Only the appointment's doctor may complete it.
func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.DoctorID != userID {
		return nil, ErrAppointmentNotOwned
	}
	if appointment.IsCancelled() {
		return nil, ErrAppointmentCancelled
	}
	if appointment.IsCompleted() {
		return nil, ErrAppointmentFinished
	}

	appointment.Complete(req.Notes)
	if err := u.appointmentRepo.Update(ctx, appointment); err != nil {
		u.log.Warnf("Failed to complete appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	u.audit(ctx, &userID, entity.AuditActionAppointmentComplete, appointmentID)

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) audit(ctx context.Context, userID *uuid.UUID, action string, appointmentID uuid.UUID) {
	err := u.activityLog.Record(ctx, service.Entry{
		UserID:   userID,
		Action:   action,
		Resource: entity.AuditResourceAppointment,
		Metadata: entity.JSON{"appointment_id": appointmentID.String()},
	})
	if err != nil {
		u.log.Warnf("Failed to record audit entry: %+v", err)
	}
}
