package repository

import (
	"context"

	"github.com/mediconnect/platform-api/internal/domain/entity"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *entity.Prescription) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Prescription, error)
	FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Prescription, error)
	FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.Prescription, error)
}
