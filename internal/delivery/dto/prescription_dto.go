package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreatePrescriptionRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	Medication    string    `json:"medication" validate:"required,min=2"`
	Dosage        string    `json:"dosage" validate:"required"`
	Instructions  string    `json:"instructions" validate:"omitempty,max=2000"`
}

// Response DTOs

type PrescriptionResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Medication    string    `json:"medication"`
	Dosage        string    `json:"dosage"`
	Instructions  string    `json:"instructions,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PrescriptionListResponse struct {
	Prescriptions []PrescriptionResponse `json:"prescriptions"`
	Total         int                    `json:"total"`
}
