package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// CreateDoctorRequest is the admin flow for onboarding a doctor account
// together with its profile.
type CreateDoctorRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8"`
	FirstName       string  `json:"first_name" validate:"required,min=2"`
	LastName        string  `json:"last_name" validate:"required,min=2"`
	LicenseNumber   string  `json:"license_number" validate:"required"`
	Specialization  string  `json:"specialization" validate:"required"`
	Biography       string  `json:"biography" validate:"omitempty"`
	ConsultationFee float64 `json:"consultation_fee" validate:"gte=0"`
}

type UpdateDoctorRequest struct {
	Specialization  string  `json:"specialization" validate:"required"`
	Biography       string  `json:"biography" validate:"omitempty"`
	ConsultationFee float64 `json:"consultation_fee" validate:"gte=0"`
}

// Response DTOs

type DoctorProfileResponse struct {
	UserID          uuid.UUID       `json:"user_id"`
	FullName        string          `json:"full_name,omitempty"`
	LicenseNumber   string          `json:"license_number"`
	Specialization  string          `json:"specialization"`
	Biography       string          `json:"biography,omitempty"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type DoctorListResponse struct {
	Doctors []DoctorProfileResponse `json:"doctors"`
	Total   int                     `json:"total"`
}
