package dto

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs

type UserResponse struct {
	ID            uuid.UUID              `json:"id"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	Role          string                 `json:"role"`
	ProfileImage  *string                `json:"profile_image,omitempty"`
	IsActive      bool                   `json:"is_active"`
	DoctorProfile *DoctorProfileResponse `json:"doctor_profile,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int64          `json:"total"`
}

// PageMeta carries pagination facts for list endpoints.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Request DTOs

type UpdateProfileRequest struct {
	FirstName    string  `json:"first_name" validate:"required,min=2"`
	LastName     string  `json:"last_name" validate:"required,min=2"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,uri"`
}

type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
