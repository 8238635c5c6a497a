package dto

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterRequest covers patient and doctor self-registration. Admin
// accounts cannot be created through this flow.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required,min=2"`
	LastName        string `json:"last_name" validate:"required,min=2"`
	Role            string `json:"role" validate:"required,oneof=patient doctor"`
	AcceptTerms     bool   `json:"accept_terms" validate:"required"`

	// Doctor-only fields, required when role is doctor
	LicenseNumber  string `json:"license_number" validate:"required_if=Role doctor"`
	Specialization string `json:"specialization" validate:"required_if=Role doctor"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SessionResponse is returned by login and register: the authenticated
// identity plus the token pair for subsequent requests.
type SessionResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}
