package converter

import (
	"strings"

	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

// DoctorProfileToResponse converts a DoctorProfile entity to its DTO.
// The full name is filled when the user relation is loaded.
func DoctorProfileToResponse(profile *entity.DoctorProfile) *dto.DoctorProfileResponse {
	if profile == nil {
		return nil
	}

	fullName := strings.TrimSpace(profile.User.FirstName + " " + profile.User.LastName)

	return &dto.DoctorProfileResponse{
		UserID:          profile.UserID,
		FullName:        fullName,
		LicenseNumber:   profile.LicenseNumber,
		Specialization:  profile.Specialization,
		Biography:       profile.Biography,
		ConsultationFee: profile.ConsultationFee,
	}
}

// DoctorProfilesToResponses converts a slice of DoctorProfile entities
func DoctorProfilesToResponses(profiles []entity.DoctorProfile) []dto.DoctorProfileResponse {
	responses := make([]dto.DoctorProfileResponse, len(profiles))
	for i := range profiles {
		responses[i] = *DoctorProfileToResponse(&profiles[i])
	}
	return responses
}
