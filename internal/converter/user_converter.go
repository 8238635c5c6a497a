package converter

import (
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO.
// Includes the doctor profile if it is loaded.
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	response := &dto.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.RoleName(),
		ProfileImage: user.ProfileImage,
		IsActive:     user.Active(),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	if user.DoctorProfile != nil {
		response.DoctorProfile = &dto.DoctorProfileResponse{
			UserID:          user.DoctorProfile.UserID,
			LicenseNumber:   user.DoctorProfile.LicenseNumber,
			Specialization:  user.DoctorProfile.Specialization,
			Biography:       user.DoctorProfile.Biography,
			ConsultationFee: user.DoctorProfile.ConsultationFee,
		}
	}

	return response
}

// UsersToResponses converts a slice of User entities
func UsersToResponses(users []entity.User) []dto.UserResponse {
	responses := make([]dto.UserResponse, len(users))
	for i := range users {
		responses[i] = *UserToResponse(&users[i])
	}
	return responses
}

// SnapshotToResponse converts a persisted session snapshot back into
// the user representation served to the client.
func SnapshotToResponse(snapshot *entity.SessionSnapshot) *dto.UserResponse {
	if snapshot == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:           snapshot.UserID,
		Email:        snapshot.Email,
		FirstName:    snapshot.FirstName,
		LastName:     snapshot.LastName,
		Role:         snapshot.Role,
		ProfileImage: snapshot.ProfileImage,
		IsActive:     true,
	}
}
