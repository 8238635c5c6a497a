package converter

import (
	"strings"

	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to its DTO.
// Party names are filled when the relations are loaded.
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:          appointment.ID,
		PatientID:   appointment.PatientID,
		DoctorID:    appointment.DoctorID,
		PatientName: strings.TrimSpace(appointment.Patient.FirstName + " " + appointment.Patient.LastName),
		DoctorName:  strings.TrimSpace(appointment.Doctor.User.FirstName + " " + appointment.Doctor.User.LastName),
		ScheduledAt: appointment.ScheduledAt,
		Type:        string(appointment.Type),
		Status:      string(appointment.Status),
		Reason:      appointment.Reason,
		Notes:       appointment.Notes,
		CreatedAt:   appointment.CreatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
