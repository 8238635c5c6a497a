package converter

import (
	"github.com/mediconnect/platform-api/internal/delivery/dto"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

// PrescriptionToResponse converts a Prescription entity to its DTO
func PrescriptionToResponse(prescription *entity.Prescription) *dto.PrescriptionResponse {
	if prescription == nil {
		return nil
	}

	return &dto.PrescriptionResponse{
		ID:            prescription.ID,
		AppointmentID: prescription.AppointmentID,
		PatientID:     prescription.PatientID,
		DoctorID:      prescription.DoctorID,
		Medication:    prescription.Medication,
		Dosage:        prescription.Dosage,
		Instructions:  prescription.Instructions,
		CreatedAt:     prescription.CreatedAt,
	}
}

// PrescriptionsToResponses converts a slice of Prescription entities
func PrescriptionsToResponses(prescriptions []entity.Prescription) []dto.PrescriptionResponse {
	responses := make([]dto.PrescriptionResponse, len(prescriptions))
	for i := range prescriptions {
		responses[i] = *PrescriptionToResponse(&prescriptions[i])
	}
	return responses
}
