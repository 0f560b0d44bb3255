package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// PrescriptionRepository defines the interface for prescription data operations
type PrescriptionRepository interface {
	// Create inserts a prescription together with its lines
	Create(ctx context.Context, prescription *entities.Prescription) error

	// GetByID retrieves a prescription with its lines in position order
	GetByID(ctx context.Context, id string) (*entities.Prescription, error)

	// ListByPatient returns the most recent prescriptions for a patient
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error)
}
