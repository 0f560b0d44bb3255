package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Create creates a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// FindByMobile returns the oldest patient registered with the mobile number
	FindByMobile(ctx context.Context, mobile string) (*entities.Patient, error)

	// UpdateVisitDetails overwrites the fields that change between visits
	UpdateVisitDetails(ctx context.Context, id string, age int, symptoms string) error
}
