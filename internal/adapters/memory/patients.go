package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// PatientRepository implements repositories.PatientRepository
type PatientRepository struct {
	store *Store
}

var _ repositories.PatientRepository = (*PatientRepository)(nil)

// Create creates a new patient
func (r *PatientRepository) Create(ctx context.Context, patient *entities.Patient) error {
	return r.store.write(ctx, "patients.create", func(st *state) error {
		if _, exists := st.patients[patient.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("patient %s already exists", patient.ID))
		}
		st.patients[patient.ID] = *patient
		st.track(patient.ID)
		return nil
	})
}

// GetByID retrieves a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	var found *entities.Patient
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
		}
		found = &p
		return nil
	})
	return found, err
}

// FindByMobile returns the oldest patient registered with the mobile number
func (r *PatientRepository) FindByMobile(ctx context.Context, mobile string) (*entities.Patient, error) {
	var found *entities.Patient
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.patients {
			if p.Mobile != mobile {
				continue
			}
			if found == nil || st.seqs[p.ID] < st.seqs[found.ID] {
				candidate := p
				found = &candidate
			}
		}
		if found == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("no patient registered with mobile %s", mobile))
		}
		return nil
	})
	return found, err
}

// UpdateVisitDetails overwrites the fields that change between visits
func (r *PatientRepository) UpdateVisitDetails(ctx context.Context, id string, age int, symptoms string) error {
	return r.store.write(ctx, "patients.update", func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
		}
		p.Age = age
		p.Symptoms = symptoms
		p.UpdatedAt = time.Now().UTC()
		st.patients[id] = p
		return nil
	})
}
