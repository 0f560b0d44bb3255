package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// BedRepository implements repositories.BedRepository
type BedRepository struct {
	store *Store
}

var _ repositories.BedRepository = (*BedRepository)(nil)

// Create creates a new bed; bed numbers are unique
func (r *BedRepository) Create(ctx context.Context, bed *entities.Bed) error {
	return r.store.write(ctx, "beds.create", func(st *state) error {
		for _, b := range st.beds {
			if b.BedNumber == bed.BedNumber {
				return apperrors.NewConflictError(fmt.Sprintf("bed number %s already exists", bed.BedNumber))
			}
		}
		st.beds[bed.ID] = *bed
		st.track(bed.ID)
		return nil
	})
}

// GetByID retrieves a bed by ID
func (r *BedRepository) GetByID(ctx context.Context, id string) (*entities.Bed, error) {
	var found *entities.Bed
	err := r.store.read(ctx, func(st *state) error {
		b, ok := st.beds[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("bed with id %s not found", id))
		}
		found = &b
		return nil
	})
	return found, err
}

// LockByID retrieves a bed; the serialised transaction already holds the lock
func (r *BedRepository) LockByID(ctx context.Context, id string) (*entities.Bed, error) {
	return r.GetByID(ctx, id)
}

// List lists beds ordered by bed number
func (r *BedRepository) List(ctx context.Context) ([]*entities.Bed, error) {
	beds := make([]*entities.Bed, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, b := range st.beds {
			candidate := b
			beds = append(beds, &candidate)
		}
		sort.Slice(beds, func(i, j int) bool { return beds[i].BedNumber < beds[j].BedNumber })
		return nil
	})
	return beds, err
}

// UpdateStatus moves a bed from one status to another
func (r *BedRepository) UpdateStatus(ctx context.Context, id string, from, to entities.BedStatus, at time.Time) (bool, error) {
	applied := false
	err := r.store.write(ctx, "beds.update_status", func(st *state) error {
		b, ok := st.beds[id]
		if !ok || b.Status != from {
			return nil
		}
		b.Status = to
		b.UpdatedAt = at.UTC()
		st.beds[id] = b
		applied = true
		return nil
	})
	return applied, err
}

// CreateAdmission inserts an admitted row; one per bed
func (r *BedRepository) CreateAdmission(ctx context.Context, admission *entities.Admission) error {
	return r.store.write(ctx, "admissions.create", func(st *state) error {
		if _, ok := st.patients[admission.PatientID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", admission.PatientID))
		}
		for _, a := range st.admissions {
			if a.BedID == admission.BedID && a.Status == entities.AdmissionStatusAdmitted {
				return apperrors.NewConflictError(fmt.Sprintf("bed %s already has an active admission", admission.BedID))
			}
		}
		st.admissions[admission.ID] = *admission
		st.track(admission.ID)
		return nil
	})
}

// ActiveAdmission returns the admitted row for the bed
func (r *BedRepository) ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error) {
	var found *entities.Admission
	err := r.store.read(ctx, func(st *state) error {
		for _, a := range st.admissions {
			if a.BedID == bedID && a.Status == entities.AdmissionStatusAdmitted {
				candidate := a
				found = &candidate
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("no active admission for bed %s", bedID))
	})
	return found, err
}

// CloseAdmission marks an admission discharged at the given time
func (r *BedRepository) CloseAdmission(ctx context.Context, id string, at time.Time) error {
	return r.store.write(ctx, "admissions.close", func(st *state) error {
		a, ok := st.admissions[id]
		if !ok || a.Status != entities.AdmissionStatusAdmitted {
			return apperrors.NewNotFoundError(fmt.Sprintf("admission %s is not active", id))
		}
		a.Status = entities.AdmissionStatusDischarged
		discharged := at
		a.DischargeDate = &discharged
		st.admissions[id] = a
		return nil
	})
}
