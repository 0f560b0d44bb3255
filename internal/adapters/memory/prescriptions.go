package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// PrescriptionRepository implements repositories.PrescriptionRepository
type PrescriptionRepository struct {
	store *Store
}

var _ repositories.PrescriptionRepository = (*PrescriptionRepository)(nil)

// Create inserts a prescription together with its lines
func (r *PrescriptionRepository) Create(ctx context.Context, prescription *entities.Prescription) error {
	return r.store.write(ctx, "prescriptions.create", func(st *state) error {
		for _, existing := range st.prescriptions {
			if existing.VisitID == prescription.VisitID {
				return apperrors.NewConflictError(fmt.Sprintf("visit %s already has a prescription", prescription.VisitID))
			}
		}

		stored := *prescription
		stored.Lines = nil
		st.prescriptions[stored.ID] = stored
		st.track(stored.ID)

		lines := make([]entities.PrescriptionLine, len(prescription.Lines))
		for i, line := range prescription.Lines {
			line.PrescriptionID = stored.ID
			lines[i] = line
		}
		st.rxLines[stored.ID] = lines
		return nil
	})
}

// GetByID retrieves a prescription with its lines in position order
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*entities.Prescription, error) {
	var found *entities.Prescription
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.prescriptions[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("prescription with id %s not found", id))
		}
		found = withLines(st, p)
		return nil
	})
	return found, err
}

// ListByPatient returns the most recent prescriptions for a patient
func (r *PrescriptionRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	result := make([]*entities.Prescription, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.prescriptions {
			if p.PatientID == patientID {
				result = append(result, withLines(st, p))
			}
		}
		sort.Slice(result, func(i, j int) bool {
			a, b := result[i], result[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return st.seqs[a.ID] > st.seqs[b.ID]
		})
		if limit > 0 && len(result) > limit {
			result = result[:limit]
		}
		return nil
	})
	return result, err
}

func withLines(st *state, p entities.Prescription) *entities.Prescription {
	lines := append([]entities.PrescriptionLine(nil), st.rxLines[p.ID]...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })
	p.Lines = lines
	return &p
}
