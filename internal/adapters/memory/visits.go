package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// VisitRepository implements repositories.VisitRepository
type VisitRepository struct {
	store *Store
}

var _ repositories.VisitRepository = (*VisitRepository)(nil)

// ReserveToken increments and returns the counter for (doctorKey, visitDate)
func (r *VisitRepository) ReserveToken(ctx context.Context, doctorKey, visitDate string) (int, error) {
	var token int
	err := r.store.write(ctx, "token_counters.reserve", func(st *state) error {
		key := counterKey{doctorKey: doctorKey, visitDate: visitDate}
		st.counters[key]++
		token = st.counters[key]
		return nil
	})
	return token, err
}

// Create creates a new visit; a duplicate token in the same partition is a conflict
func (r *VisitRepository) Create(ctx context.Context, visit *entities.Visit) error {
	return r.store.write(ctx, "appointments.create", func(st *state) error {
		if _, ok := st.patients[visit.PatientID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", visit.PatientID))
		}
		key := entities.DoctorKey(visit.DoctorID)
		for _, v := range st.visits {
			if entities.DoctorKey(v.DoctorID) == key && v.VisitDate == visit.VisitDate && v.TokenNumber == visit.TokenNumber {
				return apperrors.NewConflictError(fmt.Sprintf("token %d already issued for %q on %s", visit.TokenNumber, key, visit.VisitDate))
			}
		}
		st.visits[visit.ID] = *visit
		st.track(visit.ID)
		return nil
	})
}

// GetByID retrieves a visit by ID
func (r *VisitRepository) GetByID(ctx context.Context, id string) (*entities.Visit, error) {
	var found *entities.Visit
	err := r.store.read(ctx, func(st *state) error {
		v, ok := st.visits[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("visit with id %s not found", id))
		}
		found = &v
		return nil
	})
	return found, err
}

// Complete moves a waiting visit to completed
func (r *VisitRepository) Complete(ctx context.Context, id string) (*entities.Visit, error) {
	var completed *entities.Visit
	err := r.store.write(ctx, "appointments.complete", func(st *state) error {
		v, ok := st.visits[id]
		if !ok || v.Status != entities.VisitStatusWaiting {
			return apperrors.NewNotFoundError(fmt.Sprintf("visit %s not found or not waiting", id))
		}
		v.Status = entities.VisitStatusCompleted
		st.visits[id] = v
		completed = &v
		return nil
	})
	return completed, err
}

// ListWaiting lists waiting visits for a day ordered by token
func (r *VisitRepository) ListWaiting(ctx context.Context, filter repositories.QueueFilter) ([]*entities.QueueEntry, error) {
	entries := make([]*entities.QueueEntry, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, v := range st.visits {
			if v.Status != entities.VisitStatusWaiting || v.VisitDate != filter.VisitDate {
				continue
			}
			if filter.DoctorID != nil && entities.DoctorKey(v.DoctorID) != *filter.DoctorID {
				continue
			}
			entries = append(entries, &entities.QueueEntry{Visit: v, Patient: st.patients[v.PatientID]})
		}
		sort.Slice(entries, func(i, j int) bool {
			a, b := entries[i].Visit, entries[j].Visit
			if a.TokenNumber != b.TokenNumber {
				return a.TokenNumber < b.TokenNumber
			}
			return st.seqs[a.ID] < st.seqs[b.ID]
		})
		return nil
	})
	return entries, err
}
