package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// InventoryRepository implements repositories.InventoryRepository
type InventoryRepository struct {
	store *Store
}

var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

func findMedicine(st *state, name string) (entities.Medicine, bool) {
	for _, m := range st.medicines {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return entities.Medicine{}, false
}

// FindMedicineByName matches the catalog case-insensitively
func (r *InventoryRepository) FindMedicineByName(ctx context.Context, name string) (*entities.Medicine, error) {
	var found *entities.Medicine
	err := r.store.read(ctx, func(st *state) error {
		m, ok := findMedicine(st, name)
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("medicine %q not in catalog", name))
		}
		found = &m
		return nil
	})
	return found, err
}

// UpsertMedicine creates the medicine unless the name exists and returns the stored row
func (r *InventoryRepository) UpsertMedicine(ctx context.Context, medicine *entities.Medicine) (*entities.Medicine, error) {
	var stored *entities.Medicine
	err := r.store.write(ctx, "medicines.upsert", func(st *state) error {
		if m, ok := findMedicine(st, medicine.Name); ok {
			stored = &m
			return nil
		}
		m := *medicine
		st.medicines[m.ID] = m
		st.track(m.ID)
		stored = &m
		return nil
	})
	return stored, err
}

// CreateBatch inserts a new stock batch
func (r *InventoryRepository) CreateBatch(ctx context.Context, batch *entities.InventoryBatch) error {
	return r.store.write(ctx, "inventory.create", func(st *state) error {
		if _, ok := st.medicines[batch.MedicineID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("medicine with id %s not found", batch.MedicineID))
		}
		if batch.Quantity < 0 {
			return apperrors.NewValidationError("batch quantity cannot be negative")
		}
		b := *batch
		b.MedicineName = ""
		st.batches[b.ID] = b
		st.track(b.ID)
		return nil
	})
}

// LockEarliestBatch returns the earliest-expiry batch with stock; the
// serialised transaction already holds the lock.
func (r *InventoryRepository) LockEarliestBatch(ctx context.Context, medicineID string) (*entities.InventoryBatch, error) {
	var found *entities.InventoryBatch
	err := r.store.read(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.MedicineID != medicineID || b.Quantity <= 0 {
				continue
			}
			if found == nil || expiresBefore(st, &b, found) {
				candidate := b
				found = &candidate
			}
		}
		if found == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("no stock left for medicine %s", medicineID))
		}
		found.MedicineName = st.medicines[found.MedicineID].Name
		return nil
	})
	return found, err
}

// DecrementBatch removes qty units only if that many remain
func (r *InventoryRepository) DecrementBatch(ctx context.Context, batchID string, qty int) (bool, error) {
	applied := false
	err := r.store.write(ctx, "inventory.decrement", func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok || b.Quantity < qty {
			return nil
		}
		b.Quantity -= qty
		st.batches[batchID] = b
		applied = true
		return nil
	})
	return applied, err
}

// ListBatches lists all batches ordered by expiry
func (r *InventoryRepository) ListBatches(ctx context.Context) ([]*entities.InventoryBatch, error) {
	return r.list(ctx, func(entities.InventoryBatch) bool { return true })
}

// ListLowStock lists batches whose quantity is below threshold
func (r *InventoryRepository) ListLowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error) {
	return r.list(ctx, func(b entities.InventoryBatch) bool { return b.Quantity < threshold })
}

func (r *InventoryRepository) list(ctx context.Context, keep func(entities.InventoryBatch) bool) ([]*entities.InventoryBatch, error) {
	batches := make([]*entities.InventoryBatch, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, b := range st.batches {
			if !keep(b) {
				continue
			}
			b.MedicineName = st.medicines[b.MedicineID].Name
			candidate := b
			batches = append(batches, &candidate)
		}
		sort.Slice(batches, func(i, j int) bool { return expiresBefore(st, batches[i], batches[j]) })
		return nil
	})
	return batches, err
}

// expiresBefore orders by expiry, then creation time, then insertion order
func expiresBefore(st *state, a, b *entities.InventoryBatch) bool {
	if !a.Expiry.Equal(b.Expiry) || !a.CreatedAt.Equal(b.CreatedAt) {
		return a.ExpiresBefore(b)
	}
	return st.seqs[a.ID] < st.seqs[b.ID]
}
