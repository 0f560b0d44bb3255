package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// InventoryRepository defines the interface for catalog and batch operations
type InventoryRepository interface {
	// FindMedicineByName matches the catalog case-insensitively
	FindMedicineByName(ctx context.Context, name string) (*entities.Medicine, error)

	// UpsertMedicine creates the medicine unless the name already exists and
	// returns the stored row either way.
	UpsertMedicine(ctx context.Context, medicine *entities.Medicine) (*entities.Medicine, error)

	// CreateBatch inserts a new stock batch
	CreateBatch(ctx context.Context, batch *entities.InventoryBatch) error

	// LockEarliestBatch locks and returns the earliest-expiry batch with stock
	// left for the medicine. No such batch yields a not found error.
	LockEarliestBatch(ctx context.Context, medicineID string) (*entities.InventoryBatch, error)

	// DecrementBatch removes qty units only if that many remain; it reports
	// whether the decrement applied.
	DecrementBatch(ctx context.Context, batchID string, qty int) (bool, error)

	// ListBatches lists all batches ordered by expiry
	ListBatches(ctx context.Context) ([]*entities.InventoryBatch, error)

	// ListLowStock lists batches whose quantity is below threshold
	ListLowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error)
}
