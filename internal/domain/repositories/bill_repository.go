package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// BillRepository defines the interface for bill data operations
type BillRepository interface {
	// Create inserts the bill, its lines and its payment
	Create(ctx context.Context, bill *entities.Bill) error

	// GetByID retrieves a bill with lines and payment
	GetByID(ctx context.Context, id string) (*entities.Bill, error)
}
