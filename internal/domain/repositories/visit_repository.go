package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// VisitRepository defines the interface for visit and token data operations
type VisitRepository interface {
	// ReserveToken atomically increments and returns the token counter for
	// (doctorKey, visitDate), starting at 1.
	ReserveToken(ctx context.Context, doctorKey, visitDate string) (int, error)

	// Create creates a new visit
	Create(ctx context.Context, visit *entities.Visit) error

	// GetByID retrieves a visit by ID
	GetByID(ctx context.Context, id string) (*entities.Visit, error)

	// Complete moves a waiting visit to completed and returns it. A visit that is
	// missing or not waiting yields a not found error.
	Complete(ctx context.Context, id string) (*entities.Visit, error)

	// ListWaiting lists waiting visits for a day ordered by token
	ListWaiting(ctx context.Context, filter QueueFilter) ([]*entities.QueueEntry, error)
}

// QueueFilter narrows a queue listing. A nil DoctorID lists every partition.
type QueueFilter struct {
	DoctorID  *string
	VisitDate string
}
