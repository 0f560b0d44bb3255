package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// BedRepository defines the interface for bed and admission operations
type BedRepository interface {
	// Create creates a new bed
	Create(ctx context.Context, bed *entities.Bed) error

	// GetByID retrieves a bed by ID
	GetByID(ctx context.Context, id string) (*entities.Bed, error)

	// LockByID retrieves a bed and locks its row for the surrounding transaction
	LockByID(ctx context.Context, id string) (*entities.Bed, error)

	// List lists beds ordered by bed number
	List(ctx context.Context) ([]*entities.Bed, error)

	// UpdateStatus moves a bed from one status to another, stamping it with
	// at; it reports whether the bed was still in the from status.
	UpdateStatus(ctx context.Context, id string, from, to entities.BedStatus, at time.Time) (bool, error)

	// CreateAdmission inserts an admitted row
	CreateAdmission(ctx context.Context, admission *entities.Admission) error

	// ActiveAdmission returns the admitted row for the bed
	ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error)

	// CloseAdmission marks an admission discharged at the given time
	CloseAdmission(ctx context.Context, id string, at time.Time) error
}
