package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// ProfileRepository defines read access to staff profiles
type ProfileRepository interface {
	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id string) (*entities.Profile, error)

	// ListByRole lists profiles carrying the role tag ordered by name
	ListByRole(ctx context.Context, role string) ([]*entities.Profile, error)
}
