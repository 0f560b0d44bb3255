package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// ProfileRepository implements repositories.ProfileRepository
type ProfileRepository struct {
	store *Store
}

var _ repositories.ProfileRepository = (*ProfileRepository)(nil)

// Put inserts or replaces a profile. Profiles are owned by the identity
// provider; this exists for seeding development and test stores.
func (r *ProfileRepository) Put(ctx context.Context, profile *entities.Profile) error {
	return r.store.write(ctx, "profiles.put", func(st *state) error {
		st.profiles[profile.ID] = *profile
		return nil
	})
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	var found *entities.Profile
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
		}
		found = &p
		return nil
	})
	return found, err
}

// ListByRole lists profiles carrying the role tag ordered by name
func (r *ProfileRepository) ListByRole(ctx context.Context, role string) ([]*entities.Profile, error) {
	profiles := make([]*entities.Profile, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.profiles {
			if p.Role == role {
				candidate := p
				profiles = append(profiles, &candidate)
			}
		}
		sort.Slice(profiles, func(i, j int) bool { return profiles[i].FullName < profiles[j].FullName })
		return nil
	})
	return profiles, err
}
