package providers

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// IdentityProvider resolves the authenticated caller. Login, sessions and role
// storage live outside this service.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*entities.User, error)
}
