package services

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
)

// DirectoryService exposes staff profiles to the workflow screens
type DirectoryService struct {
	profiles repositories.ProfileRepository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(profiles repositories.ProfileRepository) *DirectoryService {
	return &DirectoryService{profiles: profiles}
}

// ListDoctors lists profiles tagged as doctors ordered by name
func (s *DirectoryService) ListDoctors(ctx context.Context) ([]*entities.Profile, error) {
	return s.profiles.ListByRole(ctx, entities.RoleDoctor)
}

// GetProfile retrieves a staff profile
func (s *DirectoryService) GetProfile(ctx context.Context, id string) (*entities.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}
