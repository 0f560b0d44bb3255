package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// ProfileAdapter implements the ProfileRepository interface
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ProfileRepository = (*ProfileAdapter)(nil)

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) *ProfileAdapter {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Put inserts or replaces a profile. Profiles are owned by the identity
// provider; this exists for seeding.
func (a *ProfileAdapter) Put(ctx context.Context, profile *entities.Profile) error {
	query, args, err := a.db.Insert("profiles").
		Rows(goqu.Record{
			"id":        profile.ID,
			"full_name": profile.FullName,
			"role":      profile.Role,
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"full_name": goqu.L("EXCLUDED.full_name"),
			"role":      goqu.L("EXCLUDED.role"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to put profile", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (a *ProfileAdapter) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	query, args, err := a.db.Select("id", "full_name", "role").
		From("profiles").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	profile := &entities.Profile{}
	err = a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(&profile.ID, &profile.FullName, &profile.Role)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get profile", err)
	}
	return profile, nil
}

// ListByRole lists profiles carrying the role tag ordered by name
func (a *ProfileAdapter) ListByRole(ctx context.Context, role string) ([]*entities.Profile, error) {
	query, args, err := a.db.Select("id", "full_name", "role").
		From("profiles").
		Where(goqu.Ex{"role": role}).
		Order(goqu.C("full_name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list profiles", err)
	}
	defer rows.Close()

	profiles := make([]*entities.Profile, 0)
	for rows.Next() {
		profile := &entities.Profile{}
		if err := rows.Scan(&profile.ID, &profile.FullName, &profile.Role); err != nil {
			return nil, apperrors.FromStoreError("failed to scan profile", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate profiles", err)
	}
	return profiles, nil
}
