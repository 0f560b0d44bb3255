package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

var bedColumns = []interface{}{"id", "bed_number", "ward", "status", "updated_at"}

// BedAdapter implements the BedRepository interface over beds and admissions
type BedAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.BedRepository = (*BedAdapter)(nil)

// NewBedAdapter creates a new bed adapter
func NewBedAdapter(client *postgres.Client) *BedAdapter {
	return &BedAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new bed
func (a *BedAdapter) Create(ctx context.Context, bed *entities.Bed) error {
	query, args, err := a.db.Insert("beds").Rows(goqu.Record{
		"id":         bed.ID,
		"bed_number": bed.BedNumber,
		"ward":       bed.Ward,
		"status":     bed.Status,
		"updated_at": bed.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError(fmt.Sprintf("failed to create bed %s", bed.BedNumber), err)
	}
	return nil
}

// GetByID retrieves a bed by ID
func (a *BedAdapter) GetByID(ctx context.Context, id string) (*entities.Bed, error) {
	return a.getBed(ctx, id, false)
}

// LockByID retrieves a bed and locks its row for the surrounding transaction
func (a *BedAdapter) LockByID(ctx context.Context, id string) (*entities.Bed, error) {
	return a.getBed(ctx, id, true)
}

func (a *BedAdapter) getBed(ctx context.Context, id string, lock bool) (*entities.Bed, error) {
	ds := a.db.Select(bedColumns...).From("beds").Where(goqu.Ex{"id": id})
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	bed := &entities.Bed{}
	err = a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&bed.ID,
		&bed.BedNumber,
		&bed.Ward,
		&bed.Status,
		&bed.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("bed with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get bed", err)
	}
	return bed, nil
}

// List lists beds ordered by bed number
func (a *BedAdapter) List(ctx context.Context) ([]*entities.Bed, error) {
	query, args, err := a.db.Select(bedColumns...).
		From("beds").
		Order(goqu.C("bed_number").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list beds", err)
	}
	defer rows.Close()

	beds := make([]*entities.Bed, 0)
	for rows.Next() {
		bed := &entities.Bed{}
		if err := rows.Scan(&bed.ID, &bed.BedNumber, &bed.Ward, &bed.Status, &bed.UpdatedAt); err != nil {
			return nil, apperrors.FromStoreError("failed to scan bed", err)
		}
		beds = append(beds, bed)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate beds", err)
	}
	return beds, nil
}

// UpdateStatus moves a bed from one status to another
func (a *BedAdapter) UpdateStatus(ctx context.Context, id string, from, to entities.BedStatus, at time.Time) (bool, error) {
	query, args, err := a.db.Update("beds").
		Set(goqu.Record{
			"status":     to,
			"updated_at": at.UTC(),
		}).
		Where(goqu.Ex{
			"id":     id,
			"status": from,
		}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.FromStoreError("failed to update bed status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected == 1, nil
}

// CreateAdmission inserts an admitted row
func (a *BedAdapter) CreateAdmission(ctx context.Context, admission *entities.Admission) error {
	query, args, err := a.db.Insert("admissions").Rows(goqu.Record{
		"id":         admission.ID,
		"patient_id": admission.PatientID,
		"bed_id":     admission.BedID,
		"status":     admission.Status,
		"admit_date": admission.AdmitDate,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create admission", err)
	}
	return nil
}

// ActiveAdmission returns the admitted row for the bed
func (a *BedAdapter) ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error) {
	query, args, err := a.db.Select("id", "patient_id", "bed_id", "status", "admit_date", "discharge_date").
		From("admissions").
		Where(goqu.Ex{
			"bed_id": bedID,
			"status": entities.AdmissionStatusAdmitted,
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	admission := &entities.Admission{}
	var dischargeDate sql.NullTime
	err = a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&admission.ID,
		&admission.PatientID,
		&admission.BedID,
		&admission.Status,
		&admission.AdmitDate,
		&dischargeDate,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no active admission for bed %s", bedID))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get admission", err)
	}

	if dischargeDate.Valid {
		admission.DischargeDate = &dischargeDate.Time
	}
	return admission, nil
}

// CloseAdmission marks an admission discharged at the given time
func (a *BedAdapter) CloseAdmission(ctx context.Context, id string, at time.Time) error {
	query, args, err := a.db.Update("admissions").
		Set(goqu.Record{
			"status":         entities.AdmissionStatusDischarged,
			"discharge_date": at,
		}).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.AdmissionStatusAdmitted,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.FromStoreError("failed to close admission", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("admission %s is not active", id))
	}
	return nil
}
