package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

var patientColumns = []interface{}{
	"id", "name", "age", "gender", "mobile", "symptoms", "created_at", "updated_at",
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.PatientRepository = (*PatientAdapter)(nil)

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) *PatientAdapter {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"id":         patient.ID,
		"name":       patient.Name,
		"age":        patient.Age,
		"gender":     patient.Gender,
		"mobile":     patient.Mobile,
		"symptoms":   patient.Symptoms,
		"created_at": patient.CreatedAt,
		"updated_at": patient.UpdatedAt,
	}

	query, args, err := a.db.Insert("patients").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create patient", err)
	}
	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.Executor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get patient", err)
	}
	return patient, nil
}

// FindByMobile returns the oldest patient registered with the mobile number
func (a *PatientAdapter) FindByMobile(ctx context.Context, mobile string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.Ex{"mobile": mobile}).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.Executor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no patient registered with mobile %s", mobile))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to find patient by mobile", err)
	}
	return patient, nil
}

// UpdateVisitDetails overwrites the fields that change between visits
func (a *PatientAdapter) UpdateVisitDetails(ctx context.Context, id string, age int, symptoms string) error {
	query, args, err := a.db.Update("patients").
		Set(goqu.Record{
			"age":        age,
			"symptoms":   symptoms,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.FromStoreError("failed to update patient", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	return nil
}

func scanPatient(row *sql.Row) (*entities.Patient, error) {
	patient := &entities.Patient{}
	err := row.Scan(
		&patient.ID,
		&patient.Name,
		&patient.Age,
		&patient.Gender,
		&patient.Mobile,
		&patient.Symptoms,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return patient, nil
}
