package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

var visitColumns = []interface{}{
	"id", "patient_id", "doctor_id", "visit_date", "token_number", "status", "created_at",
}

// VisitAdapter implements the VisitRepository interface over the appointments
// and token_counters tables
type VisitAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.VisitRepository = (*VisitAdapter)(nil)

// NewVisitAdapter creates a new visit adapter
func NewVisitAdapter(client *postgres.Client) *VisitAdapter {
	return &VisitAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ReserveToken atomically increments the counter row for (doctorKey, visitDate)
func (a *VisitAdapter) ReserveToken(ctx context.Context, doctorKey, visitDate string) (int, error) {
	query, args, err := a.db.Insert("token_counters").
		Rows(goqu.Record{
			"doctor_key": doctorKey,
			"visit_date": visitDate,
			"last_token": 1,
		}).
		OnConflict(goqu.DoUpdate("doctor_key, visit_date", goqu.Record{
			"last_token": goqu.L("token_counters.last_token + 1"),
		})).
		Returning("last_token").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build token query", err)
	}

	var token int
	if err := a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(&token); err != nil {
		return 0, apperrors.FromStoreError("failed to reserve token", err)
	}
	return token, nil
}

// Create creates a new visit
func (a *VisitAdapter) Create(ctx context.Context, visit *entities.Visit) error {
	record := goqu.Record{
		"id":           visit.ID,
		"patient_id":   visit.PatientID,
		"doctor_id":    nullableString(visit.DoctorID),
		"doctor_key":   entities.DoctorKey(visit.DoctorID),
		"visit_date":   visit.VisitDate,
		"token_number": visit.TokenNumber,
		"status":       visit.Status,
		"created_at":   visit.CreatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create visit", err)
	}
	return nil
}

// GetByID retrieves a visit by ID
func (a *VisitAdapter) GetByID(ctx context.Context, id string) (*entities.Visit, error) {
	query, args, err := a.db.Select(visitColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	visit, err := scanVisit(a.client.Executor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("visit with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get visit", err)
	}
	return visit, nil
}

// Complete moves a waiting visit to completed in a single conditional update
func (a *VisitAdapter) Complete(ctx context.Context, id string) (*entities.Visit, error) {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{"status": entities.VisitStatusCompleted}).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.VisitStatusWaiting,
		}).
		Returning(visitColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	visit, err := scanVisit(a.client.Executor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("visit %s not found or not waiting", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to complete visit", err)
	}
	return visit, nil
}

// ListWaiting lists waiting visits for a day ordered by token
func (a *VisitAdapter) ListWaiting(ctx context.Context, filter repositories.QueueFilter) ([]*entities.QueueEntry, error) {
	ds := a.db.From(goqu.T("appointments").As("a")).
		Join(goqu.T("patients").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("a.patient_id")))).
		Select(
			"a.id", "a.patient_id", "a.doctor_id", "a.visit_date", "a.token_number", "a.status", "a.created_at",
			"p.name", "p.age", "p.gender", "p.mobile", "p.symptoms", "p.created_at", "p.updated_at",
		).
		Where(
			goqu.I("a.status").Eq(entities.VisitStatusWaiting),
			goqu.I("a.visit_date").Eq(filter.VisitDate),
		)

	if filter.DoctorID != nil {
		ds = ds.Where(goqu.I("a.doctor_key").Eq(*filter.DoctorID))
	}

	query, args, err := ds.Order(goqu.I("a.token_number").Asc(), goqu.I("a.created_at").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list queue", err)
	}
	defer rows.Close()

	entries := make([]*entities.QueueEntry, 0)
	for rows.Next() {
		entry := &entities.QueueEntry{}
		var doctorID sql.NullString
		var visitDate time.Time

		if err := rows.Scan(
			&entry.Visit.ID,
			&entry.Visit.PatientID,
			&doctorID,
			&visitDate,
			&entry.Visit.TokenNumber,
			&entry.Visit.Status,
			&entry.Visit.CreatedAt,
			&entry.Patient.Name,
			&entry.Patient.Age,
			&entry.Patient.Gender,
			&entry.Patient.Mobile,
			&entry.Patient.Symptoms,
			&entry.Patient.CreatedAt,
			&entry.Patient.UpdatedAt,
		); err != nil {
			return nil, apperrors.FromStoreError("failed to scan queue entry", err)
		}

		entry.Visit.DoctorID = stringPtr(doctorID)
		entry.Visit.VisitDate = formatDate(visitDate)
		entry.Patient.ID = entry.Visit.PatientID
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate queue", err)
	}

	return entries, nil
}

func scanVisit(row *sql.Row) (*entities.Visit, error) {
	visit := &entities.Visit{}
	var doctorID sql.NullString
	var visitDate time.Time

	err := row.Scan(
		&visit.ID,
		&visit.PatientID,
		&doctorID,
		&visitDate,
		&visit.TokenNumber,
		&visit.Status,
		&visit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	visit.DoctorID = stringPtr(doctorID)
	visit.VisitDate = formatDate(visitDate)
	return visit, nil
}
