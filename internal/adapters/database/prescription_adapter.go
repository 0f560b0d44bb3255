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

var prescriptionColumns = []interface{}{
	"id", "appointment_id", "patient_id", "doctor_id", "diagnosis", "notes", "created_at",
}

// PrescriptionAdapter implements the PrescriptionRepository interface
type PrescriptionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.PrescriptionRepository = (*PrescriptionAdapter)(nil)

// NewPrescriptionAdapter creates a new prescription adapter
func NewPrescriptionAdapter(client *postgres.Client) *PrescriptionAdapter {
	return &PrescriptionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a prescription together with its lines
func (a *PrescriptionAdapter) Create(ctx context.Context, prescription *entities.Prescription) error {
	query, args, err := a.db.Insert("prescriptions").Rows(goqu.Record{
		"id":             prescription.ID,
		"appointment_id": prescription.VisitID,
		"patient_id":     prescription.PatientID,
		"doctor_id":      prescription.DoctorID,
		"diagnosis":      prescription.Diagnosis,
		"notes":          prescription.Notes,
		"created_at":     prescription.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	exec := a.client.Executor(ctx)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create prescription", err)
	}

	if len(prescription.Lines) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(prescription.Lines))
	for _, line := range prescription.Lines {
		rows = append(rows, goqu.Record{
			"id":              line.ID,
			"prescription_id": prescription.ID,
			"position":        line.Position,
			"medicine_name":   line.MedicineName,
			"dosage":          line.Dosage,
			"duration":        line.Duration,
		})
	}

	query, args, err = a.db.Insert("prescription_medicines").Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create prescription lines", err)
	}
	return nil
}

// GetByID retrieves a prescription with its lines in position order
func (a *PrescriptionAdapter) GetByID(ctx context.Context, id string) (*entities.Prescription, error) {
	query, args, err := a.db.Select(prescriptionColumns...).
		From("prescriptions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	prescription := &entities.Prescription{}
	err = a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&prescription.ID,
		&prescription.VisitID,
		&prescription.PatientID,
		&prescription.DoctorID,
		&prescription.Diagnosis,
		&prescription.Notes,
		&prescription.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("prescription with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get prescription", err)
	}

	lines, err := a.linesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	prescription.Lines = lines[id]
	return prescription, nil
}

// ListByPatient returns the most recent prescriptions for a patient
func (a *PrescriptionAdapter) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	query, args, err := a.db.Select(prescriptionColumns...).
		From("prescriptions").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list prescriptions", err)
	}
	defer rows.Close()

	prescriptions := make([]*entities.Prescription, 0)
	ids := make([]string, 0)
	for rows.Next() {
		p := &entities.Prescription{}
		if err := rows.Scan(&p.ID, &p.VisitID, &p.PatientID, &p.DoctorID, &p.Diagnosis, &p.Notes, &p.CreatedAt); err != nil {
			return nil, apperrors.FromStoreError("failed to scan prescription", err)
		}
		prescriptions = append(prescriptions, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate prescriptions", err)
	}

	if len(ids) == 0 {
		return prescriptions, nil
	}

	lines, err := a.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range prescriptions {
		p.Lines = lines[p.ID]
	}
	return prescriptions, nil
}

func (a *PrescriptionAdapter) linesFor(ctx context.Context, ids []string) (map[string][]entities.PrescriptionLine, error) {
	query, args, err := a.db.Select("id", "prescription_id", "position", "medicine_name", "dosage", "duration").
		From("prescription_medicines").
		Where(goqu.C("prescription_id").In(ids)).
		Order(goqu.C("prescription_id").Asc(), goqu.C("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list prescription lines", err)
	}
	defer rows.Close()

	lines := make(map[string][]entities.PrescriptionLine, len(ids))
	for rows.Next() {
		var line entities.PrescriptionLine
		if err := rows.Scan(&line.ID, &line.PrescriptionID, &line.Position, &line.MedicineName, &line.Dosage, &line.Duration); err != nil {
			return nil, apperrors.FromStoreError("failed to scan prescription line", err)
		}
		lines[line.PrescriptionID] = append(lines[line.PrescriptionID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate prescription lines", err)
	}
	return lines, nil
}
