package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// DispenseAdapter implements the DispenseRepository interface over pharmacy_dispense
type DispenseAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.DispenseRepository = (*DispenseAdapter)(nil)

// NewDispenseAdapter creates a new dispense adapter
func NewDispenseAdapter(client *postgres.Client) *DispenseAdapter {
	return &DispenseAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create appends a dispense record
func (a *DispenseAdapter) Create(ctx context.Context, record *entities.DispenseRecord) error {
	query, args, err := a.db.Insert("pharmacy_dispense").Rows(goqu.Record{
		"id":              record.ID,
		"prescription_id": record.PrescriptionID,
		"line_id":         record.LineID,
		"medicine_id":     record.MedicineID,
		"batch_id":        record.BatchID,
		"quantity":        record.Quantity,
		"unit_price":      int64(record.UnitPrice),
		"status":          record.Status,
		"created_at":      record.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create dispense record", err)
	}
	return nil
}

// DispensedLineIDs returns the prescription lines that already have a record
func (a *DispenseAdapter) DispensedLineIDs(ctx context.Context, prescriptionID string) (map[string]bool, error) {
	query, args, err := a.db.Select("line_id").
		From("pharmacy_dispense").
		Where(goqu.Ex{"prescription_id": prescriptionID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list dispensed lines", err)
	}
	defer rows.Close()

	dispensed := make(map[string]bool)
	for rows.Next() {
		var lineID string
		if err := rows.Scan(&lineID); err != nil {
			return nil, apperrors.FromStoreError("failed to scan dispensed line", err)
		}
		dispensed[lineID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate dispensed lines", err)
	}
	return dispensed, nil
}

// ListPending returns the patient's unbilled records priced at dispense time
func (a *DispenseAdapter) ListPending(ctx context.Context, patientID string, lock bool) ([]*entities.PendingDispense, error) {
	ds := a.db.From(goqu.T("pharmacy_dispense").As("d")).
		Join(goqu.T("prescriptions").As("rx"), goqu.On(goqu.I("rx.id").Eq(goqu.I("d.prescription_id")))).
		Join(goqu.T("medicines").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("d.medicine_id")))).
		Select("d.id", "rx.patient_id", "m.name", "d.quantity", "d.unit_price").
		Where(
			goqu.I("rx.patient_id").Eq(patientID),
			goqu.I("d.bill_id").IsNull(),
		).
		Order(goqu.I("d.created_at").Asc(), goqu.I("d.id").Asc())

	if lock {
		ds = ds.ForUpdate(exp.Wait, goqu.T("d"))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list pending dispenses", err)
	}
	defer rows.Close()

	pending := make([]*entities.PendingDispense, 0)
	for rows.Next() {
		p := &entities.PendingDispense{}
		if err := rows.Scan(&p.DispenseID, &p.PatientID, &p.MedicineName, &p.Quantity, &p.UnitPrice); err != nil {
			return nil, apperrors.FromStoreError("failed to scan pending dispense", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate pending dispenses", err)
	}
	return pending, nil
}

// ListPendingPatients summarises unbilled records per patient
func (a *DispenseAdapter) ListPendingPatients(ctx context.Context) ([]*entities.PatientBalance, error) {
	query, args, err := a.db.From(goqu.T("pharmacy_dispense").As("d")).
		Join(goqu.T("prescriptions").As("rx"), goqu.On(goqu.I("rx.id").Eq(goqu.I("d.prescription_id")))).
		Join(goqu.T("patients").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("rx.patient_id")))).
		Select(
			"p.id", "p.name", "p.mobile",
			goqu.COUNT("d.id"),
			goqu.SUM(goqu.L(`"d"."quantity" * "d"."unit_price"`)),
		).
		Where(goqu.I("d.bill_id").IsNull()).
		GroupBy("p.id", "p.name", "p.mobile").
		Order(goqu.I("p.name").Asc(), goqu.I("p.id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list pending patients", err)
	}
	defer rows.Close()

	balances := make([]*entities.PatientBalance, 0)
	for rows.Next() {
		b := &entities.PatientBalance{}
		if err := rows.Scan(&b.PatientID, &b.PatientName, &b.Mobile, &b.ItemCount, &b.Subtotal); err != nil {
			return nil, apperrors.FromStoreError("failed to scan pending patient", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate pending patients", err)
	}
	return balances, nil
}

// MarkBilled stamps billID on the still-unbilled records among ids
func (a *DispenseAdapter) MarkBilled(ctx context.Context, billID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := a.db.Update("pharmacy_dispense").
		Set(goqu.Record{"bill_id": billID}).
		Where(
			goqu.C("id").In(ids),
			goqu.C("bill_id").IsNull(),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.FromStoreError("failed to mark dispenses billed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return int(rowsAffected), nil
}
