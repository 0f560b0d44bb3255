package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

var batchColumns = []interface{}{
	"i.id", "i.medicine_id", "m.name", "i.batch_no", "i.expiry", "i.quantity", "i.mrp", "i.created_at",
}

// InventoryAdapter implements the InventoryRepository interface over the
// medicines and inventory tables
type InventoryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.InventoryRepository = (*InventoryAdapter)(nil)

// NewInventoryAdapter creates a new inventory adapter
func NewInventoryAdapter(client *postgres.Client) *InventoryAdapter {
	return &InventoryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindMedicineByName matches the catalog case-insensitively
func (a *InventoryAdapter) FindMedicineByName(ctx context.Context, name string) (*entities.Medicine, error) {
	query, args, err := a.db.Select("id", "name", "strength", "unit").
		From("medicines").
		Where(goqu.Func("lower", goqu.C("name")).Eq(goqu.Func("lower", name))).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	medicine := &entities.Medicine{}
	err = a.client.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&medicine.ID,
		&medicine.Name,
		&medicine.Strength,
		&medicine.Unit,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("medicine %q not in catalog", name))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to find medicine", err)
	}
	return medicine, nil
}

// UpsertMedicine inserts the medicine unless its name exists, then reads the stored row
func (a *InventoryAdapter) UpsertMedicine(ctx context.Context, medicine *entities.Medicine) (*entities.Medicine, error) {
	query, args, err := a.db.Insert("medicines").
		Rows(goqu.Record{
			"id":       medicine.ID,
			"name":     medicine.Name,
			"strength": medicine.Strength,
			"unit":     medicine.Unit,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, apperrors.FromStoreError("failed to upsert medicine", err)
	}

	return a.FindMedicineByName(ctx, medicine.Name)
}

// CreateBatch inserts a new stock batch
func (a *InventoryAdapter) CreateBatch(ctx context.Context, batch *entities.InventoryBatch) error {
	query, args, err := a.db.Insert("inventory").Rows(goqu.Record{
		"id":          batch.ID,
		"medicine_id": batch.MedicineID,
		"batch_no":    batch.BatchNo,
		"expiry":      formatDate(batch.Expiry),
		"quantity":    batch.Quantity,
		"mrp":         int64(batch.UnitPrice),
		"created_at":  batch.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create batch", err)
	}
	return nil
}

// LockEarliestBatch locks the earliest-expiry batch that still has stock
func (a *InventoryAdapter) LockEarliestBatch(ctx context.Context, medicineID string) (*entities.InventoryBatch, error) {
	query, args, err := a.batches().
		Where(
			goqu.I("i.medicine_id").Eq(medicineID),
			goqu.I("i.quantity").Gt(0),
		).
		Order(goqu.I("i.expiry").Asc(), goqu.I("i.created_at").Asc(), goqu.I("i.seq").Asc()).
		Limit(1).
		ForUpdate(exp.Wait, goqu.T("i")).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	batch, err := scanBatch(a.client.Executor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no stock left for medicine %s", medicineID))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to lock batch", err)
	}
	return batch, nil
}

// DecrementBatch removes qty units only if that many remain
func (a *InventoryAdapter) DecrementBatch(ctx context.Context, batchID string, qty int) (bool, error) {
	query, args, err := a.db.Update("inventory").
		Set(goqu.Record{"quantity": goqu.L("quantity - ?", qty)}).
		Where(
			goqu.C("id").Eq(batchID),
			goqu.C("quantity").Gte(qty),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.FromStoreError("failed to decrement batch", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected == 1, nil
}

// ListBatches lists all batches ordered by expiry
func (a *InventoryAdapter) ListBatches(ctx context.Context) ([]*entities.InventoryBatch, error) {
	return a.listBatches(ctx, a.batches())
}

// ListLowStock lists batches whose quantity is below threshold
func (a *InventoryAdapter) ListLowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error) {
	return a.listBatches(ctx, a.batches().Where(goqu.I("i.quantity").Lt(threshold)))
}

func (a *InventoryAdapter) batches() *goqu.SelectDataset {
	return a.db.From(goqu.T("inventory").As("i")).
		Join(goqu.T("medicines").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("i.medicine_id")))).
		Select(batchColumns...)
}

func (a *InventoryAdapter) listBatches(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.InventoryBatch, error) {
	query, args, err := ds.
		Order(goqu.I("i.expiry").Asc(), goqu.I("i.created_at").Asc(), goqu.I("i.seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list inventory", err)
	}
	defer rows.Close()

	batches := make([]*entities.InventoryBatch, 0)
	for rows.Next() {
		batch := &entities.InventoryBatch{}
		if err := rows.Scan(
			&batch.ID,
			&batch.MedicineID,
			&batch.MedicineName,
			&batch.BatchNo,
			&batch.Expiry,
			&batch.Quantity,
			&batch.UnitPrice,
			&batch.CreatedAt,
		); err != nil {
			return nil, apperrors.FromStoreError("failed to scan batch", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate inventory", err)
	}
	return batches, nil
}

func scanBatch(row *sql.Row) (*entities.InventoryBatch, error) {
	batch := &entities.InventoryBatch{}
	err := row.Scan(
		&batch.ID,
		&batch.MedicineID,
		&batch.MedicineName,
		&batch.BatchNo,
		&batch.Expiry,
		&batch.Quantity,
		&batch.UnitPrice,
		&batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return batch, nil
}
