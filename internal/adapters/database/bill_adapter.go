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

// BillAdapter implements the BillRepository interface over bills, bill_items and payments
type BillAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.BillRepository = (*BillAdapter)(nil)

// NewBillAdapter creates a new bill adapter
func NewBillAdapter(client *postgres.Client) *BillAdapter {
	return &BillAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts the bill, its lines and its payment
func (a *BillAdapter) Create(ctx context.Context, bill *entities.Bill) error {
	exec := a.client.Executor(ctx)

	query, args, err := a.db.Insert("bills").Rows(goqu.Record{
		"id":           bill.ID,
		"patient_id":   bill.PatientID,
		"total_amount": int64(bill.Total),
		"status":       bill.Status,
		"created_at":   bill.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create bill", err)
	}

	if len(bill.Lines) > 0 {
		rows := make([]interface{}, 0, len(bill.Lines))
		for i, line := range bill.Lines {
			rows = append(rows, goqu.Record{
				"id":          line.ID,
				"bill_id":     bill.ID,
				"position":    i,
				"item_name":   line.Name,
				"item_type":   line.Type,
				"quantity":    line.Quantity,
				"unit_price":  int64(line.UnitPrice),
				"dispense_id": nullableString(line.DispenseID),
			})
		}

		query, args, err = a.db.Insert("bill_items").Rows(rows...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return apperrors.FromStoreError("failed to create bill items", err)
		}
	}

	if bill.Payment == nil {
		return nil
	}

	query, args, err = a.db.Insert("payments").Rows(goqu.Record{
		"id":           bill.Payment.ID,
		"bill_id":      bill.ID,
		"amount":       int64(bill.Payment.Amount),
		"payment_mode": bill.Payment.Mode,
		"paid_at":      bill.Payment.PaidAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.FromStoreError("failed to create payment", err)
	}
	return nil
}

// GetByID retrieves a bill with lines and payment
func (a *BillAdapter) GetByID(ctx context.Context, id string) (*entities.Bill, error) {
	exec := a.client.Executor(ctx)

	query, args, err := a.db.Select("id", "patient_id", "total_amount", "status", "created_at").
		From("bills").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	bill := &entities.Bill{}
	err = exec.QueryRowContext(ctx, query, args...).Scan(
		&bill.ID,
		&bill.PatientID,
		&bill.Total,
		&bill.Status,
		&bill.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("bill with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.FromStoreError("failed to get bill", err)
	}

	query, args, err = a.db.Select("id", "bill_id", "item_name", "item_type", "quantity", "unit_price", "dispense_id").
		From("bill_items").
		Where(goqu.Ex{"bill_id": id}).
		Order(goqu.C("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list bill items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entities.BillLine
		var dispenseID sql.NullString
		if err := rows.Scan(&line.ID, &line.BillID, &line.Name, &line.Type, &line.Quantity, &line.UnitPrice, &dispenseID); err != nil {
			return nil, apperrors.FromStoreError("failed to scan bill item", err)
		}
		line.DispenseID = stringPtr(dispenseID)
		bill.Lines = append(bill.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStoreError("failed to iterate bill items", err)
	}

	query, args, err = a.db.Select("id", "bill_id", "amount", "payment_mode", "paid_at").
		From("payments").
		Where(goqu.Ex{"bill_id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	payment := &entities.Payment{}
	err = exec.QueryRowContext(ctx, query, args...).Scan(
		&payment.ID,
		&payment.BillID,
		&payment.Amount,
		&payment.Mode,
		&payment.PaidAt,
	)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, apperrors.FromStoreError("failed to get payment", err)
	default:
		bill.Payment = payment
	}

	return bill, nil
}
