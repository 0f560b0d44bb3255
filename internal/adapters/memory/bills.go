package memory

import (
	"context"
	"fmt"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// BillRepository implements repositories.BillRepository
type BillRepository struct {
	store *Store
}

var _ repositories.BillRepository = (*BillRepository)(nil)

// Create inserts the bill, its lines and its payment
func (r *BillRepository) Create(ctx context.Context, bill *entities.Bill) error {
	return r.store.write(ctx, "bills.create", func(st *state) error {
		if _, exists := st.bills[bill.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("bill %s already exists", bill.ID))
		}

		stored := *bill
		stored.Lines = nil
		stored.Payment = nil
		st.bills[stored.ID] = stored
		st.track(stored.ID)

		lines := make([]entities.BillLine, len(bill.Lines))
		for i, line := range bill.Lines {
			line.BillID = bill.ID
			lines[i] = line
		}
		st.billLines[bill.ID] = lines

		if bill.Payment != nil {
			payment := *bill.Payment
			payment.BillID = bill.ID
			st.payments[bill.ID] = payment
		}
		return nil
	})
}

// GetByID retrieves a bill with lines and payment
func (r *BillRepository) GetByID(ctx context.Context, id string) (*entities.Bill, error) {
	var found *entities.Bill
	err := r.store.read(ctx, func(st *state) error {
		b, ok := st.bills[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("bill with id %s not found", id))
		}
		b.Lines = append([]entities.BillLine(nil), st.billLines[id]...)
		if p, ok := st.payments[id]; ok {
			b.Payment = &p
		}
		found = &b
		return nil
	})
	return found, err
}
