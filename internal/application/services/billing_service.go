package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// PendingBill is a patient's unbilled dispensed items
type PendingBill struct {
	PatientID string                      `json:"patient_id"`
	Lines     []*entities.PendingDispense `json:"lines"`
	Subtotal  entities.Money              `json:"subtotal"`
}

// ExtraCharge is an ad-hoc charge such as a consultation fee
type ExtraCharge struct {
	Name      string         `json:"name"`
	Quantity  int            `json:"quantity"`
	UnitPrice entities.Money `json:"unit_price"`
}

// FinalizeRequest closes out a patient's pending items into a paid bill
type FinalizeRequest struct {
	PatientID   string               `json:"patient_id"`
	Extras      []ExtraCharge        `json:"extras"`
	PaymentMode entities.PaymentMode `json:"payment_mode"`
}

// BillResult identifies a finalized bill
type BillResult struct {
	BillID string         `json:"bill_id"`
	Total  entities.Money `json:"total_amount"`
}

// BillingService aggregates dispensed items and extra charges into bills
type BillingService struct {
	tx        repositories.TxManager
	patients  repositories.PatientRepository
	dispenses repositories.DispenseRepository
	bills     repositories.BillRepository
	events    notifier
	clock     Clock
	metrics   *observability.Metrics
}

// NewBillingService creates a new billing service
func NewBillingService(
	tx repositories.TxManager,
	patients repositories.PatientRepository,
	dispenses repositories.DispenseRepository,
	bills repositories.BillRepository,
	bus providers.EventBus,
	clock Clock,
	metrics *observability.Metrics,
) *BillingService {
	return &BillingService{
		tx:        tx,
		patients:  patients,
		dispenses: dispenses,
		bills:     bills,
		events:    notifier{bus: bus},
		clock:     clock,
		metrics:   metrics,
	}
}

// PendingForPatient returns the patient's unbilled items priced at the unit
// price frozen when they were dispensed.
func (s *BillingService) PendingForPatient(ctx context.Context, patientID string) (*PendingBill, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	lines, err := s.dispenses.ListPending(ctx, patientID, false)
	if err != nil {
		return nil, err
	}

	pending := &PendingBill{PatientID: patientID, Lines: lines}
	for _, l := range lines {
		pending.Subtotal += l.Amount()
	}
	return pending, nil
}

// FinalizeBill bills every pending item plus the extras and records the
// payment in one transaction. Each dispensed item is billed at most once.
func (s *BillingService) FinalizeBill(ctx context.Context, req FinalizeRequest) (*BillResult, error) {
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, apperrors.NewValidationError("patient_id is required")
	}
	if !req.PaymentMode.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid payment mode %q", req.PaymentMode))
	}
	extras, err := buildExtraLines(req.Extras)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "BillingService.FinalizeBill",
		attribute.String("patient_id", req.PatientID),
		attribute.String("payment_mode", string(req.PaymentMode)),
	)
	defer span.End()

	bill := &entities.Bill{
		ID:        uuid.New().String(),
		PatientID: req.PatientID,
		Status:    entities.BillStatusPaid,
		CreatedAt: s.clock.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, req.PatientID); err != nil {
			return err
		}

		pending, err := s.dispenses.ListPending(ctx, req.PatientID, true)
		if err != nil {
			return err
		}
		if len(pending) == 0 && len(extras) == 0 {
			return apperrors.NewEmptyBillError(fmt.Sprintf("patient %s has nothing to bill", req.PatientID))
		}

		lines := make([]entities.BillLine, 0, len(pending)+len(extras))
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			dispenseID := p.DispenseID
			lines = append(lines, entities.BillLine{
				ID:         uuid.New().String(),
				BillID:     bill.ID,
				Name:       p.MedicineName,
				Type:       entities.BillLineMedicine,
				Quantity:   p.Quantity,
				UnitPrice:  p.UnitPrice,
				DispenseID: &dispenseID,
			})
			ids = append(ids, p.DispenseID)
		}
		for _, e := range extras {
			e.ID = uuid.New().String()
			e.BillID = bill.ID
			lines = append(lines, e)
		}

		total, err := entities.SumLines(lines)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("patient %s: bill total: %v", req.PatientID, err))
		}
		bill.Lines = lines
		bill.Total = total
		bill.Payment = &entities.Payment{
			ID:     uuid.New().String(),
			BillID: bill.ID,
			Amount: bill.Total,
			Mode:   req.PaymentMode,
			PaidAt: bill.CreatedAt,
		}

		if err := s.bills.Create(ctx, bill); err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}
		marked, err := s.dispenses.MarkBilled(ctx, bill.ID, ids)
		if err != nil {
			return err
		}
		if marked != len(ids) {
			return apperrors.NewConflictError(fmt.Sprintf("patient %s: %d of %d items were billed concurrently", req.PatientID, len(ids)-marked, len(ids)))
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.RecordBillFinalized(ctx, s.metrics, string(req.PaymentMode), int64(bill.Total))
	observability.LoggerFromContext(ctx).Info().
		Str("bill_id", bill.ID).
		Str("patient_id", req.PatientID).
		Str("total", bill.Total.String()).
		Int("lines", len(bill.Lines)).
		Msg("bill finalized")

	s.events.publish(ctx, entities.EventBillFinalized, bill.ID, map[string]interface{}{
		"patient_id":   req.PatientID,
		"total_amount": int64(bill.Total),
		"payment_mode": string(req.PaymentMode),
		"line_count":   len(bill.Lines),
	})

	return &BillResult{BillID: bill.ID, Total: bill.Total}, nil
}

func buildExtraLines(extras []ExtraCharge) ([]entities.BillLine, error) {
	lines := make([]entities.BillLine, 0, len(extras))
	for i, e := range extras {
		name := strings.TrimSpace(e.Name)
		switch {
		case name == "":
			return nil, apperrors.NewValidationError(fmt.Sprintf("extra %d: name is required", i+1))
		case e.Quantity < 1:
			return nil, apperrors.NewValidationError(fmt.Sprintf("extra %d: quantity must be at least 1", i+1))
		case e.Quantity > entities.MaxQuantity:
			return nil, apperrors.NewValidationError(fmt.Sprintf("extra %d: quantity must be at most %d", i+1, entities.MaxQuantity))
		case e.UnitPrice < 0:
			return nil, apperrors.NewValidationError(fmt.Sprintf("extra %d: unit price must not be negative", i+1))
		}
		if _, ok := e.UnitPrice.CheckedTimes(e.Quantity); !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("extra %d: amount is too large", i+1))
		}
		lines = append(lines, entities.BillLine{
			Name:      name,
			Type:      entities.BillLineConsultation,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
		})
	}
	return lines, nil
}

// PendingPatients lists patients with unbilled items and their subtotals
func (s *BillingService) PendingPatients(ctx context.Context) ([]*entities.PatientBalance, error) {
	return s.dispenses.ListPendingPatients(ctx)
}

// GetBill retrieves a bill with its lines and payment
func (s *BillingService) GetBill(ctx context.Context, id string) (*entities.Bill, error) {
	return s.bills.GetByID(ctx, id)
}
