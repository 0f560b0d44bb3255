package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
	"github.com/zatekoja/clinicflow/pkg/retry"
)

const (
	defaultLowStockThreshold = 20
	dispenseMaxAttempts      = 3

	// maxBatchAttempts bounds lock-and-decrement rounds for a single line
	maxBatchAttempts = 8
)

// StockRequest adds a batch of a medicine to inventory
type StockRequest struct {
	MedicineName string         `json:"medicine_name"`
	BatchNo      string         `json:"batch_no"`
	Expiry       string         `json:"expiry"`
	Quantity     int            `json:"quantity"`
	UnitPrice    entities.Money `json:"unit_price"`
	Strength     string         `json:"strength,omitempty"`
	Unit         string         `json:"unit,omitempty"`
}

// InventoryService stocks batches and dispenses prescriptions FIFO by expiry
type InventoryService struct {
	tx            repositories.TxManager
	inventory     repositories.InventoryRepository
	prescriptions repositories.PrescriptionRepository
	dispenses     repositories.DispenseRepository
	events        notifier
	clock         Clock
	lowStock      int
	metrics       *observability.Metrics
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	tx repositories.TxManager,
	inventory repositories.InventoryRepository,
	prescriptions repositories.PrescriptionRepository,
	dispenses repositories.DispenseRepository,
	bus providers.EventBus,
	clock Clock,
	lowStockThreshold int,
	metrics *observability.Metrics,
) *InventoryService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	return &InventoryService{
		tx:            tx,
		inventory:     inventory,
		prescriptions: prescriptions,
		dispenses:     dispenses,
		events:        notifier{bus: bus},
		clock:         clock,
		lowStock:      lowStockThreshold,
		metrics:       metrics,
	}
}

// AddStock registers the medicine if it is new and inserts a batch for it
func (s *InventoryService) AddStock(ctx context.Context, req StockRequest) (*entities.InventoryBatch, error) {
	name := strings.TrimSpace(req.MedicineName)
	batchNo := strings.TrimSpace(req.BatchNo)
	switch {
	case name == "":
		return nil, apperrors.NewValidationError("medicine_name is required")
	case batchNo == "":
		return nil, apperrors.NewValidationError("batch_no is required")
	case req.Quantity <= 0:
		return nil, apperrors.NewValidationError("quantity must be positive")
	case req.Quantity > entities.MaxQuantity:
		return nil, apperrors.NewValidationError(fmt.Sprintf("quantity must be at most %d", entities.MaxQuantity))
	case req.UnitPrice < 0:
		return nil, apperrors.NewValidationError("unit_price must not be negative")
	}
	if _, ok := req.UnitPrice.CheckedTimes(req.Quantity); !ok {
		return nil, apperrors.NewValidationError("unit_price times quantity is too large")
	}
	expiry, err := time.Parse(entities.VisitDateLayout, strings.TrimSpace(req.Expiry))
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid expiry %q: want YYYY-MM-DD", req.Expiry))
	}

	medicine := &entities.Medicine{
		ID:       uuid.New().String(),
		Name:     name,
		Strength: strings.TrimSpace(req.Strength),
		Unit:     strings.TrimSpace(req.Unit),
	}
	if medicine.Strength == "" {
		medicine.Strength = entities.DefaultMedicineStrength
	}
	if medicine.Unit == "" {
		medicine.Unit = entities.DefaultMedicineUnit
	}

	ctx, span := observability.StartSpan(ctx, "InventoryService.AddStock",
		attribute.String("medicine", name),
		attribute.String("batch_no", batchNo),
	)
	defer span.End()

	batch := &entities.InventoryBatch{
		ID:        uuid.New().String(),
		BatchNo:   batchNo,
		Expiry:    expiry,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		CreatedAt: s.clock.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := s.inventory.UpsertMedicine(ctx, medicine)
		if err != nil {
			return err
		}
		batch.MedicineID = stored.ID
		batch.MedicineName = stored.Name
		return s.inventory.CreateBatch(ctx, batch)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("batch_id", batch.ID).
		Str("medicine", batch.MedicineName).
		Int("quantity", batch.Quantity).
		Msg("stock added")

	s.events.publish(ctx, entities.EventInventoryRestocked, batch.ID, map[string]interface{}{
		"medicine_id": batch.MedicineID,
		"medicine":    batch.MedicineName,
		"batch_no":    batch.BatchNo,
		"quantity":    batch.Quantity,
	})

	return batch, nil
}

// Dispense draws one unit per prescription line from the earliest-expiry
// batch with stock. The whole call commits or rolls back as one.
func (s *InventoryService) Dispense(ctx context.Context, prescriptionID string) ([]entities.DispenseOutcome, error) {
	if strings.TrimSpace(prescriptionID) == "" {
		return nil, apperrors.NewValidationError("prescription id is required")
	}

	ctx, span := observability.StartSpan(ctx, "InventoryService.Dispense",
		attribute.String("prescription_id", prescriptionID),
	)
	defer span.End()

	var outcomes []entities.DispenseOutcome
	err := retry.DoIf(ctx, retry.ContentionConfig(dispenseMaxAttempts), apperrors.IsConflict, func() error {
		outcomes = nil
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			outcomes, err = s.dispenseLines(ctx, prescriptionID)
			return err
		})
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	dispensed := 0
	for _, o := range outcomes {
		observability.RecordDispenseOutcome(ctx, s.metrics, string(o.Kind))
		if o.Kind == entities.OutcomeDispensed {
			dispensed++
		}
	}

	observability.LoggerFromContext(ctx).Info().
		Str("prescription_id", prescriptionID).
		Int("lines", len(outcomes)).
		Int("dispensed", dispensed).
		Msg("prescription dispensed")

	if dispensed > 0 {
		s.events.publish(ctx, entities.EventInventoryDispensed, prescriptionID, map[string]interface{}{
			"dispensed": dispensed,
			"lines":     len(outcomes),
		})
	}

	return outcomes, nil
}

func (s *InventoryService) dispenseLines(ctx context.Context, prescriptionID string) ([]entities.DispenseOutcome, error) {
	prescription, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	done, err := s.dispenses.DispensedLineIDs(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]entities.DispenseOutcome, 0, len(prescription.Lines))
	for _, line := range prescription.Lines {
		outcome := entities.DispenseOutcome{LineID: line.ID, MedicineName: line.MedicineName}
		if done[line.ID] {
			outcome.Kind = entities.OutcomeAlreadyDispensed
			outcomes = append(outcomes, outcome)
			continue
		}

		medicine, err := s.inventory.FindMedicineByName(ctx, line.MedicineName)
		if apperrors.IsNotFound(err) {
			outcome.Kind = entities.OutcomeMedicineUnknown
			outcomes = append(outcomes, outcome)
			continue
		}
		if err != nil {
			return nil, err
		}

		batch, err := s.allocate(ctx, medicine.ID)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			outcome.Kind = entities.OutcomeOutOfStock
			outcomes = append(outcomes, outcome)
			continue
		}

		record := &entities.DispenseRecord{
			ID:             uuid.New().String(),
			PrescriptionID: prescription.ID,
			LineID:         line.ID,
			MedicineID:     medicine.ID,
			BatchID:        batch.ID,
			Quantity:       entities.DispensedQuantity,
			UnitPrice:      batch.UnitPrice,
			Status:         entities.DispenseStatusDispensed,
			CreatedAt:      s.clock.now(),
		}
		if err := s.dispenses.Create(ctx, record); err != nil {
			return nil, err
		}

		outcome.Kind = entities.OutcomeDispensed
		outcome.BatchID = batch.ID
		outcome.Quantity = record.Quantity
		outcome.DispenseID = record.ID
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// allocate locks the earliest-expiry batch with stock and takes one unit from
// it. A nil batch means the medicine is out of stock.
func (s *InventoryService) allocate(ctx context.Context, medicineID string) (*entities.InventoryBatch, error) {
	empty := 0
	for attempt := 0; attempt < maxBatchAttempts; attempt++ {
		batch, err := s.inventory.LockEarliestBatch(ctx, medicineID)
		if apperrors.IsNotFound(err) {
			// A row that emptied while we waited on its lock drops out of a
			// locking read without a replacement; read once more to be sure.
			empty++
			if empty > 1 {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		ok, err := s.inventory.DecrementBatch(ctx, batch.ID, entities.DispensedQuantity)
		if err != nil {
			return nil, err
		}
		if ok {
			return batch, nil
		}
	}
	return nil, apperrors.NewConflictError(fmt.Sprintf("medicine %s: stock kept changing during allocation", medicineID))
}

// ListInventory lists every batch ordered by expiry
func (s *InventoryService) ListInventory(ctx context.Context) ([]*entities.InventoryBatch, error) {
	return s.inventory.ListBatches(ctx)
}

// LowStock lists batches below threshold; a non-positive threshold uses the
// configured default.
func (s *InventoryService) LowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error) {
	if threshold <= 0 {
		threshold = s.lowStock
	}
	return s.inventory.ListLowStock(ctx, threshold)
}
