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

// BedService drives the bed occupancy state machine
type BedService struct {
	tx       repositories.TxManager
	beds     repositories.BedRepository
	patients repositories.PatientRepository
	events   notifier
	clock    Clock
	metrics  *observability.Metrics
}

// NewBedService creates a new bed service
func NewBedService(
	tx repositories.TxManager,
	beds repositories.BedRepository,
	patients repositories.PatientRepository,
	bus providers.EventBus,
	clock Clock,
	metrics *observability.Metrics,
) *BedService {
	return &BedService{
		tx:       tx,
		beds:     beds,
		patients: patients,
		events:   notifier{bus: bus},
		clock:    clock,
		metrics:  metrics,
	}
}

// AddBed registers an available bed
func (s *BedService) AddBed(ctx context.Context, bedNumber, ward string) (*entities.Bed, error) {
	bedNumber = strings.TrimSpace(bedNumber)
	if bedNumber == "" {
		return nil, apperrors.NewValidationError("bed_number is required")
	}

	bed := &entities.Bed{
		ID:        uuid.New().String(),
		BedNumber: bedNumber,
		Ward:      strings.TrimSpace(ward),
		Status:    entities.BedStatusAvailable,
		UpdatedAt: s.clock.now(),
	}
	if err := s.beds.Create(ctx, bed); err != nil {
		return nil, err
	}
	return bed, nil
}

// ListBeds lists beds ordered by bed number
func (s *BedService) ListBeds(ctx context.Context) ([]*entities.Bed, error) {
	return s.beds.List(ctx)
}

// ActiveAdmission returns the bed's current admission
func (s *BedService) ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error) {
	return s.beds.ActiveAdmission(ctx, bedID)
}

// Admit places the patient in an available bed
func (s *BedService) Admit(ctx context.Context, bedID, patientID string) (*entities.Admission, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.NewValidationError("patient_id is required")
	}

	ctx, span := observability.StartSpan(ctx, "BedService.Admit",
		attribute.String("bed_id", bedID),
		attribute.String("patient_id", patientID),
	)
	defer span.End()

	admission := &entities.Admission{
		ID:        uuid.New().String(),
		PatientID: patientID,
		BedID:     bedID,
		Status:    entities.AdmissionStatusAdmitted,
		AdmitDate: s.clock.now(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		bed, err := s.beds.LockByID(ctx, bedID)
		if err != nil {
			return err
		}
		if _, err := s.patients.GetByID(ctx, patientID); err != nil {
			return err
		}
		if err := s.transition(ctx, bed, entities.BedStatusOccupied); err != nil {
			return err
		}
		return s.beds.CreateAdmission(ctx, admission)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.committed(ctx, bedID, entities.BedStatusAvailable, entities.BedStatusOccupied)
	s.events.publish(ctx, entities.EventBedAdmitted, bedID, map[string]interface{}{
		"patient_id":   patientID,
		"admission_id": admission.ID,
	})
	return admission, nil
}

// Discharge closes the bed's active admission and sends the bed to cleaning
func (s *BedService) Discharge(ctx context.Context, bedID string) (*entities.Admission, error) {
	ctx, span := observability.StartSpan(ctx, "BedService.Discharge", attribute.String("bed_id", bedID))
	defer span.End()

	var admission *entities.Admission
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		bed, err := s.beds.LockByID(ctx, bedID)
		if err != nil {
			return err
		}
		if !bed.Status.CanTransitionTo(entities.BedStatusCleaning) {
			return invalidBedTransition(bed, entities.BedStatusCleaning)
		}

		admission, err = s.beds.ActiveAdmission(ctx, bedID)
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidTransitionError(fmt.Sprintf("bed %s is occupied without an active admission", bed.BedNumber))
		}
		if err != nil {
			return err
		}

		at := s.clock.now()
		if err := s.beds.CloseAdmission(ctx, admission.ID, at); err != nil {
			return err
		}
		admission.Status = entities.AdmissionStatusDischarged
		admission.DischargeDate = &at

		return s.transition(ctx, bed, entities.BedStatusCleaning)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.committed(ctx, bedID, entities.BedStatusOccupied, entities.BedStatusCleaning)
	s.events.publish(ctx, entities.EventBedDischarged, bedID, map[string]interface{}{
		"patient_id":   admission.PatientID,
		"admission_id": admission.ID,
	})
	return admission, nil
}

// MarkClean returns a cleaned bed to the available pool
func (s *BedService) MarkClean(ctx context.Context, bedID string) error {
	ctx, span := observability.StartSpan(ctx, "BedService.MarkClean", attribute.String("bed_id", bedID))
	defer span.End()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		bed, err := s.beds.LockByID(ctx, bedID)
		if err != nil {
			return err
		}
		return s.transition(ctx, bed, entities.BedStatusAvailable)
	})
	if err != nil {
		observability.RecordError(span, err)
		return err
	}

	s.committed(ctx, bedID, entities.BedStatusCleaning, entities.BedStatusAvailable)
	s.events.publish(ctx, entities.EventBedCleaned, bedID, nil)
	return nil
}

// transition applies one edge of the occupancy cycle to a locked bed
func (s *BedService) transition(ctx context.Context, bed *entities.Bed, to entities.BedStatus) error {
	if !bed.Status.CanTransitionTo(to) {
		return invalidBedTransition(bed, to)
	}
	ok, err := s.beds.UpdateStatus(ctx, bed.ID, bed.Status, to, s.clock.now())
	if err != nil {
		return err
	}
	if !ok {
		return invalidBedTransition(bed, to)
	}
	return nil
}

func (s *BedService) committed(ctx context.Context, bedID string, from, to entities.BedStatus) {
	observability.RecordBedTransition(ctx, s.metrics, string(from), string(to))
	observability.LoggerFromContext(ctx).Info().
		Str("bed_id", bedID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("bed status changed")
}

func invalidBedTransition(bed *entities.Bed, to entities.BedStatus) error {
	return apperrors.NewInvalidTransitionError(fmt.Sprintf("bed %s cannot move from %s to %s", bed.BedNumber, bed.Status, to))
}
