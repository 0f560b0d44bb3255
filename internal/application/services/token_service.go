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
	"github.com/zatekoja/clinicflow/pkg/phone"
	"github.com/zatekoja/clinicflow/pkg/retry"
)

const maxPatientAge = 150

// TokenConfig holds the token sequencing settings
type TokenConfig struct {
	DefaultRegion string
	MaxAttempts   int
}

// RegistrationRequest is a reception desk registration
type RegistrationRequest struct {
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Gender    string  `json:"gender"`
	Mobile    string  `json:"mobile"`
	Symptoms  string  `json:"symptoms"`
	DoctorID  *string `json:"doctor_id,omitempty"`
	VisitDate string  `json:"visit_date,omitempty"`
}

// RegistrationResult is the outcome of a registration
type RegistrationResult struct {
	Visit      *entities.Visit   `json:"visit"`
	Patient    *entities.Patient `json:"patient"`
	NewPatient bool              `json:"new_patient"`
}

// TokenService issues per-doctor daily queue tokens and registers visits
type TokenService struct {
	tx       repositories.TxManager
	patients repositories.PatientRepository
	visits   repositories.VisitRepository
	events   notifier
	clock    Clock
	cfg      TokenConfig
	metrics  *observability.Metrics
}

// NewTokenService creates a new token service
func NewTokenService(
	tx repositories.TxManager,
	patients repositories.PatientRepository,
	visits repositories.VisitRepository,
	bus providers.EventBus,
	clock Clock,
	cfg TokenConfig,
	metrics *observability.Metrics,
) *TokenService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.DefaultRegion == "" {
		cfg.DefaultRegion = "IN"
	}
	return &TokenService{
		tx:       tx,
		patients: patients,
		visits:   visits,
		events:   notifier{bus: bus},
		clock:    clock,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// AssignToken reserves the next token for the doctor's day. A nil doctor
// draws from the shared unassigned sequence; a blank date means today.
func (s *TokenService) AssignToken(ctx context.Context, doctorID *string, visitDate string) (int, error) {
	day, err := s.clock.ResolveDate(visitDate)
	if err != nil {
		return 0, err
	}
	doctorKey := entities.DoctorKey(doctorID)

	ctx, span := observability.StartSpan(ctx, "TokenService.AssignToken",
		attribute.String("doctor_key", doctorKey),
		attribute.String("visit_date", day),
	)
	defer span.End()

	token, retries, err := s.reserve(ctx, func(ctx context.Context) (int, error) {
		return s.visits.ReserveToken(ctx, doctorKey, day)
	})
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	observability.RecordTokenIssued(ctx, s.metrics, retries)
	return token, nil
}

// reserve runs fn with bounded backoff while it reports contention
func (s *TokenService) reserve(ctx context.Context, fn func(ctx context.Context) (int, error)) (int, int, error) {
	var token int
	attempts := 0
	err := retry.DoIf(ctx, retry.ContentionConfig(s.cfg.MaxAttempts), apperrors.IsConflict, func() error {
		attempts++
		var err error
		token, err = fn(ctx)
		return err
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Int("attempts", attempts).Msg("token reservation gave up under contention")
		}
		return 0, attempts - 1, err
	}
	return token, attempts - 1, nil
}

// RegisterVisit finds or creates the patient by mobile number and queues a
// new visit with a fresh token, all in one transaction.
func (s *TokenService) RegisterVisit(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	mobile, err := phone.Normalize(req.Mobile, s.cfg.DefaultRegion)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if req.Age < 0 || req.Age > maxPatientAge {
		return nil, apperrors.NewValidationError(fmt.Sprintf("age must be between 0 and %d", maxPatientAge))
	}
	day, err := s.clock.ResolveDate(req.VisitDate)
	if err != nil {
		return nil, err
	}
	doctorKey := entities.DoctorKey(req.DoctorID)

	ctx, span := observability.StartSpan(ctx, "TokenService.RegisterVisit",
		attribute.String("doctor_key", doctorKey),
		attribute.String("visit_date", day),
	)
	defer span.End()

	var result *RegistrationResult
	_, retries, err := s.reserve(ctx, func(ctx context.Context) (int, error) {
		result = nil
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			patient, isNew, err := s.upsertPatient(ctx, req, mobile)
			if err != nil {
				return err
			}

			token, err := s.visits.ReserveToken(ctx, doctorKey, day)
			if err != nil {
				return err
			}

			visit := &entities.Visit{
				ID:          uuid.New().String(),
				PatientID:   patient.ID,
				DoctorID:    req.DoctorID,
				VisitDate:   day,
				TokenNumber: token,
				Status:      entities.VisitStatusWaiting,
				CreatedAt:   s.clock.now(),
			}
			if err := s.visits.Create(ctx, visit); err != nil {
				return err
			}

			result = &RegistrationResult{Visit: visit, Patient: patient, NewPatient: isNew}
			return nil
		})
		if err != nil {
			return 0, err
		}
		return result.Visit.TokenNumber, nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.RecordTokenIssued(ctx, s.metrics, retries)
	observability.LoggerFromContext(ctx).Info().
		Str("visit_id", result.Visit.ID).
		Str("patient_id", result.Patient.ID).
		Str("doctor_key", doctorKey).
		Int("token", result.Visit.TokenNumber).
		Msg("visit registered")

	s.events.publish(ctx, entities.EventVisitRegistered, result.Visit.ID, map[string]interface{}{
		"patient_id":   result.Patient.ID,
		"doctor_id":    doctorKey,
		"visit_date":   day,
		"token_number": result.Visit.TokenNumber,
	})

	return result, nil
}

func (s *TokenService) upsertPatient(ctx context.Context, req RegistrationRequest, mobile string) (*entities.Patient, bool, error) {
	existing, err := s.patients.FindByMobile(ctx, mobile)
	if err == nil {
		if err := s.patients.UpdateVisitDetails(ctx, existing.ID, req.Age, req.Symptoms); err != nil {
			return nil, false, err
		}
		existing.Age = req.Age
		existing.Symptoms = req.Symptoms
		return existing, false, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, false, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, false, apperrors.NewValidationError("name is required for a new patient")
	}

	now := s.clock.now()
	patient := &entities.Patient{
		ID:        uuid.New().String(),
		Name:      name,
		Age:       req.Age,
		Gender:    strings.TrimSpace(req.Gender),
		Mobile:    mobile,
		Symptoms:  req.Symptoms,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, false, err
	}
	return patient, true, nil
}

// FindPatientByMobile looks a patient up by any spelling of their mobile number
func (s *TokenService) FindPatientByMobile(ctx context.Context, mobile string) (*entities.Patient, error) {
	normalized, err := phone.Normalize(mobile, s.cfg.DefaultRegion)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.patients.FindByMobile(ctx, normalized)
}

// ListQueue lists the waiting visits for a day ordered by token
func (s *TokenService) ListQueue(ctx context.Context, doctorID *string, visitDate string) ([]*entities.QueueEntry, error) {
	day, err := s.clock.ResolveDate(visitDate)
	if err != nil {
		return nil, err
	}
	return s.visits.ListWaiting(ctx, repositories.QueueFilter{DoctorID: doctorID, VisitDate: day})
}
