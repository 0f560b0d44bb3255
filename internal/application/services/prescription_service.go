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

const defaultHistoryLimit = 5

// PrescriptionRequest is a doctor's consultation outcome
type PrescriptionRequest struct {
	VisitID   string                `json:"visit_id"`
	DoctorID  string                `json:"doctor_id"`
	Diagnosis string                `json:"diagnosis"`
	Notes     string                `json:"notes"`
	Lines     []PrescriptionLineReq `json:"lines"`
}

// PrescriptionLineReq is one medicine row of the prescription form
type PrescriptionLineReq struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
}

// PrescriptionService records prescriptions and closes visits
type PrescriptionService struct {
	tx            repositories.TxManager
	visits        repositories.VisitRepository
	prescriptions repositories.PrescriptionRepository
	events        notifier
	clock         Clock
}

// NewPrescriptionService creates a new prescription service
func NewPrescriptionService(
	tx repositories.TxManager,
	visits repositories.VisitRepository,
	prescriptions repositories.PrescriptionRepository,
	bus providers.EventBus,
	clock Clock,
) *PrescriptionService {
	return &PrescriptionService{
		tx:            tx,
		visits:        visits,
		prescriptions: prescriptions,
		events:        notifier{bus: bus},
		clock:         clock,
	}
}

// RecordPrescription completes the waiting visit and stores the prescription
// with its lines atomically. It returns the new prescription id.
func (s *PrescriptionService) RecordPrescription(ctx context.Context, req PrescriptionRequest) (string, error) {
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if diagnosis == "" {
		return "", apperrors.NewValidationError("diagnosis is required")
	}
	if strings.TrimSpace(req.VisitID) == "" {
		return "", apperrors.NewValidationError("visit_id is required")
	}

	lines, err := buildPrescriptionLines(req.Lines)
	if err != nil {
		return "", err
	}

	ctx, span := observability.StartSpan(ctx, "PrescriptionService.RecordPrescription",
		attribute.String("visit_id", req.VisitID),
		attribute.Int("lines", len(lines)),
	)
	defer span.End()

	prescription := &entities.Prescription{
		ID:        uuid.New().String(),
		VisitID:   req.VisitID,
		DoctorID:  strings.TrimSpace(req.DoctorID),
		Diagnosis: diagnosis,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: s.clock.now(),
		Lines:     lines,
	}
	for i := range prescription.Lines {
		prescription.Lines[i].PrescriptionID = prescription.ID
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		visit, err := s.visits.Complete(ctx, req.VisitID)
		if err != nil {
			return err
		}
		prescription.PatientID = visit.PatientID
		if prescription.DoctorID == "" {
			prescription.DoctorID = entities.DoctorKey(visit.DoctorID)
		}
		return s.prescriptions.Create(ctx, prescription)
	})
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("prescription_id", prescription.ID).
		Str("visit_id", req.VisitID).
		Int("lines", len(lines)).
		Msg("prescription recorded")

	s.events.publish(ctx, entities.EventPrescriptionRecorded, prescription.ID, map[string]interface{}{
		"visit_id":   req.VisitID,
		"patient_id": prescription.PatientID,
		"doctor_id":  prescription.DoctorID,
		"line_count": len(lines),
	})

	return prescription.ID, nil
}

// buildPrescriptionLines drops untouched form rows and rejects rows that carry
// dosage or duration without a medicine name.
func buildPrescriptionLines(reqs []PrescriptionLineReq) ([]entities.PrescriptionLine, error) {
	lines := make([]entities.PrescriptionLine, 0, len(reqs))
	for i, r := range reqs {
		line := entities.PrescriptionLine{
			MedicineName: strings.TrimSpace(r.MedicineName),
			Dosage:       strings.TrimSpace(r.Dosage),
			Duration:     strings.TrimSpace(r.Duration),
		}
		if line.IsBlank() {
			continue
		}
		if line.MedicineName == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("line %d: medicine name is required", i+1))
		}
		line.ID = uuid.New().String()
		line.Position = len(lines)
		lines = append(lines, line)
	}
	return lines, nil
}

// PatientHistory returns the patient's most recent prescriptions, newest first
func (s *PrescriptionService) PatientHistory(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.prescriptions.ListByPatient(ctx, patientID, limit)
}

// GetPrescription retrieves a prescription with its lines
func (s *PrescriptionService) GetPrescription(ctx context.Context, id string) (*entities.Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}
