package repositories

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// DispenseRepository defines the interface for dispense record operations
type DispenseRepository interface {
	// Create appends a dispense record
	Create(ctx context.Context, record *entities.DispenseRecord) error

	// DispensedLineIDs returns the prescription lines that already have a record
	DispensedLineIDs(ctx context.Context, prescriptionID string) (map[string]bool, error)

	// ListPending returns the patient's unbilled records. With lock set the rows
	// stay locked until the surrounding transaction ends.
	ListPending(ctx context.Context, patientID string, lock bool) ([]*entities.PendingDispense, error)

	// ListPendingPatients summarises unbilled records per patient
	ListPendingPatients(ctx context.Context) ([]*entities.PatientBalance, error)

	// MarkBilled stamps billID on the still-unbilled records among ids and
	// returns how many were stamped.
	MarkBilled(ctx context.Context, billID string, ids []string) (int, error)
}
