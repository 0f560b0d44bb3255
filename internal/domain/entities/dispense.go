package entities

import "time"

// DispenseStatus is the status of a dispense record
type DispenseStatus string

const DispenseStatusDispensed DispenseStatus = "dispensed"

// DispensedQuantity is the fixed number of units drawn per prescription line
const DispensedQuantity = 1

// DispenseRecord is the append-only audit of what left which batch.
// BillID doubles as the billed flag: nil until the record is billed once.
type DispenseRecord struct {
	ID             string         `json:"id" db:"id"`
	PrescriptionID string         `json:"prescription_id" db:"prescription_id"`
	LineID         string         `json:"line_id" db:"line_id"`
	MedicineID     string         `json:"medicine_id" db:"medicine_id"`
	BatchID        string         `json:"batch_id" db:"batch_id"`
	Quantity       int            `json:"quantity" db:"quantity"`
	UnitPrice      Money          `json:"unit_price" db:"unit_price"`
	Status         DispenseStatus `json:"status" db:"status"`
	BillID         *string        `json:"bill_id,omitempty" db:"bill_id"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// DispenseOutcomeKind classifies what happened to one prescription line
type DispenseOutcomeKind string

const (
	OutcomeDispensed        DispenseOutcomeKind = "dispensed"
	OutcomeMedicineUnknown  DispenseOutcomeKind = "medicine_unknown"
	OutcomeOutOfStock       DispenseOutcomeKind = "out_of_stock"
	OutcomeAlreadyDispensed DispenseOutcomeKind = "already_dispensed"
)

// DispenseOutcome is the per-line result of a dispense call
type DispenseOutcome struct {
	LineID       string              `json:"line_id"`
	MedicineName string              `json:"medicine_name"`
	Kind         DispenseOutcomeKind `json:"kind"`
	BatchID      string              `json:"batch_id,omitempty"`
	Quantity     int                 `json:"quantity,omitempty"`
	DispenseID   string              `json:"dispense_id,omitempty"`
}

// PendingDispense is an unbilled dispense record priced for billing
type PendingDispense struct {
	DispenseID   string `json:"dispense_id" db:"dispense_id"`
	PatientID    string `json:"patient_id" db:"patient_id"`
	MedicineName string `json:"medicine_name" db:"medicine_name"`
	Quantity     int    `json:"quantity" db:"quantity"`
	UnitPrice    Money  `json:"unit_price" db:"unit_price"`
}

// Amount returns quantity times frozen unit price
func (p PendingDispense) Amount() Money {
	return p.UnitPrice.Times(p.Quantity)
}
