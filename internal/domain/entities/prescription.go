package entities

import (
	"strings"
	"time"
)

// Prescription is the doctor's record for a completed visit
type Prescription struct {
	ID        string             `json:"id" db:"id"`
	VisitID   string             `json:"visit_id" db:"appointment_id"`
	PatientID string             `json:"patient_id" db:"patient_id"`
	DoctorID  string             `json:"doctor_id" db:"doctor_id"`
	Diagnosis string             `json:"diagnosis" db:"diagnosis"`
	Notes     string             `json:"notes" db:"notes"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	Lines     []PrescriptionLine `json:"lines"`
}

// PrescriptionLine is one free-text medicine entry; the name is resolved
// against the catalog only at dispense time.
type PrescriptionLine struct {
	ID             string `json:"id" db:"id"`
	PrescriptionID string `json:"prescription_id" db:"prescription_id"`
	Position       int    `json:"position" db:"position"`
	MedicineName   string `json:"medicine_name" db:"medicine_name"`
	Dosage         string `json:"dosage" db:"dosage"`
	Duration       string `json:"duration" db:"duration"`
}

// IsBlank reports whether the line is an untouched form row
func (l PrescriptionLine) IsBlank() bool {
	return strings.TrimSpace(l.MedicineName) == "" &&
		strings.TrimSpace(l.Dosage) == "" &&
		strings.TrimSpace(l.Duration) == ""
}
