package entities

import (
	"time"
)

// VisitStatus represents the queue state of a visit
type VisitStatus string

const (
	VisitStatusWaiting   VisitStatus = "waiting"
	VisitStatusCompleted VisitStatus = "completed"
)

// VisitDateLayout is the calendar-day format used to partition tokens
const VisitDateLayout = "2006-01-02"

// Visit is one registration event (stored in the appointments table).
// The token number is unique within (DoctorKey, VisitDate).
type Visit struct {
	ID          string      `json:"id" db:"id"`
	PatientID   string      `json:"patient_id" db:"patient_id"`
	DoctorID    *string     `json:"doctor_id,omitempty" db:"doctor_id"`
	VisitDate   string      `json:"visit_date" db:"visit_date"`
	TokenNumber int         `json:"token_number" db:"token_number"`
	Status      VisitStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// DoctorKey maps an optional doctor id onto its token partition key.
// Visits without a doctor share the "" partition.
func DoctorKey(doctorID *string) string {
	if doctorID == nil {
		return ""
	}
	return *doctorID
}

// QueueEntry is a waiting visit joined with the patient details the doctor sees
type QueueEntry struct {
	Visit   Visit   `json:"visit"`
	Patient Patient `json:"patient"`
}
