package entities

import "time"

// BedStatus is the occupancy state of a bed
type BedStatus string

const (
	BedStatusAvailable BedStatus = "available"
	BedStatusOccupied  BedStatus = "occupied"
	BedStatusCleaning  BedStatus = "cleaning"
)

// bedTransitions lists every permitted edge; beds cycle with no terminal state.
var bedTransitions = map[BedStatus]BedStatus{
	BedStatusAvailable: BedStatusOccupied,
	BedStatusOccupied:  BedStatusCleaning,
	BedStatusCleaning:  BedStatusAvailable,
}

// CanTransitionTo reports whether s -> next is a permitted edge
func (s BedStatus) CanTransitionTo(next BedStatus) bool {
	to, ok := bedTransitions[s]
	return ok && to == next
}

// Bed is an inpatient bed
type Bed struct {
	ID        string    `json:"id" db:"id"`
	BedNumber string    `json:"bed_number" db:"bed_number"`
	Ward      string    `json:"ward" db:"ward"`
	Status    BedStatus `json:"status" db:"status"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AdmissionStatus is the state of an admission
type AdmissionStatus string

const (
	AdmissionStatusAdmitted   AdmissionStatus = "admitted"
	AdmissionStatusDischarged AdmissionStatus = "discharged"
)

// Admission ties a patient to a bed. At most one admitted row exists per bed.
type Admission struct {
	ID            string          `json:"id" db:"id"`
	PatientID     string          `json:"patient_id" db:"patient_id"`
	BedID         string          `json:"bed_id" db:"bed_id"`
	Status        AdmissionStatus `json:"status" db:"status"`
	AdmitDate     time.Time       `json:"admit_date" db:"admit_date"`
	DischargeDate *time.Time      `json:"discharge_date,omitempty" db:"discharge_date"`
}
