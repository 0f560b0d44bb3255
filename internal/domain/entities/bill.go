package entities

import (
	"fmt"
	"time"
)

// BillStatus is the status of a bill
type BillStatus string

const BillStatusPaid BillStatus = "paid"

// BillLineType classifies a bill line
type BillLineType string

const (
	BillLineMedicine     BillLineType = "medicine"
	BillLineConsultation BillLineType = "consultation"
)

// PaymentMode is how a bill was settled
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
	PaymentModeUPI  PaymentMode = "upi"
	PaymentModeCard PaymentMode = "card"
)

// Valid reports whether the mode is one of the accepted modes
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard:
		return true
	}
	return false
}

// Bill is immutable once created; Total equals the sum of its lines
type Bill struct {
	ID        string     `json:"id" db:"id"`
	PatientID string     `json:"patient_id" db:"patient_id"`
	Total     Money      `json:"total_amount" db:"total_amount"`
	Status    BillStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Lines     []BillLine `json:"lines,omitempty"`
	Payment   *Payment   `json:"payment,omitempty"`
}

// BillLine is one charge on a bill
type BillLine struct {
	ID         string       `json:"id" db:"id"`
	BillID     string       `json:"bill_id" db:"bill_id"`
	Name       string       `json:"name" db:"item_name"`
	Type       BillLineType `json:"type" db:"item_type"`
	Quantity   int          `json:"quantity" db:"quantity"`
	UnitPrice  Money        `json:"unit_price" db:"unit_price"`
	DispenseID *string      `json:"dispense_id,omitempty" db:"dispense_id"`
}

// Amount returns quantity times unit price
func (l BillLine) Amount() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Payment settles a bill in full
type Payment struct {
	ID     string      `json:"id" db:"id"`
	BillID string      `json:"bill_id" db:"bill_id"`
	Amount Money       `json:"amount" db:"amount"`
	Mode   PaymentMode `json:"payment_mode" db:"payment_mode"`
	PaidAt time.Time   `json:"paid_at" db:"paid_at"`
}

// SumLines totals bill lines. It fails with ErrMoneyOverflow rather than
// returning a wrapped total.
func SumLines(lines []BillLine) (Money, error) {
	var total Money
	for i, l := range lines {
		amount, ok := l.UnitPrice.CheckedTimes(l.Quantity)
		if !ok {
			return 0, fmt.Errorf("line %d: %w", i+1, ErrMoneyOverflow)
		}
		if total, ok = total.CheckedAdd(amount); !ok {
			return 0, fmt.Errorf("line %d: %w", i+1, ErrMoneyOverflow)
		}
	}
	return total, nil
}

// PatientBalance summarises a patient's unbilled dispensed items
type PatientBalance struct {
	PatientID   string `json:"patient_id" db:"patient_id"`
	PatientName string `json:"patient_name" db:"patient_name"`
	Mobile      string `json:"mobile" db:"mobile"`
	ItemCount   int    `json:"item_count" db:"item_count"`
	Subtotal    Money  `json:"subtotal" db:"subtotal"`
}
