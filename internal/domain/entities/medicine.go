package entities

import "time"

// Default catalog attributes for medicines created while stocking
const (
	DefaultMedicineStrength = "500mg"
	DefaultMedicineUnit     = "tab"
)

// Medicine is a catalog entry, unique by case-insensitive name
type Medicine struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Strength string `json:"strength" db:"strength"`
	Unit     string `json:"unit" db:"unit"`
}

// InventoryBatch is a stocked quantity of one medicine sharing expiry and price.
// Quantity only decreases through dispensing and never drops below zero.
type InventoryBatch struct {
	ID           string    `json:"id" db:"id"`
	MedicineID   string    `json:"medicine_id" db:"medicine_id"`
	MedicineName string    `json:"medicine_name,omitempty" db:"medicine_name"`
	BatchNo      string    `json:"batch_no" db:"batch_no"`
	Expiry       time.Time `json:"expiry" db:"expiry"`
	Quantity     int       `json:"quantity" db:"quantity"`
	UnitPrice    Money     `json:"unit_price" db:"mrp"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ExpiresBefore orders batches for FIFO-by-expiry allocation; ties fall back
// to insertion order.
func (b *InventoryBatch) ExpiresBefore(other *InventoryBatch) bool {
	if !b.Expiry.Equal(other.Expiry) {
		return b.Expiry.Before(other.Expiry)
	}
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.Before(other.CreatedAt)
	}
	return b.ID < other.ID
}
