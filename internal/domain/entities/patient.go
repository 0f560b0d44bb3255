package entities

import "time"

// Patient represents a registered patient. Mobile is soft-unique: lookups take
// the oldest match.
type Patient struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Age       int       `json:"age" db:"age"`
	Gender    string    `json:"gender" db:"gender"`
	Mobile    string    `json:"mobile" db:"mobile"`
	Symptoms  string    `json:"symptoms" db:"symptoms"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
