package entities

// Well-known role tags. The core never enforces them; they only filter lists.
const (
	RoleDoctor     = "doctor"
	RolePharmacist = "pharmacist"
	RoleReception  = "reception"
	RoleBilling    = "billing"
)

// User is the identity collaborator's view of the caller
type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Profile maps an identity-provider user id to a display name and role tag
type Profile struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Role     string `json:"role" db:"role"`
}
