package doctor

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound     = errors.New("doctor profile not found")
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrNotLinked           = errors.New("no active patient-doctor link")
)

// Profile maps to the doctor_profile table. One row per promoted doctor,
// keyed by the account id.
type Profile struct {
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	CUIM            string    `db:"cuim" json:"cuim"`
	Tier            string    `db:"tier" json:"tier"`
	YearsExperience int       `db:"years_experience" json:"years_experience"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	City            *string   `db:"city" json:"city,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Institution maps to the institution table. Rows are created on demand when
// a promotion names a new institution.
type Institution struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Listing is a doctor profile joined with the account's display name.
type Listing struct {
	Profile
	DisplayName string `json:"display_name"`
}

// PatientListing is one row of a doctor's active patient roster.
type PatientListing struct {
	PatientID   uuid.UUID `json:"patient_id"`
	DisplayName string    `json:"display_name"`
	LinkedAt    time.Time `json:"linked_at"`
}
