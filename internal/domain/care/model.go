package care

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTreatmentNotFound = errors.New("treatment not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrNotLinked         = errors.New("no active patient-doctor link")
	ErrNotPrescriber     = errors.New("only the prescribing doctor may change this treatment")
	ErrNotAddressee      = errors.New("only the addressed doctor may answer this question")
	ErrAlreadyAnswered   = errors.New("question already answered")
)

// Treatment is a doctor-prescribed regimen entry for a linked patient.
// Treatments are deactivated rather than deleted so the care history stays
// complete.
type Treatment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Name         string    `db:"name" json:"name"`
	Instructions string    `db:"instructions" json:"instructions"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Question is a patient question addressed to one of their linked doctors.
type Question struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Body       string     `db:"body" json:"body"`
	Answer     *string    `db:"answer" json:"answer,omitempty"`
	AnsweredAt *time.Time `db:"answered_at" json:"answered_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func (q *Question) Answered() bool {
	return q.Answer != nil
}
