package doctor

import (
	"context"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	// Upsert inserts the profile or refreshes the credential fields when the
	// doctor already has one (repeat promotion approvals merge, not duplicate).
	Upsert(ctx context.Context, p *Profile) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	List(ctx context.Context, city string, limit, offset int) ([]*Listing, int, error)
}

type InstitutionRepository interface {
	// UpsertByName creates the institution if needed and returns it either way.
	UpsertByName(ctx context.Context, name string) (*Institution, error)
	// AddDoctor records the institution's back-reference to the doctor.
	AddDoctor(ctx context.Context, institutionID, doctorID uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Institution, int, error)
	ListDoctors(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Listing, int, error)
}

// LinkRepository manages patient_doctor rows. Links deactivate rather than
// delete so care history survives a disconnect.
type LinkRepository interface {
	Link(ctx context.Context, patientID, doctorID uuid.UUID) error
	Deactivate(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	Linked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	ListDoctorsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Listing, int, error)
	ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*PatientListing, int, error)
}
