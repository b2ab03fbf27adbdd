package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dermahub/dermahub/internal/domain/connection"
	"github.com/dermahub/dermahub/internal/platform/auth"
)

// RoleGranter elevates an account's role set. Implemented by the account
// service.
type RoleGranter interface {
	GrantRole(ctx context.Context, id uuid.UUID, role auth.Role) error
}

type Service struct {
	profiles     ProfileRepository
	institutions InstitutionRepository
	links        LinkRepository
	roles        RoleGranter
}

func NewService(profiles ProfileRepository, institutions InstitutionRepository, links LinkRepository, roles RoleGranter) *Service {
	return &Service{profiles: profiles, institutions: institutions, links: links, roles: roles}
}

// ApplyPromotion persists the credential profile, registers each named
// institution with a back-reference to the doctor, and grants the doctor
// role. The caller supplies the transaction; any failed step aborts the
// whole promotion and the error names the step that failed.
func (s *Service) ApplyPromotion(ctx context.Context, userID uuid.UUID, payload connection.PromotionPayload) error {
	profile := &Profile{
		UserID:          userID,
		CUIM:            payload.CUIM,
		Tier:            payload.Tier,
		YearsExperience: payload.YearsExperience,
	}
	if payload.Bio != "" {
		profile.Bio = &payload.Bio
	}
	if payload.City != "" {
		profile.City = &payload.City
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("save doctor profile: %w", err)
	}

	for _, name := range payload.Institutions {
		inst, err := s.institutions.UpsertByName(ctx, name)
		if err != nil {
			return fmt.Errorf("register institution %q: %w", name, err)
		}
		if err := s.institutions.AddDoctor(ctx, inst.ID, userID); err != nil {
			return fmt.Errorf("affiliate doctor with %q: %w", name, err)
		}
	}

	if err := s.roles.GrantRole(ctx, userID, auth.RoleDoctor); err != nil {
		return fmt.Errorf("grant doctor role: %w", err)
	}
	return nil
}

// Link activates the patient-doctor relationship. Used by the connection
// workflow on acceptance.
func (s *Service) Link(ctx context.Context, patientID, doctorID uuid.UUID) error {
	return s.links.Link(ctx, patientID, doctorID)
}

func (s *Service) Linked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return s.links.Linked(ctx, patientID, doctorID)
}

// Disconnect deactivates the patient-doctor link. The original connection
// request stays resolved; disconnecting never reopens it.
func (s *Service) Disconnect(ctx context.Context, patientID, doctorID uuid.UUID) error {
	ok, err := s.links.Deactivate(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLinked
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.profiles.GetByUser(ctx, userID)
}

func (s *Service) ListDoctors(ctx context.Context, city string, limit, offset int) ([]*Listing, int, error) {
	return s.profiles.List(ctx, city, limit, offset)
}

func (s *Service) ListInstitutions(ctx context.Context, limit, offset int) ([]*Institution, int, error) {
	return s.institutions.List(ctx, limit, offset)
}

func (s *Service) ListInstitutionDoctors(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	return s.institutions.ListDoctors(ctx, institutionID, limit, offset)
}

func (s *Service) ListMyDoctors(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	return s.links.ListDoctorsForPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListMyPatients(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*PatientListing, int, error) {
	return s.links.ListPatientsForDoctor(ctx, doctorID, limit, offset)
}
