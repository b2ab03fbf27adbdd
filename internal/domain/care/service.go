package care

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LinkChecker answers whether a patient and doctor hold an active link.
// Implemented by the doctor service.
type LinkChecker interface {
	Linked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

type Service struct {
	treatments TreatmentRepository
	questions  QuestionRepository
	links      LinkChecker
}

func NewService(treatments TreatmentRepository, questions QuestionRepository, links LinkChecker) *Service {
	return &Service{treatments: treatments, questions: questions, links: links}
}

type PrescribeInput struct {
	PatientID    uuid.UUID `json:"patient_id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
}

// Prescribe records a treatment for one of the doctor's linked patients.
func (s *Service) Prescribe(ctx context.Context, doctorID uuid.UUID, in PrescribeInput) (*Treatment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("treatment name is required")
	}

	linked, err := s.links.Linked(ctx, in.PatientID, doctorID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrNotLinked
	}

	t := &Treatment{
		PatientID:    in.PatientID,
		DoctorID:     doctorID,
		Name:         in.Name,
		Instructions: in.Instructions,
	}
	if err := s.treatments.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SetTreatmentActive toggles a treatment. Only the prescribing doctor may do
// so, and a disconnect does not block it: stopping an old prescription must
// stay possible after the link ends.
func (s *Service) SetTreatmentActive(ctx context.Context, doctorID, treatmentID uuid.UUID, active bool) (*Treatment, error) {
	t, err := s.treatments.GetByID(ctx, treatmentID)
	if err != nil {
		return nil, err
	}
	if t.DoctorID != doctorID {
		return nil, ErrNotPrescriber
	}
	if t.Active == active {
		return t, nil
	}
	if err := s.treatments.SetActive(ctx, treatmentID, active); err != nil {
		return nil, err
	}
	t.Active = active
	return t, nil
}

func (s *Service) ListMyTreatments(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Treatment, int, error) {
	return s.treatments.ListByPatient(ctx, patientID, activeOnly, limit, offset)
}

func (s *Service) ListPrescribed(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	return s.treatments.ListByDoctor(ctx, doctorID, limit, offset)
}

// Ask creates a question addressed to one of the patient's linked doctors.
func (s *Service) Ask(ctx context.Context, patientID, doctorID uuid.UUID, body string) (*Question, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("question body is required")
	}

	linked, err := s.links.Linked(ctx, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrNotLinked
	}

	q := &Question{PatientID: patientID, DoctorID: doctorID, Body: body}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Answer records the doctor's answer. A question is answered at most once.
func (s *Service) Answer(ctx context.Context, doctorID, questionID uuid.UUID, answer string) (*Question, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("answer body is required")
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.DoctorID != doctorID {
		return nil, ErrNotAddressee
	}
	if q.Answered() {
		return nil, ErrAlreadyAnswered
	}
	if err := s.questions.SetAnswer(ctx, questionID, answer); err != nil {
		return nil, err
	}
	return s.questions.GetByID(ctx, questionID)
}

func (s *Service) ListMyQuestions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Question, int, error) {
	return s.questions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListInbox(ctx context.Context, doctorID uuid.UUID, unansweredOnly bool, limit, offset int) ([]*Question, int, error) {
	return s.questions.ListByDoctor(ctx, doctorID, unansweredOnly, limit, offset)
}
