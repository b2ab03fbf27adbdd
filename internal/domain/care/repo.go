package care

import (
	"context"

	"github.com/google/uuid"
)

type TreatmentRepository interface {
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Treatment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Treatment, int, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, q *Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*Question, error)
	SetAnswer(ctx context.Context, id uuid.UUID, answer string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Question, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, unansweredOnly bool, limit, offset int) ([]*Question, int, error)
}
