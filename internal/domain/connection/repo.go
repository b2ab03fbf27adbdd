package connection

import (
	"context"

	"github.com/google/uuid"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// GetForUpdate locks the request row for the current transaction so
	// concurrent approvers serialize on the status check.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)
	// Resolve flips a pending request to a terminal status. It reports
	// false when the request was not pending, making double-resolution
	// detectable even without a prior lock.
	Resolve(ctx context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) (bool, error)

	HasPendingToTarget(ctx context.Context, requesterID, targetID uuid.UUID, kind Kind) (bool, error)
	HasPendingByRequester(ctx context.Context, requesterID uuid.UUID, kind Kind) (bool, error)

	ListPendingForTarget(ctx context.Context, targetID uuid.UUID, kind Kind, limit, offset int) ([]*Request, int, error)
	CountPendingForTarget(ctx context.Context, targetID uuid.UUID, kind Kind) (int, error)
	ListPendingForRole(ctx context.Context, role auth.Role, kind Kind, limit, offset int) ([]*Request, int, error)
	CountPendingForRole(ctx context.Context, role auth.Role, kind Kind) (int, error)

	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Request, int, error)
}
