package connection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dermahub/dermahub/internal/platform/auth"
	"github.com/dermahub/dermahub/internal/platform/db"
)

// TxRunner wraps a function in an atomic unit. Accept applies the status
// flip and all relationship side effects through one runner call so a
// failure anywhere rolls the whole acceptance back.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PgxTxRunner runs the function inside a pgx transaction.
func PgxTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.InTx(ctx, pool, fn)
	}
}

// FriendLinker records the symmetric friendship created by an accepted
// friend request.
type FriendLinker interface {
	Add(ctx context.Context, userID, friendID uuid.UUID) error
	Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error)
}

// PatientDoctorLinker records the patient-doctor link created by an accepted
// doctor-connection request.
type PatientDoctorLinker interface {
	Link(ctx context.Context, patientID, doctorID uuid.UUID) error
	Linked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

// PromotionApplier applies the doctor-promotion side effects: credential
// profile, institution back-references and the role grant.
type PromotionApplier interface {
	ApplyPromotion(ctx context.Context, userID uuid.UUID, payload PromotionPayload) error
}

// AccountDirectory answers existence and role questions about accounts.
type AccountDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	HasRole(ctx context.Context, id uuid.UUID, role auth.Role) (bool, error)
}

// Service drives the relationship-request state machine for all three kinds.
type Service struct {
	requests RequestRepository
	friends  FriendLinker
	links    PatientDoctorLinker
	promoter PromotionApplier
	accounts AccountDirectory
	inTx     TxRunner
}

func NewService(
	requests RequestRepository,
	friends FriendLinker,
	links PatientDoctorLinker,
	promoter PromotionApplier,
	accounts AccountDirectory,
	inTx TxRunner,
) *Service {
	return &Service{
		requests: requests,
		friends:  friends,
		links:    links,
		promoter: promoter,
		accounts: accounts,
		inTx:     inTx,
	}
}

type CreateInput struct {
	Kind     Kind              `json:"kind"`
	TargetID *uuid.UUID        `json:"target_id,omitempty"`
	Message  *string           `json:"message,omitempty"`
	Payload  *PromotionPayload `json:"payload,omitempty"`
}

// Create opens a new pending request. No relationship side effects happen
// here; those are deferred until acceptance.
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*Request, error) {
	if !ValidKind(in.Kind) {
		return nil, fmt.Errorf("unknown request kind: %s", in.Kind)
	}

	req := &Request{
		Kind:        in.Kind,
		RequesterID: requesterID,
		Message:     in.Message,
	}

	switch in.Kind {
	case KindFriend, KindDoctorConnection:
		if in.TargetID == nil {
			return nil, fmt.Errorf("target_id is required for %s requests", in.Kind)
		}
		if *in.TargetID == requesterID {
			return nil, fmt.Errorf("cannot send a request to yourself")
		}
		if ok, err := s.accounts.Exists(ctx, *in.TargetID); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("target account not found")
		}
		if in.Kind == KindDoctorConnection {
			if ok, err := s.accounts.HasRole(ctx, *in.TargetID, auth.RoleDoctor); err != nil {
				return nil, err
			} else if !ok {
				return nil, fmt.Errorf("target is not a doctor")
			}
			if linked, err := s.links.Linked(ctx, requesterID, *in.TargetID); err != nil {
				return nil, err
			} else if linked {
				return nil, ErrAlreadyConnected
			}
		} else {
			if already, err := s.friends.Exists(ctx, requesterID, *in.TargetID); err != nil {
				return nil, err
			} else if already {
				return nil, ErrAlreadyConnected
			}
		}
		if dup, err := s.requests.HasPendingToTarget(ctx, requesterID, *in.TargetID, in.Kind); err != nil {
			return nil, err
		} else if dup {
			return nil, ErrDuplicateRequest
		}
		req.TargetID = in.TargetID

	case KindDoctorPromotion:
		if err := in.Payload.Validate(); err != nil {
			return nil, err
		}
		if ok, err := s.accounts.HasRole(ctx, requesterID, auth.RoleDoctor); err != nil {
			return nil, err
		} else if ok {
			return nil, fmt.Errorf("requester already holds the doctor role")
		}
		if dup, err := s.requests.HasPendingByRequester(ctx, requesterID, in.Kind); err != nil {
			return nil, err
		} else if dup {
			return nil, ErrDuplicateRequest
		}
		role := auth.RoleAdmin
		req.ApproverRole = &role
		req.Payload = in.Payload
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// canResolve checks that the session is the designated target or holds the
// approver role.
func canResolve(req *Request, session *auth.Session) bool {
	if req.TargetID != nil {
		return *req.TargetID == session.UserID
	}
	if req.ApproverRole != nil {
		return session.ActiveRole == *req.ApproverRole
	}
	return false
}

// Accept flips a pending request to accepted and applies its relationship
// side effects in the same transaction. A request that is no longer pending
// yields ErrAlreadyResolved and applies nothing.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, session *auth.Session) (*Request, error) {
	var accepted *Request
	err := s.inTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyResolved
		}
		if !canResolve(req, session) {
			return ErrNotApprover
		}

		switch req.Kind {
		case KindFriend:
			if err := s.friends.Add(ctx, req.RequesterID, *req.TargetID); err != nil {
				return fmt.Errorf("record friendship: %w", err)
			}
		case KindDoctorConnection:
			if err := s.links.Link(ctx, req.RequesterID, *req.TargetID); err != nil {
				return fmt.Errorf("link patient and doctor: %w", err)
			}
		case KindDoctorPromotion:
			if err := s.promoter.ApplyPromotion(ctx, req.RequesterID, *req.Payload); err != nil {
				return fmt.Errorf("apply promotion: %w", err)
			}
		}

		ok, err := s.requests.Resolve(ctx, id, StatusAccepted, session.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		req.Status = StatusAccepted
		req.ResolvedBy = &session.UserID
		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Reject flips a pending request to rejected. No relationship changes occur.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, session *auth.Session) (*Request, error) {
	var rejected *Request
	err := s.inTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyResolved
		}
		if !canResolve(req, session) {
			return ErrNotApprover
		}

		ok, err := s.requests.Resolve(ctx, id, StatusRejected, session.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		req.Status = StatusRejected
		req.ResolvedBy = &session.UserID
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// ListPending returns the pending requests the session may resolve, newest
// first. Promotion requests are addressed to the admin role, so admins see
// the role-addressed queue instead of a personal one.
func (s *Service) ListPending(ctx context.Context, session *auth.Session, kind Kind, limit, offset int) ([]*Request, int, error) {
	if !ValidKind(kind) {
		return nil, 0, fmt.Errorf("unknown request kind: %s", kind)
	}
	if kind == KindDoctorPromotion {
		if session.ActiveRole != auth.RoleAdmin {
			return nil, 0, ErrNotApprover
		}
		return s.requests.ListPendingForRole(ctx, auth.RoleAdmin, kind, limit, offset)
	}
	return s.requests.ListPendingForTarget(ctx, session.UserID, kind, limit, offset)
}

// CountPending uses the same predicate as ListPending so badge counts always
// match the list.
func (s *Service) CountPending(ctx context.Context, session *auth.Session, kind Kind) (int, error) {
	if !ValidKind(kind) {
		return 0, fmt.Errorf("unknown request kind: %s", kind)
	}
	if kind == KindDoctorPromotion {
		if session.ActiveRole != auth.RoleAdmin {
			return 0, ErrNotApprover
		}
		return s.requests.CountPendingForRole(ctx, auth.RoleAdmin, kind)
	}
	return s.requests.CountPendingForTarget(ctx, session.UserID, kind)
}

// ListSent returns the requester's own request history, resolved entries
// included.
func (s *Service) ListSent(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return s.requests.ListByRequester(ctx, requesterID, limit, offset)
}
