package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

var (
	// ErrAlreadyResolved is returned when accepting or rejecting a request
	// that has already reached a terminal state. Terminal states are
	// monotonic; retries must surface a conflict, never re-apply effects.
	ErrAlreadyResolved = errors.New("request already resolved")
	// ErrDuplicateRequest is returned when the requester already has a
	// pending request of the same kind to the same target.
	ErrDuplicateRequest = errors.New("a pending request already exists")
	// ErrNotApprover is returned when the caller is neither the request's
	// target nor a holder of its approver role.
	ErrNotApprover      = errors.New("not authorized to resolve this request")
	ErrRequestNotFound  = errors.New("request not found")
	ErrAlreadyConnected = errors.New("relationship already exists")
)

// Kind identifies which relationship a request establishes on acceptance.
type Kind string

const (
	KindFriend           Kind = "friend"
	KindDoctorConnection Kind = "doctor_connection"
	KindDoctorPromotion  Kind = "doctor_promotion"
)

func ValidKind(k Kind) bool {
	switch k {
	case KindFriend, KindDoctorConnection, KindDoctorPromotion:
		return true
	}
	return false
}

// Status is the request lifecycle state: pending at creation, then exactly
// one transition to accepted or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Request maps to the connection_request table. Friend and doctor-connection
// requests address a specific target user; promotion requests address the
// admin role instead, so TargetID is nil and ApproverRole is set.
type Request struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	Kind         Kind              `db:"kind" json:"kind"`
	RequesterID  uuid.UUID         `db:"requester_id" json:"requester_id"`
	TargetID     *uuid.UUID        `db:"target_id" json:"target_id,omitempty"`
	ApproverRole *auth.Role        `db:"approver_role" json:"approver_role,omitempty"`
	Message      *string           `db:"message" json:"message,omitempty"`
	Payload      *PromotionPayload `db:"payload" json:"payload,omitempty"`
	Status       Status            `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy   *uuid.UUID        `db:"resolved_by" json:"resolved_by,omitempty"`
}

// PromotionPayload carries the professional credentials attached to a
// doctor-promotion request, stored as jsonb.
type PromotionPayload struct {
	CUIM            string   `json:"cuim"`
	Tier            string   `json:"tier"`
	YearsExperience int      `json:"years_experience"`
	Bio             string   `json:"bio,omitempty"`
	City            string   `json:"city,omitempty"`
	Institutions    []string `json:"institutions"`
}

var validTiers = map[string]bool{
	"resident": true, "specialist": true, "chief": true,
}

// Validate checks the minimum credential content: an identifying CUIM and at
// least one institution.
func (p *PromotionPayload) Validate() error {
	if p == nil {
		return fmt.Errorf("promotion payload is required")
	}
	if p.CUIM == "" {
		return fmt.Errorf("cuim is required")
	}
	if len(p.Institutions) == 0 {
		return fmt.Errorf("at least one institution is required")
	}
	for _, inst := range p.Institutions {
		if inst == "" {
			return fmt.Errorf("institution names must not be empty")
		}
	}
	if p.Tier == "" {
		p.Tier = "resident"
	}
	if !validTiers[p.Tier] {
		return fmt.Errorf("invalid tier: %s", p.Tier)
	}
	if p.YearsExperience < 0 {
		return fmt.Errorf("years_experience must not be negative")
	}
	return nil
}
