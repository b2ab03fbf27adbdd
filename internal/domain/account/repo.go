package account

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

// FriendRepository manages the symmetric account_friend rows. Add and Remove
// always touch both directions so friendship stays bidirectional.
type FriendRepository interface {
	Add(ctx context.Context, userID, friendID uuid.UUID) error
	Remove(ctx context.Context, userID, friendID uuid.UUID) error
	Exists(ctx context.Context, userID, friendID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*User, int, error)
}
