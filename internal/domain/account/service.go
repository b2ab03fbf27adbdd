package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

// Service is the identity provider: sign-up, sign-in and account management.
type Service struct {
	users   UserRepository
	friends FriendRepository
	tokens  *auth.TokenIssuer
}

func NewService(users UserRepository, friends FriendRepository, tokens *auth.TokenIssuer) *Service {
	return &Service{users: users, friends: friends, tokens: tokens}
}

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AuthResult is returned from both sign-up and sign-in.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if in.DisplayName == "" {
		return nil, fmt.Errorf("display_name is required")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Roles:        []string{string(auth.RoleUser)},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(u.ID, u.Email, auth.RolesFromStrings(u.Roles))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email, auth.RolesFromStrings(u.Roles))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// Exists reports whether an account with the given id exists.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// HasRole reports whether the account's role set includes the given role.
func (s *Service) HasRole(ctx context.Context, id uuid.UUID, role auth.Role) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.HasRole(string(role)), nil
}

func (s *Service) UpdateProfile(ctx context.Context, u *User) error {
	if u.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	return s.users.UpdateProfile(ctx, u)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// GrantRole adds a role to the user's role set. Already holding the role is
// not an error, so the promotion workflow stays idempotent under retry.
func (s *Service) GrantRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	if !auth.ValidRole(role) {
		return fmt.Errorf("unknown role: %s", role)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.HasRole(string(role)) {
		return nil
	}
	return s.users.SetRoles(ctx, id, append(u.Roles, string(role)))
}

// RevokeRole removes a role from the user's role set.
func (s *Service) RevokeRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r != string(role) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(u.Roles) {
		return nil
	}
	return s.users.SetRoles(ctx, id, kept)
}

func (s *Service) ListFriends(ctx context.Context, userID uuid.UUID, limit, offset int) ([]PublicProfile, int, error) {
	users, total, err := s.friends.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	profiles := make([]PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles, total, nil
}

// Unfriend removes the symmetric friendship rows. The original friend request
// stays resolved; removing the friendship never reopens it.
func (s *Service) Unfriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if userID == friendID {
		return fmt.Errorf("cannot unfriend yourself")
	}
	return s.friends.Remove(ctx, userID, friendID)
}

func (s *Service) AreFriends(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	return s.friends.Exists(ctx, userID, friendID)
}
