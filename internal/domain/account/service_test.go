package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

// -- mocks --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, u *User) error {
	stored, ok := m.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	stored.DisplayName = u.DisplayName
	stored.AvatarURL = u.AvatarURL
	stored.Bio = u.Bio
	return nil
}

func (m *mockUserRepo) SetRoles(_ context.Context, id uuid.UUID, roles []string) error {
	stored, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	stored.Roles = roles
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var all []*User
	for _, u := range m.users {
		cp := *u
		all = append(all, &cp)
	}
	return all, len(all), nil
}

type friendPair struct{ a, b uuid.UUID }

type mockFriendRepo struct {
	users *mockUserRepo
	pairs map[friendPair]bool
}

func newMockFriendRepo(users *mockUserRepo) *mockFriendRepo {
	return &mockFriendRepo{users: users, pairs: make(map[friendPair]bool)}
}

func (m *mockFriendRepo) Add(_ context.Context, userID, friendID uuid.UUID) error {
	m.pairs[friendPair{userID, friendID}] = true
	m.pairs[friendPair{friendID, userID}] = true
	return nil
}

func (m *mockFriendRepo) Remove(_ context.Context, userID, friendID uuid.UUID) error {
	delete(m.pairs, friendPair{userID, friendID})
	delete(m.pairs, friendPair{friendID, userID})
	return nil
}

func (m *mockFriendRepo) Exists(_ context.Context, userID, friendID uuid.UUID) (bool, error) {
	return m.pairs[friendPair{userID, friendID}], nil
}

func (m *mockFriendRepo) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]*User, int, error) {
	var items []*User
	for pair := range m.pairs {
		if pair.a != userID {
			continue
		}
		if u, ok := m.users.users[pair.b]; ok {
			cp := *u
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockUserRepo, *mockFriendRepo) {
	users := newMockUserRepo()
	friends := newMockFriendRepo(users)
	tokens := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	return NewService(users, friends, tokens), users, friends
}

// -- tests --

func TestSignUp_Succeeds(t *testing.T) {
	svc, _, _ := newTestService()
	result, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       "Ana@Example.com",
		Password:    "correct horse",
		DisplayName: "Ana",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", result.User.Email)
	}
	if !result.User.HasRole("user") {
		t.Errorf("new account roles = %v, want [user]", result.User.Roles)
	}
	if result.User.PasswordHash == "correct horse" {
		t.Error("password stored unhashed")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	in := SignUpInput{Email: "ana@example.com", Password: "correct horse", DisplayName: "Ana"}
	if _, err := svc.SignUp(context.Background(), in); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	_, err := svc.SignUp(context.Background(), in)
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	cases := []SignUpInput{
		{Email: "", Password: "long enough", DisplayName: "x"},
		{Email: "not-an-email", Password: "long enough", DisplayName: "x"},
		{Email: "a@b.com", Password: "short", DisplayName: "x"},
		{Email: "a@b.com", Password: "long enough", DisplayName: ""},
	}
	for _, in := range cases {
		if _, err := svc.SignUp(context.Background(), in); err == nil {
			t.Errorf("SignUp(%+v) succeeded, want error", in)
		}
	}
}

func TestSignIn_Succeeds(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.SignUp(context.Background(), SignUpInput{
		Email: "ana@example.com", Password: "correct horse", DisplayName: "Ana",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	result, err := svc.SignIn(context.Background(), "ANA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.SignUp(context.Background(), SignUpInput{
		Email: "ana@example.com", Password: "correct horse", DisplayName: "Ana",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, err := svc.SignIn(context.Background(), "ana@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignIn_UnknownEmailSameError(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials (no user enumeration)", err)
	}
}

func TestGrantRole_Idempotent(t *testing.T) {
	svc, users, _ := newTestService()
	u := &User{Email: "doc@example.com", Roles: []string{"user"}}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	if err := svc.GrantRole(context.Background(), u.ID, auth.RoleDoctor); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if err := svc.GrantRole(context.Background(), u.ID, auth.RoleDoctor); err != nil {
		t.Fatalf("GrantRole twice: %v", err)
	}

	stored, _ := users.GetByID(context.Background(), u.ID)
	count := 0
	for _, r := range stored.Roles {
		if r == "doctor" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("doctor role appears %d times, want 1", count)
	}
}

func TestGrantRole_UnknownRole(t *testing.T) {
	svc, users, _ := newTestService()
	u := &User{Email: "x@example.com", Roles: []string{"user"}}
	_ = users.Create(context.Background(), u)

	if err := svc.GrantRole(context.Background(), u.ID, "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRevokeRole(t *testing.T) {
	svc, users, _ := newTestService()
	u := &User{Email: "x@example.com", Roles: []string{"user", "moderator"}}
	_ = users.Create(context.Background(), u)

	if err := svc.RevokeRole(context.Background(), u.ID, auth.RoleModerator); err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	stored, _ := users.GetByID(context.Background(), u.ID)
	if stored.HasRole("moderator") {
		t.Error("moderator role still present")
	}
	if !stored.HasRole("user") {
		t.Error("user role removed unexpectedly")
	}
}

func TestUnfriend_Symmetric(t *testing.T) {
	svc, users, friends := newTestService()
	a := &User{Email: "a@example.com"}
	b := &User{Email: "b@example.com"}
	_ = users.Create(context.Background(), a)
	_ = users.Create(context.Background(), b)
	_ = friends.Add(context.Background(), a.ID, b.ID)

	if err := svc.Unfriend(context.Background(), a.ID, b.ID); err != nil {
		t.Fatalf("Unfriend: %v", err)
	}
	if ok, _ := friends.Exists(context.Background(), a.ID, b.ID); ok {
		t.Error("a→b friendship still present")
	}
	if ok, _ := friends.Exists(context.Background(), b.ID, a.ID); ok {
		t.Error("b→a friendship still present")
	}
}

func TestUnfriend_Self(t *testing.T) {
	svc, _, _ := newTestService()
	id := uuid.New()
	if err := svc.Unfriend(context.Background(), id, id); err == nil {
		t.Error("expected error unfriending self")
	}
}

func TestListFriends_ReturnsPublicProfiles(t *testing.T) {
	svc, users, friends := newTestService()
	a := &User{Email: "a@example.com", DisplayName: "A"}
	b := &User{Email: "b@example.com", DisplayName: "B", PasswordHash: "secret"}
	_ = users.Create(context.Background(), a)
	_ = users.Create(context.Background(), b)
	_ = friends.Add(context.Background(), a.ID, b.ID)

	items, total, err := svc.ListFriends(context.Background(), a.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListFriends: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, len = %d, want 1/1", total, len(items))
	}
	if items[0].DisplayName != "B" {
		t.Errorf("DisplayName = %q", items[0].DisplayName)
	}
}
