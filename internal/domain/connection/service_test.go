package connection

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

// -- mocks --

type mockRequestRepo struct {
	requests map[uuid.UUID]*Request
	seq      int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	r.ID = uuid.New()
	r.Status = StatusPending
	m.seq++
	r.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRequestRepo) Resolve(_ context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	r.Status = status
	r.ResolvedAt = &now
	r.ResolvedBy = &resolvedBy
	return true, nil
}

func (m *mockRequestRepo) HasPendingToTarget(_ context.Context, requesterID, targetID uuid.UUID, kind Kind) (bool, error) {
	for _, r := range m.requests {
		if r.RequesterID == requesterID && r.TargetID != nil && *r.TargetID == targetID &&
			r.Kind == kind && r.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) HasPendingByRequester(_ context.Context, requesterID uuid.UUID, kind Kind) (bool, error) {
	for _, r := range m.requests {
		if r.RequesterID == requesterID && r.Kind == kind && r.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) pendingWhere(match func(*Request) bool) []*Request {
	var items []*Request
	for _, r := range m.requests {
		if r.Status == StatusPending && match(r) {
			cp := *r
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}

func (m *mockRequestRepo) ListPendingForTarget(_ context.Context, targetID uuid.UUID, kind Kind, limit, offset int) ([]*Request, int, error) {
	items := m.pendingWhere(func(r *Request) bool {
		return r.TargetID != nil && *r.TargetID == targetID && r.Kind == kind
	})
	return items, len(items), nil
}

func (m *mockRequestRepo) CountPendingForTarget(ctx context.Context, targetID uuid.UUID, kind Kind) (int, error) {
	items, _, _ := m.ListPendingForTarget(ctx, targetID, kind, 0, 0)
	return len(items), nil
}

func (m *mockRequestRepo) ListPendingForRole(_ context.Context, role auth.Role, kind Kind, limit, offset int) ([]*Request, int, error) {
	items := m.pendingWhere(func(r *Request) bool {
		return r.ApproverRole != nil && *r.ApproverRole == role && r.Kind == kind
	})
	return items, len(items), nil
}

func (m *mockRequestRepo) CountPendingForRole(ctx context.Context, role auth.Role, kind Kind) (int, error) {
	items, _, _ := m.ListPendingForRole(ctx, role, kind, 0, 0)
	return len(items), nil
}

func (m *mockRequestRepo) ListByRequester(_ context.Context, requesterID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var items []*Request
	for _, r := range m.requests {
		if r.RequesterID == requesterID {
			cp := *r
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

type pair struct{ a, b uuid.UUID }

type mockFriendLinker struct {
	pairs map[pair]bool
	adds  int
}

func newMockFriendLinker() *mockFriendLinker {
	return &mockFriendLinker{pairs: make(map[pair]bool)}
}

func (m *mockFriendLinker) Add(_ context.Context, userID, friendID uuid.UUID) error {
	m.adds++
	m.pairs[pair{userID, friendID}] = true
	m.pairs[pair{friendID, userID}] = true
	return nil
}

func (m *mockFriendLinker) Exists(_ context.Context, userID, friendID uuid.UUID) (bool, error) {
	return m.pairs[pair{userID, friendID}], nil
}

type mockLinker struct {
	links map[pair]bool
	err   error
}

func newMockLinker() *mockLinker {
	return &mockLinker{links: make(map[pair]bool)}
}

func (m *mockLinker) Link(_ context.Context, patientID, doctorID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.links[pair{patientID, doctorID}] = true
	return nil
}

func (m *mockLinker) Linked(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return m.links[pair{patientID, doctorID}], nil
}

type mockPromoter struct {
	applied map[uuid.UUID]PromotionPayload
	err     error
}

func newMockPromoter() *mockPromoter {
	return &mockPromoter{applied: make(map[uuid.UUID]PromotionPayload)}
}

func (m *mockPromoter) ApplyPromotion(_ context.Context, userID uuid.UUID, payload PromotionPayload) error {
	if m.err != nil {
		return m.err
	}
	m.applied[userID] = payload
	return nil
}

type mockDirectory struct {
	roles map[uuid.UUID][]auth.Role
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{roles: make(map[uuid.UUID][]auth.Role)}
}

func (m *mockDirectory) addUser(roles ...auth.Role) uuid.UUID {
	id := uuid.New()
	m.roles[id] = roles
	return id
}

func (m *mockDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.roles[id]
	return ok, nil
}

func (m *mockDirectory) HasRole(_ context.Context, id uuid.UUID, role auth.Role) (bool, error) {
	for _, r := range m.roles[id] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	requests *mockRequestRepo
	friends  *mockFriendLinker
	links    *mockLinker
	promoter *mockPromoter
	dir      *mockDirectory
}

func newFixture() *fixture {
	f := &fixture{
		requests: newMockRequestRepo(),
		friends:  newMockFriendLinker(),
		links:    newMockLinker(),
		promoter: newMockPromoter(),
		dir:      newMockDirectory(),
	}
	f.svc = NewService(f.requests, f.friends, f.links, f.promoter, f.dir, passthroughTx)
	return f
}

func sessionFor(id uuid.UUID, role auth.Role) *auth.Session {
	return &auth.Session{UserID: id, Roles: auth.RoleList{role}, ActiveRole: role}
}

func strPtr(s string) *string { return &s }

// -- Create --

func TestCreate_FriendRequest(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)

	req, err := f.svc.Create(context.Background(), a, CreateInput{
		Kind: KindFriend, TargetID: &b, Message: strPtr("hi"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("Status = %s, want pending", req.Status)
	}
	if len(f.friends.pairs) != 0 {
		t.Error("friendship recorded before acceptance")
	}
}

func TestCreate_DuplicatePendingRejected(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)

	in := CreateInput{Kind: KindFriend, TargetID: &b}
	if _, err := f.svc.Create(context.Background(), a, in); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := f.svc.Create(context.Background(), a, in)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("err = %v, want ErrDuplicateRequest", err)
	}
}

func TestCreate_SelfRequestRejected(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	if _, err := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &a}); err == nil {
		t.Error("expected error for self request")
	}
}

func TestCreate_UnknownTargetRejected(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	ghost := uuid.New()
	if _, err := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &ghost}); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestCreate_AlreadyFriendsRejected(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)
	_ = f.friends.Add(context.Background(), a, b)

	_, err := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b})
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("err = %v, want ErrAlreadyConnected", err)
	}
}

func TestCreate_DoctorConnectionRequiresDoctorTarget(t *testing.T) {
	f := newFixture()
	patient := f.dir.addUser(auth.RoleUser)
	notADoctor := f.dir.addUser(auth.RoleUser)

	_, err := f.svc.Create(context.Background(), patient, CreateInput{
		Kind: KindDoctorConnection, TargetID: &notADoctor,
	})
	if err == nil {
		t.Error("expected error for non-doctor target")
	}
}

func TestCreate_PromotionAddressedToAdminRole(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)

	req, err := f.svc.Create(context.Background(), user, CreateInput{
		Kind: KindDoctorPromotion,
		Payload: &PromotionPayload{
			CUIM:         "X123",
			Tier:         "specialist",
			Institutions: []string{"Clinic A"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.TargetID != nil {
		t.Error("promotion request should not address a specific user")
	}
	if req.ApproverRole == nil || *req.ApproverRole != auth.RoleAdmin {
		t.Errorf("ApproverRole = %v, want admin", req.ApproverRole)
	}
}

func TestCreate_PromotionPayloadValidation(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)

	cases := []*PromotionPayload{
		nil,
		{CUIM: "", Institutions: []string{"Clinic A"}},
		{CUIM: "X123", Institutions: nil},
		{CUIM: "X123", Institutions: []string{""}},
		{CUIM: "X123", Tier: "attending", Institutions: []string{"Clinic A"}},
	}
	for i, payload := range cases {
		if _, err := f.svc.Create(context.Background(), user, CreateInput{
			Kind: KindDoctorPromotion, Payload: payload,
		}); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

// -- Accept / Reject --

func TestAccept_FriendBidirectional(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)

	req, err := f.svc.Create(context.Background(), a, CreateInput{
		Kind: KindFriend, TargetID: &b, Message: strPtr("hi"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, total, err := f.svc.ListPending(context.Background(), sessionFor(b, auth.RoleUser), KindFriend, 20, 0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Fatalf("pending = %d/%d, want 1/1", len(pending), total)
	}
	if pending[0].RequesterID != a || pending[0].Message == nil || *pending[0].Message != "hi" {
		t.Errorf("pending entry = %+v", pending[0])
	}

	accepted, err := f.svc.Accept(context.Background(), req.ID, sessionFor(b, auth.RoleUser))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("Status = %s, want accepted", accepted.Status)
	}

	if ok, _ := f.friends.Exists(context.Background(), a, b); !ok {
		t.Error("a→b friendship missing")
	}
	if ok, _ := f.friends.Exists(context.Background(), b, a); !ok {
		t.Error("b→a friendship missing")
	}
}

func TestAccept_RepeatIsConflictNotDuplicate(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)

	req, _ := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b})
	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(b, auth.RoleUser)); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	addsAfterFirst := f.friends.adds

	_, err := f.svc.Accept(context.Background(), req.ID, sessionFor(b, auth.RoleUser))
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("err = %v, want ErrAlreadyResolved", err)
	}
	if f.friends.adds != addsAfterFirst {
		t.Error("relationship mutation re-applied on repeat accept")
	}
}

func TestAccept_OnlyTargetMayResolve(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)
	stranger := f.dir.addUser(auth.RoleUser)

	req, _ := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b})

	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(stranger, auth.RoleUser)); !errors.Is(err, ErrNotApprover) {
		t.Errorf("stranger accept err = %v, want ErrNotApprover", err)
	}
	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(a, auth.RoleUser)); !errors.Is(err, ErrNotApprover) {
		t.Errorf("requester accept err = %v, want ErrNotApprover", err)
	}
}

func TestReject_TerminalNoSideEffects(t *testing.T) {
	f := newFixture()
	a := f.dir.addUser(auth.RoleUser)
	b := f.dir.addUser(auth.RoleUser)

	req, _ := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b})
	rejected, err := f.svc.Reject(context.Background(), req.ID, sessionFor(b, auth.RoleUser))
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("Status = %s, want rejected", rejected.Status)
	}
	if len(f.friends.pairs) != 0 {
		t.Error("rejection must not record a friendship")
	}

	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(b, auth.RoleUser)); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("accept after reject err = %v, want ErrAlreadyResolved", err)
	}
}

func TestAccept_DoctorConnectionLinks(t *testing.T) {
	f := newFixture()
	patient := f.dir.addUser(auth.RoleUser)
	doctor := f.dir.addUser(auth.RoleUser, auth.RoleDoctor)

	req, err := f.svc.Create(context.Background(), patient, CreateInput{
		Kind: KindDoctorConnection, TargetID: &doctor,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(doctor, auth.RoleDoctor)); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ok, _ := f.links.Linked(context.Background(), patient, doctor); !ok {
		t.Error("patient-doctor link missing after acceptance")
	}
}

func TestAccept_PromotionByAdmin(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)
	admin := f.dir.addUser(auth.RoleAdmin)

	req, err := f.svc.Create(context.Background(), user, CreateInput{
		Kind: KindDoctorPromotion,
		Payload: &PromotionPayload{
			CUIM:         "X123",
			Institutions: []string{"Clinic A"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(admin, auth.RoleAdmin)); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	payload, ok := f.promoter.applied[user]
	if !ok {
		t.Fatal("promotion not applied")
	}
	if payload.CUIM != "X123" {
		t.Errorf("CUIM = %q, want X123", payload.CUIM)
	}
}

func TestAccept_PromotionRequiresAdminRole(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)
	moderator := f.dir.addUser(auth.RoleModerator)

	req, _ := f.svc.Create(context.Background(), user, CreateInput{
		Kind:    KindDoctorPromotion,
		Payload: &PromotionPayload{CUIM: "X123", Institutions: []string{"Clinic A"}},
	})

	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(moderator, auth.RoleModerator)); !errors.Is(err, ErrNotApprover) {
		t.Errorf("err = %v, want ErrNotApprover", err)
	}
}

func TestAccept_SideEffectFailureLeavesRequestPending(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)
	admin := f.dir.addUser(auth.RoleAdmin)

	req, _ := f.svc.Create(context.Background(), user, CreateInput{
		Kind:    KindDoctorPromotion,
		Payload: &PromotionPayload{CUIM: "X123", Institutions: []string{"Clinic A"}},
	})

	f.promoter.err = errors.New("institution write failed")
	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(admin, auth.RoleAdmin)); err == nil {
		t.Fatal("expected error from failed side effect")
	}

	stored, _ := f.requests.GetByID(context.Background(), req.ID)
	if stored.Status != StatusPending {
		t.Errorf("Status = %s after failed accept, want pending", stored.Status)
	}

	f.promoter.err = nil
	if _, err := f.svc.Accept(context.Background(), req.ID, sessionFor(admin, auth.RoleAdmin)); err != nil {
		t.Fatalf("retry Accept: %v", err)
	}
}

// -- List / Count --

func TestCountMatchesList(t *testing.T) {
	f := newFixture()
	b := f.dir.addUser(auth.RoleUser)
	for i := 0; i < 3; i++ {
		a := f.dir.addUser(auth.RoleUser)
		if _, err := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	session := sessionFor(b, auth.RoleUser)
	items, _, err := f.svc.ListPending(context.Background(), session, KindFriend, 100, 0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	count, err := f.svc.CountPending(context.Background(), session, KindFriend)
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	if count != len(items) {
		t.Errorf("count = %d, list length = %d", count, len(items))
	}
}

func TestListPending_NewestFirst(t *testing.T) {
	f := newFixture()
	b := f.dir.addUser(auth.RoleUser)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		a := f.dir.addUser(auth.RoleUser)
		req, _ := f.svc.Create(context.Background(), a, CreateInput{Kind: KindFriend, TargetID: &b})
		ids = append(ids, req.ID)
	}

	items, _, err := f.svc.ListPending(context.Background(), sessionFor(b, auth.RoleUser), KindFriend, 100, 0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].ID != ids[2] || items[2].ID != ids[0] {
		t.Error("pending list not in creation-time descending order")
	}
}

func TestListPending_PromotionQueueAdminOnly(t *testing.T) {
	f := newFixture()
	user := f.dir.addUser(auth.RoleUser)
	admin := f.dir.addUser(auth.RoleAdmin)

	if _, err := f.svc.Create(context.Background(), user, CreateInput{
		Kind:    KindDoctorPromotion,
		Payload: &PromotionPayload{CUIM: "X123", Institutions: []string{"Clinic A"}},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, total, err := f.svc.ListPending(context.Background(), sessionFor(admin, auth.RoleAdmin), KindDoctorPromotion, 20, 0)
	if err != nil {
		t.Fatalf("admin ListPending: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("admin queue = %d/%d, want 1/1", len(items), total)
	}

	if _, _, err := f.svc.ListPending(context.Background(), sessionFor(user, auth.RoleUser), KindDoctorPromotion, 20, 0); !errors.Is(err, ErrNotApprover) {
		t.Errorf("non-admin err = %v, want ErrNotApprover", err)
	}
}
