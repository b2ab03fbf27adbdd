package routes

import (
	"strings"
	"testing"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

func anonymous() SessionState {
	return SessionState{}
}

func signedIn(role auth.Role) SessionState {
	return SessionState{Authenticated: true, RolesLoaded: true, ActiveRole: role}
}

func TestEvaluate_PublicRegion(t *testing.T) {
	tree := DefaultTree()
	if d := tree.Evaluate("/auth/sign-in", anonymous()); d != DecisionAllow {
		t.Errorf("anonymous on public route: %v, want allow", d)
	}
}

func TestEvaluate_AnonymousRedirectsToSignIn(t *testing.T) {
	tree := DefaultTree()
	for _, path := range []string{"/tracker", "/social/feed", "/admin", "/doctor/patients"} {
		if d := tree.Evaluate(path, anonymous()); d != DecisionSignIn {
			t.Errorf("anonymous on %s: %v, want sign_in", path, d)
		}
	}
}

func TestEvaluate_InsufficientRole(t *testing.T) {
	tree := DefaultTree()
	cases := []struct {
		path string
		role auth.Role
	}{
		{"/admin", auth.RoleUser},
		{"/admin/promotions", auth.RoleDoctor},
		{"/doctor", auth.RoleUser},
		{"/moderation", auth.RoleUser},
		{"/doctor/patients", auth.RoleAdmin},
	}
	for _, tc := range cases {
		if d := tree.Evaluate(tc.path, signedIn(tc.role)); d != DecisionUnauthorized {
			t.Errorf("%s as %s: %v, want unauthorized", tc.path, tc.role, d)
		}
	}
}

func TestEvaluate_SufficientRole(t *testing.T) {
	tree := DefaultTree()
	cases := []struct {
		path string
		role auth.Role
	}{
		{"/tracker/log", auth.RoleUser},
		{"/social/requests", auth.RoleDoctor},
		{"/doctor/patients", auth.RoleDoctor},
		{"/moderation", auth.RoleModerator},
		{"/moderation", auth.RoleAdmin},
		{"/admin/accounts", auth.RoleAdmin},
	}
	for _, tc := range cases {
		if d := tree.Evaluate(tc.path, signedIn(tc.role)); d != DecisionAllow {
			t.Errorf("%s as %s: %v, want allow", tc.path, tc.role, d)
		}
	}
}

func TestEvaluate_UnresolvedRoleFailsClosed(t *testing.T) {
	tree := DefaultTree()
	state := signedIn(auth.RoleNone)
	if d := tree.Evaluate("/admin", state); d != DecisionUnauthorized {
		t.Errorf("no resolved role on /admin: %v, want unauthorized", d)
	}
}

func TestEvaluate_LoadingNeverDenies(t *testing.T) {
	tree := DefaultTree()
	state := SessionState{Authenticated: true, RolesLoaded: false}
	if d := tree.Evaluate("/admin", state); d != DecisionLoading {
		t.Errorf("roles still loading: %v, want loading", d)
	}
}

func TestEvaluate_UnknownRegionDenied(t *testing.T) {
	tree := DefaultTree()
	if d := tree.Evaluate("/secret", anonymous()); d != DecisionSignIn {
		t.Errorf("anonymous on unknown region: %v, want sign_in", d)
	}
	if d := tree.Evaluate("/secret", signedIn(auth.RoleAdmin)); d != DecisionUnauthorized {
		t.Errorf("admin on unknown region: %v, want unauthorized", d)
	}
}

func TestEvaluate_EveryLevelRevalidated(t *testing.T) {
	// A permissive parent must not leak access to a stricter child.
	tree := NewTree(&Node{
		Name:    "app",
		Allowed: allRoles,
		Children: []*Node{
			{Name: "settings", Allowed: []auth.Role{auth.RoleAdmin}},
		},
	})
	if d := tree.Evaluate("/app", signedIn(auth.RoleUser)); d != DecisionAllow {
		t.Errorf("/app as user: %v, want allow", d)
	}
	if d := tree.Evaluate("/app/settings", signedIn(auth.RoleUser)); d != DecisionUnauthorized {
		t.Errorf("/app/settings as user: %v, want unauthorized", d)
	}
}

func TestEvaluate_DeeperThanTree(t *testing.T) {
	tree := DefaultTree()
	if d := tree.Evaluate("/social/feed/42", signedIn(auth.RoleUser)); d != DecisionAllow {
		t.Errorf("path below deepest node: %v, want allow", d)
	}
}

func TestValidate_DetectsDeadLeaves(t *testing.T) {
	tree := NewTree(&Node{
		Name:    "app",
		Allowed: allRoles,
		Children: []*Node{
			{Name: "ok", Allowed: []auth.Role{auth.RoleUser}},
			{Name: "dead"},
		},
	})
	err := tree.Validate()
	if err == nil {
		t.Fatal("expected error for dead leaf")
	}
	if got := err.Error(); !strings.Contains(got, "app/dead") {
		t.Errorf("error should name the dead leaf, got %q", got)
	}
}

func TestValidate_DefaultTreeClean(t *testing.T) {
	if err := DefaultTree().Validate(); err != nil {
		t.Errorf("DefaultTree().Validate() = %v", err)
	}
}
