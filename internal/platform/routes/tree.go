package routes

import (
	"fmt"
	"strings"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

// Decision is the outcome of evaluating a navigation target against the
// caller's session.
type Decision int

const (
	// DecisionAllow renders the requested region.
	DecisionAllow Decision = iota
	// DecisionSignIn redirects an unauthenticated caller to sign-in.
	DecisionSignIn
	// DecisionUnauthorized denies an authenticated caller with an
	// insufficient role.
	DecisionUnauthorized
	// DecisionLoading means role resolution is still in flight; the caller
	// should show a neutral state and re-evaluate, never the denial screen.
	DecisionLoading
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionSignIn:
		return "sign_in"
	case DecisionUnauthorized:
		return "unauthorized"
	case DecisionLoading:
		return "loading"
	}
	return "unknown"
}

// SessionState is the guard's view of the caller. RolesLoaded distinguishes
// "no role" from "role not known yet" so startup never flashes a denial.
type SessionState struct {
	Authenticated bool
	RolesLoaded   bool
	ActiveRole    auth.Role
}

// Node is one navigable region. Public nodes are reachable without a
// session; all others require the caller's active role to appear in Allowed.
type Node struct {
	Name     string
	Allowed  []auth.Role
	Public   bool
	Children []*Node
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// permits checks a single node against the session. Access control is
// fail closed: an unresolved or unlisted role is a denial, never a grant.
func (n *Node) permits(s SessionState) Decision {
	if n.Public {
		return DecisionAllow
	}
	if !s.Authenticated {
		return DecisionSignIn
	}
	if !s.RolesLoaded {
		return DecisionLoading
	}
	if s.ActiveRole == auth.RoleNone {
		return DecisionUnauthorized
	}
	for _, r := range n.Allowed {
		if r == s.ActiveRole {
			return DecisionAllow
		}
	}
	return DecisionUnauthorized
}

// Tree is the static hierarchy of navigable regions. It is built once at
// startup and never mutated afterwards.
type Tree struct {
	roots []*Node
}

func NewTree(roots ...*Node) *Tree {
	return &Tree{roots: roots}
}

// Evaluate walks the path segment by segment and re-validates every node
// independently, since a reachable region may contain stricter children.
// The first non-allow decision wins. A path whose leading segment matches
// no region is denied, not granted.
func (t *Tree) Evaluate(path string, s SessionState) Decision {
	segments := splitPath(path)
	if len(segments) == 0 {
		return DecisionAllow
	}

	var current *Node
	for _, seg := range segments {
		var next *Node
		if current == nil {
			for _, root := range t.roots {
				if root.Name == seg {
					next = root
					break
				}
			}
		} else {
			next = current.child(seg)
		}

		if next == nil {
			if current == nil {
				// Unknown region: deny rather than fall open.
				if !s.Authenticated {
					return DecisionSignIn
				}
				return DecisionUnauthorized
			}
			// Deeper than the tree: governed by the last matched node.
			return DecisionAllow
		}

		if d := next.permits(s); d != DecisionAllow {
			return d
		}
		current = next
	}

	return DecisionAllow
}

// Validate reports any non-public leaf with an empty allowed set. Such a
// node is permanently unreachable and almost certainly a configuration bug.
func (t *Tree) Validate() error {
	var dead []string
	for _, root := range t.roots {
		collectDeadLeaves(root, root.Name, &dead)
	}
	if len(dead) > 0 {
		return fmt.Errorf("unreachable route nodes (no allowed roles): %s", strings.Join(dead, ", "))
	}
	return nil
}

func collectDeadLeaves(n *Node, path string, dead *[]string) {
	if len(n.Children) == 0 {
		if !n.Public && len(n.Allowed) == 0 {
			*dead = append(*dead, path)
		}
		return
	}
	for _, c := range n.Children {
		collectDeadLeaves(c, path+"/"+c.Name, dead)
	}
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

var allRoles = []auth.Role{auth.RoleUser, auth.RoleModerator, auth.RoleDoctor, auth.RoleAdmin}

// DefaultTree encodes the application's navigable regions: a public auth
// region, the everyday user regions, the doctor dashboard, moderation and
// the admin console.
func DefaultTree() *Tree {
	return NewTree(
		&Node{Name: "auth", Public: true, Children: []*Node{
			{Name: "sign-in", Public: true},
			{Name: "sign-up", Public: true},
		}},
		&Node{Name: "tracker", Allowed: allRoles, Children: []*Node{
			{Name: "log", Allowed: allRoles},
			{Name: "treatments", Allowed: allRoles},
		}},
		&Node{Name: "social", Allowed: allRoles, Children: []*Node{
			{Name: "feed", Allowed: allRoles},
			{Name: "friends", Allowed: allRoles},
			{Name: "requests", Allowed: allRoles},
		}},
		&Node{Name: "profile", Allowed: allRoles},
		&Node{Name: "doctor", Allowed: []auth.Role{auth.RoleDoctor}, Children: []*Node{
			{Name: "patients", Allowed: []auth.Role{auth.RoleDoctor}},
			{Name: "questions", Allowed: []auth.Role{auth.RoleDoctor}},
		}},
		&Node{Name: "moderation", Allowed: []auth.Role{auth.RoleModerator, auth.RoleAdmin}},
		&Node{Name: "admin", Allowed: []auth.Role{auth.RoleAdmin}, Children: []*Node{
			{Name: "promotions", Allowed: []auth.Role{auth.RoleAdmin}},
			{Name: "accounts", Allowed: []auth.Role{auth.RoleAdmin}},
		}},
	)
}
