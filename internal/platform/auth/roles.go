package auth

import (
	"encoding/json"
	"fmt"
)

// Role is an account-level privilege tier.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleDoctor    Role = "doctor"
	RoleAdmin     Role = "admin"

	// RoleNone is the resolved role for an empty or unrecognized role set.
	RoleNone Role = ""
)

// rolePrecedence orders roles from most to least privileged. ResolveRole
// always picks the highest-precedence role an account holds, so accounts
// with several roles resolve deterministically.
var rolePrecedence = []Role{RoleAdmin, RoleDoctor, RoleModerator, RoleUser}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleModerator, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// ResolveRole collapses a role set into the single active role by precedence.
// Unknown entries are ignored. An empty or fully unrecognized set resolves to
// RoleNone.
func ResolveRole(roles []Role) Role {
	for _, candidate := range rolePrecedence {
		for _, r := range roles {
			if r == candidate {
				return candidate
			}
		}
	}
	return RoleNone
}

// RoleList is a set of roles that tolerates both scalar and array JSON
// encodings. Older token payloads carry a single role string where newer
// ones carry an array; both decode into the same slice.
type RoleList []Role

func (rl *RoleList) UnmarshalJSON(data []byte) error {
	var many []Role
	if err := json.Unmarshal(data, &many); err == nil {
		*rl = many
		return nil
	}

	var one Role
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*rl = nil
			return nil
		}
		*rl = RoleList{one}
		return nil
	}

	return fmt.Errorf("roles must be a string or an array of strings")
}

// Has reports whether the list contains r.
func (rl RoleList) Has(r Role) bool {
	for _, have := range rl {
		if have == r {
			return true
		}
	}
	return false
}

// Strings converts the list for storage and logging.
func (rl RoleList) Strings() []string {
	out := make([]string, len(rl))
	for i, r := range rl {
		out[i] = string(r)
	}
	return out
}

// RolesFromStrings converts raw role strings, dropping unknown values.
func RolesFromStrings(raw []string) RoleList {
	var roles RoleList
	for _, s := range raw {
		if r := Role(s); ValidRole(r) {
			roles = append(roles, r)
		}
	}
	return roles
}
