// Package activity classifies functionaries as active or inactive from the
// timestamps of their logged actions.
//
// A Role pairs a user group with the log that records its members' actions.
// Each log has its own query semantics, captured by a LogQuery built from the
// role's Kind; the counting and recency logic in Classifier is shared by all
// roles.
package activity

import (
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// Kind selects the log a role's actions are recorded in.
type Kind int

const (
	// KindCheckUser reads the CheckUser audit log.
	KindCheckUser Kind = iota + 1
	// KindOversight reads the suppression log.
	KindOversight
)

func (k Kind) String() string {
	switch k {
	case KindCheckUser:
		return "checkuser"
	case KindOversight:
		return "oversight"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Role is a functionary group. Group is the wiki user group used both to
// enumerate holders and, through Kind, to pick the log.
type Role struct {
	Group string
	Kind  Kind
}

// Built-in roles.
var (
	CheckUser = Role{Group: "checkuser", Kind: KindCheckUser}
	Oversight = Role{Group: "oversight", Kind: KindOversight}
)

// DefaultRoles are the roles reported on when none are configured.
func DefaultRoles() []Role {
	return []Role{CheckUser, Oversight}
}

// LookupRole resolves a configured role name.
func LookupRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CheckUser.Group:
		return CheckUser, nil
	case Oversight.Group, "suppress":
		return Oversight, nil
	}
	return Role{}, perrors.InvalidInput("unknown role %q (want checkuser or oversight)", name)
}

// ParseRoles resolves a list of role names, dropping duplicates while
// keeping the first-seen order.
func ParseRoles(names []string) ([]Role, error) {
	seen := make(map[string]bool, len(names))
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		r, err := LookupRole(n)
		if err != nil {
			return nil, err
		}
		if seen[r.Group] {
			continue
		}
		seen[r.Group] = true
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, perrors.InvalidInput("no roles configured")
	}
	return roles, nil
}
