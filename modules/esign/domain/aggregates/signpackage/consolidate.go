package signpackage

import "strings"

// IdentityKey is how assignments are recognized as one physical person:
// normalized email first, then phone, then normalized name.
func IdentityKey(a Assignment) string {
	if a.Email != "" {
		return strings.ToLower(a.Email)
	}
	if a.Phone != "" {
		return a.Phone
	}
	return strings.ToLower(a.Name)
}

// Group is one consolidated signer: every assignment resolving to the same
// identity key, in input order. The first assignment supplies the contact
// details used for the single request the group signs with.
type Group struct {
	Key         string
	Assignments []Assignment
}

func (g Group) Primary() Assignment {
	return g.Assignments[0]
}

func (g Group) RoleNames() []string {
	names := make([]string, 0, len(g.Assignments))
	for _, a := range g.Assignments {
		names = append(names, a.Role)
	}
	return names
}

func (g Group) HasAdmin() bool {
	for _, a := range g.Assignments {
		if a.IsPackageAdmin {
			return true
		}
	}
	return false
}

// Consolidate groups assignments by identity key, preserving first-seen
// order so one person holding several roles signs exactly once.
func Consolidate(assignments []Assignment) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, a := range assignments {
		key := IdentityKey(a)
		if i, ok := index[key]; ok {
			groups[i].Assignments = append(groups[i].Assignments, a)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Assignments: []Assignment{a}})
	}
	return groups
}

// ValidateAdmin checks that at most one consolidated identity is flagged as
// package admin. Several flagged assignments are fine only when they resolve
// to the same identity key.
func ValidateAdmin(assignments []Assignment) bool {
	keys := make(map[string]struct{})
	for _, a := range assignments {
		if a.IsPackageAdmin {
			keys[IdentityKey(a)] = struct{}{}
		}
	}
	return len(keys) <= 1
}
