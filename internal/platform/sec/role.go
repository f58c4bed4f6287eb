// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package sec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// # Permissions

// Permission is a single capability flag carried by a [Role].
type Permission uint8

const (
	// Start new threads and posts in forums
	PermCreatePosts Permission = 1 << iota

	// Edit, hide or delete other members' forums and posts
	PermModeratePosts

	// Activate, deactivate and reassign accounts
	PermManageUsers

	// Read and triage workplace reports
	PermViewReports

	// Edit company profiles
	PermManageCompany

	// Unrestricted system access
	PermAdminSystem
)

// AllPermissions lists every flag in storage column order.
var AllPermissions = []Permission{
	PermCreatePosts,
	PermModeratePosts,
	PermManageUsers,
	PermViewReports,
	PermManageCompany,
	PermAdminSystem,
}

var permissionNames = map[Permission]string{
	PermCreatePosts:   "canCreatePosts",
	PermModeratePosts: "canModeratePosts",
	PermManageUsers:   "canManageUsers",
	PermViewReports:   "canViewReports",
	PermManageCompany: "canManageCompany",
	PermAdminSystem:   "canAdminSystem",
}

// String returns the wire name of the flag, e.g. "canViewReports".
func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Permission(%d)", uint8(p))
}

// ParsePermission resolves a wire name into its flag.
func ParsePermission(name string) (Permission, error) {
	for permission, candidate := range permissionNames {
		if candidate == name {
			return permission, nil
		}
	}
	return 0, fmt.Errorf("sec: unknown permission %q", name)
}

// # Permission Sets

// PermissionSet is a bitmask of [Permission] flags.
type PermissionSet uint8

// NewPermissionSet combines the given flags.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var set PermissionSet
	for _, p := range perms {
		set |= PermissionSet(p)
	}
	return set
}

// PermissionSetFromFlags builds a set from booleans ordered like [AllPermissions].
// Missing trailing values count as false.
func PermissionSetFromFlags(flags ...bool) PermissionSet {
	var set PermissionSet
	for i, enabled := range flags {
		if enabled && i < len(AllPermissions) {
			set |= PermissionSet(AllPermissions[i])
		}
	}
	return set
}

// Has reports whether the flag is set.
func (s PermissionSet) Has(p Permission) bool {
	return p != 0 && s&PermissionSet(p) == PermissionSet(p)
}

// Contains reports whether every flag of other is also in s.
func (s PermissionSet) Contains(other PermissionSet) bool {
	return s&other == other
}

// Flags returns the set as booleans ordered like [AllPermissions].
func (s PermissionSet) Flags() []bool {
	flags := make([]bool, len(AllPermissions))
	for i, p := range AllPermissions {
		flags[i] = s.Has(p)
	}
	return flags
}

// Names lists the wire names of the flags that are set.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return names
}

// String implements fmt.Stringer.
func (s PermissionSet) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

// MarshalJSON renders the set as the flag object clients already know,
// e.g. {"canCreatePosts":true,"canModeratePosts":false,...}.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	object := make(map[string]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		object[p.String()] = s.Has(p)
	}
	return json.Marshal(object)
}

// # Roles

// RoleTag names one of the seeded roles.
type RoleTag string

const (
	// Default role for standard registered users
	RoleUser RoleTag = "user"

	// Can manage community content and triage reports
	RoleModerator RoleTag = "moderator"

	// Unrestricted system access
	RoleAdmin RoleTag = "admin"
)

// Permissions returns the canonical flag set seeded for the tag.
func (t RoleTag) Permissions() PermissionSet {
	switch t {
	case RoleUser:
		return NewPermissionSet(PermCreatePosts)
	case RoleModerator:
		return NewPermissionSet(PermCreatePosts, PermModeratePosts, PermViewReports)
	case RoleAdmin:
		return NewPermissionSet(AllPermissions...)
	default:
		return 0
	}
}

// Role is the permission record an identity references.
type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Permissions PermissionSet `json:"permissions"`
}

// # Requirements

// Requirement is an authorization predicate: it is satisfied when the
// caller's permissions contain at least one of its alternatives.
//
// Named-permission checks and role checks both compile down to this type,
// so routes never compare role names.
type Requirement struct {
	alternatives []PermissionSet
	label        string
}

// Allow requires every listed permission.
func Allow(perms ...Permission) Requirement {
	if len(perms) == 0 {
		return Requirement{label: "none"}
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.String())
	}
	return Requirement{
		alternatives: []PermissionSet{NewPermissionSet(perms...)},
		label:        strings.Join(names, "+"),
	}
}

// AnyRole requires the full flag set of at least one listed role.
func AnyRole(tags ...RoleTag) Requirement {
	alternatives := make([]PermissionSet, 0, len(tags))
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if set := tag.Permissions(); set != 0 {
			alternatives = append(alternatives, set)
			names = append(names, string(tag))
		}
	}
	return Requirement{alternatives: alternatives, label: "role:" + strings.Join(names, "|")}
}

// SatisfiedBy reports whether granted fulfils the requirement.
// A requirement without alternatives is never satisfied.
func (r Requirement) SatisfiedBy(granted PermissionSet) bool {
	for _, needed := range r.alternatives {
		if granted.Contains(needed) {
			return true
		}
	}
	return false
}

// String describes the requirement for logs.
func (r Requirement) String() string {
	return r.label
}
