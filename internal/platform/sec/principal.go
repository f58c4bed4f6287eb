// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package sec

// Principal is the authenticated caller attached to a request.
// It is built once by the access gate and passed by value afterwards.
type Principal struct {
	IdentityID string
	Email      string
	Username   string
	Role       Role
}

// Can reports whether the principal's role satisfies req.
func (p Principal) Can(req Requirement) bool {
	return req.SatisfiedBy(p.Role.Permissions)
}

// HasPermission is shorthand for Can(Allow(perm)).
func (p Principal) HasPermission(perm Permission) bool {
	return p.Role.Permissions.Has(perm)
}
