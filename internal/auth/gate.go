package auth

import (
	"slices"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
)

// Identity is the resolved caller. The zero value is anonymous.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   domain.Role
}

func (id Identity) Anonymous() bool { return id.UserID == "" }

var (
	Staff     = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
	SuperOnly = []domain.Role{domain.RoleSuperAdmin}
)

// Require allows id when its role is in allowed. Every denial is the same
// Unauthorized error so callers learn nothing about the required role.
func Require(id Identity, allowed ...domain.Role) error {
	if id.Anonymous() || !slices.Contains(allowed, id.Role) {
		return apperr.Unauthorized()
	}
	return nil
}

// CanManageUser guards edits of target. Only a SUPER_ADMIN may touch a
// SUPER_ADMIN record or hand out the SUPER_ADMIN role.
func CanManageUser(caller Identity, target domain.User, newRole domain.Role) error {
	if err := Require(caller, Staff...); err != nil {
		return err
	}
	if caller.Role == domain.RoleSuperAdmin {
		return nil
	}
	if target.Role == domain.RoleSuperAdmin || newRole == domain.RoleSuperAdmin {
		return apperr.Unauthorized()
	}
	return nil
}

// CanDeleteUser allows SUPER_ADMIN callers to delete anyone but themselves.
func CanDeleteUser(caller Identity, target domain.User) error {
	if err := Require(caller, SuperOnly...); err != nil {
		return err
	}
	if caller.UserID == target.ID {
		return apperr.Validation("cannot delete your own account")
	}
	return nil
}
