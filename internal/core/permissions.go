package core

import "campuslife/pkg/domain"

// CanCreateAssociation reports whether the user may add associations to the
// directory. Only platform admins can.
func CanCreateAssociation(u domain.User) bool {
	return u.Role == domain.RoleAdmin
}

// CanEditAssociation reports whether the user may update or delete the
// association: platform admins always, association admins only for the
// associations they manage.
func CanEditAssociation(u domain.User, associationID string) bool {
	switch u.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAssociationAdmin:
		return u.Manages(associationID)
	default:
		return false
	}
}

// CanManageEvent reports whether the user may create, update, or delete an
// event on behalf of its hosting association.
func CanManageEvent(u domain.User, e domain.Event) bool {
	return CanEditAssociation(u, e.Association.ID)
}
