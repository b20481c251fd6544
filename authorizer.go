package accounts

import (
	"github.com/google/uuid"
)

// Operation enumerates the profile and admin actions the gate decides over.
type Operation string

const (
	OpViewSelf       Operation = "view-self"
	OpEditSelf       Operation = "edit-self"
	OpChangePassword Operation = "change-password"
	OpViewAny        Operation = "view-any"
	OpEditAny        Operation = "edit-any"
	OpListAll        Operation = "list-all"
	OpChangeRole     Operation = "change-role"
	OpDeleteAny      Operation = "delete-any"
)

// Decision is the gate's verdict.
type Decision int

const (
	Deny Decision = iota
	Permit
)

func (d Decision) String() string {
	if d == Permit {
		return "permit"
	}
	return "deny"
}

// Authorize is a stateless decision function over (actor, target, operation).
//
// Admins are permitted every operation. Verified regular users are permitted
// the self-scoped operations against their own record. Everything else is
// denied, including all operations for unverified actors.
func Authorize(actor Actor, target uuid.UUID, op Operation) Decision {
	if actor.ID == uuid.Nil {
		return Deny
	}

	if actor.Role == RoleAdmin {
		return Permit
	}

	if actor.Role != RoleRegular || !actor.Verified {
		return Deny
	}

	switch op {
	case OpViewSelf, OpEditSelf, OpChangePassword:
		if target != uuid.Nil && target == actor.ID {
			return Permit
		}
	}

	return Deny
}

// Authorized wraps Authorize for handler use: a Deny becomes the generic
// ErrAuthorizationDenied with the decision inputs recorded in metadata for
// internal logs, never for the response body.
func Authorized(actor Actor, target uuid.UUID, op Operation) error {
	if Authorize(actor, target, op) == Permit {
		return nil
	}

	return ErrAuthorizationDenied.WithMetadata(map[string]any{
		"actor_id":   actor.ID.String(),
		"actor_role": actor.Role,
		"target_id":  target.String(),
		"operation":  string(op),
	})
}
