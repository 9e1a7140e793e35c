package domain

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned by operations that require an authenticated
// user when no principal is attached to the call.
var ErrNotLoggedIn = errors.New("no user is logged in")

// DuplicateIDError reports a create against an id that already exists.
type DuplicateIDError struct {
	Entity EntityType
	ID     string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.ID)
}

// NotFoundError reports a mutation against an id with no stored entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// IDMismatchError reports an update whose payload carries a different id
// than the one addressed.
type IDMismatchError struct {
	Entity   EntityType
	TargetID string
	BodyID   string
}

func (e IDMismatchError) Error() string {
	return fmt.Sprintf("%s id mismatch: addressed %q, payload carries %q", e.Entity, e.TargetID, e.BodyID)
}

// AlreadyInStateError reports a membership toggle that would re-enter the
// current state, e.g. subscribing to an already-followed association.
type AlreadyInStateError struct {
	Entity EntityType
	ID     string
	State  string
}

func (e AlreadyInStateError) Error() string {
	return fmt.Sprintf("already %s %s %q", e.State, e.Entity, e.ID)
}

// NotInStateError reports a membership toggle that would leave a state the
// user never entered, e.g. unsubscribing from an unfollowed association.
type NotInStateError struct {
	Entity EntityType
	ID     string
	State  string
}

func (e NotInStateError) Error() string {
	return fmt.Sprintf("not %s %s %q", e.State, e.Entity, e.ID)
}

// IsDuplicateID reports whether err is a DuplicateIDError.
func IsDuplicateID(err error) bool {
	var target DuplicateIDError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsIDMismatch reports whether err is an IDMismatchError.
func IsIDMismatch(err error) bool {
	var target IDMismatchError
	return errors.As(err, &target)
}

// IsAlreadyInState reports whether err is an AlreadyInStateError.
func IsAlreadyInState(err error) bool {
	var target AlreadyInStateError
	return errors.As(err, &target)
}

// IsNotInState reports whether err is a NotInStateError.
func IsNotInState(err error) bool {
	var target NotInStateError
	return errors.As(err, &target)
}
