package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	dup := DuplicateIDError{Entity: EntityAssociation, ID: "a1"}
	missing := NotFoundError{Entity: EntityEvent, ID: "e1"}
	mismatch := IDMismatchError{Entity: EntityUser, TargetID: "u1", BodyID: "u2"}
	already := AlreadyInStateError{Entity: EntityAssociation, ID: "a1", State: "subscribed to"}
	notIn := NotInStateError{Entity: EntityEvent, ID: "e1", State: "enrolled in"}

	if !IsDuplicateID(dup) || IsDuplicateID(missing) {
		t.Fatal("IsDuplicateID wrong")
	}
	if !IsNotFound(missing) || IsNotFound(dup) {
		t.Fatal("IsNotFound wrong")
	}
	if !IsIDMismatch(mismatch) || IsIDMismatch(missing) {
		t.Fatal("IsIDMismatch wrong")
	}
	if !IsAlreadyInState(already) || IsAlreadyInState(notIn) {
		t.Fatal("IsAlreadyInState wrong")
	}
	if !IsNotInState(notIn) || IsNotInState(already) {
		t.Fatal("IsNotInState wrong")
	}
}

func TestErrorPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", NotFoundError{Entity: EntityUser, ID: "u1"})
	if !IsNotFound(wrapped) {
		t.Fatal("wrapped NotFoundError not detected")
	}
	if !errors.Is(fmt.Errorf("auth: %w", ErrNotLoggedIn), ErrNotLoggedIn) {
		t.Fatal("wrapped ErrNotLoggedIn not detected")
	}
}
