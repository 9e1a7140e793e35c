package domain

import "context"

// Registration is a live listener subscription. Cancel deregisters the
// callback; cancelling twice is a no-op.
type Registration interface {
	Cancel()
}

// AssociationRepository stores the association directory.
//
// Reads degrade: a backend failure surfaces as an absent entity or an empty
// list, never as an error. Mutations report failures through the typed
// errors in this package; anything else is wrapped backend trouble.
type AssociationRepository interface {
	// NewUID returns a fresh identifier. Locally this is a monotonic
	// counter scoped to the store instance; remote stores delegate to the
	// backend's id generator.
	NewUID() string

	ListAssociations(ctx context.Context) []Association
	GetAssociation(ctx context.Context, id string) (Association, bool)

	// CreateAssociation fails with DuplicateIDError when the id exists.
	CreateAssociation(ctx context.Context, a Association) error
	// UpdateAssociation fails with IDMismatchError when a.ID != id and
	// NotFoundError when no association is stored under id.
	UpdateAssociation(ctx context.Context, id string, a Association) error
	// DeleteAssociation fails with NotFoundError when the id is absent.
	// Events embedding the association are left untouched.
	DeleteAssociation(ctx context.Context, id string) error

	// ListenAllAssociations replays the current collection immediately,
	// then re-invokes fn after every successful mutation.
	ListenAllAssociations(fn func([]Association)) Registration
	// ListenAssociation replays the current value iff the id is stored,
	// then re-invokes fn when the id is created or updated. Deletes are
	// not announced.
	ListenAssociation(id string, fn func(Association)) Registration
}

// EventRepository stores scheduled events. Error and listener semantics
// match AssociationRepository.
type EventRepository interface {
	NewUID() string

	ListEvents(ctx context.Context) []Event
	GetEvent(ctx context.Context, id string) (Event, bool)

	CreateEvent(ctx context.Context, e Event) error
	UpdateEvent(ctx context.Context, id string, e Event) error
	DeleteEvent(ctx context.Context, id string) error

	ListenAllEvents(fn func([]Event)) Registration
	ListenEvent(id string, fn func(Event)) Registration
}

// UserRepository stores directory accounts. Error and listener semantics
// match AssociationRepository.
type UserRepository interface {
	NewUID() string

	ListUsers(ctx context.Context) []User
	GetUser(ctx context.Context, id string) (User, bool)

	CreateUser(ctx context.Context, u User) error
	UpdateUser(ctx context.Context, id string, u User) error
	DeleteUser(ctx context.Context, id string) error

	// CurrentUser resolves the authenticated principal to its stored
	// account. The second result is false when nobody is logged in or the
	// principal has no account yet.
	CurrentUser(ctx context.Context) (User, bool)

	ListenAllUsers(fn func([]User)) Registration
	ListenUser(id string, fn func(User)) Registration
}

// Store is the full directory persistence surface. Every backend implements
// all three families.
type Store interface {
	AssociationRepository
	EventRepository
	UserRepository
}
