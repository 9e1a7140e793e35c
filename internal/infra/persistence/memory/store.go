// Package memory provides the reference directory store: insertion-ordered
// in-memory collections with synchronous listener fan-out. The durable
// backends embed it and layer persistence on top.
package memory

import (
	"context"
	"strconv"
	"sync"

	"campuslife/internal/infra/persistence/fanout"
	"campuslife/pkg/domain"
)

// collection keeps entities in insertion order under stable string ids.
type collection[T any] struct {
	order []string
	items map[string]T
}

func newCollection[T any]() collection[T] {
	return collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection[T]) insert(id string, v T) {
	c.items[id] = v
	c.order = append(c.order, id)
}

func (c *collection[T]) replace(id string, v T) {
	c.items[id] = v
}

func (c *collection[T]) remove(id string) {
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Option configures a Store.
type Option func(*Store)

// WithAuthenticator routes CurrentUser through auth instead of the
// simulated login state.
func WithAuthenticator(auth domain.Authenticator) Option {
	return func(s *Store) { s.auth = auth }
}

// Store is the in-memory reference implementation of domain.Store.
//
// A sync.RWMutex guards the collections; listener callbacks run outside the
// lock so a callback may call back into the store.
type Store struct {
	mu      sync.RWMutex
	nextUID int64

	associations collection[domain.Association]
	events       collection[domain.Event]
	users        collection[domain.User]

	associationHub *fanout.Hub[domain.Association]
	eventHub       *fanout.Hub[domain.Event]
	userHub        *fanout.Hub[domain.User]

	auth          domain.Authenticator
	sessionActive bool
	sessionUserID string
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		associations:   newCollection[domain.Association](),
		events:         newCollection[domain.Event](),
		users:          newCollection[domain.User](),
		associationHub: fanout.NewHub[domain.Association](),
		eventHub:       fanout.NewHub[domain.Event](),
		userHub:        fanout.NewHub[domain.User](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*Store)(nil)

// NewUID returns the next value of a monotonic counter scoped to this store
// instance. Ids survive restarts only through snapshots.
func (s *Store) NewUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.nextUID
	s.nextUID++
	return strconv.FormatInt(uid, 10)
}

// SimulateLogin marks userID as the authenticated principal for
// CurrentUser. It is a test and demo hook; an Authenticator option takes
// precedence when set.
func (s *Store) SimulateLogin(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionActive = true
	s.sessionUserID = userID
}

// SimulateLogout clears the simulated principal.
func (s *Store) SimulateLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionActive = false
	s.sessionUserID = ""
}

// Associations

func (s *Store) ListAssociations(context.Context) []domain.Association {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAssociationsLocked()
}

func (s *Store) listAssociationsLocked() []domain.Association {
	out := make([]domain.Association, 0, len(s.associations.order))
	for _, id := range s.associations.order {
		out = append(out, s.associations.items[id].Clone())
	}
	return out
}

func (s *Store) GetAssociation(_ context.Context, id string) (domain.Association, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.associations.get(id)
	if !ok {
		return domain.Association{}, false
	}
	return a.Clone(), true
}

func (s *Store) CreateAssociation(_ context.Context, a domain.Association) error {
	s.mu.Lock()
	if _, exists := s.associations.get(a.ID); exists {
		s.mu.Unlock()
		return domain.DuplicateIDError{Entity: domain.EntityAssociation, ID: a.ID}
	}
	s.associations.insert(a.ID, a.Clone())
	snapshot := s.listAssociationsLocked()
	s.mu.Unlock()

	s.associationHub.BroadcastAll(snapshot)
	s.associationHub.Broadcast(a.ID, a.Clone())
	return nil
}

func (s *Store) UpdateAssociation(_ context.Context, id string, a domain.Association) error {
	if a.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityAssociation, TargetID: id, BodyID: a.ID}
	}
	s.mu.Lock()
	if _, exists := s.associations.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityAssociation, ID: id}
	}
	s.associations.replace(id, a.Clone())
	snapshot := s.listAssociationsLocked()
	s.mu.Unlock()

	s.associationHub.BroadcastAll(snapshot)
	s.associationHub.Broadcast(id, a.Clone())
	return nil
}

func (s *Store) DeleteAssociation(_ context.Context, id string) error {
	s.mu.Lock()
	if _, exists := s.associations.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityAssociation, ID: id}
	}
	s.associations.remove(id)
	snapshot := s.listAssociationsLocked()
	s.mu.Unlock()

	// Per-id listeners are not told about deletes.
	s.associationHub.BroadcastAll(snapshot)
	return nil
}

// The initial replay for Listen* runs after the lock is released so fn may
// call back into the store. Replay order relative to concurrent mutations
// is only defined for a single mutating actor.

func (s *Store) ListenAllAssociations(fn func([]domain.Association)) domain.Registration {
	s.mu.RLock()
	snapshot := s.listAssociationsLocked()
	reg := s.associationHub.ListenAll(fn)
	s.mu.RUnlock()
	fn(snapshot)
	return reg
}

func (s *Store) ListenAssociation(id string, fn func(domain.Association)) domain.Registration {
	s.mu.RLock()
	current, ok := s.associations.get(id)
	if ok {
		current = current.Clone()
	}
	reg := s.associationHub.Listen(id, fn)
	s.mu.RUnlock()
	if ok {
		fn(current)
	}
	return reg
}

// Events

func (s *Store) ListEvents(context.Context) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEventsLocked()
}

func (s *Store) listEventsLocked() []domain.Event {
	out := make([]domain.Event, 0, len(s.events.order))
	for _, id := range s.events.order {
		out = append(out, s.events.items[id].Clone())
	}
	return out
}

func (s *Store) GetEvent(_ context.Context, id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events.get(id)
	if !ok {
		return domain.Event{}, false
	}
	return e.Clone(), true
}

func (s *Store) CreateEvent(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	if _, exists := s.events.get(e.ID); exists {
		s.mu.Unlock()
		return domain.DuplicateIDError{Entity: domain.EntityEvent, ID: e.ID}
	}
	s.events.insert(e.ID, e.Clone())
	snapshot := s.listEventsLocked()
	s.mu.Unlock()

	s.eventHub.BroadcastAll(snapshot)
	s.eventHub.Broadcast(e.ID, e.Clone())
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, e domain.Event) error {
	if e.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityEvent, TargetID: id, BodyID: e.ID}
	}
	s.mu.Lock()
	if _, exists := s.events.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityEvent, ID: id}
	}
	s.events.replace(id, e.Clone())
	snapshot := s.listEventsLocked()
	s.mu.Unlock()

	s.eventHub.BroadcastAll(snapshot)
	s.eventHub.Broadcast(id, e.Clone())
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	if _, exists := s.events.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityEvent, ID: id}
	}
	s.events.remove(id)
	snapshot := s.listEventsLocked()
	s.mu.Unlock()

	s.eventHub.BroadcastAll(snapshot)
	return nil
}

func (s *Store) ListenAllEvents(fn func([]domain.Event)) domain.Registration {
	s.mu.RLock()
	snapshot := s.listEventsLocked()
	reg := s.eventHub.ListenAll(fn)
	s.mu.RUnlock()
	fn(snapshot)
	return reg
}

func (s *Store) ListenEvent(id string, fn func(domain.Event)) domain.Registration {
	s.mu.RLock()
	current, ok := s.events.get(id)
	if ok {
		current = current.Clone()
	}
	reg := s.eventHub.Listen(id, fn)
	s.mu.RUnlock()
	if ok {
		fn(current)
	}
	return reg
}

// Users

func (s *Store) ListUsers(context.Context) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUsersLocked()
}

func (s *Store) listUsersLocked() []domain.User {
	out := make([]domain.User, 0, len(s.users.order))
	for _, id := range s.users.order {
		out = append(out, s.users.items[id].Clone())
	}
	return out
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.get(id)
	if !ok {
		return domain.User{}, false
	}
	return u.Clone(), true
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	if _, exists := s.users.get(u.ID); exists {
		s.mu.Unlock()
		return domain.DuplicateIDError{Entity: domain.EntityUser, ID: u.ID}
	}
	s.users.insert(u.ID, u.Clone())
	snapshot := s.listUsersLocked()
	s.mu.Unlock()

	s.userHub.BroadcastAll(snapshot)
	s.userHub.Broadcast(u.ID, u.Clone())
	return nil
}

func (s *Store) UpdateUser(_ context.Context, id string, u domain.User) error {
	if u.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityUser, TargetID: id, BodyID: u.ID}
	}
	s.mu.Lock()
	if _, exists := s.users.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	s.users.replace(id, u.Clone())
	snapshot := s.listUsersLocked()
	s.mu.Unlock()

	s.userHub.BroadcastAll(snapshot)
	s.userHub.Broadcast(id, u.Clone())
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	if _, exists := s.users.get(id); !exists {
		s.mu.Unlock()
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	s.users.remove(id)
	snapshot := s.listUsersLocked()
	s.mu.Unlock()

	s.userHub.BroadcastAll(snapshot)
	return nil
}

func (s *Store) CurrentUser(ctx context.Context) (domain.User, bool) {
	s.mu.RLock()
	auth := s.auth
	id := s.sessionUserID
	loggedIn := s.sessionActive
	s.mu.RUnlock()
	if auth != nil {
		id, loggedIn = auth.CurrentUserID(ctx)
	}
	if !loggedIn {
		return domain.User{}, false
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListenAllUsers(fn func([]domain.User)) domain.Registration {
	s.mu.RLock()
	snapshot := s.listUsersLocked()
	reg := s.userHub.ListenAll(fn)
	s.mu.RUnlock()
	fn(snapshot)
	return reg
}

func (s *Store) ListenUser(id string, fn func(domain.User)) domain.Registration {
	s.mu.RLock()
	current, ok := s.users.get(id)
	if ok {
		current = current.Clone()
	}
	reg := s.userHub.Listen(id, fn)
	s.mu.RUnlock()
	if ok {
		fn(current)
	}
	return reg
}
