// Package core exposes the directory service: entity CRUD with
// observability, cross-entity consistency checks, and the subscription and
// enrollment state machine shared by every storage backend.
package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campuslife/pkg/domain"
)

// Service wraps a domain.Store with the operations consumers call.
type Service struct {
	store   domain.Store
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditLogger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records per-operation outcomes.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTracer opens a span per operation.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithAudit records an audit entry per successful mutation.
func WithAudit(a AuditLogger) ServiceOption {
	return func(s *Service) { s.audit = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a service over the given store.
func NewService(store domain.Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for listener registration.
func (s *Service) Store() domain.Store { return s.store }

func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, s.now().Sub(start))
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, entity domain.EntityType, action domain.Action, targetID string) {
	if s.audit == nil {
		return
	}
	actor := "anonymous"
	if u, ok := s.store.CurrentUser(ctx); ok {
		actor = u.ID
	}
	s.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Actor:      actor,
		Entity:     entity,
		Action:     action,
		TargetID:   targetID,
		OccurredAt: s.now().UTC(),
	})
}

// Associations

func (s *Service) NewAssociationUID() string { return s.store.NewUID() }

func (s *Service) Associations(ctx context.Context) []domain.Association {
	return s.store.ListAssociations(ctx)
}

func (s *Service) Association(ctx context.Context, id string) (domain.Association, bool) {
	return s.store.GetAssociation(ctx, id)
}

func (s *Service) CreateAssociation(ctx context.Context, a domain.Association) error {
	return s.observe(ctx, "create_association", func(ctx context.Context) error {
		if err := s.store.CreateAssociation(ctx, a); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityAssociation, domain.ActionCreate, a.ID)
		return nil
	})
}

func (s *Service) UpdateAssociation(ctx context.Context, id string, a domain.Association) error {
	return s.observe(ctx, "update_association", func(ctx context.Context) error {
		if err := s.store.UpdateAssociation(ctx, id, a); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityAssociation, domain.ActionUpdate, id)
		return nil
	})
}

// DeleteAssociation removes the association. Events keep their embedded
// snapshot of it.
func (s *Service) DeleteAssociation(ctx context.Context, id string) error {
	return s.observe(ctx, "delete_association", func(ctx context.Context) error {
		if err := s.store.DeleteAssociation(ctx, id); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityAssociation, domain.ActionDelete, id)
		return nil
	})
}

// Events

func (s *Service) NewEventUID() string { return s.store.NewUID() }

func (s *Service) Events(ctx context.Context) []domain.Event {
	return s.store.ListEvents(ctx)
}

func (s *Service) Event(ctx context.Context, id string) (domain.Event, bool) {
	return s.store.GetEvent(ctx, id)
}

// EventsForAssociation returns the events whose embedded snapshot points at
// the association. The association must currently exist.
func (s *Service) EventsForAssociation(ctx context.Context, associationID string) ([]domain.Event, error) {
	var out []domain.Event
	err := s.observe(ctx, "events_for_association", func(ctx context.Context) error {
		if _, ok := s.store.GetAssociation(ctx, associationID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssociation, ID: associationID}
		}
		for _, e := range s.store.ListEvents(ctx) {
			if e.Association.ID == associationID {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEvent stores the event after checking its embedded association
// exists right now. The snapshot is not kept in sync afterwards.
func (s *Service) CreateEvent(ctx context.Context, e domain.Event) error {
	return s.observe(ctx, "create_event", func(ctx context.Context) error {
		if _, ok := s.store.GetAssociation(ctx, e.Association.ID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssociation, ID: e.Association.ID}
		}
		if err := s.store.CreateEvent(ctx, e); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityEvent, domain.ActionCreate, e.ID)
		return nil
	})
}

func (s *Service) UpdateEvent(ctx context.Context, id string, e domain.Event) error {
	return s.observe(ctx, "update_event", func(ctx context.Context) error {
		if err := s.store.UpdateEvent(ctx, id, e); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityEvent, domain.ActionUpdate, id)
		return nil
	})
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.observe(ctx, "delete_event", func(ctx context.Context) error {
		if err := s.store.DeleteEvent(ctx, id); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityEvent, domain.ActionDelete, id)
		return nil
	})
}

// Users

func (s *Service) NewUserUID() string { return s.store.NewUID() }

func (s *Service) Users(ctx context.Context) []domain.User {
	return s.store.ListUsers(ctx)
}

func (s *Service) User(ctx context.Context, id string) (domain.User, bool) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) CurrentUser(ctx context.Context) (domain.User, bool) {
	return s.store.CurrentUser(ctx)
}

func (s *Service) CreateUser(ctx context.Context, u domain.User) error {
	return s.observe(ctx, "create_user", func(ctx context.Context) error {
		if err := s.store.CreateUser(ctx, u); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionCreate, u.ID)
		return nil
	})
}

func (s *Service) UpdateUser(ctx context.Context, id string, u domain.User) error {
	return s.observe(ctx, "update_user", func(ctx context.Context) error {
		if err := s.store.UpdateUser(ctx, id, u); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionUpdate, id)
		return nil
	})
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.observe(ctx, "delete_user", func(ctx context.Context) error {
		if err := s.store.DeleteUser(ctx, id); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionDelete, id)
		return nil
	})
}

// Subscriptions and enrollment. Each toggle resolves the current user,
// checks the target exists, guards the membership state, then replaces the
// whole user through the normal update invariants.

func (s *Service) SubscribeToAssociation(ctx context.Context, associationID string) error {
	return s.observe(ctx, "subscribe_association", func(ctx context.Context) error {
		user, ok := s.store.CurrentUser(ctx)
		if !ok {
			return domain.ErrNotLoggedIn
		}
		if _, ok := s.store.GetAssociation(ctx, associationID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssociation, ID: associationID}
		}
		if user.SubscribedTo(associationID) {
			return domain.AlreadyInStateError{Entity: domain.EntityAssociation, ID: associationID, State: "subscribed to"}
		}
		user.Subscriptions = append(user.Subscriptions, associationID)
		if err := s.store.UpdateUser(ctx, user.ID, user); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionUpdate, user.ID)
		return nil
	})
}

func (s *Service) UnsubscribeFromAssociation(ctx context.Context, associationID string) error {
	return s.observe(ctx, "unsubscribe_association", func(ctx context.Context) error {
		user, ok := s.store.CurrentUser(ctx)
		if !ok {
			return domain.ErrNotLoggedIn
		}
		if _, ok := s.store.GetAssociation(ctx, associationID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssociation, ID: associationID}
		}
		if !user.SubscribedTo(associationID) {
			return domain.NotInStateError{Entity: domain.EntityAssociation, ID: associationID, State: "subscribed to"}
		}
		user.Subscriptions = removeID(user.Subscriptions, associationID)
		if err := s.store.UpdateUser(ctx, user.ID, user); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionUpdate, user.ID)
		return nil
	})
}

func (s *Service) EnrollInEvent(ctx context.Context, eventID string) error {
	return s.observe(ctx, "enroll_event", func(ctx context.Context) error {
		user, ok := s.store.CurrentUser(ctx)
		if !ok {
			return domain.ErrNotLoggedIn
		}
		if _, ok := s.store.GetEvent(ctx, eventID); !ok {
			return domain.NotFoundError{Entity: domain.EntityEvent, ID: eventID}
		}
		if user.EnrolledIn(eventID) {
			return domain.AlreadyInStateError{Entity: domain.EntityEvent, ID: eventID, State: "enrolled in"}
		}
		user.EnrolledEvents = append(user.EnrolledEvents, eventID)
		if err := s.store.UpdateUser(ctx, user.ID, user); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionUpdate, user.ID)
		return nil
	})
}

func (s *Service) UnenrollFromEvent(ctx context.Context, eventID string) error {
	return s.observe(ctx, "unenroll_event", func(ctx context.Context) error {
		user, ok := s.store.CurrentUser(ctx)
		if !ok {
			return domain.ErrNotLoggedIn
		}
		if _, ok := s.store.GetEvent(ctx, eventID); !ok {
			return domain.NotFoundError{Entity: domain.EntityEvent, ID: eventID}
		}
		if !user.EnrolledIn(eventID) {
			return domain.NotInStateError{Entity: domain.EntityEvent, ID: eventID, State: "enrolled in"}
		}
		user.EnrolledEvents = removeID(user.EnrolledEvents, eventID)
		if err := s.store.UpdateUser(ctx, user.ID, user); err != nil {
			return err
		}
		s.recordAudit(ctx, domain.EntityUser, domain.ActionUpdate, user.ID)
		return nil
	})
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
