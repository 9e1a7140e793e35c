// Package mongo implements the directory store on a remote MongoDB
// deployment, one collection per entity family. Invariant checks mirror the
// memory store so both backends answer identically; driver failures on
// reads degrade to absent results, driver failures on writes surface
// wrapped.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campuslife/internal/infra/persistence/fanout"
	"campuslife/pkg/domain"
)

const (
	collAssociations = "associations"
	collEvents       = "events"
	collUsers        = "users"

	defaultTimeout = 5 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithTimeout sets the per-operation deadline applied to driver calls.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// Store is a domain.Store backed by a MongoDB database.
//
// Listener fan-out is instance-local: registrations observe this process's
// successful writes, not writes from other clients of the same database.
type Store struct {
	client  *mongodrv.Client
	db      *mongodrv.Database
	auth    domain.Authenticator
	log     *slog.Logger
	timeout time.Duration

	associationHub *fanout.Hub[domain.Association]
	eventHub       *fanout.Hub[domain.Event]
	userHub        *fanout.Hub[domain.User]
}

var _ domain.Store = (*Store)(nil)

// NewStore wraps an already-connected database handle.
func NewStore(db *mongodrv.Database, auth domain.Authenticator, opts ...Option) *Store {
	s := &Store{
		db:             db,
		auth:           auth,
		log:            slog.Default(),
		timeout:        defaultTimeout,
		associationHub: fanout.NewHub[domain.Association](),
		eventHub:       fanout.NewHub[domain.Event](),
		userHub:        fanout.NewHub[domain.User](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the deployment at uri and returns a store over the named
// database. Close releases the connection.
func Connect(ctx context.Context, uri, database string, auth domain.Authenticator, opts ...Option) (*Store, error) {
	client, err := mongodrv.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := NewStore(client.Database(database), auth, opts...)
	s.client = client
	return s, nil
}

// Close disconnects the client when the store owns one.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// NewUID delegates to the backend's id generator.
func (s *Store) NewUID() string {
	return primitive.NewObjectID().Hex()
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Associations

func (s *Store) ListAssociations(ctx context.Context) []domain.Association {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	cur, err := s.db.Collection(collAssociations).Find(opctx, bson.M{})
	if err != nil {
		s.log.Error("list associations", "error", err)
		return nil
	}
	defer cur.Close(opctx)
	var out []domain.Association
	for cur.Next(opctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			s.log.Warn("decode association document", "error", err)
			continue
		}
		a, err := docToAssociation(doc)
		if err != nil {
			s.log.Warn("skip malformed association document", "error", err)
			continue
		}
		out = append(out, a)
	}
	if err := cur.Err(); err != nil {
		s.log.Error("list associations", "error", err)
	}
	return out
}

func (s *Store) GetAssociation(ctx context.Context, id string) (domain.Association, bool) {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	var doc bson.M
	err := s.db.Collection(collAssociations).FindOne(opctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongodrv.ErrNoDocuments) {
			s.log.Error("get association", "id", id, "error", err)
		}
		return domain.Association{}, false
	}
	a, err := docToAssociation(doc)
	if err != nil {
		s.log.Warn("skip malformed association document", "id", id, "error", err)
		return domain.Association{}, false
	}
	return a, true
}

func (s *Store) CreateAssociation(ctx context.Context, a domain.Association) error {
	if _, exists := s.GetAssociation(ctx, a.ID); exists {
		return domain.DuplicateIDError{Entity: domain.EntityAssociation, ID: a.ID}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collAssociations).InsertOne(opctx, associationToDoc(a)); err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return domain.DuplicateIDError{Entity: domain.EntityAssociation, ID: a.ID}
		}
		return fmt.Errorf("insert association %s: %w", a.ID, err)
	}
	s.notifyAssociations(ctx, &a)
	return nil
}

func (s *Store) UpdateAssociation(ctx context.Context, id string, a domain.Association) error {
	if a.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityAssociation, TargetID: id, BodyID: a.ID}
	}
	if _, exists := s.GetAssociation(ctx, id); !exists {
		return domain.NotFoundError{Entity: domain.EntityAssociation, ID: id}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collAssociations).ReplaceOne(opctx, bson.M{"_id": id}, associationToDoc(a)); err != nil {
		return fmt.Errorf("replace association %s: %w", id, err)
	}
	s.notifyAssociations(ctx, &a)
	return nil
}

func (s *Store) DeleteAssociation(ctx context.Context, id string) error {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(collAssociations).DeleteOne(opctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete association %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Entity: domain.EntityAssociation, ID: id}
	}
	s.notifyAssociations(ctx, nil)
	return nil
}

func (s *Store) ListenAllAssociations(fn func([]domain.Association)) domain.Registration {
	reg := s.associationHub.ListenAll(fn)
	fn(s.ListAssociations(context.Background()))
	return reg
}

func (s *Store) ListenAssociation(id string, fn func(domain.Association)) domain.Registration {
	reg := s.associationHub.Listen(id, fn)
	if a, ok := s.GetAssociation(context.Background(), id); ok {
		fn(a)
	}
	return reg
}

func (s *Store) notifyAssociations(ctx context.Context, changed *domain.Association) {
	if !s.associationHub.Active() {
		return
	}
	s.associationHub.BroadcastAll(s.ListAssociations(ctx))
	if changed != nil {
		s.associationHub.Broadcast(changed.ID, changed.Clone())
	}
}

// Events

func (s *Store) ListEvents(ctx context.Context) []domain.Event {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	cur, err := s.db.Collection(collEvents).Find(opctx, bson.M{})
	if err != nil {
		s.log.Error("list events", "error", err)
		return nil
	}
	defer cur.Close(opctx)
	var out []domain.Event
	for cur.Next(opctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			s.log.Warn("decode event document", "error", err)
			continue
		}
		e, err := docToEvent(doc)
		if err != nil {
			s.log.Warn("skip malformed event document", "error", err)
			continue
		}
		out = append(out, e)
	}
	if err := cur.Err(); err != nil {
		s.log.Error("list events", "error", err)
	}
	return out
}

func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, bool) {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	var doc bson.M
	err := s.db.Collection(collEvents).FindOne(opctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongodrv.ErrNoDocuments) {
			s.log.Error("get event", "id", id, "error", err)
		}
		return domain.Event{}, false
	}
	e, err := docToEvent(doc)
	if err != nil {
		s.log.Warn("skip malformed event document", "id", id, "error", err)
		return domain.Event{}, false
	}
	return e, true
}

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) error {
	if _, exists := s.GetEvent(ctx, e.ID); exists {
		return domain.DuplicateIDError{Entity: domain.EntityEvent, ID: e.ID}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collEvents).InsertOne(opctx, eventToDoc(e)); err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return domain.DuplicateIDError{Entity: domain.EntityEvent, ID: e.ID}
		}
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	s.notifyEvents(ctx, &e)
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, e domain.Event) error {
	if e.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityEvent, TargetID: id, BodyID: e.ID}
	}
	if _, exists := s.GetEvent(ctx, id); !exists {
		return domain.NotFoundError{Entity: domain.EntityEvent, ID: id}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collEvents).ReplaceOne(opctx, bson.M{"_id": id}, eventToDoc(e)); err != nil {
		return fmt.Errorf("replace event %s: %w", id, err)
	}
	s.notifyEvents(ctx, &e)
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(collEvents).DeleteOne(opctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Entity: domain.EntityEvent, ID: id}
	}
	s.notifyEvents(ctx, nil)
	return nil
}

func (s *Store) ListenAllEvents(fn func([]domain.Event)) domain.Registration {
	reg := s.eventHub.ListenAll(fn)
	fn(s.ListEvents(context.Background()))
	return reg
}

func (s *Store) ListenEvent(id string, fn func(domain.Event)) domain.Registration {
	reg := s.eventHub.Listen(id, fn)
	if e, ok := s.GetEvent(context.Background(), id); ok {
		fn(e)
	}
	return reg
}

func (s *Store) notifyEvents(ctx context.Context, changed *domain.Event) {
	if !s.eventHub.Active() {
		return
	}
	s.eventHub.BroadcastAll(s.ListEvents(ctx))
	if changed != nil {
		s.eventHub.Broadcast(changed.ID, changed.Clone())
	}
}

// Users

func (s *Store) ListUsers(ctx context.Context) []domain.User {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	cur, err := s.db.Collection(collUsers).Find(opctx, bson.M{})
	if err != nil {
		s.log.Error("list users", "error", err)
		return nil
	}
	defer cur.Close(opctx)
	var out []domain.User
	for cur.Next(opctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			s.log.Warn("decode user document", "error", err)
			continue
		}
		u, err := docToUser(doc)
		if err != nil {
			s.log.Warn("skip malformed user document", "error", err)
			continue
		}
		out = append(out, u)
	}
	if err := cur.Err(); err != nil {
		s.log.Error("list users", "error", err)
	}
	return out
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, bool) {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	var doc bson.M
	err := s.db.Collection(collUsers).FindOne(opctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongodrv.ErrNoDocuments) {
			s.log.Error("get user", "id", id, "error", err)
		}
		return domain.User{}, false
	}
	u, err := docToUser(doc)
	if err != nil {
		s.log.Warn("skip malformed user document", "id", id, "error", err)
		return domain.User{}, false
	}
	return u, true
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if _, exists := s.GetUser(ctx, u.ID); exists {
		return domain.DuplicateIDError{Entity: domain.EntityUser, ID: u.ID}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collUsers).InsertOne(opctx, userToDoc(u)); err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return domain.DuplicateIDError{Entity: domain.EntityUser, ID: u.ID}
		}
		return fmt.Errorf("insert user %s: %w", u.ID, err)
	}
	s.notifyUsers(ctx, &u)
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, u domain.User) error {
	if u.ID != id {
		return domain.IDMismatchError{Entity: domain.EntityUser, TargetID: id, BodyID: u.ID}
	}
	if _, exists := s.GetUser(ctx, id); !exists {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.db.Collection(collUsers).ReplaceOne(opctx, bson.M{"_id": id}, userToDoc(u)); err != nil {
		return fmt.Errorf("replace user %s: %w", id, err)
	}
	s.notifyUsers(ctx, &u)
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	opctx, cancel := s.opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(collUsers).DeleteOne(opctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	s.notifyUsers(ctx, nil)
	return nil
}

func (s *Store) CurrentUser(ctx context.Context) (domain.User, bool) {
	if s.auth == nil {
		return domain.User{}, false
	}
	id, ok := s.auth.CurrentUserID(ctx)
	if !ok {
		return domain.User{}, false
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListenAllUsers(fn func([]domain.User)) domain.Registration {
	reg := s.userHub.ListenAll(fn)
	fn(s.ListUsers(context.Background()))
	return reg
}

func (s *Store) ListenUser(id string, fn func(domain.User)) domain.Registration {
	reg := s.userHub.Listen(id, fn)
	if u, ok := s.GetUser(context.Background(), id); ok {
		fn(u)
	}
	return reg
}

func (s *Store) notifyUsers(ctx context.Context, changed *domain.User) {
	if !s.userHub.Active() {
		return
	}
	s.userHub.BroadcastAll(s.ListUsers(ctx))
	if changed != nil {
		s.userHub.Broadcast(changed.ID, changed.Clone())
	}
}
