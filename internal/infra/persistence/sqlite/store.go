// Package sqlite wraps the memory store with a file-backed snapshot so a
// single-node deployment survives restarts. Every successful mutation
// rewrites the full state, one JSON payload per bucket.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"campuslife/internal/infra/persistence/memory"
	"campuslife/pkg/domain"
)

const (
	bucketAssociations = "associations"
	bucketEvents       = "events"
	bucketUsers        = "users"
	bucketMeta         = "meta"
)

type metaPayload struct {
	NextUID int64 `json:"nextUid"`
}

// Store is a durable domain.Store backed by a SQLite file.
type Store struct {
	*memory.Store
	db *sql.DB
}

var _ domain.Store = (*Store)(nil)

// Open opens or creates the snapshot database at path and hydrates the
// in-memory state from it.
func Open(path string, opts ...memory.Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	s := &Store{Store: memory.NewStore(opts...), db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var snap memory.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan snapshot row: %w", err)
		}
		found = true
		switch bucket {
		case bucketAssociations:
			err = json.Unmarshal(payload, &snap.Associations)
		case bucketEvents:
			err = json.Unmarshal(payload, &snap.Events)
		case bucketUsers:
			err = json.Unmarshal(payload, &snap.Users)
		case bucketMeta:
			var meta metaPayload
			if err = json.Unmarshal(payload, &meta); err == nil {
				snap.NextUID = meta.NextUID
			}
		}
		if err != nil {
			return fmt.Errorf("decode bucket %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if found {
		s.Store.ImportState(snap)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	snap := s.ExportState()
	buckets := []struct {
		name  string
		value any
	}{
		{bucketAssociations, snap.Associations},
		{bucketEvents, snap.Events},
		{bucketUsers, snap.Users},
		{bucketMeta, metaPayload{NextUID: snap.NextUID}},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	for _, b := range buckets {
		payload, err := json.Marshal(b.value)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode bucket %s: %w", b.name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO state(bucket, payload) VALUES(?, ?)
			 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
			b.name, payload)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("write bucket %s: %w", b.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (s *Store) CreateAssociation(ctx context.Context, a domain.Association) error {
	if err := s.Store.CreateAssociation(ctx, a); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) UpdateAssociation(ctx context.Context, id string, a domain.Association) error {
	if err := s.Store.UpdateAssociation(ctx, id, a); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) DeleteAssociation(ctx context.Context, id string) error {
	if err := s.Store.DeleteAssociation(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) error {
	if err := s.Store.CreateEvent(ctx, e); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) UpdateEvent(ctx context.Context, id string, e domain.Event) error {
	if err := s.Store.UpdateEvent(ctx, id, e); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.Store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) UpdateUser(ctx context.Context, id string, u domain.User) error {
	if err := s.Store.UpdateUser(ctx, id, u); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.Store.DeleteUser(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}
