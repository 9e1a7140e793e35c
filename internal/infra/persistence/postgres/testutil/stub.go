// Package testutil provides an in-memory database/sql driver that mimics
// the snapshot table so the Postgres store can be exercised without a
// server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
)

// StubDB records snapshot writes keyed by bucket and can be told to fail.
type StubDB struct {
	mu        sync.Mutex
	rows      map[string][]byte
	Execs     []string
	FailExec  bool
	FailQuery bool
	FailPing  bool
}

// NewStubDB returns an empty stub.
func NewStubDB() *StubDB {
	return &StubDB{rows: make(map[string][]byte)}
}

// Open wraps the stub in a *sql.DB handle.
func Open(stub *StubDB) *sql.DB {
	return sql.OpenDB(connector{stub: stub})
}

// Bucket returns the stored payload for a bucket.
func (s *StubDB) Bucket(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.rows[name]
	return payload, ok
}

// SetBucket seeds a payload, standing in for pre-existing snapshot state.
func (s *StubDB) SetBucket(name string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[name] = append([]byte(nil), payload...)
}

type connector struct {
	stub *StubDB
}

func (c connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{stub: c.stub}, nil
}

func (c connector) Driver() driver.Driver { return stubDriver{stub: c.stub} }

type stubDriver struct {
	stub *StubDB
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return &conn{stub: d.stub}, nil
}

type conn struct {
	stub *StubDB
}

func (c *conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub driver: prepared statements unsupported")
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *conn) Ping(context.Context) error {
	c.stub.mu.Lock()
	defer c.stub.mu.Unlock()
	if c.stub.FailPing {
		return errors.New("stub driver: ping failed")
	}
	return nil
}

func (c *conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.stub.mu.Lock()
	defer c.stub.mu.Unlock()
	if c.stub.FailExec {
		return nil, errors.New("stub driver: exec failed")
	}
	c.stub.Execs = append(c.stub.Execs, query)
	if strings.Contains(query, "INSERT INTO") {
		if len(args) != 2 {
			return nil, errors.New("stub driver: unexpected upsert arity")
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, errors.New("stub driver: bucket is not a string")
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, errors.New("stub driver: payload is not bytes")
		}
		c.stub.rows[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.stub.mu.Lock()
	defer c.stub.mu.Unlock()
	if c.stub.FailQuery {
		return nil, errors.New("stub driver: query failed")
	}
	if !strings.Contains(query, "SELECT") {
		return nil, errors.New("stub driver: unsupported query")
	}
	buckets := make([]string, 0, len(c.stub.rows))
	for bucket := range c.stub.rows {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)
	rows := &stubRows{}
	for _, bucket := range buckets {
		rows.data = append(rows.data, [2]driver.Value{
			bucket,
			append([]byte(nil), c.stub.rows[bucket]...),
		})
	}
	return rows, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	data [][2]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }

func (r *stubRows) Close() error { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	dest[0] = r.data[r.pos][0]
	dest[1] = r.data[r.pos][1]
	r.pos++
	return nil
}

var (
	_ driver.Connector      = connector{}
	_ driver.ExecerContext  = (*conn)(nil)
	_ driver.QueryerContext = (*conn)(nil)
	_ driver.Pinger         = (*conn)(nil)
	_ driver.ConnBeginTx    = (*conn)(nil)
)
