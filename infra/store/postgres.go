package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	corestore "github.com/kilianp07/crisistriage/core/store"
)

var _ corestore.Store = (*PostgresStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	id            TEXT PRIMARY KEY,
	resource_type TEXT NOT NULL,
	status        TEXT NOT NULL,
	verified      BOOLEAN NOT NULL,
	capacity      INTEGER NOT NULL CHECK (capacity > 0),
	availability  INTEGER NOT NULL CHECK (availability >= 0 AND availability <= capacity),
	updated_at    TIMESTAMPTZ NOT NULL,
	doc           JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS requests (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL,
	doc         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS requests_status_received_idx ON requests (status, received_at DESC);
`

const resourceColumns = `doc, availability, status, updated_at`

// PostgresStore persists resources and requests in PostgreSQL. Columns used
// for filtering or conditional updates are authoritative; the remaining
// fields live in a JSONB document.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres connects with the pgx driver and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (model.Resource, error) {
	var (
		doc          []byte
		availability int
		status       string
		updated      time.Time
	)
	if err := row.Scan(&doc, &availability, &status, &updated); err != nil {
		return model.Resource{}, err
	}
	var r model.Resource
	if err := json.Unmarshal(doc, &r); err != nil {
		return model.Resource{}, fmt.Errorf("decode resource: %w", err)
	}
	r.Availability = availability
	r.Status = model.ResourceStatus(status)
	r.UpdatedAt = updated.UTC()
	return r, nil
}

func (s *PostgresStore) FindResources(ctx context.Context, f corestore.ResourceFilter) ([]model.Resource, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("resource_type = $%d", len(args)))
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		where = append(where, fmt.Sprintf("verified = $%d", len(args)))
	}
	q := "SELECT " + resourceColumns + " FROM resources"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *PostgresStore) GetResource(ctx context.Context, id string) (model.Resource, error) {
	r, err := scanResource(s.db.QueryRowContext(ctx, "SELECT "+resourceColumns+" FROM resources WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	return r, err
}

func (s *PostgresStore) SaveResource(ctx context.Context, r model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.upsertResource(ctx, s.db, r)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) upsertResource(ctx context.Context, db execer, r model.Resource) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO resources (id, resource_type, status, verified, capacity, availability, updated_at, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET resource_type = EXCLUDED.resource_type, status = EXCLUDED.status,
	verified = EXCLUDED.verified, capacity = EXCLUDED.capacity, availability = EXCLUDED.availability,
	updated_at = EXCLUDED.updated_at, doc = EXCLUDED.doc`,
		r.ID, string(r.Type), string(r.Status), r.Verified, r.Capacity, r.Availability, r.UpdatedAt, doc)
	return err
}

// UpdateResource applies p under a row lock.
func (s *PostgresStore) UpdateResource(ctx context.Context, id string, p model.ResourcePatch) (model.Resource, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Resource{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanResource(tx.QueryRowContext(ctx, "SELECT "+resourceColumns+" FROM resources WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	if err != nil {
		return model.Resource{}, err
	}
	next, err := p.Apply(cur, s.now())
	if err != nil {
		return model.Resource{}, err
	}
	if err := s.upsertResource(ctx, tx, next); err != nil {
		return model.Resource{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Resource{}, err
	}
	return next, nil
}

// UpdateResourceAvailability shifts availability in a single conditional
// statement so concurrent reservations never oversubscribe a resource. A
// reservation also requires the resource to be active and verified.
func (s *PostgresStore) UpdateResourceAvailability(ctx context.Context, id string, delta int) (model.Resource, error) {
	row := s.db.QueryRowContext(ctx, `UPDATE resources SET
	availability = availability + $2,
	status = CASE
		WHEN availability + $2 = 0 AND status = 'active' THEN 'deployed'
		WHEN availability + $2 > 0 AND status = 'deployed' THEN 'active'
		ELSE status END,
	updated_at = $3
WHERE id = $1 AND availability + $2 >= 0 AND availability + $2 <= capacity
	AND ($2 >= 0 OR (status = 'active' AND verified))
RETURNING `+resourceColumns, id, delta, s.now())
	r, err := scanResource(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, err
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM resources WHERE id = $1)", id).Scan(&exists); err != nil {
		return model.Resource{}, err
	}
	if !exists {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	return model.Resource{}, fmt.Errorf("%w: resource %s cannot shift by %d or is not dispatchable", errs.ErrCapacityConflict, id, delta)
}

func (s *PostgresStore) SaveRequest(ctx context.Context, r model.EmergencyRequest) error {
	if r.ID == "" {
		return errs.Validationf("request id is required")
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO requests (id, status, received_at, doc) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, received_at = EXCLUDED.received_at, doc = EXCLUDED.doc`,
		r.ID, string(r.Status), r.ReceivedAt, doc)
	return err
}

func decodeRequest(doc []byte) (model.EmergencyRequest, error) {
	var r model.EmergencyRequest
	if err := json.Unmarshal(doc, &r); err != nil {
		return model.EmergencyRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindRequest(ctx context.Context, id string) (model.EmergencyRequest, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM requests WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EmergencyRequest{}, errs.NotFoundf("request %s", id)
	}
	if err != nil {
		return model.EmergencyRequest{}, err
	}
	return decodeRequest(doc)
}

// UpdateRequest replaces the request only while its stored status is expected.
func (s *PostgresStore) UpdateRequest(ctx context.Context, r model.EmergencyRequest, expected model.RequestStatus) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE requests SET status = $2, doc = $3 WHERE id = $1 AND status = $4",
		r.ID, string(r.Status), doc, string(expected))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 1 {
		return err
	}
	var cur string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM requests WHERE id = $1", r.ID).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFoundf("request %s", r.ID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: request %s is %s, expected %s", errs.ErrInvalidTransition, r.ID, cur, expected)
}

func (s *PostgresStore) ListRequests(ctx context.Context, f corestore.RequestFilter) ([]model.EmergencyRequest, error) {
	q := "SELECT doc FROM requests"
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += " WHERE status = $1"
	}
	q += " ORDER BY received_at DESC, id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Skip > 0 {
		args = append(args, f.Skip)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.EmergencyRequest{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		r, err := decodeRequest(doc)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) Close() error { return s.db.Close() }
