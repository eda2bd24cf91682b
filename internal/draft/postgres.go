package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranaops/bolbill/internal/cart"
)

// PostgresStore is a [Store] backed by a cart_drafts table, for shops that
// share drafts across counters. All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to PostgreSQL and ensures the cart_drafts table
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("draft store: connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection, for readiness probes.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS cart_drafts (
		    session_id TEXT PRIMARY KEY,
		    snapshot   JSONB NOT NULL,
		    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("draft store: ensure schema: %w", err)
	}
	return nil
}

// Save implements [Store] with an upsert keyed on session_id.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, snap cart.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("draft store: encode snapshot: %w", err)
	}

	const q = `
		INSERT INTO cart_drafts (session_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, sessionID, payload); err != nil {
		return fmt.Errorf("draft store: save %q: %w", sessionID, err)
	}
	return nil
}

// Load implements [Store].
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (cart.Snapshot, bool, error) {
	const q = `SELECT snapshot FROM cart_drafts WHERE session_id = $1`

	var payload []byte
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("draft store: load %q: %w", sessionID, err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("draft store: decode snapshot %q: %w", sessionID, err)
	}
	return snap, true, nil
}

// Delete implements [Store].
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM cart_drafts WHERE session_id = $1`

	if _, err := s.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("draft store: delete %q: %w", sessionID, err)
	}
	return nil
}
