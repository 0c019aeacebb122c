// Package postgres provides a Checkpointer backed by a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	_ "github.com/lib/pq"
)

// DefaultTable holds one row per thread.
const DefaultTable = "agentgraph_checkpoints"

// Store implements ports.Checkpointer on PostgreSQL.
type Store struct {
	db    *sql.DB
	table string
}

type Option func(*Store)

// WithTable overrides the checkpoint table name.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// New opens a connection pool for dsn and ensures the checkpoint table exists.
// A positive maxConnections bounds the pool.
func New(ctx context.Context, dsn string, maxConnections int, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxConnections > 0 {
		db.SetMaxOpenConns(maxConnections)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := NewFromDB(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewFromDB wraps an existing pool.
func NewFromDB(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	store := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.createTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return store, nil
}

func (s *Store) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id  TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.table)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save upserts the thread state.
func (s *Store) Save(ctx context.Context, threadID string, state *domain.State) error {
	snapshot := state.Clone()
	snapshot.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query, threadID, data, snapshot.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the thread state.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.State, error) {
	query := fmt.Sprintf(`SELECT state FROM %s WHERE thread_id = $1`, s.table)

	var data []byte
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the thread row.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, s.table)
	_, err := s.db.ExecContext(ctx, query, threadID)
	return err
}

// List returns all thread IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT thread_id FROM %s ORDER BY thread_id`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	threads := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		threads = append(threads, id)
	}
	return threads, rows.Err()
}

// Close closes the database pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
