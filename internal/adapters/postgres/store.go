// Package postgres stores run checkpoints in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies pending schema migrations.
func Migrate(dsn string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Store implements ports.CheckpointStore on a checkpoints table.
type Store struct {
	db *sql.DB
}

var _ ports.CheckpointStore = (*Store)(nil)

// Open migrates the schema, then connects with the pgx driver.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an open connection whose schema is already migrated.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

const upsertQuery = `
INSERT INTO checkpoints (run_id, status, terminated, state, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (run_id) DO UPDATE
SET status = EXCLUDED.status,
    terminated = EXCLUDED.terminated,
    state = EXCLUDED.state,
    updated_at = NOW()`

// Save implements ports.CheckpointStore.
func (s *Store) Save(ctx context.Context, runID string, state *domain.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, runID, string(state.Status), state.Terminated, string(data)); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", runID, err)
	}
	return nil
}

// Load implements ports.CheckpointStore.
func (s *Store) Load(ctx context.Context, runID string) (*domain.WorkflowState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM checkpoints WHERE run_id = $1`, runID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("load checkpoint %s: %w", runID, err)
	}

	var state domain.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", runID, err)
	}
	return &state, nil
}

// Delete implements ports.CheckpointStore.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", runID, err)
	}
	return nil
}

// List implements ports.CheckpointStore.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM checkpoints ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
