package episode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the episodes table. Execute it via
// [PostgresStore.Migrate] or apply it manually.
const Schema = `
CREATE TABLE IF NOT EXISTS episodes (
    id           BIGSERIAL PRIMARY KEY,
    run_id       TEXT NOT NULL DEFAULT '',
    project      TEXT NOT NULL DEFAULT '',
    script       TEXT NOT NULL,
    output       TEXT NOT NULL,
    preset       TEXT NOT NULL DEFAULT '',
    planned      INTEGER NOT NULL,
    synthesized  INTEGER NOT NULL,
    pauses       INTEGER NOT NULL DEFAULT 0,
    warnings     JSONB NOT NULL DEFAULT '[]',
    elapsed_ms   BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes(project, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Warnings are stored as
// JSONB.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a [PostgresStore] using db. Call
// [PostgresStore.Migrate] before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the episodes table and index if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("episode: migrate: %w", err)
	}
	return nil
}

// Record implements [Store].
func (s *PostgresStore) Record(ctx context.Context, ep *Episode) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	warnings := ep.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warnJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("episode: marshal warnings: %w", err)
	}

	const query = `
		INSERT INTO episodes (
			run_id, project, script, output, preset,
			planned, synthesized, pauses, warnings, elapsed_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at`

	err = s.db.QueryRow(ctx, query,
		ep.RunID, ep.Project, ep.Script, ep.Output, ep.Preset,
		ep.Planned, ep.Synthesized, ep.Pauses, warnJSON, ep.Elapsed.Milliseconds(),
	).Scan(&ep.ID, &ep.CreatedAt)
	if err != nil {
		return fmt.Errorf("episode: record: %w", err)
	}
	return nil
}

// List implements [Store].
func (s *PostgresStore) List(ctx context.Context, project string, limit int) ([]Episode, error) {
	query := `
		SELECT id, run_id, project, script, output, preset,
		       planned, synthesized, pauses, warnings, elapsed_ms, created_at
		FROM episodes`
	var args []any
	if project != "" {
		args = append(args, project)
		query += fmt.Sprintf("\n\t\tWHERE project = $%d", len(args))
	}
	query += "\n\t\tORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("episode: list: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var (
			ep        Episode
			warnJSON  []byte
			elapsedMS int64
		)
		if err := rows.Scan(
			&ep.ID, &ep.RunID, &ep.Project, &ep.Script, &ep.Output, &ep.Preset,
			&ep.Planned, &ep.Synthesized, &ep.Pauses, &warnJSON, &elapsedMS, &ep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("episode: list scan: %w", err)
		}
		if err := json.Unmarshal(warnJSON, &ep.Warnings); err != nil {
			return nil, fmt.Errorf("episode: unmarshal warnings: %w", err)
		}
		ep.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("episode: list: %w", err)
	}
	return out, nil
}
