// Package sqlite persists pipeline run audit records in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/core/ports"
)

// Store is a SQLite implementation of RunStore.
type Store struct {
	db *sql.DB
}

var _ ports.RunStore = (*Store)(nil)

// New creates a new SQLite store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS hook_runs (
			id TEXT PRIMARY KEY,
			hook_point TEXT NOT NULL,
			entity_id TEXT,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			scripts INTEGER NOT NULL,
			diagnostics TEXT,
			duration_ns INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hook_runs_point ON hook_runs(hook_point)`,
		`CREATE INDEX IF NOT EXISTS idx_hook_runs_entity ON hook_runs(entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hook_runs_created ON hook_runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun stores one completed pipeline run.
func (s *Store) RecordRun(ctx context.Context, rec *ports.RunRecord) error {
	var diagnostics sql.NullString
	if len(rec.Diagnostics) > 0 {
		b, err := json.Marshal(rec.Diagnostics)
		if err != nil {
			return fmt.Errorf("marshal diagnostics: %w", err)
		}
		diagnostics = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hook_runs (id, hook_point, entity_id, mode, status, scripts, diagnostics, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.HookPoint, rec.EntityID, rec.Mode, rec.Status, rec.Scripts,
		diagnostics, rec.Duration.Nanoseconds(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert hook run: %w", err)
	}
	return nil
}

// ListRuns lists recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context, opts ports.RunListOptions) ([]*ports.RunRecord, error) {
	query := `SELECT id, hook_point, entity_id, mode, status, scripts, diagnostics, duration_ns, created_at
		FROM hook_runs WHERE 1=1`
	var args []any
	if opts.HookPoint != "" {
		query += " AND hook_point = ?"
		args = append(args, opts.HookPoint)
	}
	if opts.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, opts.EntityID)
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hook runs: %w", err)
	}
	defer rows.Close()

	var records []*ports.RunRecord
	for rows.Next() {
		rec := &ports.RunRecord{}
		var entityID, diagnostics sql.NullString
		var durationNS int64
		if err := rows.Scan(&rec.ID, &rec.HookPoint, &entityID, &rec.Mode, &rec.Status,
			&rec.Scripts, &diagnostics, &durationNS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hook run: %w", err)
		}
		rec.EntityID = entityID.String
		rec.Duration = time.Duration(durationNS)
		if diagnostics.Valid {
			var diags []domain.Diagnostic
			if err := json.Unmarshal([]byte(diagnostics.String), &diags); err != nil {
				return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
			}
			rec.Diagnostics = diags
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
