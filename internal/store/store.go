package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/delogo/internal/types"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no schedule has the requested name.
var ErrNotFound = errors.New("schedule not found")

// Store manages the PostgreSQL connection holding saved logo schedules.
type Store struct {
	conn *pgx.Conn
}

// ScheduleInfo summarizes one stored schedule.
type ScheduleInfo struct {
	ID         int
	Name       string
	SourcePath string
	Entries    int
	CreatedAt  time.Time
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS logo_schedules (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			source_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS logo_rects (
			id BIGSERIAL PRIMARY KEY,
			schedule_id INT NOT NULL REFERENCES logo_schedules(id) ON DELETE CASCADE,
			ts_ms BIGINT NOT NULL,
			x INT NOT NULL,
			y INT NOT NULL,
			w INT NOT NULL,
			h INT NOT NULL,
			band INT NOT NULL DEFAULT 0,
			auto_band BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS logo_rects_schedule_ts_idx ON logo_rects (schedule_id, ts_ms);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveSchedule stores entries under name, replacing any schedule already
// saved with that name.
func (s *Store) SaveSchedule(ctx context.Context, name, sourcePath string, entries []types.TimedRect) (int, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM logo_schedules WHERE name = $1", name); err != nil {
		return 0, err
	}

	var id int
	err = tx.QueryRow(ctx,
		"INSERT INTO logo_schedules (name, source_path) VALUES ($1, $2) RETURNING id",
		name, sourcePath).Scan(&id)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		r := e.Rect
		rows[i] = []any{id, e.TS, r.X, r.Y, r.W, r.H, r.Band.Width, r.Band.Auto}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"logo_rects"},
		[]string{"schedule_id", "ts_ms", "x", "y", "w", "h", "band", "auto_band"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to insert rectangles: %w", err)
	}

	return id, tx.Commit(ctx)
}

// LoadSchedule returns the entries saved under name, ordered by timestamp.
func (s *Store) LoadSchedule(ctx context.Context, name string) ([]types.TimedRect, error) {
	var id int
	err := s.conn.QueryRow(ctx, "SELECT id FROM logo_schedules WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
		SELECT ts_ms, x, y, w, h, band, auto_band
		FROM logo_rects WHERE schedule_id = $1
		ORDER BY ts_ms ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.TimedRect
	for rows.Next() {
		var e types.TimedRect
		if err := rows.Scan(&e.TS, &e.Rect.X, &e.Rect.Y, &e.Rect.W, &e.Rect.H, &e.Rect.Band.Width, &e.Rect.Band.Auto); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListSchedules returns every stored schedule with its entry count.
func (s *Store) ListSchedules(ctx context.Context) ([]ScheduleInfo, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT s.id, s.name, s.source_path, COUNT(r.id), s.created_at
		FROM logo_schedules s
		LEFT JOIN logo_rects r ON r.schedule_id = s.id
		GROUP BY s.id
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduleInfo
	for rows.Next() {
		var si ScheduleInfo
		if err := rows.Scan(&si.ID, &si.Name, &si.SourcePath, &si.Entries, &si.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// DeleteSchedule removes a schedule and its rectangles.
func (s *Store) DeleteSchedule(ctx context.Context, name string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM logo_schedules WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS logo_rects CASCADE;
		DROP TABLE IF EXISTS logo_schedules CASCADE;
	`)
	return err
}
