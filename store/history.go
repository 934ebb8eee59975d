package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/travisano/unite-heatmap/utils"
)

// migration is one versioned schema step
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "sessions", `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			map TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			sample_rate REAL NOT NULL,
			frames INTEGER NOT NULL,
			interrupted INTEGER NOT NULL,
			team_a_positions INTEGER NOT NULL,
			team_b_positions INTEGER NOT NULL,
			image_path TEXT NOT NULL DEFAULT '',
			summary_path TEXT NOT NULL DEFAULT ''
		)`},
	{2, "entities", `
		CREATE TABLE IF NOT EXISTS entities (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			uptime_seconds INTEGER NOT NULL,
			detections INTEGER NOT NULL,
			zone TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, kind, entity_id)
		);
		CREATE INDEX IF NOT EXISTS entities_session_idx ON entities(session_id)`},
}

// fixed width so started_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	KindCamp     = "camp"
	KindLandmark = "landmark"
)

// SessionRecord is one row of the session history.
type SessionRecord struct {
	ID              string
	Map             string
	StartedAt       time.Time
	DurationSeconds float64
	SampleRate      float64
	Frames          int
	Interrupted     bool
	TeamAPositions  int
	TeamBPositions  int
	Camps           int
	Landmarks       int
	ImagePath       string
	SummaryPath     string
}

// EntityRecord is a stored camp or landmark.
type EntityRecord struct {
	Kind string
	Entity
}

// History records finished sessions in a SQLite database.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the database at path and migrates it.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) migrate() error {
	if _, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := h.db.Query("SELECT version FROM migrations")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := h.tx(context.Background(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.sql); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (h *History) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecordSession stores the session metadata and every entity of s.
func (h *History) RecordSession(ctx context.Context, s Summary, imagePath, summaryPath string) error {
	m := s.Metadata
	return h.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, map, started_at, duration_seconds, sample_rate, frames, interrupted,
				team_a_positions, team_b_positions, image_path, summary_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.SessionID, m.Map, m.StartedAt.UTC().Format(timeLayout), m.DurationSeconds, m.SampleRate,
			m.Frames, m.Interrupted, len(s.TeamA), len(s.TeamB), imagePath, summaryPath)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		insert := func(kind string, entities []Entity) error {
			for _, e := range entities {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO entities (session_id, kind, entity_id, x, y, uptime_seconds, detections, zone)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, m.SessionID, kind, e.ID, e.Position[0], e.Position[1], e.UptimeSeconds, e.Detections, e.Zone)
				if err != nil {
					return fmt.Errorf("failed to insert %s %d: %w", kind, e.ID, err)
				}
			}
			return nil
		}
		if err := insert(KindCamp, s.Camps); err != nil {
			return err
		}
		return insert(KindLandmark, s.Landmarks)
	})
}

// ListSessions returns the most recent sessions first. limit <= 0 returns all.
func (h *History) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
		SELECT s.id, s.map, s.started_at, s.duration_seconds, s.sample_rate, s.frames, s.interrupted,
			s.team_a_positions, s.team_b_positions, s.image_path, s.summary_path,
			(SELECT COUNT(*) FROM entities e WHERE e.session_id = s.id AND e.kind = ?),
			(SELECT COUNT(*) FROM entities e WHERE e.session_id = s.id AND e.kind = ?)
		FROM sessions s
		ORDER BY s.started_at DESC`
	args := []any{KindCamp, KindLandmark}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var started string
		if err := rows.Scan(&r.ID, &r.Map, &started, &r.DurationSeconds, &r.SampleRate, &r.Frames, &r.Interrupted,
			&r.TeamAPositions, &r.TeamBPositions, &r.ImagePath, &r.SummaryPath, &r.Camps, &r.Landmarks); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("session %s has a bad start time: %w", r.ID, err)
		}
		sessions = append(sessions, r)
	}
	return sessions, rows.Err()
}

// Entities returns the stored camps and landmarks of one session.
func (h *History) Entities(ctx context.Context, sessionID string) ([]EntityRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT kind, entity_id, x, y, uptime_seconds, detections, zone
		FROM entities WHERE session_id = ?
		ORDER BY kind, entity_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []EntityRecord
	for rows.Next() {
		var r EntityRecord
		if err := rows.Scan(&r.Kind, &r.ID, &r.Position[0], &r.Position[1], &r.UptimeSeconds, &r.Detections, &r.Zone); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		r.Uptime = utils.FormatUptime(r.UptimeSeconds)
		entities = append(entities, r)
	}
	return entities, rows.Err()
}

func (h *History) Close() error {
	return h.db.Close()
}
