// Package journal keeps an append-only SQLite log of command launches.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the journal database inside the state directory.
const FileName = "journal.db"

// SchemaVersion is recorded in the meta table.
const SchemaVersion = 1

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one launch.
type Entry struct {
	ID        int64
	CommandID string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	ExitCode  int
	Error     string
}

// CommandCount is the number of journaled launches of one command.
type CommandCount struct {
	CommandID string
	Launches  int
	Failures  int
}

// Journal is an open launch log.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the journal at path and ensures the schema.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}
	// One writer; modernc serializes on the connection anyway.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	launchesSQL := `
		CREATE TABLE IF NOT EXISTS launches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			error TEXT
		)
	`
	if _, err := db.Exec(launchesSQL); err != nil {
		return fmt.Errorf("create launches table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_launches_command ON launches(command_id)`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	metaSQL := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends e. A zero StartedAt is replaced by the current time.
func (j *Journal) Record(e Entry) error {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	_, err := j.db.Exec(
		`INSERT INTO launches (command_id, started_at, duration_ms, success, exit_code, error) VALUES (?, ?, ?, ?, ?, ?)`,
		e.CommandID,
		e.StartedAt.UTC().Format(timeLayout),
		e.Duration.Milliseconds(),
		boolToInt(e.Success),
		e.ExitCode,
		errText,
	)
	if err != nil {
		return fmt.Errorf("recording launch of %s: %w", e.CommandID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT id, command_id, started_at, duration_ms, success, exit_code, error
		FROM launches
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt string
		var durationMs int64
		var success int
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.CommandID, &startedAt, &durationMs, &success, &e.ExitCode, &errText); err != nil {
			return nil, fmt.Errorf("scanning launch: %w", err)
		}
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			e.StartedAt = t
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Success = success != 0
		if errText.Valid {
			e.Error = errText.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating launches: %w", err)
	}
	return entries, nil
}

// CountByCommand returns launch and failure counts per command, most
// launched first.
func (j *Journal) CountByCommand() ([]CommandCount, error) {
	rows, err := j.db.Query(`
		SELECT command_id, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
		FROM launches
		GROUP BY command_id
		ORDER BY COUNT(*) DESC, command_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.CommandID, &c.Launches, &c.Failures); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
