package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// Entry is one recorded MISP API call.
type Entry struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	URI        string        `json:"uri"`
	StatusCode int           `json:"status_code"`
	Outcome    string        `json:"outcome"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Journal persists every MISP API call to SQLite. It implements
// misp.CallRecorder.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	// Ensure target directory exists (e.g., ./data)
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqliteDriver, sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			id TEXT PRIMARY KEY,
			method TEXT NOT NULL,
			uri TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_outcome ON calls(outcome)`,
	}
	for _, m := range migrations {
		if _, err := j.db.Exec(m); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// RecordCall implements misp.CallRecorder.
func (j *Journal) RecordCall(ctx context.Context, call misp.Call) error {
	at := call.At
	if at.IsZero() {
		at = time.Now()
	}
	return j.Add(ctx, Entry{
		Method:     call.Method,
		URI:        call.URI,
		StatusCode: call.StatusCode,
		Outcome:    call.Kind.String(),
		Detail:     call.Detail,
		Duration:   call.Duration,
		CreatedAt:  at,
	})
}

// Add inserts an entry, assigning an id and timestamp when missing.
func (j *Journal) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `INSERT INTO calls (
		id, method, uri, status_code, outcome, detail, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := j.db.ExecContext(ctx, query,
		e.ID, e.Method, e.URI, e.StatusCode, e.Outcome, e.Detail,
		e.Duration.Milliseconds(), e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. outcome filters by outcome when
// non-empty; limit <= 0 returns everything.
func (j *Journal) Recent(ctx context.Context, outcome string, limit int) ([]Entry, error) {
	query := `SELECT id, method, uri, status_code, outcome, detail, duration_ms, created_at FROM calls`
	var args []interface{}
	if outcome != "" {
		query += ` WHERE outcome = ?`
		args = append(args, outcome)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		var durationMS, createdAt int64

		if err := rows.Scan(&e.ID, &e.Method, &e.URI, &e.StatusCode, &e.Outcome,
			&detail, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Detail = detail.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of recorded calls per outcome.
func (j *Journal) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM calls GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan journal count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Reset deletes every recorded call and returns how many were removed.
func (j *Journal) Reset(ctx context.Context) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM calls`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset journal: %w", err)
	}
	return res.RowsAffected()
}
