package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no report exists for a job id.
var ErrNotFound = errors.New("report not found")

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	job_id       TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	persona_key  TEXT NOT NULL,
	personas     TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	report       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports(content_hash, persona_key);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
`

// Record is a finished analysis as persisted.
type Record struct {
	JobID       string          `json:"job_id"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	Personas    []string        `json:"personas"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Report      json.RawMessage `json:"report,omitempty"`
}

// Store persists reports in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init results schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PersonaKey normalizes a persona list for duplicate detection: order and
// case do not matter.
func PersonaKey(personas []string) string {
	norm := make([]string, 0, len(personas))
	seen := map[string]bool{}
	for _, p := range personas {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && !seen[p] {
			seen[p] = true
			norm = append(norm, p)
		}
	}
	sort.Strings(norm)
	return strings.Join(norm, "\x1f")
}

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	personas, err := json.Marshal(rec.Personas)
	if err != nil {
		return err
	}
	report := []byte(rec.Report)
	if len(report) == 0 {
		report = []byte("null")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (job_id, filename, content_hash, persona_key, personas, status, created_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.Filename, rec.ContentHash, PersonaKey(rec.Personas), string(personas), rec.Status,
		rec.CreatedAt.UnixMilli(), report,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", rec.JobID, err)
	}
	return nil
}

// Get loads a record including its report.
func (s *Store) Get(ctx context.Context, jobID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, filename, content_hash, personas, status, created_at, report
		FROM reports WHERE job_id = ?`, jobID)
	rec, err := scanRecord(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// FindByHash returns the job id of a stored report for the same content and
// persona set.
func (s *Store) FindByHash(ctx context.Context, contentHash string, personas []string) (string, bool, error) {
	var jobID string
	err := s.db.QueryRowContext(ctx, `
		SELECT job_id FROM reports
		WHERE content_hash = ? AND persona_key = ?
		ORDER BY created_at DESC LIMIT 1`,
		contentHash, PersonaKey(personas),
	).Scan(&jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find report by hash: %w", err)
	}
	return jobID, true, nil
}

// List returns the newest records first, without report bodies.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, filename, content_hash, personas, status, created_at, NULL
		FROM reports ORDER BY created_at DESC, job_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record. Deleting a missing record returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, withReport bool) (Record, error) {
	var (
		rec      Record
		personas string
		created  int64
		body     []byte
	)
	if err := row.Scan(&rec.JobID, &rec.Filename, &rec.ContentHash, &personas, &rec.Status, &created, &body); err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.UnixMilli(created)
	if err := json.Unmarshal([]byte(personas), &rec.Personas); err != nil {
		return Record{}, fmt.Errorf("decode personas of %s: %w", rec.JobID, err)
	}
	if rec.Personas == nil {
		rec.Personas = []string{}
	}
	if withReport {
		rec.Report = body
	}
	return rec, nil
}
