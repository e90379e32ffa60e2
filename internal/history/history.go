// Package history provides SQLite-backed storage of past scan results.
// The database lives in .codewatch/history.db and keeps the full update
// document of each scan together with summary counts.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/anthropics/codewatch/internal/report"
	"github.com/anthropics/codewatch/internal/subs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DBFileName is the history database file inside .codewatch/.
const DBFileName = "history.db"

// schemaSQL defines the SQLite schema for the history database.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL DEFAULT '',
    base_ref TEXT NOT NULL,
    target_ref TEXT NOT NULL,
    trigger_count INTEGER NOT NULL,
    proposal_count INTEGER NOT NULL,
    unchanged_count INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    scan_result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);
`

// NotFoundError is returned when a scan id does not exist.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scan not found: %s", e.ID)
}

// Entry is a persisted scan result.
type Entry struct {
	ID             string
	ProjectID      string
	BaseRef        string
	TargetRef      string
	TriggerCount   int
	ProposalCount  int
	UnchangedCount int
	CreatedAt      string
	// Doc is the full update document; nil in list results.
	Doc *report.UpdateDoc
}

// Store manages the scan history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database in the given .codewatch
// directory.
func Open(configDir string) (*Store, error) {
	dbPath := filepath.Join(configDir, DBFileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveScan persists a scan's update document and returns the entry.
func (s *Store) SaveScan(projectID string, doc *report.UpdateDoc, unchangedCount int) (*Entry, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		BaseRef:        doc.BaseRef,
		TargetRef:      doc.TargetRef,
		TriggerCount:   len(doc.Triggers),
		ProposalCount:  len(doc.Proposals),
		UnchangedCount: unchangedCount,
		CreatedAt:      subs.UTCNow(),
		Doc:            doc,
	}

	_, err = s.db.Exec(`
		INSERT INTO scans (id, project_id, base_ref, target_ref,
			trigger_count, proposal_count, unchanged_count, created_at, scan_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.BaseRef, entry.TargetRef,
		entry.TriggerCount, entry.ProposalCount, entry.UnchangedCount,
		entry.CreatedAt, string(payload))
	if err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}

	return entry, nil
}

// List returns the most recent scans, newest first. A limit of 0 returns
// everything.
func (s *Store) List(limit int) ([]Entry, error) {
	query := `
		SELECT id, project_id, base_ref, target_ref,
			trigger_count, proposal_count, unchanged_count, created_at
		FROM scans ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.BaseRef, &e.TargetRef,
			&e.TriggerCount, &e.ProposalCount, &e.UnchangedCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one scan with its full update document. The id may be a
// unique prefix.
func (s *Store) Get(id string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, project_id, base_ref, target_ref,
			trigger_count, proposal_count, unchanged_count, created_at, scan_result
		FROM scans WHERE id = ? OR id LIKE ? || '%'`, id, id)

	var e Entry
	var payload string
	err := row.Scan(&e.ID, &e.ProjectID, &e.BaseRef, &e.TargetRef,
		&e.TriggerCount, &e.ProposalCount, &e.UnchangedCount, &e.CreatedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	var doc report.UpdateDoc
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", e.ID, err)
	}
	e.Doc = &doc
	return &e, nil
}

// Prune deletes all but the newest keep entries. A keep of 0 is a no-op.
func (s *Store) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	res, err := s.db.Exec(`
		DELETE FROM scans WHERE id NOT IN (
			SELECT id FROM scans ORDER BY created_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
