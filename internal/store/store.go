// Package store persists watermarking sessions and leak detections in a
// local SQLite database so operators can answer "who received which copy"
// long after the embedding ran.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS watermark_sessions (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id          TEXT NOT NULL UNIQUE,
    identity            TEXT NOT NULL,
    input_file          TEXT,
    output_file         TEXT NOT NULL,
    signature           TEXT,
    method              TEXT,
    status              TEXT,
    created_at          INTEGER NOT NULL,
    file_size           INTEGER,
    total_frames        INTEGER,
    watermarked_frames  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sessions_identity ON watermark_sessions(identity);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON watermark_sessions(created_at);

CREATE TABLE IF NOT EXISTS leak_detections (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    path        TEXT NOT NULL,
    similarity  REAL NOT NULL,
    identity    TEXT,
    signature   TEXT,
    detected_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_identity ON leak_detections(identity);
`

// Session is one embedding run tied to a recipient.
type Session struct {
	ID                int64
	SessionID         string
	Identity          string
	InputFile         string
	OutputFile        string
	Signature         string
	Method            string
	Status            string
	CreatedAt         time.Time
	FileSize          int64
	TotalFrames       int
	WatermarkedFrames int
}

// Detection is one suspected leak sighting.
type Detection struct {
	ID         int64
	Path       string
	Similarity float64
	Identity   string
	Signature  string
	DetectedAt time.Time
}

// Store wraps the SQLite session database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertSession records a completed or failed embedding run and returns its
// row id.
func (s *Store) InsertSession(sess *Session) (int64, error) {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	result, err := s.db.Exec(`
		INSERT INTO watermark_sessions
		(session_id, identity, input_file, output_file, signature, method, status, created_at, file_size, total_frames, watermarked_frames)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.Identity, sess.InputFile, sess.OutputFile, sess.Signature,
		sess.Method, sess.Status, sess.CreatedAt.Unix(), sess.FileSize, sess.TotalFrames, sess.WatermarkedFrames,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return result.LastInsertId()
}

// ListSessions returns up to limit sessions, newest first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, identity, input_file, output_file, signature, method, status, created_at, file_size, total_frames, watermarked_frames
		FROM watermark_sessions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created int64
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.Identity, &sess.InputFile, &sess.OutputFile,
			&sess.Signature, &sess.Method, &sess.Status, &created, &sess.FileSize,
			&sess.TotalFrames, &sess.WatermarkedFrames); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(created, 0)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// FindSessionBySignature looks up the session that produced a signature
// recovered from a leaked copy.
func (s *Store) FindSessionBySignature(signature string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, identity, input_file, output_file, signature, method, status, created_at, file_size, total_frames, watermarked_frames
		FROM watermark_sessions WHERE signature = ? ORDER BY created_at DESC LIMIT 1`, signature)

	var sess Session
	var created int64
	err := row.Scan(&sess.ID, &sess.SessionID, &sess.Identity, &sess.InputFile, &sess.OutputFile,
		&sess.Signature, &sess.Method, &sess.Status, &created, &sess.FileSize,
		&sess.TotalFrames, &sess.WatermarkedFrames)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	sess.CreatedAt = time.Unix(created, 0)
	return &sess, nil
}

// InsertDetection records a leak sighting.
func (s *Store) InsertDetection(d *Detection) (int64, error) {
	if d.DetectedAt.IsZero() {
		d.DetectedAt = time.Now()
	}
	result, err := s.db.Exec(`
		INSERT INTO leak_detections (path, similarity, identity, signature, detected_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.Path, d.Similarity, d.Identity, d.Signature, d.DetectedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert detection: %w", err)
	}
	return result.LastInsertId()
}

// ListDetections returns up to limit detections, newest first.
func (s *Store) ListDetections(limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, path, similarity, identity, signature, detected_at
		FROM leak_detections ORDER BY detected_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		var detected int64
		if err := rows.Scan(&d.ID, &d.Path, &d.Similarity, &d.Identity, &d.Signature, &detected); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		d.DetectedAt = time.Unix(detected, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}
