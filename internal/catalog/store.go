// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite record of the images each run sorted.
// It is a report of what happened, not an input: duplicate detection
// within a run does not read it.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

// Store manages the catalog database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			pdfs INTEGER DEFAULT 0,
			small INTEGER DEFAULT 0,
			grayscale INTEGER DEFAULT 0,
			color INTEGER DEFAULT 0,
			duplicates INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			pdf TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT,
			category TEXT,
			width INTEGER,
			height INTEGER,
			size INTEGER,
			digest TEXT,
			perceptual_hash TEXT,
			dominant_color TEXT,
			duplicate INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			sorted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_run ON images(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_images_category ON images(category)`,
		`CREATE INDEX IF NOT EXISTS idx_images_digest ON images(digest)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run summarizes one invocation of the sorter.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	PDFs       int       `json:"pdfs" yaml:"pdfs"`

	types.ImageCounts `yaml:",inline"`
}

// BeginRun registers a run so images can reference it.
func (s *Store) BeginRun(ctx context.Context, id string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, started.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("registering run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, finished time.Time, pdfs int, counts types.ImageCounts) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, pdfs = ?, small = ?, grayscale = ?, color = ?, duplicates = ?, failed = ?
		 WHERE id = ?`,
		finished.UTC().Format(time.RFC3339Nano), pdfs,
		counts.Small, counts.Grayscale, counts.Color, counts.Duplicates, counts.Failed, id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	return nil
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), pdfs, small, grayscale, color, duplicates, failed
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.PDFs,
			&r.Small, &r.Grayscale, &r.Color, &r.Duplicates, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Record inserts one image and returns its row id.
func (s *Store) Record(ctx context.Context, rec types.ImageRecord) (int64, error) {
	if rec.SortedAt.IsZero() {
		rec.SortedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (run_id, pdf, name, path, category, width, height, size,
			digest, perceptual_hash, dominant_color, duplicate, deleted, sorted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.PDF, rec.Name, rec.Path, string(rec.Category), rec.Width, rec.Height, rec.Size,
		rec.Digest, rec.PerceptualHash, rec.DominantColor, rec.Duplicate, rec.Deleted,
		rec.SortedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("recording %s: %w", rec.Name, err)
	}
	return res.LastInsertId()
}

// Filter narrows List, exports, and Similar. Zero fields match everything.
type Filter struct {
	RunID    string
	PDF      string
	Category types.ImageCategory
	// Limit caps the number of rows; 0 means no cap.
	Limit int
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.PDF != "" {
		conds = append(conds, "pdf = ?")
		args = append(args, f.PDF)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns the images matching f in insertion order.
func (s *Store) List(ctx context.Context, f Filter) ([]types.ImageRecord, error) {
	where, args := f.where()
	query := `SELECT id, run_id, pdf, name, COALESCE(path, ''), COALESCE(category, ''),
			width, height, size, COALESCE(digest, ''), COALESCE(perceptual_hash, ''),
			COALESCE(dominant_color, ''), duplicate, deleted, sorted_at
		FROM images` + where + ` ORDER BY id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var out []types.ImageRecord
	for rows.Next() {
		var r types.ImageRecord
		var category, sortedAt string
		if err := rows.Scan(&r.ID, &r.RunID, &r.PDF, &r.Name, &r.Path, &category,
			&r.Width, &r.Height, &r.Size, &r.Digest, &r.PerceptualHash,
			&r.DominantColor, &r.Duplicate, &r.Deleted, &sortedAt); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		r.Category = types.ImageCategory(category)
		r.SortedAt, _ = time.Parse(time.RFC3339Nano, sortedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
