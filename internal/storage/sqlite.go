// Package storage archives completed research runs in a local sqlite
// database so past results can be inspected without re-running the pipeline.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sitescout/sitescout/internal/research"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		company TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		links INTEGER DEFAULT 0,
		attempted INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		total_chars INTEGER DEFAULT 0,
		degraded INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS page_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		rank INTEGER NOT NULL,
		status TEXT NOT NULL,
		strategy TEXT,
		chars INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		error TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, url)
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		run_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_company ON runs(company);
	CREATE INDEX IF NOT EXISTS idx_pages_run ON page_results(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun archives one completed run with its per-page results and artifact
// in a single transaction. It returns the generated run ID.
func (s *Storage) SaveRun(target research.Target, links int, batch research.ExtractionBatch, artifact research.IntelligenceArtifact, elapsed time.Duration) (string, error) {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}

	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, company, seed_url, links, attempted, succeeded, total_chars, degraded, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, target.Company, target.URL, links, batch.Attempted, batch.Succeeded, batch.TotalChars, artifact.Degraded, elapsed.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, page := range batch.Results {
		_, err = tx.Exec(`
			INSERT INTO page_results (run_id, url, rank, status, strategy, chars, elapsed_ms, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, url) DO UPDATE SET
				status = EXCLUDED.status,
				chars = EXCLUDED.chars
		`, runID, page.URL, page.Rank, string(page.Status), page.Strategy, page.Chars, page.Elapsed.Milliseconds(), page.Err)
		if err != nil {
			return "", fmt.Errorf("failed to insert page result: %w", err)
		}
	}

	_, err = tx.Exec(`INSERT INTO artifacts (run_id, payload) VALUES (?, ?)`, runID, string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to insert artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetArtifact retrieves the archived artifact for a run, returns nil if not found
func (s *Storage) GetArtifact(runID string) (*research.IntelligenceArtifact, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM artifacts WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	var artifact research.IntelligenceArtifact
	if err := json.Unmarshal([]byte(payload), &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return &artifact, nil
}

// RecentRuns returns the most recent runs, newest first
func (s *Storage) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, company, seed_url, links, attempted, succeeded, total_chars, degraded, elapsed_ms, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.Company, &run.SeedURL, &run.Links, &run.Attempted,
			&run.Succeeded, &run.TotalChars, &run.Degraded, &run.ElapsedMs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// PageResults returns the archived per-page outcomes for a run in rank order
func (s *Storage) PageResults(runID string) ([]*PageResult, error) {
	rows, err := s.db.Query(`
		SELECT run_id, url, rank, status, strategy, chars, elapsed_ms, error
		FROM page_results
		WHERE run_id = ?
		ORDER BY rank ASC
	`, runID)

	if err != nil {
		return nil, fmt.Errorf("failed to load page results: %w", err)
	}
	defer rows.Close()

	var pages []*PageResult
	for rows.Next() {
		var page PageResult
		if err := rows.Scan(&page.RunID, &page.URL, &page.Rank, &page.Status,
			&page.Strategy, &page.Chars, &page.Elapsed, &page.Err); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page results: %w", err)
	}

	return pages, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
