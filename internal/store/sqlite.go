package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/domain"
	"github.com/ansarzeinulla/prescreen/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS vacancies (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		city TEXT,
		requirements TEXT,
		created_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS resumes (
		id INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		summary TEXT,
		skills TEXT,
		city TEXT,
		education TEXT,
		created_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vacancy_id INTEGER NOT NULL,
		resume_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		summary TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(vacancy_id, resume_id)
	);
	CREATE INDEX IF NOT EXISTS idx_results_vacancy ON results(vacancy_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetVacancy retrieves a vacancy as an opaque record.
func (s *SQLiteStore) GetVacancy(ctx context.Context, id int64) (domain.Record, error) {
	return s.fetchRecord(ctx, "vacancies", id)
}

// GetResume retrieves a resume as an opaque record.
func (s *SQLiteStore) GetResume(ctx context.Context, id int64) (domain.Record, error) {
	return s.fetchRecord(ctx, "resumes", id)
}

// fetchRecord reads a single row by id and returns it as a column-name map,
// so callers stay independent of the table schema. Returns (nil, nil) when
// the row does not exist.
func (s *SQLiteStore) fetchRecord(ctx context.Context, table string, id int64) (domain.Record, error) {
	// table is always one of the two compile-time constants above.
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table)

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close record rows", "table", table, "error", closeErr)
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", table, err)
		}
		return nil, nil
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan %s row: %w", table, err)
	}

	record := make(domain.Record, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			record[col] = string(b)
			continue
		}
		record[col] = values[i]
	}
	return record, nil
}

// UpsertResult creates or overwrites the verdict for a (vacancy, resume)
// pair. The UNIQUE constraint on the pair makes the write idempotent and
// resolves races between two sessions finishing for the same candidate.
// Retries briefly on SQLITE_BUSY since verdict writes race with listing.
func (s *SQLiteStore) UpsertResult(ctx context.Context, vacancyID, resumeID int64, verdict domain.Verdict) error {
	output, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict output: %w", err)
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err = s.upsertResultOnce(ctx, vacancyID, resumeID, verdict, string(output))
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("UpsertResult hit SQLITE_BUSY, retrying",
				"vacancy_id", vacancyID,
				"resume_id", resumeID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		return err
	}
	return fmt.Errorf("upsert result for vacancy %d resume %d: %w", vacancyID, resumeID, err)
}

func (s *SQLiteStore) upsertResultOnce(ctx context.Context, vacancyID, resumeID int64, verdict domain.Verdict, output string) error {
	query := `
	INSERT INTO results (vacancy_id, resume_id, score, summary, output, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(vacancy_id, resume_id) DO UPDATE SET
		score = excluded.score,
		summary = excluded.summary,
		output = excluded.output,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, query,
		vacancyID, resumeID, verdict.Score, verdict.Summary, output, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// ListResultsByVacancy returns all verdicts for a vacancy, highest score
// first. Ties keep insertion order so repeated listings are stable.
func (s *SQLiteStore) ListResultsByVacancy(ctx context.Context, vacancyID int64) ([]domain.ResultRecord, error) {
	query := `
		SELECT id, vacancy_id, resume_id, score, summary, output, created_at, updated_at
		FROM results WHERE vacancy_id = ?
		ORDER BY score DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, vacancyID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close result rows", "error", closeErr)
		}
	}()

	results := make([]domain.ResultRecord, 0)
	for rows.Next() {
		var rec domain.ResultRecord
		var createdAt, updatedAt int64

		if err := rows.Scan(
			&rec.ID, &rec.VacancyID, &rec.ResumeID,
			&rec.Score, &rec.Summary, &rec.RawOutput,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
