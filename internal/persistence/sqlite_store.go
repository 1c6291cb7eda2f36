package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/substudio/subtitle-translator/internal/jobs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists translation jobs so the queue survives restarts.
// Variable-length job data (files, results, params, progress) is stored
// as JSON columns; only the fields the cleanup query filters on get
// real columns.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, upload_id, params_json, files_json, results_json, progress_json, status, error, created_at, updated_at, completed_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var item jobs.TranslationJob
		var status, paramsJSON, filesJSON, resultsJSON, progressJSON string
		var completedAt sql.NullTime
		if err := rows.Scan(
			&item.ID,
			&item.UploadID,
			&paramsJSON,
			&filesJSON,
			&resultsJSON,
			&progressJSON,
			&status,
			&item.Error,
			&item.CreatedAt,
			&item.UpdatedAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		if completedAt.Valid {
			t := completedAt.Time
			item.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(paramsJSON), &item.Params); err != nil {
			return nil, fmt.Errorf("decode params for job %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(filesJSON), &item.Files); err != nil {
			return nil, fmt.Errorf("decode files for job %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &item.Results); err != nil {
			return nil, fmt.Errorf("decode results for job %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(progressJSON), &item.Progress); err != nil {
			return nil, fmt.Errorf("decode progress for job %s: %w", item.ID, err)
		}
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return err
	}
	filesJSON, err := json.Marshal(job.Files)
	if err != nil {
		return err
	}
	resultsJSON, err := json.Marshal(job.Results)
	if err != nil {
		return err
	}
	progressJSON, err := json.Marshal(job.Progress)
	if err != nil {
		return err
	}
	var completedAt sql.NullTime
	if job.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *job.CompletedAt, Valid: true}
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, upload_id, params_json, files_json, results_json, progress_json, status, error, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			upload_id=excluded.upload_id,
			params_json=excluded.params_json,
			files_json=excluded.files_json,
			results_json=excluded.results_json,
			progress_json=excluded.progress_json,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at,
			completed_at=excluded.completed_at`,
		job.ID,
		job.UploadID,
		string(paramsJSON),
		string(filesJSON),
		string(resultsJSON),
		string(progressJSON),
		string(job.Status),
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
		completedAt,
	)
	return err
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}

// DeleteJobsBefore removes terminal jobs last updated before the cutoff
// and returns their ids so callers can clean up files and memory.
func (s *SQLiteStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(jobs.StatusSuccess),
		string(jobs.StatusFailed),
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}
