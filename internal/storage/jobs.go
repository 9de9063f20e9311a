/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"labelpress/internal/domain"
	applog "labelpress/internal/log"
	"labelpress/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// HistoryDirName stores per-workspace ephemeral data under the root.
	HistoryDirName  = ".labelpress"
	HistoryFileName = "jobs.sqlite"

	// jobsSchemaVersion tracks the local SQLite schema for the job history.
	// Bump this when you perform breaking schema changes and add migrations.
	jobsSchemaVersion = 2
)

// HistoryPath returns the full path to the workspace's job history database.
func HistoryPath(root string) string {
	return filepath.Join(root, HistoryDirName, HistoryFileName)
}

// JobLog records print jobs and their lifecycle in an embedded SQLite
// database. Status transitions are enforced at this seam as well, so a
// crashed orchestrator cannot resurrect a terminal job on restart.
type JobLog struct {
	db *sql.DB
}

// InitOrOpenJobs ensures the job history database exists under
// .labelpress/jobs.sqlite, opens it, enables WAL mode and ensures the
// meta/version tables exist before running migrations.
func InitOrOpenJobs(root string) (*JobLog, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "jobs_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, HistoryDirName), 0o755); err != nil {
		l.Error("create history dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	path := HistoryPath(root)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureJobsMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureJobsSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure jobs schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runJobsMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("job history ready", slog.String("path", path))
	return &JobLog{db: db}, nil
}

// Close releases the underlying database handle.
func (j *JobLog) Close() error { return j.db.Close() }

func ensureJobsMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, jobsSchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureJobsSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id            TEXT PRIMARY KEY,
			template_id   TEXT NOT NULL,
			record_ids    TEXT NOT NULL,
			copies        INTEGER NOT NULL,
			status        TEXT NOT NULL,
			error         TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			completed_at  TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create jobs schema: %w", err)
		}
	}
	return nil
}

// runJobsMigrations applies incremental schema migrations up to jobsSchemaVersion.
func runJobsMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > jobsSchemaVersion {
		// Do not downgrade
		return nil
	}
	for cur < jobsSchemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_jobs_template ON jobs(template_id);`,
				`CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// AppendJob inserts a new job row. The job must be pending; history rows
// are never created in a terminal state.
func (j *JobLog) AppendJob(ctx context.Context, job domain.PrintJob) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	if job.Status != domain.JobPending {
		return fmt.Errorf("new job must be pending, got %s", job.Status)
	}
	records, err := json.Marshal(job.RecordIDs)
	if err != nil {
		return fmt.Errorf("marshal record ids: %w", err)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO jobs (id, template_id, record_ids, copies, status, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, '', ?, NULL)`,
		job.ID, job.TemplateID, string(records), job.Copies, string(job.Status),
		job.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus advances a job along the lifecycle. Illegal transitions
// (backwards moves, leaving a terminal state) are rejected; a terminal
// status stamps completed_at, and failed carries the error message.
func (j *JobLog) UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus, jobErr string) error {
	cur, err := j.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanTransition(status) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", cur.Status, status, id)
	}
	if status != domain.JobFailed {
		jobErr = ""
	}
	var completed any
	if status.Terminal() {
		completed = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err = j.db.ExecContext(ctx,
		`UPDATE jobs SET status=?, error=?, completed_at=? WHERE id=?`,
		string(status), jobErr, completed, id)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// GetJob loads one job by id.
func (j *JobLog) GetJob(ctx context.Context, id string) (domain.PrintJob, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, template_id, record_ids, copies, status, error, created_at, completed_at FROM jobs WHERE id=?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PrintJob{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return job, err
}

// ListJobs returns the full history, newest first.
func (j *JobLog) ListJobs(ctx context.Context) ([]domain.PrintJob, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, template_id, record_ids, copies, status, error, created_at, completed_at FROM jobs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []domain.PrintJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(r rowScanner) (domain.PrintJob, error) {
	var (
		job       domain.PrintJob
		records   string
		status    string
		created   string
		completed sql.NullString
	)
	if err := r.Scan(&job.ID, &job.TemplateID, &records, &job.Copies, &status, &job.Error, &created, &completed); err != nil {
		return domain.PrintJob{}, err
	}
	if err := json.Unmarshal([]byte(records), &job.RecordIDs); err != nil {
		return domain.PrintJob{}, fmt.Errorf("parse record ids: %w", err)
	}
	job.Status = domain.JobStatus(status)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.PrintJob{}, fmt.Errorf("parse created_at: %w", err)
	}
	job.CreatedAt = t
	if completed.Valid {
		ct, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return domain.PrintJob{}, fmt.Errorf("parse completed_at: %w", err)
		}
		job.CompletedAt = &ct
	}
	return job, nil
}
