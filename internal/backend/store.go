/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"labelpress/internal/domain"
	"labelpress/internal/render"
)

// ErrDefaultTemplate is returned when a delete would remove the template
// marked as default.
var ErrDefaultTemplate = errors.New("cannot delete the default template")

// Store persists shared templates and spooled print documents in Postgres.
// Template bodies are stored as JSONB so schema churn in the template shape
// does not require a migration.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle. The caller owns the handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SpooledJob is one print document accepted by the spool endpoint.
type SpooledJob struct {
	ID         int64                `json:"id"`
	Subject    string               `json:"subject"`
	TemplateID string               `json:"templateId"`
	Document   render.Document      `json:"document"`
	Settings   domain.PrintSettings `json:"settings"`
	Status     string               `json:"status"`
	ReceivedAt time.Time            `json:"receivedAt"`
}

// UpsertTemplate inserts or replaces a template by its stable id.
func (s *Store) UpsertTemplate(ctx context.Context, t domain.LabelTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, body, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			body = EXCLUDED.body,
			is_default = EXCLUDED.is_default,
			updated_at = now()`,
		t.ID, t.Name, body, t.IsDefault)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.ID, err)
	}
	return nil
}

// GetTemplate loads one template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (domain.LabelTemplate, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LabelTemplate{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LabelTemplate{}, fmt.Errorf("select template %s: %w", id, err)
	}
	var t domain.LabelTemplate
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.LabelTemplate{}, fmt.Errorf("decode template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all shared templates, most recently updated first.
func (s *Store) ListTemplates(ctx context.Context) ([]domain.LabelTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM templates ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []domain.LabelTemplate
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var t domain.LabelTemplate
		if err := json.Unmarshal(body, &t); err != nil {
			return nil, fmt.Errorf("decode template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template. The default template is protected, the
// same rule the local catalog enforces.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	var isDefault bool
	err := s.db.QueryRowContext(ctx, `SELECT is_default FROM templates WHERE id = $1`, id).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("select template %s: %w", id, err)
	}
	if isDefault {
		return ErrDefaultTemplate
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	return nil
}

// EnqueueDocument stores one rendered document as a queued spool job and
// returns its id.
func (s *Store) EnqueueDocument(ctx context.Context, subject string, doc render.Document, settings domain.PrintSettings) (int64, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	setJSON, err := json.Marshal(settings)
	if err != nil {
		return 0, fmt.Errorf("marshal settings: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO spooled_jobs (subject, template_id, document, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		subject, doc.TemplateID, docJSON, setJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue document: %w", err)
	}
	return id, nil
}

// ListSpooled returns the most recent spool jobs, newest first.
func (s *Store) ListSpooled(ctx context.Context, limit int) ([]SpooledJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, template_id, document, settings, status, received_at
		FROM spooled_jobs
		ORDER BY received_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list spooled jobs: %w", err)
	}
	defer rows.Close()
	var out []SpooledJob
	for rows.Next() {
		var (
			j       SpooledJob
			docJSON []byte
			setJSON []byte
		)
		if err := rows.Scan(&j.ID, &j.Subject, &j.TemplateID, &docJSON, &setJSON, &j.Status, &j.ReceivedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(docJSON, &j.Document); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", j.ID, err)
		}
		if err := json.Unmarshal(setJSON, &j.Settings); err != nil {
			return nil, fmt.Errorf("decode settings %d: %w", j.ID, err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
