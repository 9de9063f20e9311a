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
	"errors"
	"os"
	"testing"
	"time"

	"labelpress/internal/domain"
	"labelpress/internal/geom"
	"labelpress/internal/render"
)

func openPGForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("LP_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("LP_PG_DSN not set; skipping postgres integration test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("cannot open postgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("postgres not available: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreTemplateLifecycle(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	store := NewStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tpl := domain.LabelTemplate{
		ID:     domain.NewID("tpl"),
		Name:   "Integration Shipping",
		Width:  100,
		Height: 50,
		Fields: []domain.LabelField{domain.DefaultField(domain.FieldText)},
	}
	defer func() { _, _ = db.ExecContext(context.Background(), `DELETE FROM templates WHERE id = $1`, tpl.ID) }()

	if err := store.UpsertTemplate(ctx, tpl); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Integration Shipping" || got.Width != 100 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	tpl.Name = "Renamed"
	if err := store.UpsertTemplate(ctx, tpl); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err = store.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get after rename: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("name = %q after upsert", got.Name)
	}

	if err := store.DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetTemplate(ctx, tpl.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestStoreProtectsDefaultTemplate(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	store := NewStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tpl := domain.DefaultTemplate()
	tpl.ID = domain.NewID("tpl")
	defer func() { _, _ = db.ExecContext(context.Background(), `DELETE FROM templates WHERE id = $1`, tpl.ID) }()

	if err := store.UpsertTemplate(ctx, tpl); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.DeleteTemplate(ctx, tpl.ID); !errors.Is(err, ErrDefaultTemplate) {
		t.Fatalf("delete default: err = %v, want ErrDefaultTemplate", err)
	}
}

func TestStoreEnqueueAndList(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	store := NewStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := render.Document{
		TemplateID: domain.NewID("tpl"),
		WidthMM:    100,
		HeightMM:   50,
		Width:      100 * geom.PxPerMM,
		Height:     50 * geom.PxPerMM,
		Scale:      geom.PxPerMM,
		Boxes: []render.Box{{
			FieldID: domain.NewID("field"),
			Type:    domain.FieldText,
			Content: "ORD-PG-1",
		}},
	}
	id, err := store.EnqueueDocument(ctx, "it-test", doc, domain.DefaultPrintSettings())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	defer func() { _, _ = db.ExecContext(context.Background(), `DELETE FROM spooled_jobs WHERE id = $1`, id) }()

	list, err := store.ListSpooled(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var found *SpooledJob
	for i := range list {
		if list[i].ID == id {
			found = &list[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("enqueued job %d not in list", id)
	}
	if found.Status != "queued" || found.Subject != "it-test" {
		t.Fatalf("job = %+v", found)
	}
	if len(found.Document.Boxes) != 1 || found.Document.Boxes[0].Content != "ORD-PG-1" {
		t.Fatalf("document did not round trip: %+v", found.Document)
	}
}
