/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"labelpress/internal/domain"
)

func TestInitCatalogSeedsDefault(t *testing.T) {
	root := t.TempDir()
	c, err := InitCatalog(root)
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	ts := c.ListTemplates()
	if len(ts) != 1 || !ts[0].IsDefault {
		t.Fatalf("expected seeded default template, got %+v", ts)
	}
	if _, err := os.Stat(filepath.Join(root, CatalogFileName)); err != nil {
		t.Fatalf("catalog file missing: %v", err)
	}
	// re-init keeps contents
	c2, err := InitCatalog(root)
	if err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if len(c2.ListTemplates()) != 1 {
		t.Fatalf("re-init changed catalog")
	}
}

func TestSaveGetDeleteTemplate(t *testing.T) {
	c, err := InitCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	tpl := domain.NewTemplate("Shelf Tag")
	tpl.Fields = append(tpl.Fields, domain.DefaultField(domain.FieldText))
	if err := c.SaveTemplate(tpl); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	got, err := c.GetTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Name != "Shelf Tag" || got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("stored template: %+v", got)
	}

	// update keeps CreatedAt
	got.Name = "Shelf Tag v2"
	if err := c.SaveTemplate(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	upd, _ := c.GetTemplate(tpl.ID)
	if upd.Name != "Shelf Tag v2" || !upd.CreatedAt.Equal(got.CreatedAt) {
		t.Fatalf("update lost creation stamp: %+v", upd)
	}

	if err := c.DeleteTemplate(tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if _, err := c.GetTemplate(tpl.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := c.DeleteTemplate("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete of unknown id: %v", err)
	}
}

func TestDeleteDefaultTemplateRejected(t *testing.T) {
	c, err := InitCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	def := c.ListTemplates()[0]
	if err := c.DeleteTemplate(def.ID); !errors.Is(err, ErrDefaultTemplate) {
		t.Fatalf("expected ErrDefaultTemplate, got %v", err)
	}
}

func TestSaveTemplateValidates(t *testing.T) {
	c, err := InitCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	bad := domain.NewTemplate("bad")
	bad.Width = -1
	if err := c.SaveTemplate(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDuplicateTemplate(t *testing.T) {
	c, err := InitCatalog(t.TempDir())
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	def := c.ListTemplates()[0]
	dup, err := c.DuplicateTemplate(def.ID, "")
	if err != nil {
		t.Fatalf("DuplicateTemplate: %v", err)
	}
	if dup.ID == def.ID || dup.IsDefault {
		t.Fatalf("duplicate identity: %+v", dup)
	}
	if dup.Name != def.Name+" (Copy)" {
		t.Fatalf("duplicate name: %q", dup.Name)
	}
	if len(c.ListTemplates()) != 2 {
		t.Fatalf("duplicate not persisted")
	}
}

func TestOpenCatalogRecoversFromBackup(t *testing.T) {
	root := t.TempDir()
	c, err := InitCatalog(root)
	if err != nil {
		t.Fatalf("InitCatalog: %v", err)
	}
	// a second save produces a backup of the seeded catalog
	tpl := domain.NewTemplate("extra")
	if err := c.SaveTemplate(tpl); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	// corrupt the live catalog
	if err := os.WriteFile(filepath.Join(root, CatalogFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	c2, err := OpenCatalog(root)
	if err != nil {
		t.Fatalf("OpenCatalog after corruption: %v", err)
	}
	if len(c2.ListTemplates()) == 0 {
		t.Fatalf("backup recovery returned empty catalog")
	}
}
