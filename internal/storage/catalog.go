/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"labelpress/internal/domain"
)

const (
	CatalogFileName = "templates.json"
	BackupsDirName  = "backups"
)

// Workspace subfolders scaffolded around the catalog file.
var standardSubDirs = []string{
	"exports",
	BackupsDirName,
}

// ErrDefaultTemplate is returned when a caller tries to delete the seeded
// system template.
var ErrDefaultTemplate = errors.New("default template cannot be deleted")

// Catalog is the on-disk template store. Root is the workspace directory
// containing templates.json and subfolders; Templates holds the in-memory
// representation of the catalog, ordered by creation time.
type Catalog struct {
	Root        string
	CatalogPath string
	Templates   []domain.LabelTemplate
}

// InitCatalog creates a workspace at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, seeds the default shipping template and
// writes the catalog transactionally. Opening an existing workspace with
// Init is allowed and keeps its contents.
func InitCatalog(root string) (*Catalog, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if _, err := os.Stat(filepath.Join(root, CatalogFileName)); err == nil {
		return OpenCatalog(root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	c := &Catalog{
		Root:        root,
		CatalogPath: filepath.Join(root, CatalogFileName),
		Templates:   []domain.LabelTemplate{domain.DefaultTemplate()},
	}
	if err := c.save(); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenCatalog loads an existing workspace. If the catalog file cannot be
// read or parsed, the latest timestamped backup is tried before giving up.
func OpenCatalog(root string) (*Catalog, error) {
	cpath := filepath.Join(root, CatalogFileName)
	b, err := os.ReadFile(cpath)
	if err != nil {
		ts, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open catalog: %w; backup attempt: %v", err, berr)
		}
		return &Catalog{Root: root, CatalogPath: cpath, Templates: ts}, nil
	}
	var ts []domain.LabelTemplate
	if uerr := json.Unmarshal(b, &ts); uerr != nil {
		ts, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse catalog: %w; backup attempt: %v", uerr, berr)
		}
		return &Catalog{Root: root, CatalogPath: cpath, Templates: ts}, nil
	}
	return &Catalog{Root: root, CatalogPath: cpath, Templates: ts}, nil
}

// ListTemplates returns the templates in creation order. The slice is a
// copy; callers may mutate it freely.
func (c *Catalog) ListTemplates() []domain.LabelTemplate {
	out := make([]domain.LabelTemplate, len(c.Templates))
	copy(out, c.Templates)
	return out
}

// GetTemplate looks a template up by id.
func (c *Catalog) GetTemplate(id string) (domain.LabelTemplate, error) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.LabelTemplate{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
}

// SaveTemplate inserts or replaces a template and persists the catalog.
// New templates get CreatedAt stamped; updates refresh UpdatedAt only.
func (c *Catalog) SaveTemplate(t domain.LabelTemplate) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	now := time.Now().UTC()
	t.UpdatedAt = now
	replaced := false
	for i := range c.Templates {
		if c.Templates[i].ID == t.ID {
			t.CreatedAt = c.Templates[i].CreatedAt
			c.Templates[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		c.Templates = append(c.Templates, t)
	}
	return c.save()
}

// DeleteTemplate removes a template by id. The seeded system default is
// protected; deleting an unknown id reports domain.ErrNotFound.
func (c *Catalog) DeleteTemplate(id string) error {
	for i, t := range c.Templates {
		if t.ID != id {
			continue
		}
		if t.IsDefault {
			return ErrDefaultTemplate
		}
		c.Templates = append(c.Templates[:i], c.Templates[i+1:]...)
		return c.save()
	}
	return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
}

// DuplicateTemplate copies a template under a new name with fresh ids and
// persists the copy.
func (c *Catalog) DuplicateTemplate(id, newName string) (domain.LabelTemplate, error) {
	src, err := c.GetTemplate(id)
	if err != nil {
		return domain.LabelTemplate{}, err
	}
	if newName == "" {
		newName = src.Name + " (Copy)"
	}
	dup := domain.CloneTemplate(src, newName)
	if err := c.SaveTemplate(dup); err != nil {
		return domain.LabelTemplate{}, err
	}
	return dup, nil
}

// save writes the catalog to disk with transactional semantics and a
// timestamped backup of the previous file (if present).
func (c *Catalog) save() error {
	if c.Root == "" || c.CatalogPath == "" {
		return errors.New("invalid catalog: missing paths")
	}
	data, err := json.MarshalIndent(c.Templates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(c.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(c.CatalogPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", CatalogFileName, stamp)
		if cerr := copyFile(c.CatalogPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current catalog: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(c.CatalogPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", CatalogFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp catalog: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(c.CatalogPath); err == nil {
		_ = os.Remove(c.CatalogPath)
	}
	if rerr := os.Rename(temp, c.CatalogPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace catalog: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory catalog to a timestamped file
// under the backups directory without touching the main catalog file. It is
// used by the panic handler to rescue unsaved edits.
func AutosaveCrashSnapshot(c *Catalog) (string, error) {
	if c == nil || c.Root == "" {
		return "", errors.New("no catalog to snapshot")
	}
	data, err := json.MarshalIndent(c.Templates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	bdir := filepath.Join(c.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("crash-%s.%s.json", CatalogFileName, stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) ([]domain.LabelTemplate, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, CatalogFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var ts []domain.LabelTemplate
	if err := json.Unmarshal(b, &ts); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return ts, nil
}
