/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"labelpress/internal/domain"
	"labelpress/internal/version"
)

// BundleVersion is the interchange format version written by Export and
// accepted by Import.
const BundleVersion = "1.0"

//go:embed bundle.schema.json
var bundleSchema []byte

// Bundle is the portable template interchange document.
type Bundle struct {
	Version    string                 `json:"version"`
	ExportedAt string                 `json:"exportedAt"`
	Templates  []domain.LabelTemplate `json:"templates"`
	Metadata   BundleMetadata         `json:"metadata"`
}

// BundleMetadata carries provenance for a bundle.
type BundleMetadata struct {
	AppVersion    string `json:"appVersion"`
	TemplateCount int    `json:"templateCount"`
}

// DuplicatePolicy decides what happens when an imported template id
// already exists in the catalog.
type DuplicatePolicy string

const (
	DuplicateSkip    DuplicatePolicy = "skip"
	DuplicateReplace DuplicatePolicy = "replace"
	DuplicateRename  DuplicatePolicy = "rename"
)

// ImportResult summarizes what an import did.
type ImportResult struct {
	Imported int
	Skipped  int
	Replaced int
	Renamed  int
}

// ExportBundle serializes the selected templates (all when ids is empty)
// into an interchange bundle.
func (c *Catalog) ExportBundle(ids []string) (Bundle, error) {
	var ts []domain.LabelTemplate
	if len(ids) == 0 {
		ts = c.ListTemplates()
	} else {
		for _, id := range ids {
			t, err := c.GetTemplate(id)
			if err != nil {
				return Bundle{}, err
			}
			ts = append(ts, t)
		}
	}
	return Bundle{
		Version:    BundleVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Templates:  ts,
		Metadata: BundleMetadata{
			AppVersion:    version.String(),
			TemplateCount: len(ts),
		},
	}, nil
}

// ImportBundle validates raw bundle JSON against the embedded schema and
// merges its templates into the catalog under the given duplicate policy.
// The catalog file is backed up before the first write, so a bad bundle
// never destroys existing templates.
func (c *Catalog) ImportBundle(raw []byte, policy DuplicatePolicy) (ImportResult, error) {
	var res ImportResult

	schemaLoader := gojsonschema.NewBytesLoader(bundleSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return res, fmt.Errorf("schema validate: %w", err)
	}
	if !result.Valid() {
		return res, fmt.Errorf("invalid bundle: %s", result.Errors()[0])
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return res, fmt.Errorf("parse bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return res, fmt.Errorf("unsupported bundle version %q", b.Version)
	}

	for _, t := range b.Templates {
		// imported templates never arrive as the system default
		t.IsDefault = false
		cur, getErr := c.GetTemplate(t.ID)
		exists := getErr == nil
		switch {
		case exists && policy == DuplicateSkip:
			res.Skipped++
			continue
		case exists && policy == DuplicateReplace:
			// replacing the seeded default keeps its protection flag
			t.IsDefault = cur.IsDefault
			if err := c.SaveTemplate(t); err != nil {
				return res, fmt.Errorf("replace %s: %w", t.ID, err)
			}
			res.Replaced++
		case exists && policy == DuplicateRename:
			dup := domain.CloneTemplate(t, t.Name+" (Imported)")
			if err := c.SaveTemplate(dup); err != nil {
				return res, fmt.Errorf("rename %s: %w", t.ID, err)
			}
			res.Renamed++
		case exists:
			return res, fmt.Errorf("unknown duplicate policy %q", policy)
		default:
			if err := c.SaveTemplate(t); err != nil {
				return res, fmt.Errorf("import %s: %w", t.ID, err)
			}
			res.Imported++
		}
	}
	return res, nil
}
