/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package presets ships a catalog of ready-made label layouts. The catalog
// is embedded YAML, so presets work offline and version with the binary.
package presets

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"labelpress/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Preset is one ready-made layout. Instantiating a preset mints a fresh
// template; the preset itself is immutable.
type Preset struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Category    string        `yaml:"category"`
	Width       float64       `yaml:"width"`
	Height      float64       `yaml:"height"`
	Fields      []presetField `yaml:"fields"`
}

type presetField struct {
	Type       string  `yaml:"type"`
	Content    string  `yaml:"content"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	FontSize   float64 `yaml:"fontSize"`
	FontWeight string  `yaml:"fontWeight"`
	Alignment  string  `yaml:"alignment"`
	DataSource string  `yaml:"dataSource"`
	Format     string  `yaml:"format"`
}

var (
	loadOnce sync.Once
	loaded   []Preset
	loadErr  error
)

func load() ([]Preset, error) {
	loadOnce.Do(func() {
		var doc struct {
			Presets []Preset `yaml:"presets"`
		}
		if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
			loadErr = fmt.Errorf("parse preset catalog: %w", err)
			return
		}
		loaded = doc.Presets
	})
	return loaded, loadErr
}

// List returns every preset in catalog order.
func List() ([]Preset, error) {
	return load()
}

// ByCategory filters the catalog.
func ByCategory(category string) ([]Preset, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	var out []Preset
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// Instantiate builds a fresh template from a preset. Field styling falls
// back to the per-type defaults for anything the preset leaves unset.
func Instantiate(presetID string) (domain.LabelTemplate, error) {
	all, err := load()
	if err != nil {
		return domain.LabelTemplate{}, err
	}
	for _, p := range all {
		if p.ID != presetID {
			continue
		}
		t := domain.NewTemplate(p.Name)
		t.Description = p.Description
		t.Width = p.Width
		t.Height = p.Height
		for _, pf := range p.Fields {
			f := domain.DefaultField(domain.FieldType(pf.Type))
			f.X, f.Y = pf.X, pf.Y
			f.Width, f.Height = pf.Width, pf.Height
			if pf.Content != "" {
				f.Content = pf.Content
			}
			if pf.FontSize > 0 {
				f.FontSize = pf.FontSize
			}
			if pf.FontWeight != "" {
				f.FontWeight = pf.FontWeight
			}
			if pf.Alignment != "" {
				f.Alignment = pf.Alignment
			}
			f.DataSource = pf.DataSource
			f.Format = pf.Format
			t.Fields = append(t.Fields, f)
		}
		if err := t.Validate(); err != nil {
			return domain.LabelTemplate{}, fmt.Errorf("preset %s: %w", presetID, err)
		}
		return t, nil
	}
	return domain.LabelTemplate{}, fmt.Errorf("preset %s: %w", presetID, domain.ErrNotFound)
}
