/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package presets

import (
	"errors"
	"testing"

	"labelpress/internal/domain"
)

func TestListCatalog(t *testing.T) {
	all, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) < 4 {
		t.Fatalf("expected at least 4 presets, got %d", len(all))
	}
	seen := map[string]bool{}
	for _, p := range all {
		if p.ID == "" || p.Name == "" || p.Category == "" {
			t.Fatalf("incomplete preset: %+v", p)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate preset id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestByCategory(t *testing.T) {
	shipping, err := ByCategory("shipping")
	if err != nil {
		t.Fatalf("ByCategory: %v", err)
	}
	if len(shipping) < 2 {
		t.Fatalf("shipping presets: %d", len(shipping))
	}
	none, err := ByCategory("nope")
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown category: %v %v", none, err)
	}
}

func TestInstantiate(t *testing.T) {
	tpl, err := Instantiate("shipping-4x6")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if tpl.Width != 101.6 || tpl.Height != 152.4 {
		t.Fatalf("size: %gx%g", tpl.Width, tpl.Height)
	}
	if len(tpl.Fields) == 0 {
		t.Fatalf("no fields instantiated")
	}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("instantiated template invalid: %v", err)
	}
	// instantiation mints fresh ids each time
	tpl2, _ := Instantiate("shipping-4x6")
	if tpl2.ID == tpl.ID || tpl2.Fields[0].ID == tpl.Fields[0].ID {
		t.Fatalf("preset instances share ids")
	}
}

func TestInstantiateUnknown(t *testing.T) {
	if _, err := Instantiate("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown preset: %v", err)
	}
}
