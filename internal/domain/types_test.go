/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestTemplateValidate(t *testing.T) {
	tpl := NewTemplate("t")
	if err := tpl.Validate(); err != nil {
		t.Fatalf("blank template should validate: %v", err)
	}
	tpl.Fields = append(tpl.Fields, LabelField{ID: "f1", Type: FieldText, X: 90, Y: 10, Width: 30, Height: 8})
	if err := tpl.Validate(); err == nil {
		t.Fatalf("expected out-of-bounds field to fail validation")
	}
	tpl.Fields[0].X = 10
	if err := tpl.Validate(); err != nil {
		t.Fatalf("in-bounds field should validate: %v", err)
	}
	tpl.Width = 0
	if err := tpl.Validate(); err == nil {
		t.Fatalf("expected zero width to fail validation")
	}
}

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobPending, JobPrinting, true},
		{JobPrinting, JobCompleted, true},
		{JobPrinting, JobFailed, true},
		{JobPending, JobCompleted, false},
		{JobCompleted, JobPrinting, false},
		{JobFailed, JobPending, false},
		{JobPrinting, JobPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() || JobPrinting.Terminal() {
		t.Fatalf("terminal classification wrong")
	}
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	tpl := DefaultTemplate()
	b, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got LabelTemplate
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != tpl.ID || len(got.Fields) != len(tpl.Fields) || !got.IsDefault {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
