/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package designer

import (
	"testing"
	"time"
)

func snap(id, blob string, ts time.Time) Snapshot {
	return Snapshot{TemplateID: id, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoExchange(t *testing.T) {
	m := NewUndoManager(UndoConfig{MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("t1", "v1", base))
	m.Push(snap("t1", "v2", base.Add(time.Second)))

	s, ok := m.Undo("t1", []byte("v3"))
	if !ok || string(s.Blob) != "v2" {
		t.Fatalf("undo: %q %v", s.Blob, ok)
	}
	s, ok = m.Undo("t1", []byte("v2"))
	if !ok || string(s.Blob) != "v1" {
		t.Fatalf("second undo: %q %v", s.Blob, ok)
	}
	if _, ok := m.Undo("t1", []byte("v1")); ok {
		t.Fatalf("empty undo stack should report false")
	}

	s, ok = m.Redo("t1", []byte("v1"))
	if !ok || string(s.Blob) != "v2" {
		t.Fatalf("redo: %q %v", s.Blob, ok)
	}
	s, ok = m.Redo("t1", []byte("v2"))
	if !ok || string(s.Blob) != "v3" {
		t.Fatalf("second redo: %q %v", s.Blob, ok)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewUndoManager(UndoConfig{MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("t1", "v1", base))
	if _, ok := m.Undo("t1", []byte("v2")); !ok {
		t.Fatalf("undo failed")
	}
	m.Push(snap("t1", "v1b", base.Add(time.Second)))
	if _, ok := m.Redo("t1", []byte("x")); ok {
		t.Fatalf("push must clear redo")
	}
}

func TestCoalescingWindow(t *testing.T) {
	m := NewUndoManager(UndoConfig{MinInterval: time.Second})
	base := time.Now()
	m.Push(snap("t1", "v1", base))
	m.Push(snap("t1", "v2", base.Add(100*time.Millisecond)))
	_, _, count := m.Stats()
	if count != 1 {
		t.Fatalf("rapid pushes should coalesce, have %d", count)
	}
	s, _ := m.Undo("t1", []byte("cur"))
	if string(s.Blob) != "v2" {
		t.Fatalf("coalesce kept the wrong snapshot: %q", s.Blob)
	}
}

func TestPerTemplateDepthCap(t *testing.T) {
	m := NewUndoManager(UndoConfig{MaxPerTemplate: 2, MinInterval: time.Millisecond})
	base := time.Now()
	for i := 0; i < 5; i++ {
		m.Push(snap("t1", "v", base.Add(time.Duration(i)*time.Second)))
	}
	_, _, count := m.Stats()
	if count != 2 {
		t.Fatalf("depth cap: %d", count)
	}
}

func TestClearReleasesBytes(t *testing.T) {
	m := NewUndoManager(UndoConfig{MinInterval: time.Millisecond})
	m.Push(snap("t1", "0123456789", time.Now()))
	m.Clear("t1")
	bytes, templates, _ := m.Stats()
	if bytes != 0 || templates != 0 {
		t.Fatalf("clear left %d bytes across %d templates", bytes, templates)
	}
}
