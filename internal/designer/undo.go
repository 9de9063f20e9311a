/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package designer

import (
	"sync"
	"time"
)

// Snapshot represents a reversible template state blob.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	TemplateID string
	Blob       []byte
	TS         time.Time
}

// UndoConfig controls memory and depth caps and coalescing behavior.
type UndoConfig struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerTemplate limits snapshots kept per template (0 means unlimited).
	MaxPerTemplate int
	// MinInterval coalesces snapshots captured within the interval for the
	// same template, replacing the previous one instead of pushing a new entry.
	MinInterval time.Duration
}

// UndoManager provides an in-memory undo/redo stack per template with
// performance safeguards. It is safe for concurrent use.
type UndoManager struct {
	cfg UndoConfig
	mu  sync.Mutex
	// per-template stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewUndoManager(cfg UndoConfig) *UndoManager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024 // 8 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &UndoManager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records a snapshot for a template. If within MinInterval from the
// last snapshot on the same template, it replaces the last one. Clears the
// redo stack for that template.
func (m *UndoManager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.TemplateID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.TemplateID] = stack
			m.dropRedoLocked(s.TemplateID)
			m.enforceCapsLocked(s.TemplateID)
			return
		}
	}
	stack = append(stack, s)
	m.undo[s.TemplateID] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the template
	m.dropRedoLocked(s.TemplateID)
	m.enforceCapsLocked(s.TemplateID)
}

// Undo pops the most recent snapshot for a template and stashes the
// caller's current state on the redo stack. Snapshots are full states, so
// the exchange keeps both stacks consistent.
func (m *UndoManager) Undo(templateID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[templateID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[templateID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[templateID] = append(m.redo[templateID], Snapshot{TemplateID: templateID, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	return s, true
}

// Redo pops an undone state and stashes the caller's current state back on
// the undo stack without clearing redo.
func (m *UndoManager) Redo(templateID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[templateID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[templateID] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	m.undo[templateID] = append(m.undo[templateID], Snapshot{TemplateID: templateID, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	m.enforceCapsLocked(templateID)
	return s, true
}

// Clear drops undo/redo stacks for a template to free memory.
func (m *UndoManager) Clear(templateID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[templateID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, templateID)
	m.dropRedoLocked(templateID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

func (m *UndoManager) dropRedoLocked(templateID string) {
	for _, s := range m.redo[templateID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, templateID)
}

// Stats returns current sizes for diagnostics.
func (m *UndoManager) Stats() (totalBytes int, templates int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	templates = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, templates, totalSnapshots
}

func (m *UndoManager) enforceCapsLocked(templateID string) {
	// Per-template depth cap
	if m.cfg.MaxPerTemplate > 0 {
		stack := m.undo[templateID]
		if len(stack) > m.cfg.MaxPerTemplate {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerTemplate
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[templateID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all templates
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestID := ""
		oldestIdx := -1
		var oldestTS time.Time
		for id, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestID = id
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestID]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestID] = stack[1:]
		if len(m.undo[oldestID]) == 0 {
			delete(m.undo, oldestID)
		}
	}
}
