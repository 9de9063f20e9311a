/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sink delivers rendered label documents to printers. The job
// orchestrator only knows the Sink interface; concrete sinks turn a
// document into a PDF file, a ZPL byte stream for thermal printers, or a
// spooler API call.
package sink

import (
	"context"
	"sync"

	"labelpress/internal/domain"
	"labelpress/internal/render"
)

// Sink consumes one rendered document per label copy. Print settings pass
// through unmodified from the job request.
type Sink interface {
	Print(ctx context.Context, doc render.Document, settings domain.PrintSettings) error
}

// Memory records every document it receives. Used in tests and dry runs.
type Memory struct {
	mu   sync.Mutex
	docs []render.Document
	// Fail, when set, is returned by every Print call.
	Fail error
}

func (m *Memory) Print(_ context.Context, doc render.Document, _ domain.PrintSettings) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

// Count reports how many documents were printed.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Docs returns a copy of the recorded documents in print order.
func (m *Memory) Docs() []render.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]render.Document, len(m.docs))
	copy(out, m.docs)
	return out
}
