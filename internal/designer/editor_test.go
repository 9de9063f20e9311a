/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package designer

import (
	"fmt"
	"testing"

	"labelpress/internal/domain"
	"labelpress/internal/geom"
)

// memStore is a tiny in-memory TemplateStore for editor tests.
type memStore struct {
	templates map[string]domain.LabelTemplate
	saves     int
}

func newMemStore(ts ...domain.LabelTemplate) *memStore {
	m := &memStore{templates: map[string]domain.LabelTemplate{}}
	for _, t := range ts {
		m.templates[t.ID] = t
	}
	return m
}

func (m *memStore) GetTemplate(id string) (domain.LabelTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return domain.LabelTemplate{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (m *memStore) SaveTemplate(t domain.LabelTemplate) error {
	m.templates[t.ID] = t
	m.saves++
	return nil
}

func blankEditor(t *testing.T) (*Editor, *memStore) {
	t.Helper()
	tpl := domain.NewTemplate("canvas")
	store := newMemStore(tpl)
	e, err := NewEditor(store, tpl.ID)
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	return e, store
}

func TestDragSnapsToGrid(t *testing.T) {
	e, _ := blankEditor(t)
	f, err := e.AddField(domain.FieldText)
	if err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if f.X != 10 || f.Y != 10 || f.Width != 30 || f.Height != 8 {
		t.Fatalf("default text field: %+v", f)
	}

	e.PointerDown(geom.Pt{X: 40, Y: 40}, f.ID)
	if _, ok := e.State().(Dragging); !ok {
		t.Fatalf("expected dragging, got %T", e.State())
	}
	e.PointerMove(geom.Pt{X: 45, Y: 45})
	if err := e.PointerUp(); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}

	got, _ := e.Template().FieldByID(f.ID)
	if got.X != 15 || got.Y != 15 {
		t.Fatalf("dragged position %g,%g, want 15,15", got.X, got.Y)
	}
	if got.Width != 30 || got.Height != 8 {
		t.Fatalf("drag changed size: %+v", got)
	}
	if s, ok := e.State().(Selected); !ok || s.FieldID != f.ID {
		t.Fatalf("expected selection after drag, got %#v", e.State())
	}
}

func TestDragClampsToBounds(t *testing.T) {
	e, _ := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)

	e.PointerDown(geom.Pt{X: 0, Y: 0}, f.ID)
	e.PointerMove(geom.Pt{X: 85, Y: 48}) // candidate (95, 58), off canvas
	if err := e.PointerUp(); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	got, _ := e.Template().FieldByID(f.ID)
	if got.X != 70 || got.Y != 52 {
		t.Fatalf("clamped position %g,%g, want 70,52", got.X, got.Y)
	}
}

func TestDragHonorsZoom(t *testing.T) {
	e, _ := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	e.SetZoom(2)
	e.SetSnap(false)
	e.PointerDown(geom.Pt{X: 0, Y: 0}, f.ID)
	e.PointerMove(geom.Pt{X: 10, Y: 10}) // 10 canvas px at 2x = 5mm
	_ = e.PointerUp()
	got, _ := e.Template().FieldByID(f.ID)
	if got.X != 15 || got.Y != 15 {
		t.Fatalf("zoomed drag: %g,%g", got.X, got.Y)
	}
}

func TestPointerDownOnCanvasClearsSelection(t *testing.T) {
	e, _ := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	if id, ok := e.SelectedField(); !ok || id != f.ID {
		t.Fatalf("add should select")
	}
	e.PointerDown(geom.Pt{}, "")
	if _, ok := e.State().(Idle); !ok {
		t.Fatalf("expected idle, got %T", e.State())
	}
	if e.ZOrder(f.ID) != ZDefault {
		t.Fatalf("deselected field should stack at default z")
	}
}

func TestZOrderSelectedOnTop(t *testing.T) {
	e, _ := blankEditor(t)
	a, _ := e.AddField(domain.FieldText)
	b, _ := e.AddField(domain.FieldRectangle)
	if e.ZOrder(b.ID) != ZSelected || e.ZOrder(a.ID) != ZDefault {
		t.Fatalf("z-order: a=%d b=%d", e.ZOrder(a.ID), e.ZOrder(b.ID))
	}
}

func TestPreviewTogglesAndBlocksEdits(t *testing.T) {
	e, _ := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	e.TogglePreview(map[string]any{"orderNumber": "ORD-9"})

	if _, ok := e.State().(Preview); !ok {
		t.Fatalf("expected preview, got %T", e.State())
	}
	if _, err := e.AddField(domain.FieldQR); err == nil {
		t.Fatalf("add should be rejected in preview")
	}
	e.PointerDown(geom.Pt{X: 0, Y: 0}, f.ID)
	if _, ok := e.State().(Dragging); ok {
		t.Fatalf("pointer must not drag in preview")
	}

	doc := e.PreviewDocument()
	if len(doc.Boxes) != 1 || doc.Boxes[0].Content != "ORD-9" {
		t.Fatalf("preview content: %+v", doc.Boxes)
	}

	e.TogglePreview(nil)
	if s, ok := e.State().(Selected); !ok || s.FieldID != f.ID {
		t.Fatalf("prior state not restored: %#v", e.State())
	}
}

func TestDeleteFieldAndUndoRedo(t *testing.T) {
	e, store := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	if err := e.DeleteField(); err != nil {
		t.Fatalf("DeleteField: %v", err)
	}
	if len(e.Template().Fields) != 0 {
		t.Fatalf("field not deleted")
	}
	if _, ok := e.State().(Idle); !ok {
		t.Fatalf("delete should clear selection")
	}

	if !e.Undo() {
		t.Fatalf("undo unavailable")
	}
	if _, ok := e.Template().FieldByID(f.ID); !ok {
		t.Fatalf("undo did not restore the field")
	}
	if !e.Redo() {
		t.Fatalf("redo unavailable")
	}
	if len(e.Template().Fields) != 0 {
		t.Fatalf("redo did not re-delete")
	}
	// each commit and undo/redo persists
	if got := store.templates[e.Template().ID]; len(got.Fields) != 0 {
		t.Fatalf("store out of sync: %+v", got)
	}
}

func TestSetFieldPropertyClampsAndIgnoresUnknown(t *testing.T) {
	e, _ := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	x := 95.0
	if err := e.SetFieldProperty(f.ID, domain.FieldPatch{X: &x}); err != nil {
		t.Fatalf("SetFieldProperty: %v", err)
	}
	got, _ := e.Template().FieldByID(f.ID)
	if got.X != 70 {
		t.Fatalf("property edit not clamped: %g", got.X)
	}
	if err := e.SetFieldProperty("ghost", domain.FieldPatch{X: &x}); err != nil {
		t.Fatalf("unknown field id should be a no-op: %v", err)
	}
}

// A size patch larger than the page must clamp to the page bounds so the
// working copy always stays saveable.
func TestSetFieldPropertyClampsOversizedPatch(t *testing.T) {
	e, store := blankEditor(t)
	f, _ := e.AddField(domain.FieldText)
	w := 250.0
	h := 90.0
	if err := e.SetFieldProperty(f.ID, domain.FieldPatch{Width: &w, Height: &h}); err != nil {
		t.Fatalf("SetFieldProperty: %v", err)
	}
	tpl := e.Template()
	got, _ := tpl.FieldByID(f.ID)
	if got.Width != tpl.Width || got.Height != tpl.Height {
		t.Fatalf("oversized size not clamped: %gx%g on %gx%g page", got.Width, got.Height, tpl.Width, tpl.Height)
	}
	if got.X != 0 || got.Y != 0 {
		t.Fatalf("clamped field not repositioned: (%g,%g)", got.X, got.Y)
	}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("template invalid after property edit: %v", err)
	}
	if saved := store.templates[tpl.ID]; len(saved.Fields) == 0 || saved.Fields[len(saved.Fields)-1].Width != tpl.Width {
		t.Fatalf("clamped edit not persisted: %+v", saved.Fields)
	}
}

func TestSetZoomClamps(t *testing.T) {
	e, _ := blankEditor(t)
	e.SetZoom(0.1)
	if e.Zoom() != MinZoom {
		t.Fatalf("zoom floor: %g", e.Zoom())
	}
	e.SetZoom(9)
	if e.Zoom() != MaxZoom {
		t.Fatalf("zoom ceiling: %g", e.Zoom())
	}
}
