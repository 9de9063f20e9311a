/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package designer hosts the canvas interaction engine for the label
// editor: a small state machine over a template, fed by pointer events,
// with grid snapping, bounds clamping, preview mode and undo/redo.
// It is UI-agnostic; a frontend translates native input events into the
// operations here and draws whatever Template() currently holds.
package designer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"labelpress/internal/domain"
	"labelpress/internal/geom"
	applog "labelpress/internal/log"
	"labelpress/internal/render"
)

// TemplateStore is the persistence seam the editor commits through.
type TemplateStore interface {
	GetTemplate(id string) (domain.LabelTemplate, error)
	SaveTemplate(t domain.LabelTemplate) error
}

// State is the interaction mode. Exactly one of the concrete types below
// is active at a time; illegal combinations (dragging without a field)
// cannot be represented.
type State interface{ isState() }

// Idle means nothing is selected.
type Idle struct{}

// Selected holds the current selection target.
type Selected struct{ FieldID string }

// Dragging tracks an in-flight move of one field.
type Dragging struct {
	FieldID      string
	StartPointer geom.Pt
	StartField   geom.Pt
}

// Preview renders bound sample data read-only; Prior is restored on toggle.
type Preview struct{ Prior State }

func (Idle) isState()     {}
func (Selected) isState() {}
func (Dragging) isState() {}
func (Preview) isState()  {}

// Z-order layers: the selected field always paints on top.
const (
	ZSelected = 10
	ZDefault  = 1
)

const (
	MinZoom         = 0.5
	MaxZoom         = 2.0
	DefaultGridSize = 5.0
)

// Editor drives one template through interactive edits. Not safe for
// concurrent use; the surrounding UI owns it from a single event loop.
type Editor struct {
	store TemplateStore
	undo  *UndoManager
	log   *slog.Logger

	tpl    domain.LabelTemplate
	state  State
	zoom   float64
	grid   float64
	snap   bool
	sample map[string]any

	// template state captured at pointer-down, committed as one undo step
	// when the drag finishes
	dragBase []byte
}

// NewEditor loads a template from the store and starts an editing session.
func NewEditor(store TemplateStore, templateID string) (*Editor, error) {
	if store == nil {
		return nil, errors.New("template store is required")
	}
	tpl, err := store.GetTemplate(templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	return &Editor{
		store: store,
		undo:  NewUndoManager(UndoConfig{MaxPerTemplate: 100}),
		log:   applog.WithComponent("designer"),
		tpl:   tpl,
		state: Idle{},
		zoom:  1,
		grid:  DefaultGridSize,
		snap:  true,
	}, nil
}

// Template returns the current working copy.
func (e *Editor) Template() domain.LabelTemplate { return e.tpl }

// State returns the current interaction state.
func (e *Editor) State() State { return e.state }

// SelectedField reports the selection target, if any.
func (e *Editor) SelectedField() (string, bool) {
	switch s := e.state.(type) {
	case Selected:
		return s.FieldID, true
	case Dragging:
		return s.FieldID, true
	}
	return "", false
}

// ZOrder returns the stacking layer for a field under the current selection.
func (e *Editor) ZOrder(fieldID string) int {
	if id, ok := e.SelectedField(); ok && id == fieldID {
		return ZSelected
	}
	return ZDefault
}

// Zoom returns the current zoom factor.
func (e *Editor) Zoom() float64 { return e.zoom }

// SetZoom clamps the factor to the supported range.
func (e *Editor) SetZoom(z float64) {
	e.zoom = geom.Clamp(z, MinZoom, MaxZoom)
}

// SetGrid sets the snap grid in mm. Zero or below disables snapping math.
func (e *Editor) SetGrid(size float64) { e.grid = size }

// SetSnap toggles snap-to-grid.
func (e *Editor) SetSnap(on bool) { e.snap = on }

func (e *Editor) inPreview() bool {
	_, ok := e.state.(Preview)
	return ok
}

// PointerDown begins an interaction. fieldID is empty for a press on bare
// canvas, which clears the selection. A press on a field selects it and
// arms a drag from the pointer position (canvas pixels).
func (e *Editor) PointerDown(p geom.Pt, fieldID string) {
	if e.inPreview() {
		return
	}
	if fieldID == "" {
		e.state = Idle{}
		return
	}
	f, ok := e.tpl.FieldByID(fieldID)
	if !ok {
		e.state = Idle{}
		return
	}
	e.dragBase, _ = json.Marshal(e.tpl)
	e.state = Dragging{
		FieldID:      fieldID,
		StartPointer: p,
		StartField:   geom.Pt{X: f.X, Y: f.Y},
	}
}

// PointerMove updates the dragged field's position. The candidate is the
// field's start position plus the pointer delta divided by zoom, snapped to
// the grid when enabled and clamped to the template bounds per axis.
func (e *Editor) PointerMove(p geom.Pt) {
	d, ok := e.state.(Dragging)
	if !ok {
		return
	}
	f, ok := e.tpl.FieldByID(d.FieldID)
	if !ok {
		// field vanished mid-drag; drop back to idle
		e.state = Idle{}
		return
	}
	x := d.StartField.X + (p.X-d.StartPointer.X)/e.zoom
	y := d.StartField.Y + (p.Y-d.StartPointer.Y)/e.zoom
	if e.snap {
		x = geom.Snap(x, e.grid)
		y = geom.Snap(y, e.grid)
	}
	r := geom.ClampRect(geom.R(x, y, f.Width, f.Height), geom.Size{W: e.tpl.Width, H: e.tpl.Height})
	e.tpl = domain.UpdateField(e.tpl, d.FieldID, domain.FieldPatch{X: &r.X, Y: &r.Y})
}

// PointerUp finishes a drag, commits the result and leaves the field selected.
func (e *Editor) PointerUp() error {
	d, ok := e.state.(Dragging)
	if !ok {
		return nil
	}
	e.state = Selected{FieldID: d.FieldID}
	base := e.dragBase
	e.dragBase = nil
	return e.commit("drag", base)
}

// TogglePreview switches into preview against the given sample record, or
// back to the prior state when already previewing. sample may be nil, in
// which case fields show their literal content.
func (e *Editor) TogglePreview(sample map[string]any) {
	if p, ok := e.state.(Preview); ok {
		e.state = p.Prior
		e.sample = nil
		return
	}
	e.sample = sample
	e.state = Preview{Prior: e.state}
}

// PreviewDocument renders the working template against the preview sample
// at the current zoom. Outside preview mode the literal template renders.
func (e *Editor) PreviewDocument() render.Document {
	return render.RenderTemplate(e.tpl, e.sample, geom.PxPerMM*e.zoom)
}

// AddField appends a field with per-type defaults, selects it and commits.
func (e *Editor) AddField(t domain.FieldType) (domain.LabelField, error) {
	if e.inPreview() {
		return domain.LabelField{}, errors.New("canvas is read-only in preview")
	}
	if !t.Valid() {
		return domain.LabelField{}, fmt.Errorf("unknown field type %q", t)
	}
	pre, err := json.Marshal(e.tpl)
	if err != nil {
		return domain.LabelField{}, fmt.Errorf("snapshot template: %w", err)
	}
	f := domain.DefaultField(t)
	r := geom.ClampRect(geom.R(f.X, f.Y, f.Width, f.Height), geom.Size{W: e.tpl.Width, H: e.tpl.Height})
	f.X, f.Y = r.X, r.Y
	e.tpl.Fields = append(e.tpl.Fields, f)
	e.state = Selected{FieldID: f.ID}
	if err := e.commit("add_field", pre); err != nil {
		return domain.LabelField{}, err
	}
	return f, nil
}

// DeleteField removes the selected field and commits. Without a selection
// it is a no-op.
func (e *Editor) DeleteField() error {
	id, ok := e.SelectedField()
	if !ok || e.inPreview() {
		return nil
	}
	pre, err := json.Marshal(e.tpl)
	if err != nil {
		return fmt.Errorf("snapshot template: %w", err)
	}
	e.tpl = domain.RemoveField(e.tpl, id)
	e.state = Idle{}
	return e.commit("delete_field", pre)
}

// SetFieldProperty applies a partial update to one field and commits.
// Unknown field ids are a no-op so a pending panel edit racing a deletion
// cannot fail the editor.
func (e *Editor) SetFieldProperty(fieldID string, patch domain.FieldPatch) error {
	if e.inPreview() {
		return errors.New("canvas is read-only in preview")
	}
	if _, ok := e.tpl.FieldByID(fieldID); !ok {
		return nil
	}
	pre, err := json.Marshal(e.tpl)
	if err != nil {
		return fmt.Errorf("snapshot template: %w", err)
	}
	e.tpl = domain.UpdateField(e.tpl, fieldID, patch)
	// keep the geometry legal after any position or size change
	if f, ok := e.tpl.FieldByID(fieldID); ok {
		w := min(f.Width, e.tpl.Width)
		h := min(f.Height, e.tpl.Height)
		r := geom.ClampRect(geom.R(f.X, f.Y, w, h), geom.Size{W: e.tpl.Width, H: e.tpl.Height})
		if r.X != f.X || r.Y != f.Y || w != f.Width || h != f.Height {
			e.tpl = domain.UpdateField(e.tpl, fieldID, domain.FieldPatch{X: &r.X, Y: &r.Y, Width: &w, Height: &h})
		}
	}
	return e.commit("set_property", pre)
}

// Undo restores the previous committed template state.
func (e *Editor) Undo() bool {
	cur, err := json.Marshal(e.tpl)
	if err != nil {
		return false
	}
	s, ok := e.undo.Undo(e.tpl.ID, cur)
	if !ok {
		return false
	}
	e.restore(s.Blob)
	return true
}

// Redo re-applies a state undone by Undo.
func (e *Editor) Redo() bool {
	cur, err := json.Marshal(e.tpl)
	if err != nil {
		return false
	}
	s, ok := e.undo.Redo(e.tpl.ID, cur)
	if !ok {
		return false
	}
	e.restore(s.Blob)
	return true
}

func (e *Editor) restore(blob []byte) {
	var tpl domain.LabelTemplate
	if err := json.Unmarshal(blob, &tpl); err != nil {
		e.log.Warn("undo blob corrupt", slog.Any("err", err))
		return
	}
	e.tpl = tpl
	if id, ok := e.SelectedField(); ok {
		if _, still := e.tpl.FieldByID(id); !still {
			e.state = Idle{}
		}
	}
	if err := e.store.SaveTemplate(e.tpl); err != nil {
		e.log.Error("persist after undo failed", slog.Any("err", err))
	}
}

// commit records the pre-mutation snapshot and persists the working copy.
func (e *Editor) commit(op string, pre []byte) error {
	if pre != nil {
		e.undo.Push(Snapshot{TemplateID: e.tpl.ID, Blob: pre, TS: time.Now()})
	}
	if err := e.store.SaveTemplate(e.tpl); err != nil {
		e.log.Error("persist failed", slog.String("op", op), slog.Any("err", err))
		return fmt.Errorf("persist template: %w", err)
	}
	return nil
}
