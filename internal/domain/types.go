/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model structures for the label template
// designer and print job engine. Templates serialize to a human-readable
// JSON catalog; all geometry is in millimeters.

import (
	"errors"
	"fmt"
	"time"
)

// FieldType tags the closed set of label field kinds.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldBarcode   FieldType = "barcode"
	FieldQR        FieldType = "qr"
	FieldImage     FieldType = "image"
	FieldLine      FieldType = "line"
	FieldRectangle FieldType = "rectangle"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldBarcode, FieldQR, FieldImage, FieldLine, FieldRectangle:
		return true
	}
	return false
}

// LabelField is one positioned, styled, optionally data-bound element of a
// label template. Position and size are in the template's physical unit (mm).
// DataSource, when set, is a dot-separated path resolved against the bound
// record at render time; Content is the literal fallback.
type LabelField struct {
	ID              string    `json:"id"`
	Type            FieldType `json:"type"`
	Content         string    `json:"content"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Width           float64   `json:"width"`
	Height          float64   `json:"height"`
	FontSize        float64   `json:"fontSize,omitempty"`
	FontFamily      string    `json:"fontFamily,omitempty"`
	FontWeight      string    `json:"fontWeight,omitempty"` // normal or bold
	Color           string    `json:"color,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BorderWidth     float64   `json:"borderWidth,omitempty"`
	Alignment       string    `json:"alignment,omitempty"` // left, center or right
	Rotation        float64   `json:"rotation,omitempty"`  // degrees, visual only
	DataSource      string    `json:"dataSource,omitempty"`
	Format          string    `json:"format,omitempty"`
}

// LabelTemplate is a named, sized collection of fields defining a reusable
// label layout. A template exclusively owns its fields; duplication
// deep-copies them with fresh identities.
type LabelTemplate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Width       float64      `json:"width"`  // mm
	Height      float64      `json:"height"` // mm
	Fields      []LabelField `json:"fields"`
	IsDefault   bool         `json:"isDefault,omitempty"`
	CreatedBy   string       `json:"createdBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Validate checks the template invariants: positive page size and every
// field fully inside the page bounds.
func (t LabelTemplate) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("template %q: page size must be positive, got %gx%g", t.Name, t.Width, t.Height)
	}
	for _, f := range t.Fields {
		if !f.Type.Valid() {
			return fmt.Errorf("template %q: field %s has unknown type %q", t.Name, f.ID, f.Type)
		}
		if f.Width < 0 || f.Height < 0 {
			return fmt.Errorf("template %q: field %s has negative size", t.Name, f.ID)
		}
		if f.X < 0 || f.Y < 0 || f.X+f.Width > t.Width || f.Y+f.Height > t.Height {
			return fmt.Errorf("template %q: field %s exceeds page bounds", t.Name, f.ID)
		}
	}
	return nil
}

// FieldByID returns the field with the given id, or false when absent.
func (t LabelTemplate) FieldByID(id string) (LabelField, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return LabelField{}, false
}

// JobStatus is the print job lifecycle state. Transitions are monotonic:
// pending -> printing -> completed|failed, with completed and failed terminal.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPrinting  JobStatus = "printing"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

// CanTransition reports whether moving from s to next is a legal step of the
// job state machine.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobPrinting
	case JobPrinting:
		return next == JobCompleted || next == JobFailed
	}
	return false
}

// PrintJob is one unit of print work: render Copies of a template against
// each record in RecordIDs and submit to the print sink. The template is
// referenced by id only; job history stays meaningful if the template is
// later edited or deleted. Error is set if and only if Status is failed.
type PrintJob struct {
	ID          string     `json:"id"`
	TemplateID  string     `json:"templateId"`
	RecordIDs   []string   `json:"recordIds"`
	Copies      int        `json:"copies"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Margins are print margins in millimeters.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PrintSettings are passed through to the print sink unmodified.
type PrintSettings struct {
	PrinterName string  `json:"printerName,omitempty"`
	PaperSize   string  `json:"paperSize"`   // A4, Letter or Custom
	Orientation string  `json:"orientation"` // portrait or landscape
	Margins     Margins `json:"margins"`
	Copies      int     `json:"copies"`
	Quality     string  `json:"quality"` // draft, normal or high
}

// DefaultPrintSettings returns the settings used when the caller supplies none.
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{
		PaperSize:   "A4",
		Orientation: "portrait",
		Margins:     Margins{Top: 10, Right: 10, Bottom: 10, Left: 10},
		Copies:      1,
		Quality:     "normal",
	}
}

// ErrNotFound is returned by stores when an id does not resolve. Lookup
// helpers on in-memory types return (T, bool) instead.
var ErrNotFound = errors.New("not found")
