/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// fieldDefault captures the per-type defaults applied when a field is added
// through the designer.
type fieldDefault struct {
	content    string
	width      float64
	height     float64
	dataSource string
}

var fieldDefaults = map[FieldType]fieldDefault{
	FieldText:      {content: "Sample Text", width: 30, height: 8, dataSource: "orderNumber"},
	FieldBarcode:   {content: "123456789", width: 40, height: 15, dataSource: "orderNumber"},
	FieldQR:        {content: "https://example.com", width: 20, height: 20, dataSource: "orderId"},
	FieldImage:     {content: "", width: 25, height: 20, dataSource: ""},
	FieldLine:      {content: "", width: 50, height: 1, dataSource: ""},
	FieldRectangle: {content: "", width: 30, height: 15, dataSource: ""},
}

// DefaultField returns a new field of the given type with type-specific
// default content, size, data source and the shared default styling.
// Unknown types fall back to a 20x8 text-like box.
func DefaultField(t FieldType) LabelField {
	d, ok := fieldDefaults[t]
	if !ok {
		d = fieldDefault{width: 20, height: 8}
	}
	return LabelField{
		ID:              NewID("field"),
		Type:            t,
		Content:         d.content,
		X:               10,
		Y:               10,
		Width:           d.width,
		Height:          d.height,
		FontSize:        12,
		FontFamily:      "Arial, sans-serif",
		FontWeight:      "normal",
		Color:           "#000000",
		BackgroundColor: "transparent",
		BorderColor:     "transparent",
		BorderWidth:     0,
		Alignment:       "left",
		Rotation:        0,
		DataSource:      d.dataSource,
	}
}

// FieldPatch is a partial field update. Nil members are left untouched so a
// property panel can update a single attribute without clobbering the rest.
type FieldPatch struct {
	Content         *string
	X               *float64
	Y               *float64
	Width           *float64
	Height          *float64
	FontSize        *float64
	FontFamily      *string
	FontWeight      *string
	Color           *string
	BackgroundColor *string
	BorderColor     *string
	BorderWidth     *float64
	Alignment       *string
	Rotation        *float64
	DataSource      *string
	Format          *string
}

func (p FieldPatch) apply(f LabelField) LabelField {
	if p.Content != nil {
		f.Content = *p.Content
	}
	if p.X != nil {
		f.X = *p.X
	}
	if p.Y != nil {
		f.Y = *p.Y
	}
	if p.Width != nil {
		f.Width = *p.Width
	}
	if p.Height != nil {
		f.Height = *p.Height
	}
	if p.FontSize != nil {
		f.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		f.FontFamily = *p.FontFamily
	}
	if p.FontWeight != nil {
		f.FontWeight = *p.FontWeight
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.BackgroundColor != nil {
		f.BackgroundColor = *p.BackgroundColor
	}
	if p.BorderColor != nil {
		f.BorderColor = *p.BorderColor
	}
	if p.BorderWidth != nil {
		f.BorderWidth = *p.BorderWidth
	}
	if p.Alignment != nil {
		f.Alignment = *p.Alignment
	}
	if p.Rotation != nil {
		f.Rotation = *p.Rotation
	}
	if p.DataSource != nil {
		f.DataSource = *p.DataSource
	}
	if p.Format != nil {
		f.Format = *p.Format
	}
	return f
}

// UpdateField returns a copy of the template with the identified field
// shallow-merged with the patch. An unknown field id is a no-op, not an
// error, so the editor stays resilient to races between deletion and a
// pending property update.
func UpdateField(t LabelTemplate, fieldID string, patch FieldPatch) LabelTemplate {
	out := t
	out.Fields = make([]LabelField, len(t.Fields))
	copy(out.Fields, t.Fields)
	for i, f := range out.Fields {
		if f.ID == fieldID {
			out.Fields[i] = patch.apply(f)
			break
		}
	}
	return out
}

// RemoveField returns a copy of the template without the identified field.
// Removing an unknown id is a no-op.
func RemoveField(t LabelTemplate, fieldID string) LabelTemplate {
	out := t
	out.Fields = make([]LabelField, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.ID != fieldID {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// NewID allocates a prefixed unique identifier, e.g. "field-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewTemplate creates a designer-initiated blank template with the
// conventional 100x60mm page.
func NewTemplate(name string) LabelTemplate {
	now := time.Now().UTC()
	return LabelTemplate{
		ID:          NewID("template"),
		Name:        name,
		Description: "Custom label template",
		Width:       100,
		Height:      60,
		Fields:      []LabelField{},
		CreatedBy:   "user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CloneTemplate deep-copies a template under a new name with fresh ids for
// the template and every field. IsDefault is always cleared on the copy.
func CloneTemplate(t LabelTemplate, newName string) LabelTemplate {
	now := time.Now().UTC()
	out := t
	out.ID = NewID("template")
	out.Name = newName
	out.IsDefault = false
	out.CreatedAt = now
	out.UpdatedAt = now
	out.Fields = make([]LabelField, len(t.Fields))
	for i, f := range t.Fields {
		f.ID = NewID("field")
		out.Fields[i] = f
	}
	return out
}

// DefaultTemplate is the system-seeded shipping label created on first use.
// It cannot be deleted from the catalog.
func DefaultTemplate() LabelTemplate {
	now := time.Now().UTC()
	return LabelTemplate{
		ID:          "default-shipping",
		Name:        "Shipping Label",
		Description: "Standard shipping label for orders",
		Width:       100,
		Height:      60,
		IsDefault:   true,
		CreatedBy:   "system",
		CreatedAt:   now,
		UpdatedAt:   now,
		Fields: []LabelField{
			{ID: "order-number", Type: FieldText, Content: "Order #", X: 5, Y: 5, Width: 20, Height: 8, FontSize: 10, FontWeight: "bold", DataSource: "orderNumber"},
			{ID: "customer-name", Type: FieldText, Content: "Customer", X: 5, Y: 15, Width: 40, Height: 8, FontSize: 8, DataSource: "customerName"},
			{ID: "address", Type: FieldText, Content: "Address", X: 5, Y: 25, Width: 60, Height: 20, FontSize: 7, DataSource: "customerAddress"},
			{ID: "priority", Type: FieldText, Content: "Priority", X: 70, Y: 5, Width: 25, Height: 8, FontSize: 8, FontWeight: "bold", DataSource: "priority", Alignment: "center"},
			{ID: "barcode", Type: FieldBarcode, Content: "Barcode", X: 70, Y: 15, Width: 25, Height: 15, FontSize: 6, DataSource: "barcode"},
		},
	}
}
