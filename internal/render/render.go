/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render binds label data to templates and produces positioned
// documents ready for a print sink. Rendering is pure: equal inputs give
// byte-identical output, which keeps previews and print jobs in sync.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"labelpress/internal/domain"
	"labelpress/internal/geom"
)

// Box is a positioned, fully resolved field. Geometry is in pixels at the
// document's scale; style members carry over from the field unchanged.
type Box struct {
	FieldID    string           `json:"fieldId"`
	Type       domain.FieldType `json:"type"`
	Content    string           `json:"content"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Width      float64          `json:"width"`
	Height     float64          `json:"height"`
	FontSize   float64          `json:"fontSize,omitempty"`
	FontFamily string           `json:"fontFamily,omitempty"`
	FontWeight string           `json:"fontWeight,omitempty"`
	Color      string           `json:"color,omitempty"`
	Background string           `json:"backgroundColor,omitempty"`
	BorderCol  string           `json:"borderColor,omitempty"`
	BorderW    float64          `json:"borderWidth,omitempty"`
	Alignment  string           `json:"alignment,omitempty"`
	Rotation   float64          `json:"rotation,omitempty"`
}

// Document is a rendered label: ordered boxes plus overall pixel size.
type Document struct {
	TemplateID string  `json:"templateId"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	WidthMM    float64 `json:"widthMm"`
	HeightMM   float64 `json:"heightMm"`
	Scale      float64 `json:"scale"`
	Boxes      []Box   `json:"boxes"`
}

// Resolve walks a dot-separated path through nested maps. Lookups that run
// off the tree report (nil, false) instead of panicking, so templates can
// reference fields a particular record does not carry.
func Resolve(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// FormatValue renders a resolved value for display. A format containing
// "currency" gives a grouped dollar amount with two decimals, one containing
// "date" gives a local date, anything else falls back to stringification.
// Keyword containment rather than equality keeps compound formats like
// "usd currency" working.
func FormatValue(v any, format string) string {
	switch {
	case strings.Contains(format, "currency"):
		if f, ok := toFloat(v); ok {
			return formatCurrency(f)
		}
	case strings.Contains(format, "date"):
		switch d := v.(type) {
		case time.Time:
			return d.Local().Format("1/2/2006")
		case string:
			if parsed, err := time.Parse(time.RFC3339, d); err == nil {
				return parsed.Local().Format("1/2/2006")
			}
			return d
		default:
			// numeric values are millisecond epochs
			if ms, ok := toFloat(v); ok {
				return time.UnixMilli(int64(ms)).Local().Format("1/2/2006")
			}
		}
	}
	return stringify(v)
}

// formatCurrency writes f as $1,234.50 with en-US digit grouping.
func formatCurrency(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	return sign + "$" + b.String() + frac
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

// resolveContent picks the field text. With no binding or no data the
// literal content shows; a binding that fails to resolve renders empty so
// a stray path never leaks placeholder text onto a printed label.
func resolveContent(f domain.LabelField, data map[string]any) string {
	if f.DataSource == "" || data == nil {
		return f.Content
	}
	v, ok := Resolve(data, f.DataSource)
	if !ok {
		return ""
	}
	return FormatValue(v, f.Format)
}

// RenderField resolves one field against the data tree at scale 1.
// Barcode payloads are wrapped in sentinel asterisks for Code 39 style
// readers; QR boxes carry a "QR:" payload marker for downstream engines.
// Line and rectangle fields are geometry only.
func RenderField(f domain.LabelField, data map[string]any) Box {
	b := Box{
		FieldID:    f.ID,
		Type:       f.Type,
		X:          f.X,
		Y:          f.Y,
		Width:      f.Width,
		Height:     f.Height,
		FontSize:   f.FontSize,
		FontFamily: f.FontFamily,
		FontWeight: f.FontWeight,
		Color:      f.Color,
		Background: f.BackgroundColor,
		BorderCol:  f.BorderColor,
		BorderW:    f.BorderWidth,
		Alignment:  f.Alignment,
		Rotation:   f.Rotation,
	}
	switch f.Type {
	case domain.FieldLine, domain.FieldRectangle:
		// geometry only
	case domain.FieldBarcode:
		payload := resolveContent(f, data)
		payload = strings.Trim(payload, "*")
		b.Content = "*" + payload + "*"
	case domain.FieldQR:
		b.Content = "QR:" + resolveContent(f, data)
	default:
		b.Content = resolveContent(f, data)
	}
	return b
}

// RenderTemplate binds every field of t against data and scales the
// geometry to pixels. Field order is preserved so overlapping boxes paint
// in the same order the designer shows them.
func RenderTemplate(t domain.LabelTemplate, data map[string]any, scale float64) Document {
	if scale <= 0 {
		scale = geom.PxPerMM
	}
	doc := Document{
		TemplateID: t.ID,
		Width:      t.Width * scale,
		Height:     t.Height * scale,
		WidthMM:    t.Width,
		HeightMM:   t.Height,
		Scale:      scale,
		Boxes:      make([]Box, 0, len(t.Fields)),
	}
	for _, f := range t.Fields {
		b := RenderField(f, data)
		b.X *= scale
		b.Y *= scale
		b.Width *= scale
		b.Height *= scale
		b.FontSize *= scale
		doc.Boxes = append(doc.Boxes, b)
	}
	return doc
}
