/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jung-kurt/gofpdf"

	"labelpress/internal/domain"
	"labelpress/internal/render"
)

// PDF writes each printed label as one page of a PDF file under OutDir.
// Pages are sized to the label itself, not the paper, so a 100x60mm label
// becomes a 100x60mm page; the spooler or driver handles imposition.
//
// Coordinates: page origin is top-left and units are millimeters, which
// maps 1:1 onto the document's mm geometry.
type PDF struct {
	OutDir string

	mu  sync.Mutex
	seq int
}

// Print renders one label document to <OutDir>/label-<n>.pdf.
func (p *PDF) Print(_ context.Context, doc render.Document, settings domain.PrintSettings) error {
	p.mu.Lock()
	p.seq++
	n := p.seq
	p.mu.Unlock()

	if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(p.OutDir, fmt.Sprintf("label-%04d.pdf", n))
	pdf, err := buildPDF(doc, settings)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildPDF(doc render.Document, settings domain.PrintSettings) (*gofpdf.Fpdf, error) {
	orient := ""
	if settings.Orientation == "landscape" {
		orient = "L"
	} else if settings.Orientation == "portrait" {
		orient = "P"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: doc.WidthMM, Ht: doc.HeightMM},
		OrientationStr: orient,
	})
	pdf.SetTitle("Label", false)
	pdf.SetAutoPageBreak(false, 0)
	// Built-in Helvetica keeps text vector without embedding
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPageFormat(orient, gofpdf.SizeType{Wd: doc.WidthMM, Ht: doc.HeightMM})

	// Document geometry is in pixels at doc.Scale; divide back to mm.
	s := doc.Scale
	if s <= 0 {
		s = 1
	}
	for _, b := range doc.Boxes {
		x, y := b.X/s, b.Y/s
		w, h := b.Width/s, b.Height/s

		if r, g, bl, ok := rgbOf(b.Background); ok {
			pdf.SetFillColor(r, g, bl)
			pdf.Rect(x, y, w, h, "F")
		}
		fr, fg, fb, ok := rgbOf(b.Color)
		if !ok {
			fr, fg, fb = 0, 0, 0
		}

		if b.Rotation != 0 {
			pdf.TransformBegin()
			pdf.TransformRotate(-b.Rotation, x, y)
		}

		switch b.Type {
		case domain.FieldLine:
			pdf.SetFillColor(fr, fg, fb)
			pdf.Rect(x, y, w, h, "F")
		case domain.FieldRectangle:
			pdf.SetDrawColor(fr, fg, fb)
			lw := b.BorderW / s
			if lw <= 0 {
				lw = 0.2
			}
			pdf.SetLineWidth(lw)
			pdf.Rect(x, y, w, h, "D")
		case domain.FieldBarcode:
			drawBarcodePDF(pdf, b, x, y, w, h, fr, fg, fb)
		case domain.FieldQR:
			// placeholder glyph box; symbol encoding is the printer's job
			pdf.SetDrawColor(fr, fg, fb)
			pdf.SetLineWidth(0.2)
			pdf.Rect(x, y, w, h, "D")
			pdf.SetTextColor(fr, fg, fb)
			pdf.SetFont("Helvetica", "", 6)
			pdf.Text(x+1, y+h/2, "QR")
		case domain.FieldImage:
			pdf.SetDrawColor(fr, fg, fb)
			pdf.SetLineWidth(0.2)
			pdf.Rect(x, y, w, h, "D")
		default:
			style := ""
			if b.FontWeight == "bold" {
				style = "B"
			}
			size := b.FontSize / s
			if size <= 0 {
				size = 12
			}
			pdf.SetTextColor(fr, fg, fb)
			// gofpdf font sizes are points; label font sizes are pt already
			pdf.SetFont("Helvetica", style, size)
			align := "L"
			switch b.Alignment {
			case "center":
				align = "C"
			case "right":
				align = "R"
			}
			pdf.SetXY(x, y)
			pdf.CellFormat(w, h, b.Content, "", 0, align+"M", false, 0, "")
		}

		if b.BorderW > 0 && b.Type != domain.FieldRectangle {
			if br, bg2, bb, ok := rgbOf(b.BorderCol); ok {
				pdf.SetDrawColor(br, bg2, bb)
				pdf.SetLineWidth(b.BorderW / s)
				pdf.Rect(x, y, w, h, "D")
			}
		}

		if b.Rotation != 0 {
			pdf.TransformEnd()
		}
	}
	if pdf.Err() {
		return nil, fmt.Errorf("compose pdf: %v", pdf.Error())
	}
	return pdf, nil
}

// drawBarcodePDF paints a deterministic stripe pattern derived from the
// payload. The true symbology lives in the thermal sink; this keeps PDF
// proofs visually faithful.
func drawBarcodePDF(pdf *gofpdf.Fpdf, b render.Box, x, y, w, h float64, r, g, bl int) {
	pdf.SetFillColor(r, g, bl)
	payload := b.Content
	if payload == "" {
		payload = "*"
	}
	bars := len(payload) * 4
	if bars < 8 {
		bars = 8
	}
	bw := w / float64(bars)
	for i := 0; i < bars; i++ {
		ch := payload[i%len(payload)]
		if (int(ch)+i)%2 == 0 {
			pdf.Rect(x+float64(i)*bw, y, bw, h*0.8, "F")
		}
	}
	pdf.SetTextColor(r, g, bl)
	pdf.SetFont("Helvetica", "", 6)
	pdf.Text(x, y+h-0.5, payload)
}

// rgbOf decodes a CSS hex color to 8-bit channels.
func rgbOf(s string) (int, int, int, bool) {
	if len(s) == 0 || s == "transparent" || s[0] != '#' {
		return 0, 0, 0, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16), int(v >> 8 & 0xff), int(v & 0xff), true
}
