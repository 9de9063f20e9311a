/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"labelpress/internal/domain"
)

// Rasterize draws a document into an RGBA image for thumbnails and quick
// previews. The fixed basicfont keeps output deterministic, so thumbnails
// can be compared byte for byte in tests.
func Rasterize(doc Document) *image.RGBA {
	w := int(math.Ceil(doc.Width))
	h := int(math.Ceil(doc.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, b := range doc.Boxes {
		r := image.Rect(int(b.X), int(b.Y), int(b.X+b.Width), int(b.Y+b.Height)).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		if bg, ok := parseHexColor(b.Background); ok {
			draw.Draw(img, r, image.NewUniform(bg), image.Point{}, draw.Src)
		}
		fg, ok := parseHexColor(b.Color)
		if !ok {
			fg = color.RGBA{A: 255}
		}
		switch b.Type {
		case domain.FieldLine:
			draw.Draw(img, r, image.NewUniform(fg), image.Point{}, draw.Src)
		case domain.FieldRectangle:
			strokeRect(img, r, fg, max(1, int(b.BorderW)))
		case domain.FieldBarcode:
			drawBarcodeStripes(img, r, fg)
		case domain.FieldQR:
			strokeRect(img, r, fg, 1)
			drawText(img, r, "QR", fg)
		default:
			drawText(img, r, b.Content, fg)
		}
		if bc, ok := parseHexColor(b.BorderCol); ok && b.BorderW > 0 && b.Type != domain.FieldRectangle {
			strokeRect(img, r, bc, int(b.BorderW))
		}
	}
	return img
}

// WritePNG rasterizes doc and writes it to path, creating parent
// directories as needed.
func WritePNG(doc Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, Rasterize(doc)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color, w int) {
	if w < 1 {
		w = 1
	}
	u := image.NewUniform(c)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// drawBarcodeStripes paints a simple alternating stripe pattern. It is a
// visual stand-in for previews; real symbology happens in the print sinks.
func drawBarcodeStripes(img *image.RGBA, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	for x := r.Min.X; x < r.Max.X; x += 3 {
		draw.Draw(img, image.Rect(x, r.Min.Y, min(x+2, r.Max.X), r.Max.Y), u, image.Point{}, draw.Src)
	}
}

func drawText(img *image.RGBA, r image.Rectangle, s string, c color.Color) {
	if s == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X+1, r.Min.Y+face.Ascent),
	}
	// clip glyphs to the box by trimming what will not fit
	maxW := fixed.I(r.Dx() - 2)
	for i, ch := range s {
		if d.MeasureString(s[:i+len(string(ch))]) > maxW {
			s = s[:i]
			break
		}
	}
	d.DrawString(s)
}

// parseHexColor decodes #rgb and #rrggbb CSS colors. "transparent" and
// empty strings report false so callers can skip the paint entirely.
func parseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" || !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}
