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
	"io"
	"math"
	"strings"
	"sync"

	"labelpress/internal/domain"
	"labelpress/internal/render"
)

// ZPL emits ZPL II command streams for Zebra-class thermal printers.
// Output goes to W, typically a TCP connection to port 9100 or a file.
type ZPL struct {
	W io.Writer
	// DPI of the target head; 203 when unset (8 dots per mm).
	DPI int
	// Darkness 0..30 for ^MD; PrintRate in inches/second for ^PR.
	Darkness  int
	PrintRate int

	mu sync.Mutex
}

func (z *ZPL) dotsPerMM() float64 {
	dpi := z.DPI
	if dpi <= 0 {
		dpi = 203
	}
	return float64(dpi) / 25.4
}

// Print encodes one label as a ^XA..^XZ block and writes it out.
func (z *ZPL) Print(_ context.Context, doc render.Document, settings domain.PrintSettings) error {
	if z.W == nil {
		return fmt.Errorf("zpl sink has no writer")
	}
	payload := z.Encode(doc, settings)
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, err := io.WriteString(z.W, payload); err != nil {
		return fmt.Errorf("write zpl: %w", err)
	}
	return nil
}

// Encode builds the ZPL command stream without writing it.
func (z *ZPL) Encode(doc render.Document, settings domain.PrintSettings) string {
	dpmm := z.dotsPerMM()
	dots := func(px float64) int {
		// document geometry is pixels at doc.Scale; back to mm, then dots
		s := doc.Scale
		if s <= 0 {
			s = 1
		}
		return int(math.Round(px / s * dpmm))
	}

	var sb strings.Builder
	sb.WriteString("^XA\n")
	if z.Darkness > 0 {
		fmt.Fprintf(&sb, "^MD%d\n", z.Darkness)
	}
	if z.PrintRate > 0 {
		fmt.Fprintf(&sb, "^PR%d\n", z.PrintRate)
	}
	fmt.Fprintf(&sb, "^PW%d\n", dots(doc.Width))
	fmt.Fprintf(&sb, "^LL%d\n", dots(doc.Height))

	for _, b := range doc.Boxes {
		x, y := dots(b.X), dots(b.Y)
		w, h := dots(b.Width), dots(b.Height)
		switch b.Type {
		case domain.FieldLine, domain.FieldRectangle:
			thickness := h
			if b.Type == domain.FieldRectangle {
				thickness = int(math.Max(1, b.BorderW*dpmm))
			}
			fmt.Fprintf(&sb, "^FO%d,%d^GB%d,%d,%d^FS\n", x, y, w, h, thickness)
		case domain.FieldBarcode:
			payload := strings.Trim(b.Content, "*")
			fmt.Fprintf(&sb, "^FO%d,%d^BY2^BCN,%d,Y,N,N^FD%s^FS\n", x, y, h, escapeZPL(payload))
		case domain.FieldQR:
			payload := strings.TrimPrefix(b.Content, "QR:")
			fmt.Fprintf(&sb, "^FO%d,%d^BQN,2,4^FDQA,%s^FS\n", x, y, escapeZPL(payload))
		case domain.FieldImage:
			// no raster upload path; reserve the area with a box
			fmt.Fprintf(&sb, "^FO%d,%d^GB%d,%d,1^FS\n", x, y, w, h)
		default:
			fh := int(math.Round(b.FontSize / max(doc.Scale, 1) * dpmm))
			if fh <= 0 {
				fh = 30
			}
			fmt.Fprintf(&sb, "^FO%d,%d^A0N,%d,%d^FD%s^FS\n", x, y, fh, fh, escapeZPL(b.Content))
		}
	}

	// ^PQ handles copies at the printer; the orchestrator already calls
	// Print once per copy, so only forward an explicit settings override.
	if settings.Copies > 1 {
		fmt.Fprintf(&sb, "^PQ%d\n", settings.Copies)
	}
	sb.WriteString("^XZ\n")
	return sb.String()
}

// escapeZPL strips characters that would terminate or corrupt a ^FD field.
func escapeZPL(s string) string {
	r := strings.NewReplacer("^", " ", "~", " ", "\n", " ", "\r", " ")
	return r.Replace(s)
}
