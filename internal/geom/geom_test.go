/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func TestMMPxRoundTrip(t *testing.T) {
	for _, zoom := range []float64{0.5, 1, 1.5, 2} {
		for _, mm := range []float64{0, 1, 13.7, 100, 60} {
			got := PxToMM(MMToPx(mm, zoom), zoom)
			if math.Abs(got-mm) > 1e-9 {
				t.Fatalf("round trip mm=%g zoom=%g: got %g", mm, zoom, got)
			}
		}
	}
}

func TestPxToMMGuardsZoom(t *testing.T) {
	if got := PxToMM(PxPerMM, 0); math.Abs(got-1) > 1e-9 {
		t.Fatalf("zoom 0 should behave as 1, got %g", got)
	}
}

func TestSnap(t *testing.T) {
	cases := []struct{ v, grid, want float64 }{
		{13, 5, 15},
		{12, 5, 10},
		{12.5, 5, 15},
		{7, 0, 7},
		{7, -1, 7},
		{-3, 5, -5},
	}
	for _, c := range cases {
		if got := Snap(c.v, c.grid); got != c.want {
			t.Fatalf("Snap(%g, %g) = %g, want %g", c.v, c.grid, got, c.want)
		}
	}
}

func TestClampRectKeepsInsideBounds(t *testing.T) {
	bounds := Size{W: 100, H: 60}
	// dragging past the right and bottom edges pins at bounds-size
	r := ClampRect(R(95, 70, 30, 8), bounds)
	if r.X != 70 || r.Y != 52 {
		t.Fatalf("clamped to %g,%g, want 70,52", r.X, r.Y)
	}
	if r.W != 30 || r.H != 8 {
		t.Fatalf("size changed: %gx%g", r.W, r.H)
	}
	// negative positions pin to the origin
	r = ClampRect(R(-4, -9, 30, 8), bounds)
	if r.X != 0 || r.Y != 0 {
		t.Fatalf("negative clamp: %g,%g", r.X, r.Y)
	}
}

func TestClampRectIdempotent(t *testing.T) {
	bounds := Size{W: 100, H: 60}
	rects := []Rect{
		R(95, 70, 30, 8), R(-10, 30, 20, 20), R(10, 10, 30, 8),
		R(0, 0, 120, 80), // oversized pins to origin
	}
	for _, r := range rects {
		once := ClampRect(r, bounds)
		twice := ClampRect(once, bounds)
		if once != twice {
			t.Fatalf("not idempotent for %+v: %+v vs %+v", r, once, twice)
		}
	}
}

func TestRectHelpers(t *testing.T) {
	r := R(10, 10, 30, 8)
	if !r.Contains(Pt{25, 14}) || r.Contains(Pt{50, 14}) {
		t.Fatalf("contains misbehaved")
	}
	u := r.Union(R(50, 40, 10, 10))
	if u != R(10, 10, 50, 40) {
		t.Fatalf("union: %+v", u)
	}
}
