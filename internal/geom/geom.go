/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Millimetre-space geometry for label layouts. Template coordinates live in
// mm; screens and rasterizers work in CSS pixels. These helpers are
// UI-agnostic and deterministic to enable unit testing and reuse across
// different frontends.

import "math"

// PxPerMM is the CSS reference pixel density at zoom 1 (96 dpi / 25.4 mm).
const PxPerMM = 3.7795275591

// Pt is a 2D point in mm.
type Pt struct{ X, Y float64 }

// Size is a width/height pair in mm.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// MMToPx converts a mm measurement to pixels at the given zoom.
func MMToPx(mm, zoom float64) float64 { return mm * PxPerMM * zoom }

// PxToMM converts a pixel measurement back to mm at the given zoom.
// Zoom values of zero or below are treated as 1 to avoid division blowups.
func PxToMM(px, zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return px / (PxPerMM * zoom)
}

// Snap rounds v to the nearest multiple of grid. A grid of zero or below
// disables snapping and returns v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPt snaps both coordinates of p to the grid.
func SnapPt(p Pt, grid float64) Pt {
	return Pt{X: Snap(p.X, grid), Y: Snap(p.Y, grid)}
}

// Clamp limits v to [lo, hi]. When the interval is inverted (lo > hi) the
// lower bound wins, so oversized content pins to the origin.
func Clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}

// ClampRect moves r the minimal distance needed to keep it inside bounds.
// Each axis clamps independently; the size is never altered.
func ClampRect(r Rect, bounds Size) Rect {
	r.X = Clamp(r.X, 0, bounds.W-r.W)
	r.Y = Clamp(r.Y, 0, bounds.H-r.H)
	return r
}
