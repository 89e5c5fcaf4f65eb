/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// ringPainter rasterises circles clipped to a destination image. The
// rasteriser is sized to each shape's bounding box so full-resolution exports
// do not allocate a coverage buffer for the whole photo.
type ringPainter struct {
	dst draw.Image
	z   vector.Rasterizer
}

func newRingPainter(dst draw.Image) *ringPainter { return &ringPainter{dst: dst} }

func segmentsFor(r float64) int {
	n := int(math.Ceil(2 * math.Pi * r / 3))
	if n < 24 {
		n = 24
	}
	if n > 720 {
		n = 720
	}
	return n
}

// begin prepares the rasteriser for a shape of outer radius r around (cx,cy)
// and returns the clip box and its origin; ok is false when nothing is visible.
func (p *ringPainter) begin(cx, cy, r float64) (image.Rectangle, bool) {
	box := image.Rect(
		int(math.Floor(cx-r))-1, int(math.Floor(cy-r))-1,
		int(math.Ceil(cx+r))+1, int(math.Ceil(cy+r))+1,
	).Intersect(p.dst.Bounds())
	if box.Empty() {
		return box, false
	}
	p.z.Reset(box.Dx(), box.Dy())
	p.z.DrawOp = draw.Over
	return box, true
}

func (p *ringPainter) flush(box image.Rectangle, c color.Color) {
	p.z.Draw(p.dst, box, image.NewUniform(c), image.Point{})
}

// arc appends an arc from a0 to a1 (radians) as a polyline. When move is set
// the path starts at the first point.
func (p *ringPainter) arc(ox, oy, cx, cy, r, a0, a1 float64, move bool) {
	n := int(math.Ceil(float64(segmentsFor(r)) * math.Abs(a1-a0) / (2 * math.Pi)))
	if n < 2 {
		n = 2
	}
	for i := 0; i <= n; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(n)
		x := float32(cx + r*math.Cos(a) - ox)
		y := float32(cy + r*math.Sin(a) - oy)
		if i == 0 && move {
			p.z.MoveTo(x, y)
			continue
		}
		p.z.LineTo(x, y)
	}
}

// Disc fills a circle.
func (p *ringPainter) Disc(cx, cy, r float64, c color.Color) {
	if r <= 0 {
		return
	}
	box, ok := p.begin(cx, cy, r)
	if !ok {
		return
	}
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	p.arc(ox, oy, cx, cy, r, 0, 2*math.Pi, true)
	p.z.ClosePath()
	p.flush(box, c)
}

// Ring strokes a circle of radius r with the given width centred on the radius.
func (p *ringPainter) Ring(cx, cy, r, width float64, c color.Color) {
	outer := r + width/2
	inner := r - width/2
	if inner <= 0 {
		p.Disc(cx, cy, outer, c)
		return
	}
	box, ok := p.begin(cx, cy, outer)
	if !ok {
		return
	}
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	p.arc(ox, oy, cx, cy, outer, 0, 2*math.Pi, true)
	p.z.ClosePath()
	// opposite winding cuts the hole
	p.arc(ox, oy, cx, cy, inner, 2*math.Pi, 0, true)
	p.z.ClosePath()
	p.flush(box, c)
}

// DashedRing strokes a circle with dashes of length dash separated by gap,
// both measured along the circumference.
func (p *ringPainter) DashedRing(cx, cy, r, width, dash, gap float64, c color.Color) {
	circ := 2 * math.Pi * r
	if dash <= 0 || gap <= 0 || circ < dash+gap {
		p.Ring(cx, cy, r, width, c)
		return
	}
	outer := r + width/2
	inner := math.Max(r-width/2, 0)
	box, ok := p.begin(cx, cy, outer)
	if !ok {
		return
	}
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	step := (dash + gap) / r
	span := dash / r
	for a := 0.0; a < 2*math.Pi-1e-9; a += step {
		end := math.Min(a+span, 2*math.Pi)
		p.arc(ox, oy, cx, cy, outer, a, end, true)
		if inner > 0 {
			p.arc(ox, oy, cx, cy, inner, end, a, false)
		} else {
			p.z.LineTo(float32(cx-ox), float32(cy-oy))
		}
		p.z.ClosePath()
	}
	p.flush(box, c)
}
