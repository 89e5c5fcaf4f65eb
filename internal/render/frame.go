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

	"aeroinspect/internal/domain"
	"aeroinspect/internal/vector"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Style holds colours and stroke metrics. Widths are in destination pixels.
type Style struct {
	Colors         map[domain.Author]color.NRGBA
	Preview        color.NRGBA
	Background     color.NRGBA
	Stroke         float64
	SelectedStroke float64
	Dash           float64
	Gap            float64
}

// DefaultStyle is the on-screen style.
func DefaultStyle() Style {
	return Style{
		Colors: map[domain.Author]color.NRGBA{
			domain.Inspector: {R: 0xe5, G: 0x39, B: 0x35, A: 0xff},
			domain.Verifier:  {R: 0x1e, G: 0x88, B: 0xe5, A: 0xff},
			domain.AI:        {R: 0xff, G: 0xb3, B: 0x00, A: 0xff},
		},
		Preview:        color.NRGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff},
		Background:     color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff},
		Stroke:         2,
		SelectedStroke: 4,
		Dash:           8,
		Gap:            6,
	}
}

// ExportStyle scales stroke widths to a photo of width w pixels.
func ExportStyle(w int) Style {
	s := DefaultStyle()
	s.Stroke = math.Max(3, 0.004*float64(w))
	s.SelectedStroke = s.Stroke
	return s
}

func (s Style) colorFor(a domain.Author) color.NRGBA {
	if c, ok := s.Colors[a]; ok {
		return c
	}
	return s.Preview
}

// Scene is everything an interactive frame needs.
type Scene struct {
	Bitmap      image.Image
	Adjustment  domain.Adjustment
	View        vector.View
	Annotations []*domain.Annotation
	// Visible reports whether an author category is shown; nil shows all.
	Visible func(domain.Author) bool
	Preview *domain.Annotation
	Style   Style
	// Cache is optional and avoids re-filtering unchanged bitmaps.
	Cache *FilterCache
}

// Frame draws sc into dst. Without a bitmap or a valid view only the
// background is painted.
func Frame(dst draw.Image, sc Scene) {
	st := sc.Style
	if st.Colors == nil {
		st = DefaultStyle()
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(st.Background), image.Point{}, draw.Src)
	if sc.Bitmap == nil || !sc.View.Valid() {
		return
	}

	var src *image.NRGBA
	if sc.Cache != nil {
		src = sc.Cache.Get(sc.Bitmap, sc.Adjustment)
	} else {
		src = NewFilter(sc.Adjustment).Apply(sc.Bitmap)
	}

	m := sc.View.Matrix()
	off := dst.Bounds().Min
	m = vector.Translate(float64(off.X), float64(off.Y)).Mul(m)
	b := src.Bounds()
	// the view maps image coordinates starting at 0,0
	m = m.Mul(vector.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	draw.ApproxBiLinear.Transform(dst, toAff3(m), src, b, draw.Over, nil)

	p := newRingPainter(dst)
	pxPerUnit := sc.View.PixelsPerImageWidth()
	toView := func(a *domain.Annotation) (float64, float64, float64) {
		c := sc.View.NormalizedToView(vector.Pt{X: a.X, Y: a.Y})
		return c.X + float64(off.X), c.Y + float64(off.Y), a.Radius * pxPerUnit
	}
	for _, a := range sc.Annotations {
		if sc.Visible != nil && !sc.Visible(a.Author) {
			continue
		}
		x, y, r := toView(a)
		w := st.Stroke
		if a.Selected {
			w = st.SelectedStroke
		}
		p.Ring(x, y, r, w, st.colorFor(a.Author))
	}
	if sc.Preview != nil {
		x, y, r := toView(sc.Preview)
		p.DashedRing(x, y, r, st.SelectedStroke, st.Dash, st.Gap, st.Preview)
	}
}

// Composite returns base filtered by adj with every annotation drawn at full
// resolution. Visibility toggles do not apply.
func Composite(base image.Image, adj domain.Adjustment, anns []domain.Annotation, st Style) *image.NRGBA {
	out := NewFilter(adj).Apply(base)
	if out == base {
		out = cloneNRGBA(out)
	}
	if st.Colors == nil {
		st = ExportStyle(out.Bounds().Dx())
	}
	b := out.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	p := newRingPainter(out)
	for _, a := range anns {
		cx := float64(b.Min.X) + a.X*w
		cy := float64(b.Min.Y) + a.Y*h
		p.Ring(cx, cy, a.Radius*w, st.Stroke, st.colorFor(a.Author))
	}
	return out
}

// toAff3 converts to the row-major layout used by x/image/draw.
func toAff3(m vector.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}
