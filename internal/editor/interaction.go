/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"image/draw"
	"log/slog"
	"math"

	"aeroinspect/internal/annotation"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/render"
	"aeroinspect/internal/vector"
)

// SetSpaceHeld records the pan modifier.
func (s *Session) SetSpaceHeld(held bool) { s.space = held }

func (s *Session) aspect() float64 {
	if s.view.Image.W <= 0 {
		return 1
	}
	return s.view.Image.H / s.view.Image.W
}

// distance in image-width units between two points given in image fractions
func (s *Session) distance(a, b vector.Pt) float64 {
	return math.Hypot(b.X-a.X, (b.Y-a.Y)*s.aspect())
}

func (s *Session) isVisible(a *domain.Annotation) bool { return s.visible[a.Author] }

// PointerDown starts panning (space held), drawing or selection at the view
// point (x, y). Clicks without an image or outside it are ignored.
func (s *Session) PointerDown(x, y float64) {
	if s.bitmap == nil || s.mode != ModeIdle {
		return
	}
	pt := vector.Pt{X: x, Y: y}
	if s.space {
		s.mode = ModePanning
		s.anchor = pt
		s.panOrigin = s.view.Pan
		return
	}
	p, ok := s.view.ViewToNormalized(pt)
	if !ok || !vector.InUnitSquare(p) {
		return
	}

	tol := annotation.Tolerance(s.set.HitTolerancePx, s.view.Image.W, s.view.Zoom)
	hit := s.store.HitTest(p, s.aspect(), tol, s.isVisible)
	dual := s.IsDualRole()
	switch {
	case hit != nil && annotation.Nestable(hit.Author, s.active):
		s.startDrawing(vector.Pt{X: hit.X, Y: hit.Y})
	case hit != nil && annotation.CanEdit(hit.Author, s.active, dual):
		if s.store.Select(hit) {
			s.invalidate()
		}
	default:
		// a mark the active role cannot touch behaves like empty canvas
		s.startDrawing(p)
	}
}

func (s *Session) startDrawing(c vector.Pt) {
	s.store.Select(nil)
	s.mode = ModeDrawing
	s.anchor = c
	s.preview = domain.NewAnnotation(s.active, c.X, c.Y, 0)
	s.invalidate()
}

// PointerMove grows the preview or pans, depending on the mode.
func (s *Session) PointerMove(x, y float64) {
	switch s.mode {
	case ModeDrawing:
		if s.updatePreview(x, y) {
			s.invalidate()
		}
	case ModePanning:
		s.view.Pan = s.panOrigin.Add(vector.Pt{X: x, Y: y}.Sub(s.anchor))
		s.invalidate()
	}
}

func (s *Session) updatePreview(x, y float64) bool {
	p, ok := s.view.ViewToNormalized(vector.Pt{X: x, Y: y})
	if !ok {
		return false
	}
	r := s.distance(s.anchor, vector.ClampUnit(p))
	if r == s.preview.Radius {
		return false
	}
	s.preview.Radius = r
	return true
}

// PointerUp commits the preview when it is larger than the minimum radius.
func (s *Session) PointerUp(x, y float64) {
	switch s.mode {
	case ModeDrawing:
		s.updatePreview(x, y)
		a := s.preview
		s.preview = nil
		s.mode = ModeIdle
		if a.Radius*s.view.Image.W > s.set.MinRadiusPx {
			s.execute(&annotation.AddCommand{Store: s.store, Item: a})
			s.store.Select(a)
			s.log.Debug("annotation added", slog.String("id", a.ID), slog.String("author", string(a.Author)))
		}
		s.invalidate()
	case ModePanning:
		s.mode = ModeIdle
	}
}

// Wheel zooms by the wheel step around the view point (x, y). Positive delta
// zooms in.
func (s *Session) Wheel(delta, x, y float64) {
	if delta == 0 || !s.view.Valid() {
		return
	}
	f := s.set.WheelStep
	if delta < 0 {
		f = 1 / f
	}
	if s.view.ZoomAt(f, vector.Pt{X: x, Y: y}) {
		s.invalidate()
	}
}

// ZoomBy zooms around the canvas centre.
func (s *Session) ZoomBy(factor float64) {
	if !s.view.Valid() {
		return
	}
	if s.view.ZoomAt(factor, s.view.Canvas.Center()) {
		s.invalidate()
	}
}

func (s *Session) PanBy(dx, dy float64) {
	if !s.view.Valid() || (dx == 0 && dy == 0) {
		return
	}
	s.view.PanBy(dx, dy)
	s.invalidate()
}

// RotateBy rotates the view clockwise by deg degrees.
func (s *Session) RotateBy(deg float64) {
	if !s.view.Valid() || math.Mod(deg, 360) == 0 {
		return
	}
	s.view.RotateBy(deg)
	s.invalidate()
}

// ResetView fits the image into the canvas.
func (s *Session) ResetView() {
	if s.bitmap == nil {
		return
	}
	s.view.Fit()
	s.invalidate()
}

// Resize sets the canvas size and refits the image.
func (s *Session) Resize(w, h float64) {
	if !s.resize(w, h) {
		return
	}
	s.invalidate()
}

func (s *Session) resize(w, h float64) bool {
	c := vector.Size{W: w, H: h}
	if c == s.view.Canvas {
		return false
	}
	s.view.Canvas = c
	if s.bitmap != nil {
		s.view.Fit()
	}
	return true
}

// Draw renders the current frame into dst; the canvas is dst's bounds. A
// changed canvas size refits the image first.
func (s *Session) Draw(dst draw.Image) {
	b := dst.Bounds()
	s.resize(float64(b.Dx()), float64(b.Dy()))
	render.Frame(dst, render.Scene{
		Bitmap:      s.bitmap,
		Adjustment:  s.Adjustment(),
		View:        s.view,
		Annotations: s.store.All(),
		Visible:     func(a domain.Author) bool { return s.visible[a] },
		Preview:     s.preview,
		Style:       render.DefaultStyle(),
		Cache:       &s.cache,
	})
}
