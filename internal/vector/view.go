/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Zoom limits for View.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// View holds the pan/zoom/rotation state of a canvas showing one image.
//
// The image->view chain is: translate image centre to origin, scale by Zoom,
// rotate by Rotation degrees (clockwise on screen), translate by Pan, translate
// to the canvas centre.
type View struct {
	Zoom     float64
	Pan      Pt
	Rotation float64
	Canvas   Size
	Image    Size
}

// Valid reports whether the transform is defined.
func (v View) Valid() bool { return !v.Canvas.Empty() && !v.Image.Empty() && v.Zoom > 0 }

// Matrix returns the image->view transform.
func (v View) Matrix() Affine2D {
	c := v.Canvas.Center()
	ic := v.Image.Center()
	return Translate(c.X+v.Pan.X, c.Y+v.Pan.Y).
		Mul(Rotate(Deg2Rad(v.Rotation))).
		Mul(Scale(v.Zoom, v.Zoom)).
		Mul(Translate(-ic.X, -ic.Y))
}

// ImageToView maps an image pixel coordinate to the canvas.
func (v View) ImageToView(p Pt) Pt { return v.Matrix().Apply(p) }

// ViewToImage maps a canvas point back to image pixels. ok is false when no
// image is set, the canvas has zero size or the matrix cannot be inverted.
func (v View) ViewToImage(p Pt) (Pt, bool) {
	if !v.Valid() {
		return Pt{}, false
	}
	inv, ok := v.Matrix().Invert()
	if !ok {
		return Pt{}, false
	}
	return inv.Apply(p), true
}

// ViewToNormalized maps a canvas point to image fractions. The result may lie
// outside [0,1]² when the point is off the image.
func (v View) ViewToNormalized(p Pt) (Pt, bool) {
	q, ok := v.ViewToImage(p)
	if !ok {
		return Pt{}, false
	}
	return Pt{q.X / v.Image.W, q.Y / v.Image.H}, true
}

// NormalizedToView maps image fractions to the canvas.
func (v View) NormalizedToView(p Pt) Pt {
	return v.ImageToView(Pt{p.X * v.Image.W, p.Y * v.Image.H})
}

// Fit zooms so the whole image is visible and resets pan and rotation.
func (v *View) Fit() {
	v.Pan = Pt{}
	v.Rotation = 0
	if v.Canvas.Empty() || v.Image.Empty() {
		v.Zoom = 1
		return
	}
	v.Zoom = ClampZoom(math.Min(v.Canvas.W/v.Image.W, v.Canvas.H/v.Image.H))
}

// SetZoom sets the zoom clamped to [MinZoom, MaxZoom].
func (v *View) SetZoom(z float64) { v.Zoom = ClampZoom(z) }

// ZoomAt multiplies the zoom by factor, keeping the image point under anchor
// fixed on screen. It reports whether the zoom changed.
func (v *View) ZoomAt(factor float64, anchor Pt) bool {
	if factor <= 0 || v.Zoom <= 0 {
		return false
	}
	old := v.Zoom
	nz := ClampZoom(old * factor)
	if nz == old {
		return false
	}
	ratio := nz / old
	rel := anchor.Sub(v.Canvas.Center())
	v.Pan = rel.Sub(rel.Sub(v.Pan).Mul(ratio))
	v.Zoom = nz
	return true
}

// PanBy moves the image by (dx,dy) view pixels.
func (v *View) PanBy(dx, dy float64) { v.Pan = v.Pan.Add(Pt{dx, dy}) }

// RotateBy adds deg degrees and normalises into [0,360).
func (v *View) RotateBy(deg float64) { v.Rotation = NormalizeDegrees(v.Rotation + deg) }

// PixelsPerImageWidth is the on-screen length of one image-width unit.
func (v View) PixelsPerImageWidth() float64 { return v.Image.W * v.Zoom }

// ClampZoom clamps z into [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 { return clamp(z, MinZoom, MaxZoom) }
