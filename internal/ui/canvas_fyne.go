//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"aeroinspect/internal/editor"
	"aeroinspect/internal/render"
)

// ImageCanvas paints the active image of an editor session and forwards
// pointer input to it. It is the session's repaint observer.
type ImageCanvas struct {
	widget.BaseWidget

	sess   *editor.Session
	raster *canvas.Raster
	// scale converts widget units to raster pixels.
	scale float32
	// spaceKey mirrors the keyboard; the middle button pans regardless.
	spaceKey bool
	pressed  bool
	last     fyne.Position

	// OnChanged runs after every repaint request, e.g. to refresh toolbars.
	OnChanged func()
}

var (
	_ desktop.Mouseable   = (*ImageCanvas)(nil)
	_ desktop.Hoverable   = (*ImageCanvas)(nil)
	_ fyne.Draggable      = (*ImageCanvas)(nil)
	_ fyne.Scrollable     = (*ImageCanvas)(nil)
	_ editor.Observer     = (*ImageCanvas)(nil)
	_ fyne.WidgetRenderer = (*imageCanvasRenderer)(nil)
)

func NewImageCanvas() *ImageCanvas {
	c := &ImageCanvas{scale: 1}
	c.raster = canvas.NewRaster(c.generate)
	c.ExtendBaseWidget(c)
	return c
}

// SetSession replaces the displayed session; nil shows the empty canvas.
func (c *ImageCanvas) SetSession(s *editor.Session) {
	c.sess = s
	c.pressed = false
	c.raster.Refresh()
}

// Invalidate schedules a repaint.
func (c *ImageCanvas) Invalidate() {
	c.raster.Refresh()
	if c.OnChanged != nil {
		c.OnChanged()
	}
}

// SetSpaceHeld tracks the pan modifier key.
func (c *ImageCanvas) SetSpaceHeld(held bool) {
	c.spaceKey = held
	if c.sess != nil {
		c.sess.SetSpaceHeld(held)
	}
}

func (c *ImageCanvas) generate(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if sz := c.Size(); sz.Width > 0 {
		c.scale = float32(w) / sz.Width
	}
	if c.sess == nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(render.DefaultStyle().Background), image.Point{}, draw.Src)
		return img
	}
	c.sess.Draw(img)
	return img
}

// px converts a widget position to raster pixels.
func (c *ImageCanvas) px(p fyne.Position) (float64, float64) {
	return float64(p.X * c.scale), float64(p.Y * c.scale)
}

func (c *ImageCanvas) MouseDown(e *desktop.MouseEvent) {
	if c.sess == nil {
		return
	}
	switch e.Button {
	case desktop.MouseButtonPrimary:
	case desktop.MouseButtonTertiary:
		c.sess.SetSpaceHeld(true)
		defer c.sess.SetSpaceHeld(c.spaceKey)
	default:
		return
	}
	c.pressed = true
	c.last = e.Position
	c.sess.PointerDown(c.px(e.Position))
}

func (c *ImageCanvas) MouseUp(e *desktop.MouseEvent) {
	if c.sess == nil || !c.pressed {
		return
	}
	c.pressed = false
	c.sess.PointerUp(c.px(e.Position))
}

func (c *ImageCanvas) MouseIn(*desktop.MouseEvent) {}
func (c *ImageCanvas) MouseOut()                   {}

func (c *ImageCanvas) MouseMoved(e *desktop.MouseEvent) {
	c.last = e.Position
	if c.sess == nil || !c.pressed {
		return
	}
	c.sess.PointerMove(c.px(e.Position))
}

func (c *ImageCanvas) Dragged(e *fyne.DragEvent) {
	c.last = e.Position
	if c.sess == nil || !c.pressed {
		return
	}
	c.sess.PointerMove(c.px(e.Position))
}

// DragEnd finishes a gesture whose button release happened off the widget.
func (c *ImageCanvas) DragEnd() {
	if c.sess == nil || !c.pressed {
		return
	}
	c.pressed = false
	c.sess.PointerUp(c.px(c.last))
}

func (c *ImageCanvas) Scrolled(e *fyne.ScrollEvent) {
	if c.sess == nil {
		return
	}
	x, y := c.px(e.Position)
	c.sess.Wheel(float64(e.Scrolled.DY), x, y)
}

func (c *ImageCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

func (c *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{c: c, objects: []fyne.CanvasObject{c.raster}}
}

type imageCanvasRenderer struct {
	c       *ImageCanvas
	objects []fyne.CanvasObject
}

func (r *imageCanvasRenderer) Destroy()                     {}
func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *imageCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *imageCanvasRenderer) Refresh()                     { r.c.raster.Refresh() }

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	r.c.raster.Resize(size)
	r.c.raster.Move(fyne.NewPos(0, 0))
}
