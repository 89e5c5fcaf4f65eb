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
	"testing"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func assertNear(t *testing.T, want, got color.NRGBA, msgAndArgs ...any) {
	t.Helper()
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	if d(want.R, got.R) > 2 || d(want.G, got.G) > 2 || d(want.B, got.B) > 2 || d(want.A, got.A) > 2 {
		assert.Fail(t, "colour mismatch", "want %v got %v", want, got)
		if len(msgAndArgs) > 0 {
			t.Log(msgAndArgs...)
		}
	}
}

func TestIdentityFilterIsPixelExact(t *testing.T) {
	src := gradient(40, 30)
	f := NewFilter(domain.DefaultAdjustment())
	require.True(t, f.Identity())
	out := f.Apply(src)
	assert.Equal(t, src.Pix, out.Pix)

	// non-NRGBA sources convert losslessly for opaque pixels
	rgba := image.NewRGBA(src.Bounds())
	copy(rgba.Pix, src.Pix)
	assert.Equal(t, src.Pix, f.Apply(rgba).Pix)
}

func TestFilterFormula(t *testing.T) {
	f := NewFilter(domain.Adjustment{Brightness: 20, Contrast: 1})
	assert.Equal(t, uint8(151), f.Value(100))
	assert.Equal(t, uint8(255), f.Value(250))

	f = NewFilter(domain.Adjustment{Brightness: 0, Contrast: 1.5})
	assert.Equal(t, uint8(86), f.Value(100))
	assert.Equal(t, uint8(0), f.Value(10))

	// contrast 0 flattens everything to mid grey
	f = NewFilter(domain.Adjustment{Contrast: 0})
	assert.Equal(t, f.Value(0), f.Value(255))
}

func TestFilterKeepsAlphaAndSource(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 77})
	out := NewFilter(domain.Adjustment{Brightness: 20, Contrast: 1}).Apply(src)
	assert.Equal(t, color.NRGBA{R: 151, G: 151, B: 151, A: 77}, out.NRGBAAt(0, 0))
	assert.Equal(t, uint8(100), src.Pix[0], "source must not be modified")
}

func TestClampAdjustment(t *testing.T) {
	a := ClampAdjustment(domain.Adjustment{Brightness: 250, Contrast: -1})
	assert.Equal(t, domain.Adjustment{Brightness: 100, Contrast: 0}, a)
	a = ClampAdjustment(domain.Adjustment{Brightness: -250, Contrast: 9})
	assert.Equal(t, domain.Adjustment{Brightness: -100, Contrast: 3}, a)
}

func TestFilterCache(t *testing.T) {
	src := gradient(4, 4)
	var c FilterCache
	adj := domain.Adjustment{Brightness: 10, Contrast: 1}
	a := c.Get(src, adj)
	assert.Same(t, a, c.Get(src, adj))
	assert.NotSame(t, a, c.Get(src, domain.Adjustment{Brightness: 11, Contrast: 1}))
	c.Reset()
	assert.NotSame(t, a, c.Get(src, adj))
}

func TestRingLeavesCentreUntouched(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	red := color.NRGBA{R: 255, A: 255}
	newRingPainter(dst).Ring(50, 50, 30, 4, red)
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(50, 50))
	assertNear(t, red, dst.NRGBAAt(80, 50))
	assertNear(t, red, dst.NRGBAAt(50, 20))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(95, 50))
}

func TestRingOutsideBoundsIsSkipped(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	newRingPainter(dst).Ring(500, 500, 5, 2, color.NRGBA{R: 255, A: 255})
	for _, v := range dst.Pix {
		require.Zero(t, v)
	}
}

func TestDashedRingHasGaps(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	grey := color.NRGBA{R: 9, G: 9, B: 9, A: 255}
	newRingPainter(dst).DashedRing(100, 100, 60, 4, 10, 10, grey)
	painted, empty := 0, 0
	for i := 0; i < 360; i++ {
		p := vector.Pt{X: 100, Y: 100}.Add(vector.Rotate(vector.Deg2Rad(float64(i))).Apply(vector.Pt{X: 60}))
		if dst.NRGBAAt(int(p.X), int(p.Y)).A > 128 {
			painted++
		} else {
			empty++
		}
	}
	assert.Greater(t, painted, 100)
	assert.Greater(t, empty, 100)
}

func TestFrameWithoutBitmapClears(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	st := DefaultStyle()
	Frame(dst, Scene{Style: st})
	r, g, b, _ := dst.At(3, 3).RGBA()
	br, bg, bb, _ := st.Background.RGBA()
	assert.Equal(t, [3]uint32{br, bg, bb}, [3]uint32{r, g, b})
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestFrameDrawsBitmapAndVisibleAnnotations(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	bmp := solid(100, 100, white)
	v := vector.View{Canvas: vector.Size{W: 200, H: 200}, Image: vector.Size{W: 100, H: 100}}
	v.Fit()
	ann := &domain.Annotation{ID: "1", Author: domain.Verifier, X: 0.5, Y: 0.5, Radius: 0.25}
	st := DefaultStyle()
	st.Stroke = 6

	dst := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	Frame(dst, Scene{Bitmap: bmp, Adjustment: domain.DefaultAdjustment(), View: v, Annotations: []*domain.Annotation{ann}, Style: st})
	assertNear(t, white, dst.NRGBAAt(100, 100), "bitmap centre")
	assertNear(t, st.Colors[domain.Verifier], dst.NRGBAAt(150, 100), "ring at radius 0.25*100*2")

	dst = image.NewNRGBA(image.Rect(0, 0, 200, 200))
	Frame(dst, Scene{
		Bitmap: bmp, Adjustment: domain.DefaultAdjustment(), View: v,
		Annotations: []*domain.Annotation{ann}, Style: st,
		Visible: func(a domain.Author) bool { return a != domain.Verifier },
	})
	assertNear(t, white, dst.NRGBAAt(150, 100), "hidden author not drawn")
}

func TestCompositeDrawsAllAnnotations(t *testing.T) {
	base := solid(400, 200, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	anns := []domain.Annotation{
		{ID: "a", Author: domain.Inspector, X: 0.25, Y: 0.5, Radius: 0.1},
		{ID: "b", Author: domain.AI, X: 0.75, Y: 0.5, Radius: 0.1},
	}
	st := ExportStyle(400)
	out := Composite(base, domain.DefaultAdjustment(), anns, st)
	assertNear(t, st.Colors[domain.Inspector], out.NRGBAAt(100+40, 100))
	assertNear(t, st.Colors[domain.AI], out.NRGBAAt(300+40, 100))
	assert.Equal(t, uint8(10), base.Pix[(100*base.Stride)+140*4], "base untouched")
}

func TestCompositeEmptyMatchesFilteredBase(t *testing.T) {
	base := gradient(30, 20)
	adj := domain.Adjustment{Brightness: -15, Contrast: 1.3}
	out := Composite(base, adj, nil, Style{})
	assert.Equal(t, NewFilter(adj).Apply(base).Pix, out.Pix)
}

func TestExportStyleWidth(t *testing.T) {
	assert.Equal(t, 3.0, ExportStyle(100).Stroke)
	assert.InDelta(t, 24.0, ExportStyle(6000).Stroke, 1e-9)
}
