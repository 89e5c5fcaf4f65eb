/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render draws the editor frame and composites annotations onto
// full-resolution photos for export.
package render

import (
	"image"
	"math"

	"aeroinspect/internal/domain"

	"golang.org/x/image/draw"
)

// Adjustment limits.
const (
	MinBrightness = -100.0
	MaxBrightness = 100.0
	MinContrast   = 0.0
	MaxContrast   = 3.0
)

// ClampAdjustment keeps brightness and contrast in their slider ranges.
func ClampAdjustment(a domain.Adjustment) domain.Adjustment {
	a.Brightness = math.Max(MinBrightness, math.Min(MaxBrightness, a.Brightness))
	a.Contrast = math.Max(MinContrast, math.Min(MaxContrast, a.Contrast))
	return a
}

// Filter is a per-channel brightness/contrast transfer function:
//
//	out = contrast*in + (1-contrast)/2 + brightness/100
//
// with channels normalised to [0,1]. Alpha is left alone.
type Filter struct {
	identity bool
	lut      [256]uint8
}

// NewFilter builds the lookup table for adj.
func NewFilter(adj domain.Adjustment) *Filter {
	f := &Filter{identity: adj.IsIdentity()}
	c := adj.Contrast
	bias := (1-c)/2 + adj.Brightness/100
	for i := range f.lut {
		v := c*float64(i)/255 + bias
		f.lut[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return f
}

// Identity reports whether the filter leaves pixels untouched.
func (f *Filter) Identity() bool { return f.identity }

// Value maps one channel value.
func (f *Filter) Value(v uint8) uint8 {
	if f.identity {
		return v
	}
	return f.lut[v]
}

// Apply returns the filtered image. With an identity filter an *image.NRGBA
// source is returned as is; other sources are converted without changes.
func (f *Filter) Apply(src image.Image) *image.NRGBA {
	n := ToNRGBA(src)
	if f.identity {
		return n
	}
	if n == src {
		n = cloneNRGBA(n)
	}
	b := n.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := n.Pix[y*n.Stride : y*n.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			row[x] = f.lut[row[x]]
			row[x+1] = f.lut[row[x+1]]
			row[x+2] = f.lut[row[x+2]]
		}
	}
	return n
}

// ToNRGBA converts src to non-premultiplied RGBA. An *image.NRGBA is returned unchanged.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[y*src.Stride:y*src.Stride+b.Dx()*4])
	}
	return dst
}

// FilterCache keeps the last filtered bitmap so frames only re-filter when the
// source or the adjustment changes.
type FilterCache struct {
	src image.Image
	adj domain.Adjustment
	out *image.NRGBA
}

// Get returns src filtered by adj.
func (c *FilterCache) Get(src image.Image, adj domain.Adjustment) *image.NRGBA {
	if c.out != nil && c.src == src && c.adj == adj {
		return c.out
	}
	c.src, c.adj = src, adj
	c.out = NewFilter(adj).Apply(src)
	return c.out
}

// Reset drops the cached bitmap.
func (c *FilterCache) Reset() { *c = FilterCache{} }
