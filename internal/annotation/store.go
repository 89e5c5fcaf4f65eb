/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package annotation holds the ordered per-image annotation list, hit testing
// and the role rules deciding who may edit or respond to a mark.
package annotation

import (
	"math"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/vector"
)

// Store is an ordered annotation list. Index order is z-order: the last
// element is drawn on top. At most one annotation is selected.
type Store struct {
	items    []*domain.Annotation
	selected *domain.Annotation
}

// NewStore builds a store from persisted values.
func NewStore(values []domain.Annotation) *Store {
	s := &Store{items: make([]*domain.Annotation, 0, len(values))}
	for i := range values {
		a := values[i]
		a.Selected = false
		s.items = append(s.items, &a)
	}
	return s
}

func (s *Store) Len() int                    { return len(s.items) }
func (s *Store) At(i int) *domain.Annotation { return s.items[i] }

// All returns the live annotations in z-order. Callers must not modify the slice.
func (s *Store) All() []*domain.Annotation { return s.items }

// Add appends a on top.
func (s *Store) Add(a *domain.Annotation) { s.items = append(s.items, a) }

// Insert places a at index i, clamped to the valid range.
func (s *Store) Insert(i int, a *domain.Annotation) {
	if i < 0 {
		i = 0
	}
	if i >= len(s.items) {
		s.items = append(s.items, a)
		return
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = a
}

// IndexOf returns the position of a or -1.
func (s *Store) IndexOf(a *domain.Annotation) int {
	for i, it := range s.items {
		if it == a {
			return i
		}
	}
	return -1
}

// Find returns the annotation with id.
func (s *Store) Find(id string) *domain.Annotation {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Remove deletes a and returns its former index. A removed selected
// annotation is deselected.
func (s *Store) Remove(a *domain.Annotation) (int, bool) {
	i := s.IndexOf(a)
	if i < 0 {
		return -1, false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	if s.selected == a {
		a.Selected = false
		s.selected = nil
	}
	return i, true
}

// Select makes a the single selected annotation; nil clears the selection.
// It reports whether the selection changed.
func (s *Store) Select(a *domain.Annotation) bool {
	if a != nil && s.IndexOf(a) < 0 {
		a = nil
	}
	if s.selected == a {
		return false
	}
	if s.selected != nil {
		s.selected.Selected = false
	}
	s.selected = a
	if a != nil {
		a.Selected = true
	}
	return true
}

func (s *Store) Selected() *domain.Annotation { return s.selected }

// Values returns persistable copies in z-order.
func (s *Store) Values() []domain.Annotation {
	out := make([]domain.Annotation, len(s.items))
	for i, a := range s.items {
		out[i] = *a
		out[i].Selected = false
	}
	return out
}

// Filter restricts hit testing, e.g. to visible authors.
type Filter func(*domain.Annotation) bool

// HitTest returns the topmost annotation within radius+tol of p.
// p and the annotations are in image fractions; aspect is height/width of the
// image so that vertical distances are measured in image-width units like the
// radius.
func (s *Store) HitTest(p vector.Pt, aspect, tol float64, keep Filter) *domain.Annotation {
	if aspect <= 0 {
		aspect = 1
	}
	for i := len(s.items) - 1; i >= 0; i-- {
		a := s.items[i]
		if keep != nil && !keep(a) {
			continue
		}
		d := math.Hypot(p.X-a.X, (p.Y-a.Y)*aspect)
		if d <= a.Radius+tol {
			return a
		}
	}
	return nil
}

// Tolerance converts a screen pixel tolerance into image-width fractions.
func Tolerance(pixels, imageWidth, zoom float64) float64 {
	if imageWidth <= 0 || zoom <= 0 {
		return 0
	}
	return pixels / (imageWidth * zoom)
}
