/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Core data model for inspection reports. Reports serialise to a
// human-readable JSON document; annotation geometry is stored in image
// fractions so it survives any rescaling of the source photos.

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Author identifies who placed an annotation.
type Author string

const (
	Inspector Author = "Inspector"
	Verifier  Author = "Verifier"
	AI        Author = "AI"
)

// Authors lists every author in display order.
var Authors = []Author{Inspector, Verifier, AI}

func (a Author) Valid() bool {
	switch a {
	case Inspector, Verifier, AI:
		return true
	}
	return false
}

// Annotation is a circular mark on an image.
// X and Y are fractions of the image width and height, Radius is a fraction of
// the image width. Values are not clamped at storage time.
type Annotation struct {
	ID     string  `json:"id"`
	Author Author  `json:"author"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	// Selected is transient editor state.
	Selected bool `json:"-"`
}

// NewAnnotation returns an annotation with a fresh id.
func NewAnnotation(author Author, x, y, r float64) *Annotation {
	return &Annotation{ID: uuid.NewString(), Author: author, X: x, Y: y, Radius: r}
}

// Adjustment holds per-image brightness/contrast.
// Brightness is additive in [-100,100] (stored unscaled), Contrast multiplicative.
type Adjustment struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// DefaultAdjustment is brightness 0, contrast 1.
func DefaultAdjustment() Adjustment { return Adjustment{Contrast: 1} }

func (a Adjustment) IsIdentity() bool { return a.Brightness == 0 && a.Contrast == 1 }

// ImageInfo is capture metadata read from a photo.
type ImageInfo struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Orientation int       `json:"orientation,omitempty"`
	Taken       time.Time `json:"taken,omitempty"`
}

// Field names an editable scalar on a Report.
type Field string

const (
	FieldName         Field = "name"
	FieldAircraftType Field = "aircraftType"
	FieldTailNumber   Field = "tailNumber"
	FieldSide         Field = "side"
	FieldReason       Field = "reason"
	FieldNotes        Field = "notes"
)

// Fields lists the editable report fields.
var Fields = []Field{FieldName, FieldAircraftType, FieldTailNumber, FieldSide, FieldReason, FieldNotes}

func (f Field) Valid() bool { return slices.Contains(Fields, f) }

// Report is one inspection: project metadata, the ordered photo list and the
// per-image annotation and adjustment maps keyed by image path.
type Report struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AircraftType string    `json:"aircraftType,omitempty"`
	TailNumber   string    `json:"tailNumber,omitempty"`
	Side         string    `json:"side,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Inspector    string    `json:"inspector,omitempty"`
	Verifier     string    `json:"verifier,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Images      []string                `json:"images"`
	Annotations map[string][]Annotation `json:"annotations"`
	Adjustments map[string]Adjustment   `json:"adjustments"`
	ImageInfo   map[string]ImageInfo    `json:"imageInfo,omitempty"`
}

// NewReport creates an empty report with a fresh id.
func NewReport(name string) *Report {
	now := time.Now().UTC()
	r := &Report{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	r.EnsureMaps()
	return r
}

// EnsureMaps allocates nil maps so callers can write without checks.
func (r *Report) EnsureMaps() {
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Annotations == nil {
		r.Annotations = map[string][]Annotation{}
	}
	if r.Adjustments == nil {
		r.Adjustments = map[string]Adjustment{}
	}
	if r.ImageInfo == nil {
		r.ImageInfo = map[string]ImageInfo{}
	}
}

// AnnotationsFor returns the stored annotations of path (nil when absent).
func (r *Report) AnnotationsFor(path string) []Annotation { return r.Annotations[path] }

// AdjustmentFor returns the stored adjustment of path or the default.
func (r *Report) AdjustmentFor(path string) Adjustment {
	if a, ok := r.Adjustments[path]; ok {
		return a
	}
	return DefaultAdjustment()
}

// HasImage reports whether path belongs to the report.
func (r *Report) HasImage(path string) bool {
	for _, p := range r.Images {
		if p == path {
			return true
		}
	}
	return false
}

// RolesFor returns the roles user holds on this report.
func (r *Report) RolesFor(user string) []Author {
	var out []Author
	if user == "" {
		return out
	}
	if r.Inspector == user {
		out = append(out, Inspector)
	}
	if r.Verifier == user {
		out = append(out, Verifier)
	}
	return out
}

// IsDualRole reports whether user is both inspector and verifier.
func (r *Report) IsDualRole(user string) bool { return len(r.RolesFor(user)) == 2 }

// Field returns the value of f.
func (r *Report) Field(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldAircraftType:
		return r.AircraftType
	case FieldTailNumber:
		return r.TailNumber
	case FieldSide:
		return r.Side
	case FieldReason:
		return r.Reason
	case FieldNotes:
		return r.Notes
	}
	return ""
}

// SetField assigns v to f. Unknown fields are ignored and reported false.
func (r *Report) SetField(f Field, v string) bool {
	switch f {
	case FieldName:
		r.Name = v
	case FieldAircraftType:
		r.AircraftType = v
	case FieldTailNumber:
		r.TailNumber = v
	case FieldSide:
		r.Side = v
	case FieldReason:
		r.Reason = v
	case FieldNotes:
		r.Notes = v
	default:
		return false
	}
	return true
}

// CountByAuthor counts annotations of path per author.
func (r *Report) CountByAuthor(path string) map[Author]int {
	out := map[Author]int{}
	for _, a := range r.Annotations[path] {
		out[a.Author]++
	}
	return out
}

// Options are the selectable values offered for report metadata.
type Options struct {
	AircraftTypes []string `json:"aircraftTypes"`
	TailNumbers   []string `json:"tailNumbers"`
	Sides         []string `json:"sides"`
	Reasons       []string `json:"reasons"`
}

// SortedImagesWithAnnotations returns image paths that carry at least one
// annotation, in report order.
func (r *Report) SortedImagesWithAnnotations() []string {
	idx := make(map[string]int, len(r.Images))
	for i, p := range r.Images {
		idx[p] = i
	}
	var out []string
	for p, list := range r.Annotations {
		if _, ok := idx[p]; ok && len(list) > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return idx[out[i]] < idx[out[j]] })
	return out
}
