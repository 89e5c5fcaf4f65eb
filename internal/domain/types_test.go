/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestReportJSONRoundTrip(t *testing.T) {
	r := NewReport("A320 walkaround")
	r.Images = []string{"a.jpg", "b.jpg"}
	r.Annotations["a.jpg"] = []Annotation{{ID: "1", Author: Inspector, X: 0.5, Y: 0.5, Radius: 0.1, Selected: true}}
	r.Adjustments["b.jpg"] = Adjustment{Brightness: 20, Contrast: 1.5}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Report
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != r.Name || len(got.Images) != 2 {
		t.Fatalf("unexpected report: %+v", got)
	}
	a := got.Annotations["a.jpg"]
	if len(a) != 1 || a[0].Selected {
		t.Fatalf("selection flag must not persist: %+v", a)
	}
	if got.AdjustmentFor("b.jpg").Contrast != 1.5 {
		t.Fatalf("adjustment lost")
	}
}

func TestAdjustmentDefaults(t *testing.T) {
	r := NewReport("x")
	adj := r.AdjustmentFor("missing.jpg")
	if !adj.IsIdentity() {
		t.Fatalf("absent adjustment must be identity, got %+v", adj)
	}
	if (Adjustment{}).IsIdentity() {
		t.Fatalf("zero contrast is not identity")
	}
}

func TestRoles(t *testing.T) {
	r := &Report{Inspector: "kim", Verifier: "kim"}
	if !r.IsDualRole("kim") {
		t.Fatalf("kim holds both roles")
	}
	r.Verifier = "lee"
	if r.IsDualRole("kim") {
		t.Fatalf("kim is inspector only")
	}
	if got := r.RolesFor("lee"); len(got) != 1 || got[0] != Verifier {
		t.Fatalf("RolesFor(lee) = %v", got)
	}
	if len(r.RolesFor("")) != 0 {
		t.Fatalf("anonymous user has no roles")
	}
}

func TestSetField(t *testing.T) {
	r := NewReport("x")
	if !r.SetField(FieldTailNumber, "D-AIZZ") || r.Field(FieldTailNumber) != "D-AIZZ" {
		t.Fatalf("tail number not set")
	}
	if r.SetField(Field("bogus"), "v") {
		t.Fatalf("unknown field accepted")
	}
}

func TestSortedImagesWithAnnotations(t *testing.T) {
	r := NewReport("x")
	r.Images = []string{"a", "b", "c"}
	r.Annotations["c"] = []Annotation{{ID: "1"}}
	r.Annotations["a"] = []Annotation{{ID: "2"}}
	r.Annotations["b"] = nil
	got := r.SortedImagesWithAnnotations()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v", got)
	}
}
