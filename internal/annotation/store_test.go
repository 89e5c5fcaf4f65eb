/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotation

import (
	"math/rand"
	"testing"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/undo"
	"aeroinspect/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mk(id string, author domain.Author, x, y, r float64) *domain.Annotation {
	return &domain.Annotation{ID: id, Author: author, X: x, Y: y, Radius: r}
}

func ids(s *Store) []string {
	out := make([]string, 0, s.Len())
	for _, a := range s.All() {
		out = append(out, a.ID)
	}
	return out
}

func TestStoreInsertRemoveOrder(t *testing.T) {
	s := NewStore(nil)
	a, b, c := mk("A", domain.Inspector, 0, 0, 0), mk("B", domain.Inspector, 0, 0, 0), mk("C", domain.Inspector, 0, 0, 0)
	s.Add(a)
	s.Add(c)
	s.Insert(1, b)
	assert.Equal(t, []string{"A", "B", "C"}, ids(s))

	i, ok := s.Remove(b)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.Remove(b)
	assert.False(t, ok)

	s.Insert(99, b)
	s.Insert(-3, mk("Z", domain.AI, 0, 0, 0))
	assert.Equal(t, []string{"Z", "A", "C", "B"}, ids(s))
	assert.Same(t, c, s.Find("C"))
	assert.Nil(t, s.Find("nope"))
}

func TestSelection(t *testing.T) {
	a, b := mk("A", domain.Inspector, 0, 0, 0), mk("B", domain.Verifier, 0, 0, 0)
	s := NewStore(nil)
	s.Add(a)
	s.Add(b)

	assert.True(t, s.Select(a))
	assert.False(t, s.Select(a), "reselecting is not a change")
	assert.True(t, s.Select(b))
	assert.False(t, a.Selected)
	assert.True(t, b.Selected)

	s.Remove(b)
	assert.Nil(t, s.Selected(), "removing the selected mark clears the selection")
	assert.False(t, s.Select(mk("X", domain.AI, 0, 0, 0)), "foreign annotation cannot be selected")
}

func TestNewStoreAndValuesDropSelection(t *testing.T) {
	s := NewStore([]domain.Annotation{{ID: "1", Selected: true}, {ID: "2"}})
	assert.Nil(t, s.Selected())
	s.Select(s.At(1))
	vals := s.Values()
	require.Len(t, vals, 2)
	assert.False(t, vals[1].Selected)
}

func TestHitTestTopmostWins(t *testing.T) {
	s := NewStore(nil)
	older := mk("old", domain.Inspector, 0.5, 0.5, 0.1)
	newer := mk("new", domain.Verifier, 0.55, 0.5, 0.1)
	s.Add(older)
	s.Add(newer)

	got := s.HitTest(vector.Pt{X: 0.52, Y: 0.5}, 1, 0, nil)
	assert.Same(t, newer, got)

	got = s.HitTest(vector.Pt{X: 0.41, Y: 0.5}, 1, 0, nil)
	assert.Same(t, older, got, "only the older mark covers this point")

	assert.Nil(t, s.HitTest(vector.Pt{X: 0.9, Y: 0.9}, 1, 0, nil))
}

func TestHitTestFilterAndTolerance(t *testing.T) {
	s := NewStore(nil)
	a := mk("a", domain.AI, 0.5, 0.5, 0.1)
	s.Add(a)
	p := vector.Pt{X: 0.605, Y: 0.5}
	assert.Nil(t, s.HitTest(p, 1, 0, nil))
	assert.Same(t, a, s.HitTest(p, 1, Tolerance(6, 1000, 1), nil))
	assert.Nil(t, s.HitTest(p, 1, Tolerance(6, 1000, 1), func(x *domain.Annotation) bool { return x.Author != domain.AI }))
}

func TestHitTestAspect(t *testing.T) {
	// 2:1 landscape: 0.1 of the height equals 0.05 of the width
	s := NewStore(nil)
	a := mk("a", domain.Inspector, 0.5, 0.5, 0.06)
	s.Add(a)
	assert.Same(t, a, s.HitTest(vector.Pt{X: 0.5, Y: 0.6}, 0.5, 0, nil))
	assert.Nil(t, s.HitTest(vector.Pt{X: 0.5, Y: 0.6}, 1, 0, nil))
}

func TestTolerance(t *testing.T) {
	assert.InDelta(t, 0.006, Tolerance(6, 1000, 1), 1e-12)
	assert.InDelta(t, 0.0015, Tolerance(6, 1000, 4), 1e-12, "tolerance shrinks when zooming in")
	assert.Zero(t, Tolerance(6, 0, 1))
}

func TestCanEdit(t *testing.T) {
	cases := []struct {
		author, active domain.Author
		dual           bool
		want           bool
	}{
		{domain.Inspector, domain.Inspector, false, true},
		{domain.Verifier, domain.Inspector, false, false},
		{domain.Verifier, domain.Inspector, true, true},
		{domain.Inspector, domain.Verifier, true, true},
		{domain.AI, domain.Inspector, true, false},
		{domain.AI, domain.AI, false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanEdit(c.author, c.active, c.dual), "%s by %s dual=%v", c.author, c.active, c.dual)
	}
}

func TestNestable(t *testing.T) {
	assert.True(t, Nestable(domain.Inspector, domain.Verifier))
	assert.True(t, Nestable(domain.Verifier, domain.Inspector))
	assert.False(t, Nestable(domain.Inspector, domain.Inspector))
	assert.False(t, Nestable(domain.AI, domain.Verifier))
}

func TestAddUndoRedo(t *testing.T) {
	s := NewStore(nil)
	st := undo.NewStack(undo.Config{})
	a := mk("A", domain.Inspector, 0.5, 0.5, 0.1)
	st.Execute(&AddCommand{Store: s, Item: a})
	require.Equal(t, 1, s.Len())

	st.Undo()
	assert.Equal(t, 0, s.Len())
	st.Redo()
	require.Equal(t, 1, s.Len())
	assert.Same(t, a, s.At(0))
}

func TestDeleteUndoRestoresIndex(t *testing.T) {
	s := NewStore(nil)
	for _, id := range []string{"A", "B", "C"} {
		s.Add(mk(id, domain.Inspector, 0, 0, 0))
	}
	st := undo.NewStack(undo.Config{})
	del := &DeleteCommand{Store: s, Item: s.At(1)}
	st.Execute(del)
	assert.Equal(t, []string{"A", "C"}, ids(s))
	assert.Equal(t, 1, del.Index())

	st.Undo()
	assert.Equal(t, []string{"A", "B", "C"}, ids(s))
}

// Any mix of adds and deletes is fully reverted by the same number of undos.
func TestUndoRestoresExactState(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		s := NewStore(nil)
		for i := 0; i < rng.Intn(5); i++ {
			s.Add(domain.NewAnnotation(domain.Inspector, rng.Float64(), rng.Float64(), 0.05))
		}
		before := append([]*domain.Annotation(nil), s.All()...)
		st := undo.NewStack(undo.Config{})

		n := 1 + rng.Intn(20)
		for i := 0; i < n; i++ {
			if s.Len() > 0 && rng.Intn(2) == 0 {
				st.Execute(&DeleteCommand{Store: s, Item: s.At(rng.Intn(s.Len()))})
			} else {
				st.Execute(&AddCommand{Store: s, Item: domain.NewAnnotation(domain.Verifier, rng.Float64(), rng.Float64(), 0.02)})
			}
		}
		for i := 0; i < n; i++ {
			require.True(t, st.Undo())
		}
		require.Equal(t, len(before), s.Len(), "round %d", round)
		for i := range before {
			assert.Same(t, before[i], s.At(i), "round %d index %d", round, i)
		}
	}
}
