/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"aeroinspect/internal/annotation"
	"aeroinspect/internal/domain"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/render"
	"aeroinspect/internal/task"
	"aeroinspect/internal/undo"
)

func (s *Session) execute(c undo.Command) {
	s.stack.Execute(c)
	s.touch()
}

// affectsFrame reports whether undoing or redoing c changes what is drawn.
// Report field edits do not.
func affectsFrame(c undo.Command) bool {
	_, field := c.(*undo.Property[string])
	return c != nil && !field
}

// Undo reverts the latest edit of the active image. Empty history is a no-op.
func (s *Session) Undo() {
	if s.mode != ModeIdle {
		return
	}
	top, _ := s.stack.Peek()
	if !s.stack.Undo() {
		return
	}
	s.touch()
	if affectsFrame(top) {
		s.invalidate()
	}
}

// Redo re-applies the latest undone edit. Empty history is a no-op.
func (s *Session) Redo() {
	if s.mode != ModeIdle {
		return
	}
	_, next := s.stack.Peek()
	if !s.stack.Redo() {
		return
	}
	s.touch()
	if affectsFrame(next) {
		s.invalidate()
	}
}

// DeleteSelected removes the selected annotation. Nothing selected is a
// no-op; a selection the active role may not edit is refused.
func (s *Session) DeleteSelected() error {
	a := s.store.Selected()
	if a == nil || s.mode != ModeIdle {
		return nil
	}
	if !annotation.CanEdit(a.Author, s.active, s.IsDualRole()) {
		return ErrNotEditable
	}
	s.execute(&annotation.DeleteCommand{Store: s.store, Item: a})
	s.log.Debug("annotation deleted", slog.String("id", a.ID))
	s.invalidate()
	return nil
}

func (s *Session) setAdjustment(name string, next domain.Adjustment) error {
	if s.path == "" {
		return ErrNoImage
	}
	path := s.path
	cmd := undo.NewProperty(name,
		func() domain.Adjustment { return s.adjustmentOf(path) },
		func(v domain.Adjustment) { s.adjust[path] = v },
		render.ClampAdjustment(next))
	if !cmd.Changed() {
		return nil
	}
	s.execute(cmd)
	s.invalidate()
	return nil
}

// SetBrightness sets the additive brightness of the active image, clamped to
// [render.MinBrightness, render.MaxBrightness]. Slider runs coalesce into a
// single undo step.
func (s *Session) SetBrightness(v float64) error {
	a := s.Adjustment()
	a.Brightness = v
	return s.setAdjustment("brightness", a)
}

// SetContrast sets the contrast factor of the active image.
func (s *Session) SetContrast(v float64) error {
	a := s.Adjustment()
	a.Contrast = v
	return s.setAdjustment("contrast", a)
}

func (s *Session) ResetAdjustment() error {
	return s.setAdjustment("adjustment", domain.DefaultAdjustment())
}

// SetField changes a report metadata field through the undo history.
func (s *Session) SetField(f domain.Field, v string) error {
	r := s.report
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	cmd := undo.NewProperty(string(f),
		func() string { return r.Field(f) },
		func(v string) { r.SetField(f, v) },
		v)
	if !cmd.Changed() {
		return nil
	}
	s.execute(cmd)
	return nil
}

// Field returns a report metadata field.
func (s *Session) Field(f domain.Field) string { return s.report.Field(f) }

// SetVisible shows or hides an author category.
func (s *Session) SetVisible(a domain.Author, on bool) {
	if !a.Valid() || s.visible[a] == on {
		return
	}
	s.visible[a] = on
	s.invalidate()
}

func (s *Session) Visible(a domain.Author) bool { return s.visible[a] }

// ActiveRole is the author new marks are drawn as.
func (s *Session) ActiveRole() domain.Author { return s.active }

// Roles lists the roles the user may switch between. Users without an
// assignment on the report may act as either human role, and edit as a
// dual-role user.
func (s *Session) Roles() []domain.Author {
	if roles := s.report.RolesFor(s.user); len(roles) > 0 {
		return roles
	}
	return []domain.Author{domain.Inspector, domain.Verifier}
}

// IsDualRole reports whether the user may act as both inspector and verifier.
func (s *Session) IsDualRole() bool { return len(s.Roles()) == 2 }

// SetActiveRole switches the authoring role. A selection the new role may
// not edit is dropped.
func (s *Session) SetActiveRole(a domain.Author) error {
	if !slices.Contains(s.Roles(), a) {
		return fmt.Errorf("%w: %s", ErrRoleNotAllowed, a)
	}
	if a == s.active {
		return nil
	}
	s.active = a
	if sel := s.store.Selected(); sel != nil && !annotation.CanEdit(sel.Author, a, s.IsDualRole()) {
		s.store.Select(nil)
		s.invalidate()
	}
	return nil
}

// RunAnalysis asks the generator for AI marks on the active image. Results
// for the still active image are added through the undo history; results for
// an image the user left meanwhile go straight into that image's list.
// Results for an image removed from the report are dropped.
func (s *Session) RunAnalysis(ctx context.Context) *task.Task[[]domain.Annotation] {
	if s.path == "" {
		return task.Done[[]domain.Annotation](nil, ErrNoImage)
	}
	if s.gen == nil {
		return task.Done[[]domain.Annotation](nil, fmt.Errorf("editor: no annotation generator configured"))
	}
	path, file, gen := s.path, s.resolve(s.path), s.gen
	l := ilog.WithOperation(s.log, "analysis").With(slog.String("image", path))
	t := task.Go(ctx, func(ctx context.Context) ([]domain.Annotation, error) {
		return gen.GetAnnotations(ctx, file)
	})
	return task.Then(t, s.disp, func(marks []domain.Annotation, err error) {
		if err != nil {
			l.Error("analysis failed", slog.Any("err", err))
			return
		}
		if len(marks) == 0 {
			return
		}
		if !s.report.HasImage(path) {
			l.Debug("image removed, dropping analysis", slog.Int("marks", len(marks)))
			return
		}
		for i := range marks {
			marks[i].Author = domain.AI
			marks[i].Selected = false
		}
		if path == s.path {
			for i := range marks {
				a := marks[i]
				s.execute(&annotation.AddCommand{Store: s.store, Item: &a})
			}
			s.invalidate()
		} else {
			s.anns[path] = append(s.anns[path], marks...)
			s.baseDirty = true
			s.touch()
		}
		l.Info("analysis applied", slog.Int("marks", len(marks)))
	})
}
