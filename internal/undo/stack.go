/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Command is a reversible operation. Do and Undo must be exact inverses; a
// command records whatever it needs to revert itself (no snapshots).
type Command interface {
	Do()
	Undo()
	Label() string
}

// Merger is implemented by commands that can absorb a successor, e.g. a run of
// slider changes to the same property. Merge is called after next.Do() ran and
// must leave the receiver undoing both.
type Merger interface {
	Merge(next Command) bool
}

// Config controls depth cap and coalescing.
type Config struct {
	// MaxDepth limits the undo history; the oldest commands are dropped (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces mergeable commands executed within the interval.
	MinInterval time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	cmd Command
	ts  time.Time
}

// Stack is a linear undo/redo history. Executing a command drops the redo
// history. It is safe for concurrent use, though commands themselves run on
// the caller's goroutine.
type Stack struct {
	cfg  Config
	mu   sync.Mutex
	undo []entry
	redo []entry

	// clean is the undo depth matching the last saved state; cleanOK is false
	// once that state can no longer be reached.
	clean   int
	cleanOK bool
}

func NewStack(cfg Config) *Stack {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Stack{cfg: cfg, cleanOK: true}
}

// Execute runs cmd, records it and clears the redo history.
func (s *Stack) Execute(cmd Command) {
	if cmd == nil {
		return
	}
	cmd.Do()
	now := s.cfg.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanOK && s.clean > len(s.undo) {
		// clean point was on the discarded redo branch
		s.cleanOK = false
	}
	s.redo = nil
	if n := len(s.undo); n > 0 && s.cfg.MinInterval > 0 {
		last := &s.undo[n-1]
		if m, ok := last.cmd.(Merger); ok && now.Sub(last.ts) < s.cfg.MinInterval && m.Merge(cmd) {
			last.ts = now
			if s.cleanOK && s.clean == n {
				s.cleanOK = false
			}
			return
		}
	}
	s.undo = append(s.undo, entry{cmd: cmd, ts: now})
	s.enforceDepthLocked()
}

// Undo reverts the latest command. It reports false on an empty history.
func (s *Stack) Undo() bool {
	s.mu.Lock()
	n := len(s.undo)
	if n == 0 {
		s.mu.Unlock()
		return false
	}
	e := s.undo[n-1]
	s.undo = s.undo[:n-1]
	s.redo = append(s.redo, e)
	s.mu.Unlock()

	e.cmd.Undo()
	return true
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() bool {
	s.mu.Lock()
	n := len(s.redo)
	if n == 0 {
		s.mu.Unlock()
		return false
	}
	e := s.redo[n-1]
	s.redo = s.redo[:n-1]
	// redone commands never merge with later ones
	e.ts = time.Time{}
	s.undo = append(s.undo, e)
	s.enforceDepthLocked()
	s.mu.Unlock()

	e.cmd.Do()
	return true
}

// Clear drops both histories. The empty history becomes the clean point.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo, s.redo = nil, nil
	s.clean, s.cleanOK = 0, true
}

// MarkClean records the current position as saved.
func (s *Stack) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clean, s.cleanOK = len(s.undo), true
	// a fresh save must not be merged into
	if n := len(s.undo); n > 0 {
		s.undo[n-1].ts = time.Time{}
	}
}

// IsClean reports whether the history sits at the last MarkClean position.
func (s *Stack) IsClean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanOK && s.clean == len(s.undo)
}

func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Len returns the undo and redo depths.
func (s *Stack) Len() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo), len(s.redo)
}

// UndoLabel is the label of the command Undo would revert ("" when none).
func (s *Stack) UndoLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.undo); n > 0 {
		return s.undo[n-1].cmd.Label()
	}
	return ""
}

// Peek returns the commands Undo and Redo would apply next (nil when none).
func (s *Stack) Peek() (undo, redo Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.undo); n > 0 {
		undo = s.undo[n-1].cmd
	}
	if n := len(s.redo); n > 0 {
		redo = s.redo[n-1].cmd
	}
	return undo, redo
}

func (s *Stack) RedoLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.redo); n > 0 {
		return s.redo[n-1].cmd.Label()
	}
	return ""
}

func (s *Stack) enforceDepthLocked() {
	if s.cfg.MaxDepth <= 0 || len(s.undo) <= s.cfg.MaxDepth {
		return
	}
	drop := len(s.undo) - s.cfg.MaxDepth
	s.undo = append([]entry(nil), s.undo[drop:]...)
	if s.cleanOK {
		s.clean -= drop
		if s.clean < 0 {
			s.cleanOK = false
		}
	}
}
