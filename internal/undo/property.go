/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

// Property is a typed setter command: it swaps a value between Old and New
// through the supplied accessors.
type Property[T comparable] struct {
	Name string
	Old  T
	New  T
	set  func(T)
}

// NewProperty captures the current value via get and prepares a change to v.
func NewProperty[T comparable](name string, get func() T, set func(T), v T) *Property[T] {
	return &Property[T]{Name: name, Old: get(), New: v, set: set}
}

// Changed reports whether executing the command would change anything.
func (p *Property[T]) Changed() bool { return p.Old != p.New }

func (p *Property[T]) Do()           { p.set(p.New) }
func (p *Property[T]) Undo()         { p.set(p.Old) }
func (p *Property[T]) Label() string { return "Change " + p.Name }

// Merge absorbs a later change of the same property.
func (p *Property[T]) Merge(next Command) bool {
	n, ok := next.(*Property[T])
	if !ok || n.Name != p.Name {
		return false
	}
	p.New = n.New
	return true
}

// Func adapts a pair of closures to Command.
type Func struct {
	Name   string
	DoFn   func()
	UndoFn func()
}

func (f Func) Do()           { f.DoFn() }
func (f Func) Undo()         { f.UndoFn() }
func (f Func) Label() string { return f.Name }
