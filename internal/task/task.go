/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package task runs background work (decode, export, analysis, save) and hands
// results back to the thread that owns editor state.
package task

import (
	"context"
	"fmt"
	"sync"
)

// Result carries the outcome of a task.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is a handle to background work.
type Task[T any] struct {
	done chan struct{}
	once sync.Once
	res  Result[T]
}

// Go runs fn on a new goroutine. A panic in fn is turned into an error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		var (
			v   T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panic: %v", r)
			}
			t.finish(v, err)
		}()
		v, err = fn(ctx)
	}()
	return t
}

// Done returns an already finished task.
func Done[T any](v T, err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	t.finish(v, err)
	return t
}

func (t *Task[T]) finish(v T, err error) {
	t.once.Do(func() {
		t.res = Result[T]{Value: v, Err: err}
		close(t.done)
	})
}

// Done is closed once the task finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finished or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.res.Value, t.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome and whether the task has finished.
func (t *Task[T]) Result() (Result[T], bool) {
	select {
	case <-t.done:
		return t.res, true
	default:
		return Result[T]{}, false
	}
}

// Dispatcher schedules fn on the owner thread.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Post(fn func()) { f(fn) }

// Immediate runs posted functions synchronously on the caller.
type Immediate struct{}

func (Immediate) Post(fn func()) { fn() }

// Then posts cb with the result of t onto d once t finished. The returned task
// completes after cb ran.
func Then[T any](t *Task[T], d Dispatcher, cb func(T, error)) *Task[T] {
	out := &Task[T]{done: make(chan struct{})}
	go func() {
		<-t.done
		v, err := t.res.Value, t.res.Err
		d.Post(func() {
			defer out.finish(v, err)
			cb(v, err)
		})
	}()
	return out
}
