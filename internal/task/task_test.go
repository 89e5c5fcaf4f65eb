/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoAndWait(t *testing.T) {
	tk := Go(context.Background(), func(context.Context) (int, error) { return 42, nil })
	v, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	r, ok := tk.Result()
	assert.True(t, ok)
	assert.Equal(t, 42, r.Value)
}

func TestPanicBecomesError(t *testing.T) {
	tk := Go(context.Background(), func(context.Context) (string, error) { panic("boom") })
	_, err := tk.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	tk := Go(context.Background(), func(context.Context) (int, error) { <-block; return 0, nil })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tk.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, finished := tk.Result()
	assert.False(t, finished)
}

func TestThenPostsOnDispatcher(t *testing.T) {
	posted := make(chan func(), 1)
	d := DispatcherFunc(func(fn func()) { posted <- fn })
	errBad := errors.New("bad")

	var got error
	out := Then(Done(0, errBad), d, func(_ int, err error) { got = err })
	fn := <-posted
	select {
	case <-out.Done():
		t.Fatalf("continuation finished before the callback ran")
	default:
	}
	fn()
	_, err := out.Wait(context.Background())
	assert.ErrorIs(t, err, errBad)
	assert.ErrorIs(t, got, errBad)
}

func TestImmediate(t *testing.T) {
	ran := false
	Immediate{}.Post(func() { ran = true })
	assert.True(t, ran)
}
