/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package analysis

import (
	"context"
	"testing"
	"time"

	"aeroinspect/internal/domain"
	ilog "aeroinspect/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockReturnsFreshAIMarks(t *testing.T) {
	m := &Mock{Logger: ilog.Discard()}
	a, err := m.GetAnnotations(context.Background(), "x.jpg")
	require.NoError(t, err)
	require.Len(t, a, len(DefaultMarks))
	b, err := m.GetAnnotations(context.Background(), "x.jpg")
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, domain.AI, a[i].Author)
		assert.NotEmpty(t, a[i].ID)
		assert.NotEqual(t, a[i].ID, b[i].ID, "ids must be unique per call")
		assert.Equal(t, DefaultMarks[i].X, a[i].X)
	}
}

func TestMockEmptyMarks(t *testing.T) {
	m := &Mock{Marks: []domain.Annotation{}, Logger: ilog.Discard()}
	a, err := m.GetAnnotations(context.Background(), "x.jpg")
	require.NoError(t, err)
	assert.Empty(t, a)
}

func TestMockHonoursContext(t *testing.T) {
	m := &Mock{Latency: time.Hour, Logger: ilog.Discard()}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := m.GetAnnotations(ctx, "x.jpg")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockToken(t *testing.T) {
	m := NewMock(0, "")
	m.RequireToken = true
	m.Logger = ilog.Discard()
	_, err := m.GetAnnotations(context.Background(), "x.jpg")
	assert.ErrorIs(t, err, ErrUnauthorized)
	m.Token = "secret"
	_, err = m.GetAnnotations(context.Background(), "x.jpg")
	assert.NoError(t, err)
}
