/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package analysis provides automatic defect suggestions. Only a mock
// generator exists; it stands in for a detection service.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aeroinspect/internal/domain"
	ilog "aeroinspect/internal/log"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned when a token is required but none is configured.
var ErrUnauthorized = errors.New("analysis: no API token configured")

// Generator returns AI-authored annotations for an image.
type Generator interface {
	GetAnnotations(ctx context.Context, imagePath string) ([]domain.Annotation, error)
}

// DefaultMarks are the example findings returned by Mock.
var DefaultMarks = []domain.Annotation{
	{Author: domain.AI, X: 0.32, Y: 0.41, Radius: 0.05},
	{Author: domain.AI, X: 0.61, Y: 0.55, Radius: 0.08},
	{Author: domain.AI, X: 0.77, Y: 0.28, Radius: 0.04},
}

// Mock simulates a detection service with a fixed latency.
type Mock struct {
	Latency time.Duration
	// Marks overrides DefaultMarks; an empty non-nil slice yields no findings.
	Marks []domain.Annotation
	// Token and RequireToken emulate service authentication.
	Token        string
	RequireToken bool
	Logger       *slog.Logger
}

// NewMock returns a mock with the given latency in milliseconds.
func NewMock(latencyMs int, token string) *Mock {
	return &Mock{Latency: time.Duration(latencyMs) * time.Millisecond, Token: token}
}

func (m *Mock) GetAnnotations(ctx context.Context, imagePath string) ([]domain.Annotation, error) {
	l := m.Logger
	if l == nil {
		l = ilog.WithComponent("analysis")
	}
	if m.RequireToken && m.Token == "" {
		return nil, ErrUnauthorized
	}
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	src := m.Marks
	if src == nil {
		src = DefaultMarks
	}
	out := make([]domain.Annotation, len(src))
	for i, a := range src {
		a.ID = uuid.NewString()
		a.Author = domain.AI
		a.Selected = false
		out[i] = a
	}
	l.Debug("analysis finished", slog.String("image", imagePath), slog.Int("findings", len(out)))
	return out, nil
}
