/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"aeroinspect/internal/domain"
)

// OptionsFileName is the per-user file holding selectable report values.
const OptionsFileName = "options.json"

// DefaultOptions are offered when no options file exists.
func DefaultOptions() domain.Options {
	return domain.Options{
		AircraftTypes: []string{"A319", "A320", "A321", "A350-900", "B737-800", "B787-9", "E190"},
		TailNumbers:   []string{},
		Sides:         []string{"Left", "Right", "Top", "Bottom", "Front", "Rear"},
		Reasons:       []string{"Scheduled check", "Bird strike", "Lightning strike", "Hail damage", "Ground damage"},
	}
}

// OptionsStore reads the ordered option lists. The editor only reads them.
type OptionsStore struct {
	Path string
}

// NewOptionsStore returns a store for dataDir/options.json.
func NewOptionsStore(dataDir string) *OptionsStore {
	return &OptionsStore{Path: filepath.Join(dataDir, OptionsFileName)}
}

// Load returns the stored options, or the defaults when the file is absent.
// Lists missing from the file fall back to their defaults.
func (s *OptionsStore) Load() (domain.Options, error) {
	def := DefaultOptions()
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("read options: %w", err)
	}
	var o domain.Options
	if err := json.Unmarshal(b, &o); err != nil {
		return def, fmt.Errorf("parse options: %w", err)
	}
	if o.AircraftTypes == nil {
		o.AircraftTypes = def.AircraftTypes
	}
	if o.TailNumbers == nil {
		o.TailNumbers = def.TailNumbers
	}
	if o.Sides == nil {
		o.Sides = def.Sides
	}
	if o.Reasons == nil {
		o.Reasons = def.Reasons
	}
	return o, nil
}

// Save writes o transactionally. Used by administration tooling.
func (s *OptionsStore) Save(o domain.Options) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := writeFileSync(tmp, data); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
