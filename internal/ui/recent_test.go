/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushRecentMovesToFront(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	items := pushRecent(nil, a)
	items = pushRecent(items, b)
	items = pushRecent(items, a)
	assert.Equal(t, []string{a, b}, items)
	assert.Equal(t, items, pushRecent(items, "  "))
}

func TestPushRecentCapsLength(t *testing.T) {
	var items []string
	for i := 0; i < recentMax+3; i++ {
		items = pushRecent(items, filepath.Join(t.TempDir(), fmt.Sprint(i)))
	}
	assert.Len(t, items, recentMax)
}

func TestRecentRoundTripDropsMissing(t *testing.T) {
	keep := t.TempDir()
	gone := filepath.Join(t.TempDir(), "gone")
	raw := encodeRecent([]string{keep, gone, ""})
	got := decodeRecent(raw)
	require.Len(t, got, 1)
	assert.Equal(t, keep, got[0])

	assert.Empty(t, decodeRecent("not json"))
	assert.Empty(t, decodeRecent(""))
}
