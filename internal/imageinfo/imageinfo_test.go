/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageinfo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aeroinspect/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromBytesWithoutExif(t *testing.T) {
	info, err := FromBytes(encodePNG(t, 12, 7))
	require.NoError(t, err)
	assert.Equal(t, 12, info.Width)
	assert.Equal(t, 7, info.Height)
	assert.Empty(t, info.Make)
	assert.True(t, info.Taken.IsZero())
}

func TestFromBytesGarbage(t *testing.T) {
	_, err := FromBytes([]byte("not an image"))
	assert.Error(t, err)
}

func TestDecodeAndRead(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "wing.jpg")
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 9)), nil))
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	img, format, err := Decode(p)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 16, img.Bounds().Dx())

	info, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, 9, info.Height)

	_, _, err = Decode(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestFirstInt(t *testing.T) {
	assert.Equal(t, 6, firstInt("[6]"))
	assert.Equal(t, 1, firstInt(" 1 "))
	assert.Equal(t, 0, firstInt(""))
}

func TestDescribe(t *testing.T) {
	i := domain.ImageInfo{Make: "Canon", Model: "EOS R5", Width: 8192, Height: 5464,
		Taken: time.Date(2024, 5, 1, 10, 22, 0, 0, time.UTC)}
	assert.Equal(t, "Canon EOS R5, 2024-05-01 10:22, 8192x5464", Describe(i))
	assert.Equal(t, "", Describe(domain.ImageInfo{}))
}
