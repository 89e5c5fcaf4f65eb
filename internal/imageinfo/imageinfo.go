/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageinfo decodes inspection photos and reads their capture metadata.
package imageinfo

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	// Registered input formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"aeroinspect/internal/domain"

	exif "github.com/dsoprea/go-exif/v3"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Decode reads and decodes the image at path.
func Decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return img, format, nil
}

// Read returns size and EXIF capture data of the photo at path.
func Read(path string) (domain.ImageInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageInfo{}, err
	}
	return FromBytes(b)
}

// FromBytes parses an encoded image. Missing EXIF data is not an error.
func FromBytes(b []byte) (domain.ImageInfo, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("decode config: %w", err)
	}
	info := domain.ImageInfo{Width: cfg.Width, Height: cfg.Height}

	// photos without (or with unreadable) EXIF are still usable
	raw, err := exif.SearchAndExtractExif(b)
	if err != nil {
		return info, nil
	}
	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return info, nil
	}
	for _, e := range entries {
		switch e.TagName {
		case "Make":
			info.Make = strings.TrimSpace(e.Formatted)
		case "Model":
			info.Model = strings.TrimSpace(e.Formatted)
		case "Orientation":
			info.Orientation = firstInt(e.Formatted)
		case "DateTimeOriginal":
			if t, err := time.Parse(exifTimeLayout, strings.TrimSpace(e.Formatted)); err == nil {
				info.Taken = t
			}
		case "DateTime":
			if info.Taken.IsZero() {
				if t, err := time.Parse(exifTimeLayout, strings.TrimSpace(e.Formatted)); err == nil {
					info.Taken = t
				}
			}
		}
	}
	return info, nil
}

// firstInt parses "1" or "[1]" style formatted values.
func firstInt(s string) int {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if f := strings.Fields(s); len(f) > 0 {
		n, _ := strconv.Atoi(f[0])
		return n
	}
	return 0
}

// Describe renders a one-line caption such as "Canon EOS R5, 2024-05-01 10:22".
func Describe(i domain.ImageInfo) string {
	var parts []string
	if cam := strings.TrimSpace(i.Make + " " + i.Model); cam != "" {
		parts = append(parts, cam)
	}
	if !i.Taken.IsZero() {
		parts = append(parts, i.Taken.Format("2006-01-02 15:04"))
	}
	if i.Width > 0 && i.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", i.Width, i.Height))
	}
	return strings.Join(parts, ", ")
}
