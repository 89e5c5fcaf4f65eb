/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestThumbnailFitsLongestEdge(t *testing.T) {
	th := Thumbnail(image.NewNRGBA(image.Rect(0, 0, 1000, 500)), 100)
	if th.Bounds().Dx() != 100 || th.Bounds().Dy() != 50 {
		t.Fatalf("landscape thumb %v", th.Bounds())
	}
	th = Thumbnail(image.NewNRGBA(image.Rect(0, 0, 300, 900)), 90)
	if th.Bounds().Dx() != 30 || th.Bounds().Dy() != 90 {
		t.Fatalf("portrait thumb %v", th.Bounds())
	}
	th = Thumbnail(image.NewNRGBA(image.Rect(0, 0, 20, 10)), 90)
	if th.Bounds().Dx() != 20 {
		t.Fatalf("small images are not upscaled: %v", th.Bounds())
	}
}

func TestThumbCacheGetOrCreate(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenThumbCache(filepath.Join(dir, "cache"), 0, 32)
	if err != nil {
		t.Fatalf("OpenThumbCache: %v", err)
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 128, 64)
	b, err := c.GetOrCreate(ctx, src)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Fatalf("thumb size %v", img.Bounds())
	}
	key, _ := c.Key(src)
	cached, err := c.Get(ctx, key)
	if err != nil || !bytes.Equal(cached, b) {
		t.Fatalf("expected cached blob, err=%v", err)
	}
	if n, _, _ := c.Stats(ctx); n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
	if _, err := c.GetOrCreate(ctx, filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestThumbCacheEvictsLRU(t *testing.T) {
	c, err := OpenThumbCache(t.TempDir(), 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	for _, k := range []string{"a", "b"} {
		if err := c.Put(ctx, k, 1, 1, make([]byte, 30)); err != nil {
			t.Fatal(err)
		}
	}
	// touch a so b becomes the eviction victim
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "c", 1, 1, make([]byte, 30)); err != nil {
		t.Fatal(err)
	}
	n, total, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total > 64 || n != 2 {
		t.Fatalf("expected eviction to 2 rows <=64 bytes, got %d rows %d bytes", n, total)
	}
	if b, _ := c.Get(ctx, "b"); b != nil {
		t.Fatalf("least recently used entry should be gone")
	}
	if b, _ := c.Get(ctx, "a"); b == nil {
		t.Fatalf("recently used entry evicted")
	}
}

func TestThumbCachePrefetch(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenThumbCache(filepath.Join(dir, "cache"), 0, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, fmt.Sprintf("%d.png", i))
		writePNG(t, p, 40, 40)
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "broken.png"))
	if err := c.Prefetch(context.Background(), paths, 2); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if n, _, _ := c.Stats(context.Background()); n != 5 {
		t.Fatalf("expected 5 cached thumbs, got %d", n)
	}
}
