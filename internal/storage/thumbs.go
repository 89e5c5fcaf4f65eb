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
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aeroinspect/internal/imageinfo"
	ilog "aeroinspect/internal/log"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	ThumbsFileName = "thumbs.sqlite"
	// DefaultThumbSize is the longest edge of generated thumbnails.
	DefaultThumbSize = 256
)

// ThumbCache stores PNG thumbnails of photos in SQLite, keyed by absolute
// path, modification time and edge size, with LRU eviction to a byte cap.
type ThumbCache struct {
	db       *sql.DB
	capBytes int64
	size     int
	log      *slog.Logger
	now      func() time.Time
}

// OpenThumbCache opens (or creates) dir/thumbs.sqlite. capBytes <= 0 disables eviction.
func OpenThumbCache(dir string, capBytes int64, size int) (*ThumbCache, error) {
	l := ilog.WithOperation(ilog.WithComponent("storage"), "thumbs_open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if size <= 0 {
		size = DefaultThumbSize
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(filepath.Join(dir, ThumbsFileName)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS thumbs (
			key         TEXT PRIMARY KEY,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			blob        BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			updated_at  TEXT    NOT NULL,
			last_access INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			l.Error("thumb cache init failed", slog.Any("err", err))
			return nil, fmt.Errorf("init thumb cache: %w", err)
		}
	}
	return &ThumbCache{db: db, capBytes: capBytes, size: size, log: l, now: time.Now}, nil
}

func (c *ThumbCache) Close() error { return c.db.Close() }

// Size is the thumbnail edge length.
func (c *ThumbCache) Size() int { return c.size }

// Key derives the cache key for the file at path.
func (c *ThumbCache) Key(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d|%d", filepath.ToSlash(abs), st.ModTime().UnixNano(), st.Size(), c.size), nil
}

// Get returns the cached PNG for key or nil when absent.
func (c *ThumbCache) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT blob FROM thumbs WHERE key=?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE key=?`, c.now().UnixNano(), key)
	return blob, nil
}

// Put stores blob under key and evicts least recently used rows over the cap.
func (c *ThumbCache) Put(ctx context.Context, key string, w, h int, blob []byte) error {
	now := c.now()
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(key,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET w=excluded.w, h=excluded.h, blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		key, w, h, blob, len(blob), now.UTC().Format(time.RFC3339), now.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if c.capBytes > 0 {
		return c.evict(ctx)
	}
	return nil
}

// GetOrCreate returns the thumbnail of the photo at path, generating and
// caching it when missing.
func (c *ThumbCache) GetOrCreate(ctx context.Context, path string) ([]byte, error) {
	key, err := c.Key(path)
	if err != nil {
		return nil, err
	}
	if b, err := c.Get(ctx, key); err != nil || b != nil {
		return b, err
	}
	img, _, err := imageinfo.Decode(path)
	if err != nil {
		return nil, err
	}
	th := Thumbnail(img, c.size)
	var buf bytes.Buffer
	if err := png.Encode(&buf, th); err != nil {
		return nil, fmt.Errorf("encode thumb: %w", err)
	}
	if err := c.Put(ctx, key, th.Bounds().Dx(), th.Bounds().Dy(), buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Prefetch generates thumbnails for paths with at most limit decoders in
// flight. Failures are logged per file; only context cancellation is returned.
func (c *ThumbCache) Prefetch(ctx context.Context, paths []string, limit int) error {
	if limit <= 0 {
		limit = 4
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := c.GetOrCreate(ctx, p); err != nil {
				c.log.Warn("thumbnail failed", slog.String("path", p), slog.Any("err", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Stats returns the number of cached thumbnails and their total size.
func (c *ThumbCache) Stats(ctx context.Context) (int, int64, error) {
	var n int
	var total int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size),0) FROM thumbs`).Scan(&n, &total)
	return n, total, err
}

func (c *ThumbCache) evict(ctx context.Context) error {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= c.capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM thumbs ORDER BY last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []string
	for rows.Next() && total > c.capBytes {
		var key string
		var sz int64
		if err := rows.Scan(&key, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, key)
		total -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// close the cursor before writing
	if err := rows.Close(); err != nil {
		return err
	}
	for _, k := range victims {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE key=?`, k); err != nil {
			return fmt.Errorf("evict thumb: %w", err)
		}
	}
	c.log.Debug("thumbs evicted", slog.Int("count", len(victims)))
	return nil
}

// Thumbnail scales img so its longest edge is at most size pixels.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h && w > size {
		h = max(1, h*size/w)
		w = size
	} else if h > w && h > size {
		w = max(1, w*size/h)
		h = size
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
