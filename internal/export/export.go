/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes annotated copies of every report photo, and
// optionally a PDF summary, into a folder named after the report.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/imageinfo"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/render"

	"golang.org/x/text/unicode/norm"
)

// ErrOutputDir is returned when the output folder cannot be cleaned or created.
// Nothing is exported in that case.
var ErrOutputDir = errors.New("export: cannot prepare output folder")

// DefaultQuality is the JPEG quality used when Options.Quality is zero.
const DefaultQuality = 95

// Options configures an export run.
type Options struct {
	// Root is the parent of the per-report output folder.
	Root    string
	Quality int
	PDF     bool
	// Style overrides the per-image export style.
	Style *render.Style
	// Resolve maps report image paths to files; identity when nil.
	Resolve func(string) string
	Logger  *slog.Logger
}

// Item is one written image.
type Item struct {
	Source      string
	Output      string
	Annotations int
}

// Failure records an image that could not be exported.
type Failure struct {
	Source string
	Err    error
}

func (f Failure) Error() string { return f.Source + ": " + f.Err.Error() }

// Result summarises an export run.
type Result struct {
	Dir     string
	Written []Item
	Failed  []Failure
	PDF     string
}

// OK reports whether every image was exported.
func (r Result) OK() bool { return len(r.Failed) == 0 }

// Exporter runs exports with fixed options.
type Exporter struct {
	opts Options
}

func New(opts Options) *Exporter {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.Resolve == nil {
		opts.Resolve = func(p string) string { return p }
	}
	return &Exporter{opts: opts}
}

// OutputDir returns the folder an export of r writes to.
func (e *Exporter) OutputDir(r *domain.Report) string {
	return filepath.Join(e.opts.Root, SanitizeName(r.Name))
}

// Export recreates the output folder and writes one JPEG per report image.
// Per-image failures are logged and collected; the remaining images are still
// processed. Images are handled one after another; a cancelled ctx stops the
// run before the next image.
func (e *Exporter) Export(ctx context.Context, r *domain.Report) (Result, error) {
	l := e.opts.Logger
	if l == nil {
		l = ilog.WithComponent("export")
	}
	l = ilog.WithOperation(l, "export").With(slog.String("report", r.Name))

	if strings.TrimSpace(e.opts.Root) == "" {
		return Result{}, fmt.Errorf("%w: no output root configured", ErrOutputDir)
	}
	dir := e.OutputDir(r)
	res := Result{Dir: dir}
	if err := os.RemoveAll(dir); err != nil {
		l.Error("clean output folder failed", slog.String("dir", dir), slog.Any("err", err))
		return res, fmt.Errorf("%w: clean %s: %v", ErrOutputDir, dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create output folder failed", slog.String("dir", dir), slog.Any("err", err))
		return res, fmt.Errorf("%w: create %s: %v", ErrOutputDir, dir, err)
	}

	for i, p := range r.Images {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out := filepath.Join(dir, OutputName(i, p))
		anns := r.AnnotationsFor(p)
		if err := e.exportOne(e.opts.Resolve(p), out, r.AdjustmentFor(p), anns); err != nil {
			l.Warn("image export failed", slog.String("image", p), slog.Any("err", err))
			res.Failed = append(res.Failed, Failure{Source: p, Err: err})
			continue
		}
		res.Written = append(res.Written, Item{Source: p, Output: out, Annotations: len(anns)})
	}

	if e.opts.PDF && len(res.Written) > 0 {
		pdfPath := filepath.Join(dir, SanitizeName(r.Name)+".pdf")
		if err := WriteSummaryPDF(pdfPath, r, res.Written); err != nil {
			l.Warn("pdf summary failed", slog.Any("err", err))
			res.Failed = append(res.Failed, Failure{Source: filepath.Base(pdfPath), Err: err})
		} else {
			res.PDF = pdfPath
		}
	}
	l.Info("export finished", slog.String("dir", dir), slog.Int("written", len(res.Written)), slog.Int("failed", len(res.Failed)))
	return res, nil
}

func (e *Exporter) exportOne(src, dst string, adj domain.Adjustment, anns []domain.Annotation) (err error) {
	img, _, err := imageinfo.Decode(src)
	if err != nil {
		return err
	}
	st := render.ExportStyle(img.Bounds().Dx())
	if e.opts.Style != nil {
		st = *e.opts.Style
	}
	out := render.Composite(img, render.ClampAdjustment(adj), anns, st)

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()
	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: e.opts.Quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// OutputName returns "NN-<basename>.jpg" for the i-th image.
func OutputName(i int, src string) string {
	base := filepath.Base(filepath.FromSlash(src))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%02d-%s.jpg", i+1, SanitizeName(base))
}

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName turns s into a portable folder/file name: NFC normalised,
// characters invalid on common file systems replaced by '_', control
// characters dropped, leading/trailing dots and spaces trimmed. An empty
// result becomes "report".
func SanitizeName(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "report"
	}
	if reservedNames[strings.ToUpper(out)] {
		out = "_" + out
	}
	return out
}
