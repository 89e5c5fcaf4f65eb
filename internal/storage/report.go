/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aeroinspect/internal/domain"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

const (
	ReportFileName = "report.json"
	BackupsDirName = "backups"
	ImagesDirName  = "images"
)

// DefaultMaxBackups is how many report backups are kept when a handle does not say otherwise.
const DefaultMaxBackups = 10

// ErrSchema wraps schema violations of a report document.
var ErrSchema = errors.New("report does not match schema")

//go:embed schema/report.schema.json
var reportSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(reportSchema)

// ReportHandle tracks a report loaded from or saved to disk.
// Root is the report directory; Path is Root/report.json.
type ReportHandle struct {
	Root       string
	Path       string
	Report     *domain.Report
	MaxBackups int
}

// InitReport creates the report directory layout at root and writes r.
func InitReport(root string, r *domain.Report) (*ReportHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	for _, d := range []string{root, filepath.Join(root, ImagesDirName), filepath.Join(root, BackupsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	if r == nil {
		r = domain.NewReport(filepath.Base(root))
	}
	h := &ReportHandle{Root: root, Path: filepath.Join(root, ReportFileName), Report: r}
	if err := SaveReport(h); err != nil {
		return nil, err
	}
	return h, nil
}

// OpenReport loads root/report.json. When the file is missing, unparsable or
// violates the schema the newest readable backup is used instead.
func OpenReport(root string) (*ReportHandle, error) {
	path := filepath.Join(root, ReportFileName)
	r, err := readReport(path)
	if err != nil {
		b, berr := openLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open report: %w; backup attempt: %v", err, berr)
		}
		r = b
	}
	return &ReportHandle{Root: root, Path: path, Report: r}, nil
}

// SaveReport validates and writes h.Report with transactional semantics,
// backing up the previous document first.
func SaveReport(h *ReportHandle) error {
	if h == nil || h.Report == nil {
		return errors.New("nil report handle")
	}
	if h.Root == "" || h.Path == "" {
		return errors.New("invalid report handle: missing paths")
	}
	h.Report.EnsureMaps()
	h.Report.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(h.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := validate(data); err != nil {
		return err
	}

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ReportFileName, stamp))
		if cerr := copyFile(h.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current report: %w", cerr)
		}
		keep := h.MaxBackups
		if keep == 0 {
			keep = DefaultMaxBackups
		}
		pruneBackups(bdir, keep)
	}

	temp := filepath.Join(filepath.Dir(h.Path), fmt.Sprintf(".%s.tmp-%d-%d", ReportFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp report: %w", werr)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(h.Path); err == nil {
		_ = os.Remove(h.Path)
	}
	if rerr := os.Rename(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace report: %w", rerr)
	}
	return nil
}

// Resolve turns a report image path into a file system path.
func (h *ReportHandle) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(h.Root, filepath.FromSlash(p))
}

// ImportImage copies src into the images folder and appends it to the report.
// The returned path is relative to the report root.
func (h *ReportHandle) ImportImage(src string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}
	name := filepath.Base(src)
	dst := filepath.Join(h.Root, ImagesDirName, name)
	ext := filepath.Ext(name)
	for i := 2; ; i++ {
		if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
			break
		}
		dst = filepath.Join(h.Root, ImagesDirName, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext))
	}
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}
	rel := filepath.ToSlash(filepath.Join(ImagesDirName, filepath.Base(dst)))
	h.Report.EnsureMaps()
	h.Report.Images = append(h.Report.Images, rel)
	return rel, nil
}

// RemoveImage drops p and its annotations/adjustment from the report and
// deletes the imported file when it lives inside the report folder.
func (h *ReportHandle) RemoveImage(p string) error {
	r := h.Report
	idx := -1
	for i, v := range r.Images {
		if v == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("image %q not in report", p)
	}
	r.Images = append(r.Images[:idx], r.Images[idx+1:]...)
	delete(r.Annotations, p)
	delete(r.Adjustments, p)
	delete(r.ImageInfo, p)
	if !filepath.IsAbs(p) {
		if err := os.Remove(h.Resolve(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", p, err)
		}
	}
	return nil
}

// FileReportStore persists a report through its handle. It satisfies the
// editor's persistence contract.
type FileReportStore struct {
	Handle *ReportHandle
}

func (s *FileReportStore) LoadReport(ctx context.Context) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := OpenReport(s.Handle.Root)
	if err != nil {
		return nil, err
	}
	s.Handle.Report = h.Report
	return h.Report, nil
}

func (s *FileReportStore) SaveReport(ctx context.Context, r *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Handle.Report = r
	return SaveReport(s.Handle)
}

// ValidateReport checks a report document against the schema.
func ValidateReport(data []byte) error { return validate(data) }

func validate(data []byte) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	return nil
}

func readReport(path string) (*domain.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validate(b); err != nil {
		return nil, err
	}
	var r domain.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	r.EnsureMaps()
	return &r, nil
}

func listBackups(bdir string) []string {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ReportFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// timestamp in name yields lexicographic order
	sort.Strings(out)
	return out
}

func pruneBackups(bdir string, keep int) {
	if keep < 0 {
		return
	}
	all := listBackups(bdir)
	for len(all) > keep {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

// openLatestBackup returns the newest backup that parses and validates.
func openLatestBackup(root string) (*domain.Report, error) {
	all := listBackups(filepath.Join(root, BackupsDirName))
	if len(all) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(all) - 1; i >= 0; i-- {
		r, err := readReport(all[i])
		if err == nil {
			return r, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no readable backup: %w", lastErr)
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
