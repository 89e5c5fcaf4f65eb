/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, formatReport(nil, "boom", []byte("stacktrace")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "AeroInspect Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInBackups(t *testing.T) {
	root := t.TempDir()
	h := &storage.ReportHandle{Root: root, Path: filepath.Join(root, storage.ReportFileName)}

	path, err := writeReport(h, formatReport(h, "kaboom", []byte("stack")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(root, storage.BackupsDirName)) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "ReportFile: "+h.Path) {
		t.Fatalf("report path missing: %s", b)
	}
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := new(int)
	old := exitFn
	exitFn = func(c int) { *code = c }
	t.Cleanup(func() { exitFn = old })
	return code
}

func findFile(t *testing.T, dir, prefix, suffix string) string {
	t.Helper()
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), suffix) {
			return filepath.Join(dir, f.Name())
		}
	}
	t.Fatalf("no %s*%s in %s", prefix, suffix, dir)
	return ""
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)

	root := t.TempDir()
	h := &storage.ReportHandle{Root: root, Path: filepath.Join(root, storage.ReportFileName), Report: domain.NewReport("old")}
	flushed := domain.NewReport("latest")

	func() {
		defer Recover(h, func() *domain.Report { return flushed })
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	bdir := filepath.Join(root, storage.BackupsDirName)
	b, err := os.ReadFile(findFile(t, bdir, "crash-", ".log"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", b)
	}

	snap, err := os.ReadFile(findFile(t, bdir, storage.ReportFileName+".crash-", ".json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got domain.Report
	if err := json.Unmarshal(snap, &got); err != nil {
		t.Fatalf("snapshot json: %v", err)
	}
	if got.Name != "latest" {
		t.Fatalf("snapshot should hold the flushed report, got %q", got.Name)
	}
}

func TestRecoverSurvivesPanickingFlush(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)

	root := t.TempDir()
	h := &storage.ReportHandle{Root: root, Report: domain.NewReport("kept")}
	func() {
		defer Recover(h, func() *domain.Report { panic("flush broke") })
		panic("boom")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	if h.Report.Name != "kept" {
		t.Fatalf("handle report replaced: %q", h.Report.Name)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code := interceptExit(t)
	*code = -1
	func() {
		defer Recover(nil, nil)
	}()
	if *code != -1 {
		t.Fatalf("exit called without panic")
	}
}

func TestRecoverUploadsReport(t *testing.T) {
	silenceStderr(t)
	interceptExit(t)

	var got []byte
	Upload = func(b []byte) error {
		got = append([]byte(nil), b...)
		return nil
	}
	t.Cleanup(func() { Upload = nil })

	func() {
		defer Recover(&storage.ReportHandle{Root: t.TempDir()}, nil)
		panic("upload me")
	}()
	if !bytes.Contains(got, []byte("Panic: upload me")) {
		t.Fatalf("uploaded report missing panic: %q", got)
	}
}
