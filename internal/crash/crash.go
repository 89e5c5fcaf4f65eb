/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave snapshot of
// the open report, then exits.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"aeroinspect/internal/domain"
	applog "aeroinspect/internal/log"
	"aeroinspect/internal/storage"
	"aeroinspect/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Upload, when set, receives the crash report text, e.g. an opt-in
// telemetry.Client.UploadCrash.
var Upload func(report []byte) error

// Recover captures a panic, logs it with the stack, writes a crash report and
// snapshots the report held by h. flush, when set, is asked for the latest
// in-memory report first (e.g. Session.Flush).
//
// Usage: defer crash.Recover(h, sess.Flush)
func Recover(h *storage.ReportHandle, flush func() *domain.Report) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	text := formatReport(h, r, stack)
	reportPath, err := writeReport(h, text)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if Upload != nil {
		if err := Upload(text); err != nil {
			l.Warn("crash upload failed", slog.Any("err", err))
		}
	}
	if h != nil {
		if flush != nil {
			if rep := safeFlush(flush); rep != nil {
				h.Report = rep
			}
		}
		if path, err := storage.AutosaveCrashSnapshot(h); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// safeFlush returns nil if flush itself panics; the state is then too broken
// to snapshot and the handle's last report is used instead.
func safeFlush(flush func() *domain.Report) (r *domain.Report) {
	defer func() {
		if recover() != nil {
			r = nil
		}
	}()
	return flush()
}

func formatReport(h *storage.ReportHandle, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "AeroInspect Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h != nil {
		fmt.Fprintf(&buf, "ReportRoot: %s\n", h.Root)
		fmt.Fprintf(&buf, "ReportFile: %s\n", h.Path)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)
	return buf.Bytes()
}

func writeReport(h *storage.ReportHandle, text []byte) (string, error) {
	dir := os.TempDir()
	if h != nil && h.Root != "" {
		dir = filepath.Join(h.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(text); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
