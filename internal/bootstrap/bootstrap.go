/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bootstrap wires configuration into the services shared by the
// desktop UI and the command line: logging, option lists, the thumbnail
// cache, the analysis generator and report handles.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"aeroinspect/internal/analysis"
	"aeroinspect/internal/config"
	"aeroinspect/internal/crash"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/editor"
	"aeroinspect/internal/export"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/storage"
	"aeroinspect/internal/telemetry"
)

// Services holds process wide dependencies.
type Services struct {
	Config  config.AppConfig
	Token   string
	Options domain.Options
	// Thumbs is nil when the cache could not be opened; callers fall back to
	// decoding the full image.
	Thumbs    *storage.ThumbCache
	Generator analysis.Generator
	// Telemetry is disabled unless the user opted in.
	Telemetry *telemetry.Client

	log *slog.Logger
}

// Load reads the user configuration and opens the services with the
// per-user cache directory. A broken config file falls back to the defaults.
// Crash reports are routed to the telemetry client.
func Load() *Services {
	cfg, tok, err := config.Load()
	s := New(cfg, tok, config.CacheDir())
	crash.Upload = s.Telemetry.UploadCrash
	if err != nil {
		s.log.Warn("config load failed; using defaults", slog.Any("err", err))
	}
	return s
}

// New initialises logging from cfg and opens the services. cacheDir holds
// the thumbnail database; an empty value disables the cache.
func New(cfg config.AppConfig, token, cacheDir string) *Services {
	ilog.Init(cfg.LogOptions())
	l := ilog.WithComponent("bootstrap")
	s := &Services{Config: cfg, Token: token, log: l}

	opts, err := storage.NewOptionsStore(cfg.Storage.DataDir).Load()
	if err != nil {
		l.Warn("options unreadable; using defaults", slog.Any("err", err))
		opts = storage.DefaultOptions()
	}
	s.Options = opts

	if cacheDir != "" {
		tc, err := storage.OpenThumbCache(filepath.Join(cacheDir, "thumbs"), cfg.Storage.ThumbCacheBytes, cfg.Storage.ThumbSize)
		if err != nil {
			l.Warn("thumbnail cache disabled", slog.Any("err", err))
		} else {
			s.Thumbs = tc
		}
	}

	gen := analysis.NewMock(cfg.Analysis.LatencyMs, token)
	gen.RequireToken = cfg.Analysis.RequireToken
	s.Generator = gen
	s.Telemetry = telemetry.New(telemetry.FromConfig(cfg.Telemetry))
	return s
}

// Close flushes pending telemetry and releases the thumbnail cache.
func (s *Services) Close() error {
	if s.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		s.Telemetry.Flush(ctx)
		cancel()
		s.Telemetry.Close()
		s.Telemetry = nil
	}
	if s.Thumbs == nil {
		return nil
	}
	err := s.Thumbs.Close()
	s.Thumbs = nil
	return err
}

// CreateReport initialises a new report folder at dir.
func (s *Services) CreateReport(dir, name string) (*storage.ReportHandle, error) {
	if name == "" {
		name = filepath.Base(dir)
	}
	r := domain.NewReport(name)
	r.Inspector = s.Config.General.User
	h, err := storage.InitReport(dir, r)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	h.MaxBackups = s.Config.Storage.Backups
	return h, nil
}

// OpenReport loads the report folder at dir.
func (s *Services) OpenReport(dir string) (*storage.ReportHandle, error) {
	if dir == "" {
		return nil, errors.New("report folder is required")
	}
	h, err := storage.OpenReport(dir)
	if err != nil {
		return nil, err
	}
	h.MaxBackups = s.Config.Storage.Backups
	return h, nil
}

// NewSession opens the handle's report in an editor session configured from
// the app config. Extra options are applied last.
func (s *Services) NewSession(h *storage.ReportHandle, opts ...editor.Option) *editor.Session {
	base := []editor.Option{
		editor.WithSettings(editor.SettingsFromConfig(s.Config.Editor)),
		editor.WithUser(s.Config.General.User),
		editor.WithGenerator(s.Generator),
		editor.WithResolver(h.Resolve),
	}
	return editor.New(h.Report, append(base, opts...)...)
}

// ExportFinished records an export in telemetry.
func (s *Services) ExportFinished(res export.Result) {
	s.Telemetry.Event(telemetry.EventExported, map[string]any{
		"images": len(res.Written),
		"failed": len(res.Failed),
		"pdf":    res.PDF != "",
	})
}

// AnalysisFinished records an analysis run in telemetry.
func (s *Services) AnalysisFinished(marks int) {
	s.Telemetry.Event(telemetry.EventAnalysed, map[string]any{"marks": marks})
}

// ExportOptions returns the export settings for the handle's report.
func (s *Services) ExportOptions(h *storage.ReportHandle) export.Options {
	return export.Options{
		Root:    s.Config.Export.OutputRoot,
		Quality: s.Config.Export.Quality,
		PDF:     s.Config.Export.PDF,
		Resolve: h.Resolve,
		Logger:  ilog.WithComponent("export"),
	}
}
