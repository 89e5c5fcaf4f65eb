/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ilog "aeroinspect/internal/log"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppName names the per-user config, data and cache directories.
const AppName = "aeroinspect"

// AppConfig is the user-editable configuration persisted as YAML.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Editor        EditorConfig    `yaml:"editor"`
	Export        ExportConfig    `yaml:"export"`
	Analysis      AnalysisConfig  `yaml:"analysis"`
	Storage       StorageConfig   `yaml:"storage"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
	// User is the signed-in inspector name matched against report roles.
	User string `yaml:"user"`
}

type EditorConfig struct {
	HitTolerancePx float64 `yaml:"hit_tolerance_px"`
	MinRadiusPx    float64 `yaml:"min_radius_px"`
	WheelStep      float64 `yaml:"wheel_step"`
	UndoDepth      int     `yaml:"undo_depth"`
	// UndoMergeMs coalesces slider edits into one undo step.
	UndoMergeMs int `yaml:"undo_merge_ms"`
}

type ExportConfig struct {
	Quality    int    `yaml:"quality"`
	OutputRoot string `yaml:"output_root"`
	PDF        bool   `yaml:"pdf"`
}

type AnalysisConfig struct {
	LatencyMs    int  `yaml:"latency_ms"`
	RequireToken bool `yaml:"require_token"`
	// The API token is not stored on disk; it lives in the OS keychain.
}

type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	ThumbCacheBytes int64  `yaml:"thumb_cache_bytes"`
	ThumbSize       int    `yaml:"thumb_size"`
	Backups         int    `yaml:"backups"`
}

// TelemetryConfig is strictly opt-in; without URLs nothing is sent.
type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	data := DataDir()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Editor:        EditorConfig{HitTolerancePx: 6, MinRadiusPx: 5, WheelStep: 1.2, UndoDepth: 200, UndoMergeMs: 400},
		Export:        ExportConfig{Quality: 95, OutputRoot: filepath.Join(data, "exports")},
		Analysis:      AnalysisConfig{LatencyMs: 1500},
		Storage:       StorageConfig{DataDir: data, ThumbCacheBytes: 64 << 20, ThumbSize: 256, Backups: 10},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Telemetry:     TelemetryConfig{TimeoutMs: 1500},
	}
}

// Env var names used as overrides. Logging uses the AIN_LOG_* names of internal/log.
const (
	EnvUser            = "AIN_USER"
	EnvTheme           = "AIN_THEME"
	EnvHitTolerance    = "AIN_HIT_TOLERANCE_PX"
	EnvMinRadius       = "AIN_MIN_RADIUS_PX"
	EnvWheelStep       = "AIN_WHEEL_STEP"
	EnvUndoDepth       = "AIN_UNDO_DEPTH"
	EnvExportQuality   = "AIN_EXPORT_QUALITY"
	EnvExportDir       = "AIN_EXPORT_DIR"
	EnvExportPDF       = "AIN_EXPORT_PDF"
	EnvAnalysisLatency = "AIN_ANALYSIS_LATENCY_MS"
	EnvDataDir         = "AIN_DATA_DIR"
	EnvThumbCacheBytes = "AIN_THUMB_CACHE_BYTES"
	EnvTelemetryOptIn  = "AIN_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "AIN_TELEMETRY_URL"
	EnvCrashUploadURL  = "AIN_CRASH_UPLOAD_URL"
)

// ErrNoToken is returned when the keychain has no analysis token.
var ErrNoToken = errors.New("config: no analysis token stored")

// Keychain service/key for the analysis token.
const (
	keyringService = "AeroInspect"
	keyringToken   = "analysis_token"
)

// DataDir is the default per-user data directory.
func DataDir() string { return filepath.Join(xdg.DataHome, AppName) }

// CacheDir is the per-user cache directory (thumbnails).
func CacheDir() string { return filepath.Join(xdg.CacheHome, AppName) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if xdg.ConfigHome == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml"), nil
}

// Load reads .env (if any), the user config file and environment overrides.
// The analysis token is read from the keychain and returned separately; a
// missing token is not an error.
func Load() (AppConfig, string, error) {
	_ = godotenv.Load()
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, "", err
	}
	tok, err := Token()
	if err != nil && !errors.Is(err, ErrNoToken) {
		ilog.WithComponent("config").Debug("keychain unavailable", "err", err)
	}
	return cfg, tok, nil
}

// LoadFrom reads the YAML file at path over the defaults and applies
// environment overrides. A missing file yields the defaults.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			cfg = Defaults()
			applyEnvOverrides(&cfg)
			cfg.normalize()
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to the per-user path and stores token in the
// keychain when it is non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := SaveTo(path, cfg); err != nil {
		return err
	}
	if token != "" {
		return SetToken(token)
	}
	return nil
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Token reads the analysis token from the OS keychain.
func Token() (string, error) {
	tok, err := keyring.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return tok, err
}

func SetToken(tok string) error { return keyring.Set(keyringService, keyringToken, tok) }

// DeleteToken removes the stored token; deleting a missing token is not an error.
func DeleteToken() error {
	if err := keyring.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// normalize repairs out-of-range values so a hand-edited file cannot break the editor.
func (c *AppConfig) normalize() {
	d := Defaults()
	if c.Editor.HitTolerancePx < 0 {
		c.Editor.HitTolerancePx = d.Editor.HitTolerancePx
	}
	if c.Editor.MinRadiusPx < 0 {
		c.Editor.MinRadiusPx = d.Editor.MinRadiusPx
	}
	if c.Editor.WheelStep <= 1 {
		c.Editor.WheelStep = d.Editor.WheelStep
	}
	if c.Editor.UndoDepth < 0 {
		c.Editor.UndoDepth = 0
	}
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		c.Export.Quality = d.Export.Quality
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	if strings.TrimSpace(c.Export.OutputRoot) == "" {
		c.Export.OutputRoot = filepath.Join(c.Storage.DataDir, "exports")
	}
	if c.Storage.ThumbSize <= 0 {
		c.Storage.ThumbSize = d.Storage.ThumbSize
	}
	if c.Telemetry.TimeoutMs <= 0 {
		c.Telemetry.TimeoutMs = d.Telemetry.TimeoutMs
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

type envBinding struct {
	key   string
	env   string
	apply func(*AppConfig, string)
}

func setFloat(dst *float64) func(string) {
	return func(v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int) func(string) {
	return func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

var envBindings = []envBinding{
	{"general.user", EnvUser, func(c *AppConfig, v string) { c.General.User = v }},
	{"general.theme", EnvTheme, func(c *AppConfig, v string) { c.General.Theme = strings.ToLower(v) }},
	{"editor.hit_tolerance_px", EnvHitTolerance, func(c *AppConfig, v string) { setFloat(&c.Editor.HitTolerancePx)(v) }},
	{"editor.min_radius_px", EnvMinRadius, func(c *AppConfig, v string) { setFloat(&c.Editor.MinRadiusPx)(v) }},
	{"editor.wheel_step", EnvWheelStep, func(c *AppConfig, v string) { setFloat(&c.Editor.WheelStep)(v) }},
	{"editor.undo_depth", EnvUndoDepth, func(c *AppConfig, v string) { setInt(&c.Editor.UndoDepth)(v) }},
	{"export.quality", EnvExportQuality, func(c *AppConfig, v string) { setInt(&c.Export.Quality)(v) }},
	{"export.output_root", EnvExportDir, func(c *AppConfig, v string) { c.Export.OutputRoot = v }},
	{"export.pdf", EnvExportPDF, func(c *AppConfig, v string) { c.Export.PDF = parseBool(v) }},
	{"analysis.latency_ms", EnvAnalysisLatency, func(c *AppConfig, v string) { setInt(&c.Analysis.LatencyMs)(v) }},
	{"storage.data_dir", EnvDataDir, func(c *AppConfig, v string) { c.Storage.DataDir = v }},
	{"storage.thumb_cache_bytes", EnvThumbCacheBytes, func(c *AppConfig, v string) {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Storage.ThumbCacheBytes = n
		}
	}},
	{"telemetry.opt_in", EnvTelemetryOptIn, func(c *AppConfig, v string) { c.Telemetry.OptIn = parseBool(v) }},
	{"telemetry.events_url", EnvTelemetryURL, func(c *AppConfig, v string) { c.Telemetry.EventsURL = v }},
	{"telemetry.crash_url", EnvCrashUploadURL, func(c *AppConfig, v string) { c.Telemetry.CrashURL = v }},
	{"logging.level", ilog.EnvLevel, func(c *AppConfig, v string) { c.Logging.Level = v }},
	{"logging.format", ilog.EnvFormat, func(c *AppConfig, v string) { c.Logging.Format = v }},
	{"logging.source", ilog.EnvSource, func(c *AppConfig, v string) { c.Logging.Source = parseBool(v) }},
	{"logging.file", ilog.EnvFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.env)); v != "" {
			b.apply(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range envBindings {
		if b.key == key && os.Getenv(b.env) != "" {
			return b.env, true
		}
	}
	return "", false
}

// LogOptions converts the logging section for internal/log.
func (c AppConfig) LogOptions() ilog.Options {
	return ilog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}
