/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"aeroinspect/internal/bootstrap"
	"aeroinspect/internal/config"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/storage"
)

// useTestServices points the commands at a throwaway configuration.
func useTestServices(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Export.OutputRoot = filepath.Join(t.TempDir(), "exports")
	cfg.General.User = "alice"
	cfg.Analysis.LatencyMs = 0
	cfg.Logging.Level = "error"
	prev := loadServices
	loadServices = func() *bootstrap.Services { return bootstrap.New(cfg, "", "") }
	t.Cleanup(func() { loadServices = prev })
	return cfg
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{120, 130, 140, 255})
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return p
}

func TestRootCommandsRegistered(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "add", "info", "analyze", "export", "token", "ui", "version"} {
		assert.Contains(t, names, want)
	}
	assert.True(t, cmd.SilenceUsage)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "AeroInspect "))
}

func TestInitAddInfo(t *testing.T) {
	useTestServices(t)
	dir := filepath.Join(t.TempDir(), "wing")

	out, _, err := run(t, nil, "init", dir, "Left wing", "--verifier", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, `Created report "Left wing"`)

	src := writePNG(t, t.TempDir(), "panel.png")
	out, _, err = run(t, nil, "add", dir, src)
	require.NoError(t, err)
	assert.Contains(t, out, "Added images/panel.png")

	h, err := storage.OpenReport(dir)
	require.NoError(t, err)
	assert.Equal(t, "alice", h.Report.Inspector)
	assert.Equal(t, "bob", h.Report.Verifier)
	assert.Equal(t, 64, h.Report.ImageInfo["images/panel.png"].Width)

	out, _, err = run(t, nil, "info", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Report:     Left wing")
	assert.Contains(t, out, "Images:     1")
	assert.Contains(t, out, "images/panel.png  inspector 0  verifier 0  ai 0")
}

func TestInitRequiresDir(t *testing.T) {
	_, _, err := run(t, nil, "init")
	assert.Error(t, err)
}

func TestInfoMissingReport(t *testing.T) {
	_, _, err := run(t, nil, "info", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestAnalyzeStoresAIMarks(t *testing.T) {
	useTestServices(t)
	dir := filepath.Join(t.TempDir(), "r")
	_, _, err := run(t, nil, "init", dir)
	require.NoError(t, err)
	src := writePNG(t, t.TempDir(), "a.png")
	_, _, err = run(t, nil, "add", dir, src)
	require.NoError(t, err)

	out, _, err := run(t, nil, "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "images/a.png: 3 area(s)")

	h, err := storage.OpenReport(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Report.CountByAuthor("images/a.png")[domain.AI])

	_, _, err = run(t, nil, "analyze", dir, "images/missing.png")
	assert.Error(t, err)
}

func TestExportWritesImagesAndPDF(t *testing.T) {
	cfg := useTestServices(t)
	dir := filepath.Join(t.TempDir(), "r")
	_, _, err := run(t, nil, "init", dir, "Nose")
	require.NoError(t, err)
	src := writePNG(t, t.TempDir(), "a.png")
	_, _, err = run(t, nil, "add", dir, src)
	require.NoError(t, err)

	out, _, err := run(t, nil, "export", dir, "--pdf", "-q", "80")
	require.NoError(t, err)
	want := filepath.Join(cfg.Export.OutputRoot, "Nose")
	assert.Contains(t, out, "Exported 1 image(s) to "+want)
	assert.FileExists(t, filepath.Join(want, "01-a.jpg"))
	assert.FileExists(t, filepath.Join(want, "Nose.pdf"))

	other := t.TempDir()
	_, _, err = run(t, nil, "export", dir, "--out", other)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "Nose", "01-a.jpg"))
}

func TestExportReportsSkippedImages(t *testing.T) {
	useTestServices(t)
	dir := filepath.Join(t.TempDir(), "r")
	_, _, err := run(t, nil, "init", dir, "Tail")
	require.NoError(t, err)
	src := writePNG(t, t.TempDir(), "a.png")
	_, _, err = run(t, nil, "add", dir, src)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "images", "a.png")))

	_, stderr, err := run(t, nil, "export", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 image(s)")
	assert.Contains(t, stderr, "skipped images/a.png")
}

func TestTokenCommands(t *testing.T) {
	keyring.MockInit()

	out, _, err := run(t, nil, "token", "status")
	require.NoError(t, err)
	assert.Equal(t, "No token stored\n", out)

	_, _, err = run(t, strings.NewReader("  secret\n"), "token", "set")
	require.NoError(t, err)
	tok, err := config.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	out, _, err = run(t, nil, "token", "status")
	require.NoError(t, err)
	assert.Equal(t, "Token stored\n", out)

	_, _, err = run(t, nil, "token", "delete")
	require.NoError(t, err)
	_, err = config.Token()
	assert.ErrorIs(t, err, config.ErrNoToken)

	_, _, err = run(t, strings.NewReader("\n"), "token", "set")
	assert.Error(t, err)
}
