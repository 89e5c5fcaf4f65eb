/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the view-model behind the inspection canvas: it owns the
// open report, the active image with its annotation store and undo history,
// the view transform and the pointer interaction state machine.
//
// A Session is not safe for concurrent use. All methods must be called from
// the thread that owns it; background work (decode, analysis, save, export)
// hands its results back through the configured task.Dispatcher.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"aeroinspect/internal/analysis"
	"aeroinspect/internal/annotation"
	"aeroinspect/internal/config"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/export"
	"aeroinspect/internal/imageinfo"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/render"
	"aeroinspect/internal/task"
	"aeroinspect/internal/undo"
	"aeroinspect/internal/vector"
)

var (
	// ErrNotEditable is returned when the active role may not modify an annotation.
	ErrNotEditable = errors.New("editor: annotation not editable by active role")
	// ErrNoImage is returned by operations that need an active image.
	ErrNoImage = errors.New("editor: no image selected")
	// ErrRoleNotAllowed is returned when the user does not hold the requested role.
	ErrRoleNotAllowed = errors.New("editor: role not allowed for user")
	ErrUnknownField   = errors.New("editor: unknown report field")
)

// Observer is told when the rendered frame is out of date.
type Observer interface {
	Invalidate()
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func()

func (f ObserverFunc) Invalidate() { f() }

// ReportStore persists a whole report.
type ReportStore interface {
	LoadReport(ctx context.Context) (*domain.Report, error)
	SaveReport(ctx context.Context, r *domain.Report) error
}

// Decoder loads a full resolution bitmap.
type Decoder func(path string) (image.Image, error)

func decodeFile(path string) (image.Image, error) {
	img, _, err := imageinfo.Decode(path)
	return img, err
}

// Settings are the interaction tunables.
type Settings struct {
	// HitTolerancePx is the pick margin in screen pixels.
	HitTolerancePx float64
	// MinRadiusPx is the smallest committed radius in image pixels.
	MinRadiusPx float64
	WheelStep   float64
	UndoDepth   int
	UndoMerge   time.Duration
}

func DefaultSettings() Settings {
	return Settings{HitTolerancePx: 6, MinRadiusPx: 5, WheelStep: 1.2, UndoDepth: 200, UndoMerge: 400 * time.Millisecond}
}

// SettingsFromConfig maps the editor section of the app config.
func SettingsFromConfig(c config.EditorConfig) Settings {
	s := DefaultSettings()
	if c.HitTolerancePx >= 0 {
		s.HitTolerancePx = c.HitTolerancePx
	}
	if c.MinRadiusPx >= 0 {
		s.MinRadiusPx = c.MinRadiusPx
	}
	if c.WheelStep > 1 {
		s.WheelStep = c.WheelStep
	}
	if c.UndoDepth >= 0 {
		s.UndoDepth = c.UndoDepth
	}
	if c.UndoMergeMs >= 0 {
		s.UndoMerge = time.Duration(c.UndoMergeMs) * time.Millisecond
	}
	return s
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

// WithObserver registers the repaint observer.
func WithObserver(o Observer) Option { return func(s *Session) { s.obs = o } }

// WithDispatcher sets where background results are applied. Defaults to task.Immediate.
func WithDispatcher(d task.Dispatcher) Option { return func(s *Session) { s.disp = d } }

func WithDecoder(d Decoder) Option { return func(s *Session) { s.decode = d } }

// WithGenerator sets the annotation generator used by RunAnalysis.
func WithGenerator(g analysis.Generator) Option { return func(s *Session) { s.gen = g } }

func WithSettings(st Settings) Option { return func(s *Session) { s.set = st } }

// WithUser sets the signed-in user; the report's inspector/verifier fields
// decide which roles the user may act as.
func WithUser(u string) Option { return func(s *Session) { s.user = u } }

// WithResolver maps report image paths to files, e.g. ReportHandle.Resolve.
func WithResolver(fn func(string) string) Option { return func(s *Session) { s.resolve = fn } }

// WithClock replaces time.Now for undo coalescing.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Mode is the interaction state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawing
	ModePanning
)

func (m Mode) String() string {
	switch m {
	case ModeDrawing:
		return "drawing"
	case ModePanning:
		return "panning"
	}
	return "idle"
}

// Session is one open report.
type Session struct {
	log     *slog.Logger
	obs     Observer
	disp    task.Dispatcher
	decode  Decoder
	gen     analysis.Generator
	set     Settings
	user    string
	resolve func(string) string
	now     func() time.Time

	report *domain.Report
	anns   map[string][]domain.Annotation
	adjust map[string]domain.Adjustment

	path   string
	bitmap image.Image
	// loadSeq identifies the latest SelectImage call; stale decodes are dropped.
	loadSeq int
	store   *annotation.Store
	stack   *undo.Stack
	view    vector.View
	cache   render.FilterCache

	mode      Mode
	preview   *domain.Annotation
	anchor    vector.Pt // drawing: fixed centre in image fractions; panning: screen start
	panOrigin vector.Pt
	space     bool

	active  domain.Author
	visible map[domain.Author]bool

	// baseDirty covers unsaved changes the current history cannot undo,
	// e.g. edits on previously active images.
	baseDirty bool
	rev       uint64
}

// New opens r for editing. r is taken over by the session; use Flush to get
// the up-to-date report.
func New(r *domain.Report, opts ...Option) *Session {
	if r == nil {
		r = domain.NewReport("")
	}
	r.EnsureMaps()
	s := &Session{
		disp:    task.Immediate{},
		decode:  decodeFile,
		set:     DefaultSettings(),
		resolve: func(p string) string { return p },
		now:     time.Now,
		report:  r,
		anns:    make(map[string][]domain.Annotation, len(r.Annotations)),
		adjust:  make(map[string]domain.Adjustment, len(r.Adjustments)),
		store:   annotation.NewStore(nil),
		visible: map[domain.Author]bool{domain.Inspector: true, domain.Verifier: true, domain.AI: true},
		active:  domain.Inspector,
		view:    vector.View{Zoom: 1},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = ilog.WithComponent("editor")
	}
	for k, v := range r.Annotations {
		s.anns[k] = append([]domain.Annotation(nil), v...)
	}
	for k, v := range r.Adjustments {
		s.adjust[k] = v
	}
	if roles := r.RolesFor(s.user); len(roles) > 0 {
		s.active = roles[0]
	}
	s.stack = undo.NewStack(undo.Config{MaxDepth: s.set.UndoDepth, MinInterval: s.set.UndoMerge, Now: s.now})
	return s
}

// Load reads the report from store and opens it.
func Load(ctx context.Context, store ReportStore, opts ...Option) (*Session, error) {
	r, err := store.LoadReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return New(r, opts...), nil
}

func (s *Session) invalidate() {
	if s.obs != nil {
		s.obs.Invalidate()
	}
}

// touch records a modification for save bookkeeping.
func (s *Session) touch() { s.rev++ }

// Report returns the live report. Call Flush first to include session edits.
func (s *Session) Report() *domain.Report { return s.report }
func (s *Session) ImagePath() string      { return s.path }
func (s *Session) Bitmap() image.Image    { return s.bitmap }
func (s *Session) Mode() Mode             { return s.mode }
func (s *Session) View() vector.View      { return s.view }
func (s *Session) SpaceHeld() bool        { return s.space }

// Preview returns the in-progress annotation while drawing.
func (s *Session) Preview() *domain.Annotation { return s.preview }

func (s *Session) Selected() *domain.Annotation { return s.store.Selected() }

// Annotations returns the active image's annotations in z-order.
func (s *Session) Annotations() []*domain.Annotation { return s.store.All() }

func (s *Session) CanUndo() bool      { return s.stack.CanUndo() }
func (s *Session) CanRedo() bool      { return s.stack.CanRedo() }
func (s *Session) UndoLabel() string  { return s.stack.UndoLabel() }
func (s *Session) RedoLabel() string  { return s.stack.RedoLabel() }
func (s *Session) Settings() Settings { return s.set }

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.baseDirty || !s.stack.IsClean() }

// Adjustment returns the active image's adjustment.
func (s *Session) Adjustment() domain.Adjustment { return s.adjustmentOf(s.path) }

func (s *Session) adjustmentOf(path string) domain.Adjustment {
	if a, ok := s.adjust[path]; ok {
		return a
	}
	return domain.DefaultAdjustment()
}

// AnnotationsOf returns the session's annotations for any report image.
func (s *Session) AnnotationsOf(path string) []domain.Annotation {
	if path == s.path {
		return s.store.Values()
	}
	return append([]domain.Annotation(nil), s.anns[path]...)
}

// SelectImage makes path the active image. Annotations switch immediately;
// the bitmap is decoded in the background and applied through the
// dispatcher. Undo history does not cross images.
func (s *Session) SelectImage(ctx context.Context, path string) *task.Task[image.Image] {
	if !s.report.HasImage(path) {
		return task.Done[image.Image](nil, fmt.Errorf("%w: %s is not part of the report", ErrNoImage, path))
	}
	l := ilog.WithOperation(s.log, "select").With(slog.String("image", path))
	s.leaveImage()
	s.path = path
	s.store = annotation.NewStore(s.anns[path])
	s.bitmap = nil
	s.cache.Reset()
	s.loadSeq++
	seq := s.loadSeq
	s.invalidate()

	file := s.resolve(path)
	_, hasInfo := s.report.ImageInfo[path]
	var (
		info   domain.ImageInfo
		infoOK bool
	)
	t := task.Go(ctx, func(context.Context) (image.Image, error) {
		img, err := s.decode(file)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		if !hasInfo {
			if i, err := imageinfo.Read(file); err == nil {
				info, infoOK = i, true
			}
		}
		return img, nil
	})
	return task.Then(t, s.disp, func(img image.Image, err error) {
		if seq != s.loadSeq {
			l.Debug("discarding stale decode")
			return
		}
		if err != nil {
			l.Error("image load failed", slog.Any("err", err))
			return
		}
		s.bitmap = img
		b := img.Bounds()
		s.view.Image = vector.Size{W: float64(b.Dx()), H: float64(b.Dy())}
		s.view.Fit()
		if infoOK {
			s.report.ImageInfo[path] = info
		}
		l.Debug("image loaded", slog.Int("w", b.Dx()), slog.Int("h", b.Dy()))
		s.invalidate()
	})
}

// AddImage appends path to the report unless it is already listed (e.g.
// imported through storage.ReportHandle.ImportImage). The report becomes dirty.
func (s *Session) AddImage(path string) {
	if !s.report.HasImage(path) {
		s.report.Images = append(s.report.Images, path)
	}
	s.baseDirty = true
	s.touch()
}

// RemoveImage drops path with its annotations and adjustment. Removing the
// active image clears the canvas.
func (s *Session) RemoveImage(path string) {
	if i := slices.Index(s.report.Images, path); i >= 0 {
		s.report.Images = slices.Delete(s.report.Images, i, i+1)
	}
	delete(s.report.ImageInfo, path)
	if path == s.path {
		s.leaveImage()
		s.path = ""
		s.bitmap = nil
		s.store = annotation.NewStore(nil)
		s.view = vector.View{Zoom: 1, Canvas: s.view.Canvas}
		s.cache.Reset()
		s.loadSeq++
		s.invalidate()
	}
	delete(s.anns, path)
	delete(s.adjust, path)
	s.baseDirty = true
	s.touch()
}

// leaveImage stores the active image's annotations and drops its history.
func (s *Session) leaveImage() {
	if s.path != "" {
		s.anns[s.path] = s.store.Values()
	}
	if !s.stack.IsClean() {
		s.baseDirty = true
	}
	s.stack.Clear()
	s.mode = ModeIdle
	s.preview = nil
}

// Flush writes the session's annotations and adjustments into the report and
// returns it.
func (s *Session) Flush() *domain.Report {
	if s.path != "" {
		s.anns[s.path] = s.store.Values()
	}
	r := s.report
	r.Annotations = make(map[string][]domain.Annotation, len(s.anns))
	for k, v := range s.anns {
		if len(v) > 0 {
			r.Annotations[k] = append([]domain.Annotation(nil), v...)
		}
	}
	r.Adjustments = make(map[string]domain.Adjustment, len(s.adjust))
	for k, v := range s.adjust {
		if !v.IsIdentity() {
			r.Adjustments[k] = v
		}
	}
	return r
}

// Snapshot returns a deep copy of the flushed report, safe to hand to
// background work.
func (s *Session) Snapshot() *domain.Report { return cloneReport(s.Flush()) }

func cloneReport(r *domain.Report) *domain.Report {
	c := *r
	c.Images = append([]string{}, r.Images...)
	c.Annotations = make(map[string][]domain.Annotation, len(r.Annotations))
	for k, v := range r.Annotations {
		c.Annotations[k] = append([]domain.Annotation(nil), v...)
	}
	c.Adjustments = make(map[string]domain.Adjustment, len(r.Adjustments))
	for k, v := range r.Adjustments {
		c.Adjustments[k] = v
	}
	c.ImageInfo = make(map[string]domain.ImageInfo, len(r.ImageInfo))
	for k, v := range r.ImageInfo {
		c.ImageInfo[k] = v
	}
	return &c
}

// Save writes the report through store in the background. The session
// becomes clean when the save succeeds and nothing changed meanwhile.
func (s *Session) Save(ctx context.Context, store ReportStore) *task.Task[struct{}] {
	l := ilog.WithOperation(s.log, "save")
	snap := s.Snapshot()
	snap.UpdatedAt = s.now().UTC()
	rev := s.rev
	t := task.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, store.SaveReport(ctx, snap)
	})
	return task.Then(t, s.disp, func(_ struct{}, err error) {
		if err != nil {
			l.Error("save failed", slog.Any("err", err))
			return
		}
		s.report.UpdatedAt = snap.UpdatedAt
		if s.rev != rev {
			l.Info("report changed while saving; staying dirty")
			return
		}
		s.baseDirty = false
		s.stack.MarkClean()
		l.Info("report saved", slog.String("report", snap.Name))
	})
}

// Export runs the export pipeline on a snapshot of the report in the background.
func (s *Session) Export(ctx context.Context, opts export.Options) *task.Task[export.Result] {
	if opts.Resolve == nil {
		opts.Resolve = s.resolve
	}
	if opts.Logger == nil {
		opts.Logger = ilog.WithComponent("export")
	}
	snap := s.Snapshot()
	ex := export.New(opts)
	l := ilog.WithOperation(s.log, "export")
	t := task.Go(ctx, func(ctx context.Context) (export.Result, error) {
		return ex.Export(ctx, snap)
	})
	return task.Then(t, s.disp, func(res export.Result, err error) {
		if err != nil {
			l.Error("export failed", slog.Any("err", err))
			return
		}
		if !res.OK() {
			l.Warn("export finished with failures", slog.Int("failed", len(res.Failed)))
		}
	})
}
