//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"aeroinspect/internal/analysis"
	"aeroinspect/internal/bootstrap"
	"aeroinspect/internal/crash"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/editor"
	"aeroinspect/internal/export"
	applog "aeroinspect/internal/log"
	"aeroinspect/internal/storage"
	"aeroinspect/internal/task"
	"aeroinspect/internal/telemetry"
	"aeroinspect/internal/version"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".JPG", ".JPEG", ".PNG"}

// shell is the main window and the state shared by its callbacks. All fields
// are owned by the Fyne event goroutine.
type shell struct {
	svc  *bootstrap.Services
	app  fyne.App
	w    fyne.Window
	log  *slog.Logger
	disp task.Dispatcher
	ctx  context.Context
	stop context.CancelFunc

	// h is also handed to crash recovery; Root is empty while no report is open.
	h    *storage.ReportHandle
	sess *editor.Session

	canvas  *ImageCanvas
	images  *widget.List
	status  *widget.Label
	message *widget.Label

	thumbs  map[string]image.Image
	pending map[string]bool

	name       *widget.Entry
	notes      *widget.Entry
	selects    map[domain.Field]*widget.SelectEntry
	brightness *widget.Slider
	contrast   *widget.Slider
	visible    map[domain.Author]*widget.Check
	roles      *widget.RadioGroup
	// syncing suppresses change callbacks while widgets are loaded from the session.
	syncing bool

	undoItem, redoItem *fyne.MenuItem
	recentMenu         *fyne.Menu
	mainMenu           *fyne.MainMenu
	analysing          bool
}

// Run starts the desktop UI. reportDir, when set, is opened immediately.
func Run(reportDir string) error {
	svc := bootstrap.Load()
	defer func() { _ = svc.Close() }()
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	s := &shell{
		svc:     svc,
		log:     l,
		disp:    task.DispatcherFunc(fyne.Do),
		h:       new(storage.ReportHandle),
		thumbs:  map[string]image.Image{},
		pending: map[string]bool{},
	}
	s.ctx, s.stop = context.WithCancel(context.Background())
	defer s.stop()
	defer crash.Recover(s.h, s.flushForCrash)

	s.app = app.NewWithID("aeroinspect")
	applyTheme(s.app, svc.Config.General.Theme)
	s.w = s.app.NewWindow(appTitle)
	prefs := s.app.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 900)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	s.w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	s.w.SetContent(s.build())
	s.w.SetMainMenu(s.buildMenu())
	s.bindKeys()
	s.w.SetOnDropped(s.dropped)
	s.w.SetCloseIntercept(s.closeRequested)

	if reportDir != "" {
		if err := s.open(reportDir); err != nil {
			l.Error("auto-open report failed", slog.Any("err", err))
			dialog.ShowError(err, s.w)
		}
	}
	s.refreshChrome()
	svc.Telemetry.Event(telemetry.EventStarted, map[string]any{"entry": "ui"})
	s.w.ShowAndRun()
	return nil
}

func (s *shell) flushForCrash() *domain.Report {
	if s.sess == nil {
		return nil
	}
	return s.sess.Flush()
}

// variantTheme pins the default theme to one variant.
type variantTheme struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

func (t variantTheme) Color(n fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.Theme.Color(n, t.variant)
}

func applyTheme(a fyne.App, name string) {
	switch name {
	case "light":
		a.Settings().SetTheme(variantTheme{theme.DefaultTheme(), theme.VariantLight})
	case "dark":
		a.Settings().SetTheme(variantTheme{theme.DefaultTheme(), theme.VariantDark})
	}
}

func (s *shell) build() fyne.CanvasObject {
	s.canvas = NewImageCanvas()
	s.canvas.OnChanged = s.refreshChrome
	s.status = widget.NewLabel("No report open")
	s.message = widget.NewLabel("")

	s.images = widget.NewList(
		func() int {
			if s.sess == nil {
				return 0
			}
			return len(s.sess.Report().Images)
		},
		func() fyne.CanvasObject {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(64, 48))
			return container.NewHBox(img, widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			box := o.(*fyne.Container)
			img := box.Objects[0].(*canvas.Image)
			lbl := box.Objects[1].(*widget.Label)
			if s.sess == nil || i >= len(s.sess.Report().Images) {
				return
			}
			p := s.sess.Report().Images[i]
			lbl.SetText(imageLabel(p, len(s.sess.AnnotationsOf(p))))
			img.Image = s.thumbnail(p)
			img.Refresh()
		},
	)
	s.images.OnSelected = func(id widget.ListItemID) {
		if s.sess == nil || id >= len(s.sess.Report().Images) {
			return
		}
		s.selectImage(s.sess.Report().Images[id])
	}
	addBtn := widget.NewButtonWithIcon("Add", theme.ContentAddIcon(), s.addImageDialog)
	removeBtn := widget.NewButtonWithIcon("Remove", theme.ContentRemoveIcon(), s.removeActiveImage)
	left := container.NewBorder(widget.NewLabel("Images"), container.NewGridWithColumns(2, addBtn, removeBtn), nil, nil, s.images)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), s.openDialog),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { s.save(nil) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), s.undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), s.redo),
		widget.NewToolbarAction(theme.DeleteIcon(), s.deleteSelected),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.SearchIcon(), s.analyse),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { s.withSession(func(e *editor.Session) { e.ZoomBy(1.25) }) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { s.withSession(func(e *editor.Session) { e.ZoomBy(0.8) }) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { s.withSession(func(e *editor.Session) { e.ResetView() }) }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { s.withSession(func(e *editor.Session) { e.RotateBy(90) }) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), s.exportDialog),
	)

	right := container.NewVScroll(s.buildInspector())
	right.SetMinSize(fyne.NewSize(280, 0))

	centre := container.NewHSplit(s.canvas, right)
	centre.Offset = 0.78
	split := container.NewHSplit(left, centre)
	split.Offset = 0.18
	statusBar := container.NewHBox(s.status, layout.NewSpacer(), s.message)
	return container.NewBorder(toolbar, statusBar, nil, nil, split)
}

// buildInspector creates the report metadata form, image adjustments,
// visibility filters and the role selector.
func (s *shell) buildInspector() fyne.CanvasObject {
	opts := s.svc.Options
	s.name = widget.NewEntry()
	s.name.OnChanged = func(v string) { s.setField(domain.FieldName, v) }
	s.notes = widget.NewMultiLineEntry()
	s.notes.SetMinRowsVisible(4)
	s.notes.OnChanged = func(v string) { s.setField(domain.FieldNotes, v) }

	s.selects = map[domain.Field]*widget.SelectEntry{}
	choices := map[domain.Field][]string{
		domain.FieldAircraftType: opts.AircraftTypes,
		domain.FieldTailNumber:   opts.TailNumbers,
		domain.FieldSide:         opts.Sides,
		domain.FieldReason:       opts.Reasons,
	}
	for f, list := range choices {
		e := widget.NewSelectEntry(list)
		e.OnChanged = func(v string) { s.setField(f, v) }
		s.selects[f] = e
	}
	form := widget.NewForm(
		widget.NewFormItem("Name", s.name),
		widget.NewFormItem("Aircraft", s.selects[domain.FieldAircraftType]),
		widget.NewFormItem("Tail no.", s.selects[domain.FieldTailNumber]),
		widget.NewFormItem("Side", s.selects[domain.FieldSide]),
		widget.NewFormItem("Reason", s.selects[domain.FieldReason]),
		widget.NewFormItem("Notes", s.notes),
	)

	s.brightness = widget.NewSlider(-100, 100)
	s.brightness.Step = 1
	s.brightness.OnChanged = func(v float64) {
		if !s.syncing && s.sess != nil {
			s.report(s.sess.SetBrightness(v))
		}
	}
	s.contrast = widget.NewSlider(0, 3)
	s.contrast.Step = 0.05
	s.contrast.SetValue(1)
	s.contrast.OnChanged = func(v float64) {
		if !s.syncing && s.sess != nil {
			s.report(s.sess.SetContrast(v))
		}
	}
	reset := widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), func() {
		if s.sess != nil {
			s.report(s.sess.ResetAdjustment())
			s.syncPanel()
		}
	})
	adjust := widget.NewForm(
		widget.NewFormItem("Brightness", s.brightness),
		widget.NewFormItem("Contrast", s.contrast),
	)

	s.visible = map[domain.Author]*widget.Check{}
	var checks []fyne.CanvasObject
	for _, a := range []domain.Author{domain.Inspector, domain.Verifier, domain.AI} {
		c := widget.NewCheck(roleLabel(a), func(on bool) {
			if !s.syncing && s.sess != nil {
				s.sess.SetVisible(a, on)
			}
		})
		c.SetChecked(true)
		s.visible[a] = c
		checks = append(checks, c)
	}

	s.roles = widget.NewRadioGroup([]string{roleLabel(domain.Inspector), roleLabel(domain.Verifier)}, func(v string) {
		if s.syncing || s.sess == nil || v == "" {
			return
		}
		if err := s.sess.SetActiveRole(roleFromLabel(v)); err != nil {
			dialog.ShowError(err, s.w)
			s.syncPanel()
		}
	})
	s.roles.Horizontal = true
	s.roles.Required = true
	s.roles.Disable()

	return container.NewVBox(
		widget.NewCard("Report", "", form),
		widget.NewCard("Image", "", container.NewVBox(adjust, reset)),
		widget.NewCard("Show", "", container.NewHBox(checks...)),
		widget.NewCard("Draw as", "", s.roles),
	)
}

func (s *shell) buildMenu() *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New Report…", s.newReportDialog)
	openItem := fyne.NewMenuItem("Open Report…", s.openDialog)
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	s.recentMenu = fyne.NewMenu("")
	recentItem.ChildMenu = s.recentMenu
	s.rebuildRecent()
	saveItem := fyne.NewMenuItem("Save", func() { s.save(nil) })
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	addItem := fyne.NewMenuItem("Add Image…", s.addImageDialog)
	removeItem := fyne.NewMenuItem("Remove Image", s.removeActiveImage)
	exportItem := fyne.NewMenuItem("Export…", s.exportDialog)
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierShortcutDefault}
	fileMenu := fyne.NewMenu("File", newItem, openItem, recentItem, saveItem, fyne.NewMenuItemSeparator(),
		addItem, removeItem, fyne.NewMenuItemSeparator(), exportItem)

	s.undoItem = fyne.NewMenuItem("Undo", s.undo)
	s.undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	s.redoItem = fyne.NewMenuItem("Redo", s.redo)
	s.redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}
	deleteItem := fyne.NewMenuItem("Delete Annotation", s.deleteSelected)
	editMenu := fyne.NewMenu("Edit", s.undoItem, s.redoItem, fyne.NewMenuItemSeparator(), deleteItem)

	view := func(label string, fn func(*editor.Session)) *fyne.MenuItem {
		return fyne.NewMenuItem(label, func() { s.withSession(fn) })
	}
	fitItem := view("Fit to Window", func(e *editor.Session) { e.ResetView() })
	fitItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.Key0, Modifier: fyne.KeyModifierShortcutDefault}
	viewMenu := fyne.NewMenu("View",
		view("Zoom In", func(e *editor.Session) { e.ZoomBy(1.25) }),
		view("Zoom Out", func(e *editor.Session) { e.ZoomBy(0.8) }),
		fitItem,
		fyne.NewMenuItemSeparator(),
		view("Rotate Right", func(e *editor.Session) { e.RotateBy(90) }),
		view("Rotate Left", func(e *editor.Session) { e.RotateBy(-90) }),
	)
	toolsMenu := fyne.NewMenu("Tools", fyne.NewMenuItem("Run Analysis", s.analyse))

	aboutItem := fyne.NewMenuItem("About AeroInspect", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("AeroInspect\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe)
		dialog.ShowInformation("About", info, s.w)
	})
	helpMenu := fyne.NewMenu("Help", aboutItem)

	s.mainMenu = fyne.NewMainMenu(fileMenu, editMenu, viewMenu, toolsMenu, helpMenu)
	for _, it := range []*fyne.MenuItem{openItem, saveItem, exportItem, s.undoItem, s.redoItem, fitItem} {
		it := it
		if sc, ok := it.Shortcut.(*desktop.CustomShortcut); ok {
			s.w.Canvas().AddShortcut(sc, func(fyne.Shortcut) { it.Action() })
		}
	}
	s.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { s.redo() })
	return s.mainMenu
}

// bindKeys wires the pan modifier and the delete key. Focused entries get
// key events first, so typing is unaffected.
func (s *shell) bindKeys() {
	dc, ok := s.w.Canvas().(desktop.Canvas)
	if !ok {
		return
	}
	dc.SetOnKeyDown(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeySpace:
			s.canvas.SetSpaceHeld(true)
		case fyne.KeyDelete, fyne.KeyBackspace:
			s.deleteSelected()
		case fyne.KeyEscape:
			s.w.Canvas().Unfocus()
		}
	})
	dc.SetOnKeyUp(func(e *fyne.KeyEvent) {
		if e.Name == fyne.KeySpace {
			s.canvas.SetSpaceHeld(false)
		}
	})
}

func (s *shell) withSession(fn func(*editor.Session)) {
	if s.sess != nil {
		fn(s.sess)
	}
}

// report shows errors a user can act on; a missing image is ignored.
func (s *shell) report(err error) {
	if err == nil || errors.Is(err, editor.ErrNoImage) {
		s.refreshChrome()
		return
	}
	dialog.ShowError(err, s.w)
}

func (s *shell) flash(msg string) {
	s.message.SetText(msg)
	s.log.Info(msg)
}

func (s *shell) setField(f domain.Field, v string) {
	if s.syncing || s.sess == nil {
		return
	}
	if err := s.sess.SetField(f, v); err != nil {
		s.log.Warn("set field failed", slog.String("field", string(f)), slog.Any("err", err))
	}
	s.refreshChrome()
}

// refreshChrome updates title, status bar and menu state from the session.
func (s *shell) refreshChrome() {
	if s.sess == nil {
		s.w.SetTitle(windowTitle("", false))
		s.status.SetText("No report open")
		return
	}
	r := s.sess.Report()
	s.w.SetTitle(windowTitle(r.Name, s.sess.Dirty()))
	p := s.sess.ImagePath()
	s.status.SetText(statusLine(p, r.ImageInfo[p], s.sess.Annotations(), s.sess.View().Zoom))

	undo, redo := "Undo", "Redo"
	if lbl := s.sess.UndoLabel(); lbl != "" {
		undo += " " + lbl
	}
	if lbl := s.sess.RedoLabel(); lbl != "" {
		redo += " " + lbl
	}
	if undo != s.undoItem.Label || redo != s.redoItem.Label || s.undoItem.Disabled == s.sess.CanUndo() || s.redoItem.Disabled == s.sess.CanRedo() {
		s.undoItem.Label, s.undoItem.Disabled = undo, !s.sess.CanUndo()
		s.redoItem.Label, s.redoItem.Disabled = redo, !s.sess.CanRedo()
		s.mainMenu.Refresh()
		s.images.Refresh()
	}
}

// syncPanel loads the inspector widgets from the session.
func (s *shell) syncPanel() {
	s.syncing = true
	defer func() { s.syncing = false }()
	if s.sess == nil {
		return
	}
	s.name.SetText(s.sess.Field(domain.FieldName))
	s.notes.SetText(s.sess.Field(domain.FieldNotes))
	for f, e := range s.selects {
		e.SetText(s.sess.Field(f))
	}
	adj := s.sess.Adjustment()
	s.brightness.SetValue(adj.Brightness)
	s.contrast.SetValue(adj.Contrast)
	for a, c := range s.visible {
		c.SetChecked(s.sess.Visible(a))
	}
	labels := make([]string, 0, 2)
	for _, a := range s.sess.Roles() {
		labels = append(labels, roleLabel(a))
	}
	s.roles.Options = labels
	s.roles.SetSelected(roleLabel(s.sess.ActiveRole()))
	if s.sess.IsDualRole() {
		s.roles.Enable()
	} else {
		s.roles.Disable()
	}
}

// thumbnail returns the cached thumbnail of p and loads it in the background
// on a miss.
func (s *shell) thumbnail(p string) image.Image {
	if img, ok := s.thumbs[p]; ok {
		return img
	}
	if s.svc.Thumbs == nil || s.pending[p] {
		return nil
	}
	s.pending[p] = true
	file, tc := s.h.Resolve(p), s.svc.Thumbs
	t := task.Go(s.ctx, func(ctx context.Context) (image.Image, error) {
		b, err := tc.GetOrCreate(ctx, file)
		if err != nil {
			return nil, err
		}
		return png.Decode(bytes.NewReader(b))
	})
	task.Then(t, s.disp, func(img image.Image, err error) {
		delete(s.pending, p)
		if err != nil {
			s.log.Debug("thumbnail unavailable", slog.String("image", p), slog.Any("err", err))
			s.thumbs[p] = nil
			return
		}
		s.thumbs[p] = img
		s.images.Refresh()
	})
	return nil
}

func (s *shell) prefetchThumbs() {
	if s.svc.Thumbs == nil || s.sess == nil {
		return
	}
	paths := make([]string, 0, len(s.sess.Report().Images))
	for _, p := range s.sess.Report().Images {
		paths = append(paths, s.h.Resolve(p))
	}
	tc := s.svc.Thumbs
	task.Go(s.ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, tc.Prefetch(ctx, paths, 4)
	})
}

// attach makes h the open report.
func (s *shell) attach(h *storage.ReportHandle) {
	*s.h = *h
	s.sess = s.svc.NewSession(s.h,
		editor.WithObserver(s.canvas),
		editor.WithDispatcher(s.disp),
		editor.WithLogger(applog.WithComponent("editor")),
	)
	s.canvas.SetSession(s.sess)
	clear(s.thumbs)
	clear(s.pending)
	s.images.UnselectAll()
	s.images.Refresh()
	s.syncPanel()
	s.prefetchThumbs()
	prefs := s.app.Preferences()
	prefs.SetString(recentPrefsKey, encodeRecent(pushRecent(decodeRecent(prefs.String(recentPrefsKey)), h.Root)))
	s.rebuildRecent()
	s.flash("Opened " + h.Root)
	if len(s.sess.Report().Images) > 0 {
		s.images.Select(0)
	}
	s.refreshChrome()
}

func (s *shell) open(dir string) error {
	abs, _ := filepath.Abs(dir)
	h, err := s.svc.OpenReport(abs)
	if err != nil {
		return err
	}
	s.attach(h)
	return nil
}

func (s *shell) rebuildRecent() {
	items := decodeRecent(s.app.Preferences().String(recentPrefsKey))
	s.recentMenu.Items = s.recentMenu.Items[:0]
	for _, dir := range items {
		dir := dir
		s.recentMenu.Items = append(s.recentMenu.Items, fyne.NewMenuItem(dir, func() {
			s.confirmDiscard("Open Report", func() {
				if err := s.open(dir); err != nil {
					dialog.ShowError(err, s.w)
				}
			})
		}))
	}
	if s.mainMenu != nil {
		s.mainMenu.Refresh()
	}
}

// confirmDiscard runs next directly when nothing is unsaved, otherwise after
// the user agrees to drop the changes.
func (s *shell) confirmDiscard(title string, next func()) {
	if s.sess == nil || !s.sess.Dirty() {
		next()
		return
	}
	dialog.ShowConfirm(title, "The open report has unsaved changes. Discard them?", func(ok bool) {
		if ok {
			next()
		}
	}, s.w)
}

func (s *shell) newReportDialog() {
	s.confirmDiscard("New Report", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				dialog.ShowError(err, s.w)
				return
			}
			if uri == nil {
				return
			}
			parent := uri.Path()
			nameEntry := widget.NewEntry()
			nameEntry.SetPlaceHolder("e.g. D-AIXA left wing")
			dialog.ShowForm("New Report", "Create", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Name", nameEntry),
			}, func(ok bool) {
				if !ok {
					return
				}
				name := strings.TrimSpace(nameEntry.Text)
				if name == "" {
					dialog.ShowInformation("New Report", "Please enter a report name.", s.w)
					return
				}
				h, err := s.svc.CreateReport(filepath.Join(parent, export.SanitizeName(name)), name)
				if err != nil {
					s.log.Error("create report failed", slog.Any("err", err))
					dialog.ShowError(err, s.w)
					return
				}
				s.attach(h)
			}, s.w)
		}, s.w)
		fd.Show()
	})
}

func (s *shell) openDialog() {
	s.confirmDiscard("Open Report", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				dialog.ShowError(err, s.w)
				return
			}
			if uri == nil {
				return
			}
			if err := s.open(uri.Path()); err != nil {
				s.log.Error("open report failed", slog.Any("err", err))
				dialog.ShowError(err, s.w)
			}
		}, s.w)
		fd.Show()
	})
}

func (s *shell) selectImage(p string) {
	t := s.sess.SelectImage(s.ctx, p)
	s.syncPanel()
	s.refreshChrome()
	task.Then(t, s.disp, func(_ image.Image, err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.flash(fmt.Sprintf("Could not load %s", filepath.Base(p)))
			return
		}
		s.refreshChrome()
	})
}

func (s *shell) importImages(paths []string) {
	if s.sess == nil {
		dialog.ShowInformation("Add Image", "Open or create a report first.", s.w)
		return
	}
	s.h.Report = s.sess.Report()
	var last string
	for _, src := range paths {
		rel, err := s.h.ImportImage(src)
		if err != nil {
			s.log.Error("import failed", slog.String("src", src), slog.Any("err", err))
			dialog.ShowError(err, s.w)
			continue
		}
		s.sess.AddImage(rel)
		last = rel
	}
	s.images.Refresh()
	if last != "" {
		for i, p := range s.sess.Report().Images {
			if p == last {
				s.images.Select(i)
			}
		}
	}
	s.refreshChrome()
}

func (s *shell) addImageDialog() {
	if s.sess == nil {
		dialog.ShowInformation("Add Image", "Open or create a report first.", s.w)
		return
	}
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.w)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		s.importImages([]string{path})
	}, s.w)
	fd.SetFilter(fstorage.NewExtensionFileFilter(imageExtensions))
	fd.Show()
}

func (s *shell) dropped(_ fyne.Position, uris []fyne.URI) {
	var paths []string
	for _, u := range uris {
		for _, ext := range imageExtensions {
			if u.Extension() == ext {
				paths = append(paths, u.Path())
				break
			}
		}
	}
	if len(paths) > 0 {
		s.importImages(paths)
	}
}

func (s *shell) removeActiveImage() {
	if s.sess == nil || s.sess.ImagePath() == "" {
		return
	}
	p := s.sess.ImagePath()
	dialog.ShowConfirm("Remove Image", fmt.Sprintf("Remove %s and its annotations from the report?", filepath.Base(p)), func(ok bool) {
		if !ok {
			return
		}
		s.h.Report = s.sess.Report()
		if err := s.h.RemoveImage(p); err != nil {
			s.log.Warn("remove image file failed", slog.String("image", p), slog.Any("err", err))
		}
		s.sess.RemoveImage(p)
		delete(s.thumbs, p)
		s.images.UnselectAll()
		s.images.Refresh()
		s.syncPanel()
		s.refreshChrome()
	}, s.w)
}

func (s *shell) undo() {
	if s.sess != nil {
		s.sess.Undo()
		s.syncPanel()
		s.refreshChrome()
	}
}

func (s *shell) redo() {
	if s.sess != nil {
		s.sess.Redo()
		s.syncPanel()
		s.refreshChrome()
	}
}

func (s *shell) deleteSelected() {
	if s.sess == nil || s.sess.Selected() == nil {
		return
	}
	if err := s.sess.DeleteSelected(); err != nil {
		s.flash(err.Error())
		return
	}
	s.refreshChrome()
}

func (s *shell) analyse() {
	if s.sess == nil || s.analysing {
		return
	}
	s.analysing = true
	s.flash("Running analysis…")
	t := s.sess.RunAnalysis(s.ctx)
	task.Then(t, s.disp, func(marks []domain.Annotation, err error) {
		s.analysing = false
		switch {
		case errors.Is(err, analysis.ErrUnauthorized):
			dialog.ShowInformation("Analysis", "No analysis token configured.\nStore one with: aeroinspect token set <token>", s.w)
		case errors.Is(err, editor.ErrNoImage):
			s.flash("Select an image first")
		case err != nil:
			dialog.ShowError(err, s.w)
		default:
			s.svc.AnalysisFinished(len(marks))
			s.flash(fmt.Sprintf("Analysis found %d area(s)", len(marks)))
		}
		s.refreshChrome()
	})
}

// save writes the report in the background; done, if set, receives the result.
func (s *shell) save(done func(error)) {
	if s.sess == nil || s.h.Root == "" {
		return
	}
	s.flash("Saving…")
	t := s.sess.Save(s.ctx, &storage.FileReportStore{Handle: s.h})
	task.Then(t, s.disp, func(_ struct{}, err error) {
		if err != nil {
			s.log.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, s.w)
		} else {
			s.flash("Saved " + time.Now().Format("15:04:05"))
		}
		s.refreshChrome()
		if done != nil {
			done(err)
		}
	})
}

func (s *shell) exportDialog() {
	if s.sess == nil {
		dialog.ShowInformation("Export", "No report open.", s.w)
		return
	}
	opts := s.svc.ExportOptions(s.h)
	dir := widget.NewEntry()
	dir.SetText(opts.Root)
	browse := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err == nil && uri != nil {
				dir.SetText(uri.Path())
			}
		}, s.w)
		fd.Show()
	})
	pdf := widget.NewCheck("", nil)
	pdf.SetChecked(opts.PDF)
	dialog.ShowForm("Export Report", "Export", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Folder", container.NewBorder(nil, nil, nil, browse, dir)),
		widget.NewFormItem("PDF summary", pdf),
	}, func(ok bool) {
		if !ok {
			return
		}
		opts.Root = strings.TrimSpace(dir.Text)
		opts.PDF = pdf.Checked
		prog := dialog.NewCustomWithoutButtons("Exporting", widget.NewProgressBarInfinite(), s.w)
		prog.Show()
		t := s.sess.Export(s.ctx, opts)
		task.Then(t, s.disp, func(res export.Result, err error) {
			prog.Hide()
			if err != nil {
				dialog.ShowError(err, s.w)
				return
			}
			s.svc.ExportFinished(res)
			var b strings.Builder
			fmt.Fprintf(&b, "Exported %d image(s) to %s", len(res.Written), res.Dir)
			if res.PDF != "" {
				fmt.Fprintf(&b, "\nSummary: %s", res.PDF)
			}
			if !res.OK() {
				fmt.Fprintf(&b, "\n%d image(s) skipped:", len(res.Failed))
				for _, f := range res.Failed {
					fmt.Fprintf(&b, "\n  %s", f.Error())
				}
			}
			dialog.ShowInformation("Export", b.String(), s.w)
		})
	}, s.w)
}

func (s *shell) closeRequested() {
	if s.sess == nil || !s.sess.Dirty() {
		s.quit()
		return
	}
	var d *dialog.CustomDialog
	save := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		d.Hide()
		s.save(func(err error) {
			if err == nil {
				s.quit()
			}
		})
	})
	save.Importance = widget.HighImportance
	discard := widget.NewButton("Discard", func() {
		d.Hide()
		s.quit()
	})
	cancel := widget.NewButton("Cancel", func() { d.Hide() })
	msg := widget.NewLabel(fmt.Sprintf("Save changes to %q before closing?", s.sess.Report().Name))
	d = dialog.NewCustomWithoutButtons("Unsaved changes", msg, s.w)
	d.SetButtons([]fyne.CanvasObject{cancel, discard, save})
	d.Show()
}

func (s *shell) quit() {
	sz := s.w.Canvas().Size()
	prefs := s.app.Preferences()
	prefs.SetInt("window.width", int(sz.Width))
	prefs.SetInt("window.height", int(sz.Height))
	s.stop()
	s.w.Close()
}
