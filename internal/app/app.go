// Package app implements the main loop: window, input, viewer and the
// sections file watcher.
package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/scrollmorph/internal/config"
	"github.com/Faultbox/scrollmorph/internal/engine/capture"
	"github.com/Faultbox/scrollmorph/internal/engine/input"
	"github.com/Faultbox/scrollmorph/internal/engine/renderer"
	"github.com/Faultbox/scrollmorph/internal/engine/window"
	"github.com/Faultbox/scrollmorph/internal/logger"
	"github.com/Faultbox/scrollmorph/internal/mesh"
	"github.com/Faultbox/scrollmorph/internal/morph"
	"github.com/Faultbox/scrollmorph/internal/section"
	"github.com/Faultbox/scrollmorph/internal/viewer"
)

// Title is the window title prefix.
const Title = "ScrollMorph"

var clearColor = [4]float32{0.02, 0.02, 0.04, 1}

// App is the running viewer application.
type App struct {
	cfg *config.Config
	log *zap.Logger

	window  *window.Window
	input   *input.Input
	loader  mesh.Loader
	backend *renderer.Particles
	viewer  *viewer.Viewer

	sections []section.Descriptor
	scroll   morph.Scroll
	title    string

	shots       *capture.Screenshots
	wantCapture bool

	watcher *section.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	running bool
}

// New loads the sections file, opens the window and starts loading models.
func New(cfg *config.Config) (*App, error) {
	log := logger.Named("app")

	sections, err := section.LoadFile(cfg.Data.SectionsFile)
	if err != nil {
		return nil, err
	}
	log.Info("sections loaded",
		zap.String("path", cfg.Data.SectionsFile),
		zap.Int("count", len(sections)),
	)

	a := &App{
		cfg:    cfg,
		log:    log,
		loader: mesh.NewCachingLoader(mesh.NewGLTFLoader(cfg.Data.ModelRoot)),
		input:  input.New(input.Scroll{Wheel: cfg.Viewer.ScrollStep}),
		shots:  capture.New(cfg.Data.ScreenshotDir, "scrollmorph"),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	// Create window (this also creates OpenGL context)
	a.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
		HighDPI:    cfg.Graphics.MaxDPR > 1,
	})
	if err != nil {
		a.cancel()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	if err := a.rebuild(sections); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Viewer.Watch {
		a.watcher, err = section.NewWatcher(cfg.Data.SectionsFile, 0)
		if err != nil {
			log.Warn("sections hot reload disabled", zap.Error(err))
		} else {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.watcher.Run(a.ctx)
			}()
		}
	}

	log.Info("app initialized")
	return a, nil
}

// rebuild replaces the viewer and its GPU resources with one for sections.
func (a *App) rebuild(sections []section.Descriptor) error {
	opts, err := viewerOptions(a.cfg, sections)
	if err != nil {
		return err
	}

	w, h := a.window.DrawableSize()
	backend, err := renderer.New(renderer.Config{Width: w, Height: h, ClearColor: clearColor})
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	opts.Loader = a.loader
	opts.Backend = backend
	opts.Width, opts.Height = w, h
	opts.OnModelLoaded = func(loaded, total int) {
		a.setTitle(loadingTitle(loaded, total))
	}

	v, err := viewer.New(opts)
	if err != nil {
		backend.Dispose()
		return fmt.Errorf("failed to create viewer: %w", err)
	}

	// The old viewer keeps drawing until its replacement exists.
	if a.viewer != nil {
		a.viewer.Close()
	}
	a.viewer = v
	a.backend = backend
	a.sections = sections

	_, sh := a.window.GetSize()
	a.scroll.SetRange(scrollRange(len(sections), sh))
	v.SetScroll(a.scroll.Fraction())
	v.Start(a.ctx)

	a.setTitle(loadingTitle(0, len(sections)))
	a.log.Info("viewer started",
		zap.Stringer("mode", opts.Mode),
		zap.Int("sections", len(sections)),
	)
	return nil
}

// viewerOptions maps the config onto viewer options for sections. Loader,
// backend and size are filled in by the caller.
func viewerOptions(cfg *config.Config, sections []section.Descriptor) (viewer.Options, error) {
	mode, err := viewer.ParseMode(cfg.Viewer.Mode, len(sections))
	if err != nil {
		return viewer.Options{}, err
	}
	static := cfg.Viewer.StaticSection
	if static >= len(sections) {
		return viewer.Options{}, fmt.Errorf("static section %d out of range, %d sections defined", static, len(sections))
	}
	return viewer.Options{
		Mode:           mode,
		Sections:       sections,
		StaticIndex:    static,
		Profiles:       profiles(cfg.Viewer.Profiles),
		FPSLimit:       cfg.Graphics.FPSLimit,
		ResizeDebounce: cfg.Viewer.ResizeDebounce,
		Seed:           cfg.Viewer.Seed,
		FOV:            cfg.Viewer.FOV,
		CameraDistance: cfg.Viewer.CameraDistance,
	}, nil
}

func profiles(rows []config.ProfileConfig) []section.Profile {
	if len(rows) == 0 {
		return nil
	}
	out := make([]section.Profile, len(rows))
	for i, r := range rows {
		out[i] = section.Profile{
			AnimationIntensity: r.AnimationIntensity,
			AnimationSpeed:     r.AnimationSpeed,
			GlowIntensity:      r.GlowIntensity,
		}
	}
	return out
}

// scrollRange is one window height of scrolling per section transition.
func scrollRange(sections, height int) float64 {
	if sections <= 1 || height <= 0 {
		return 0
	}
	return float64(sections-1) * float64(height)
}

func loadingTitle(loaded, total int) string {
	if loaded >= total {
		return Title
	}
	return fmt.Sprintf("%s - loading %d/%d", Title, loaded, total)
}

// sectionTitle names the section that dominates the view.
func sectionTitle(sections []section.Descriptor, st morph.State) string {
	if len(sections) == 0 {
		return Title
	}
	i := st.Current
	if st.Progress >= 0.5 {
		i = st.Next
	}
	if i < 0 || i >= len(sections) || sections[i].Title == "" {
		return Title
	}
	return Title + " - " + sections[i].Title
}

// errorSuffix names the models that failed to load, or is empty.
func errorSuffix(sections []section.Descriptor, failed []int) string {
	if len(failed) == 0 {
		return ""
	}
	path := "section " + strconv.Itoa(failed[0])
	if i := failed[0]; i >= 0 && i < len(sections) {
		path = sections[i].ModelPath
	}
	if len(failed) == 1 {
		return " - error loading " + path
	}
	return fmt.Sprintf(" - error loading %s (+%d more)", path, len(failed)-1)
}

// failedSections returns the indices of sections whose load failed.
func (a *App) failedSections() []int {
	var failed []int
	for i := range a.sections {
		if st, _ := a.viewer.SectionStatus(i); st == viewer.StatusError {
			failed = append(failed, i)
		}
	}
	return failed
}

// updateTitle shows the dominant section once loading has finished, and
// any load failure.
func (a *App) updateTitle() {
	switch a.viewer.Status() {
	case viewer.StatusError:
		a.setTitle(Title + errorSuffix(a.sections, a.failedSections()))
	case viewer.StatusReady:
		st := morph.State{Current: a.cfg.Viewer.StaticSection}
		if a.viewer.Mode() == viewer.ModeMorph {
			st = a.viewer.MorphState()
		}
		a.setTitle(sectionTitle(a.sections, st) + errorSuffix(a.sections, a.failedSections()))
	}
}

// step is what the main loop does with the window after Frame.
type step struct {
	clear bool
	swap  bool
	yield bool
}

// nextStep decides the window work for one loop iteration. A drawn frame is
// presented. Without a drawn frame the loop sleeps briefly so it does not
// spin; while nothing can be drawn the window is kept cleared.
func nextStep(drew bool, status viewer.Status) step {
	switch {
	case drew:
		return step{swap: true}
	case status == viewer.StatusReady:
		// throttled
		return step{yield: true}
	default:
		return step{clear: true, swap: true, yield: true}
	}
}

func (a *App) setTitle(t string) {
	if t == a.title {
		return
	}
	a.title = t
	a.window.SetTitle(t)
}

// Run starts the main loop.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting main loop")

	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if a.input.Update() {
			a.running = false
			break
		}
		a.handleEvents()
		a.pollReload()

		drew := a.viewer.Frame()
		if drew && a.wantCapture {
			a.wantCapture = false
			a.screenshot()
		}
		next := nextStep(drew, a.viewer.Status())
		if next.clear {
			a.backend.Begin()
		}
		if next.swap {
			a.window.SwapBuffers()
		}
		if next.yield {
			time.Sleep(time.Millisecond)
		}
		if drew {
			frameCount++
		}

		a.updateTitle()

		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (a *App) handleEvents() {
	moved := false
	for _, event := range a.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			a.viewer.Resize(a.window.DrawableSize())
			a.scroll.SetRange(scrollRange(len(a.sections), event.Height))
			moved = true
		case input.EventScroll:
			moved = a.scroll.ScrollBy(event.Scroll) || moved
		case input.EventKeyDown:
			_, page := a.window.GetSize()
			switch action, delta := a.input.KeyScroll(event.Key, float64(page)); action {
			case input.ActionBy:
				moved = a.scroll.ScrollBy(delta) || moved
			case input.ActionTop:
				moved = a.scroll.ScrollTo(0) || moved
			case input.ActionBottom:
				moved = a.scroll.ScrollTo(a.scroll.Range()) || moved
			}
			switch event.Key {
			case sdl.SCANCODE_R:
				a.reloadNow()
			case sdl.SCANCODE_F12:
				a.wantCapture = true
			}
		}
	}
	if moved {
		a.viewer.SetScroll(a.scroll.Fraction())
	}
}

// screenshot saves the frame just drawn. Captures on high-DPI displays are
// scaled down so their pixel ratio does not exceed graphics.max_dpr.
func (a *App) screenshot() {
	pixels, w, h := a.backend.ReadPixels()
	img, err := capture.FromPixels(pixels, w, h)
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	lw, lh := a.window.GetSize()
	ratio := a.window.PixelRatio(float64(a.cfg.Graphics.MaxDPR))
	path, err := a.shots.Save(capture.Fit(img, int(float64(lw)*ratio), int(float64(lh)*ratio)))
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// pollReload applies a pending hot reload, if any.
func (a *App) pollReload() {
	if a.watcher == nil {
		return
	}
	select {
	case r := <-a.watcher.Updates():
		if r.Err != nil {
			return
		}
		a.apply(r.Sections)
	default:
	}
}

// reloadNow re-reads the sections file on demand.
func (a *App) reloadNow() {
	sections, err := section.LoadFile(a.cfg.Data.SectionsFile)
	if err != nil {
		a.log.Warn("sections reload failed", zap.Error(err))
		return
	}
	a.apply(sections)
}

func (a *App) apply(sections []section.Descriptor) {
	if err := a.rebuild(sections); err != nil {
		a.log.Error("rebuilding viewer", zap.Error(err))
	}
}

// Close cleans up app resources.
func (a *App) Close() {
	a.log.Info("closing app")

	a.cancel()
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("closing watcher", zap.Error(err))
		}
	}
	a.wg.Wait()

	if a.viewer != nil {
		a.viewer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
