// Package viewer turns a list of sections into an animated particle
// system: it loads and samples each section's mesh, builds the particle
// buffers once every participating section has settled, and feeds the
// backend one set of uniforms per frame.
//
// A Viewer is owned by the frame thread. Only mesh loading runs on other
// goroutines, and its results are applied inside Frame.
package viewer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/scrollmorph/internal/engine/camera"
	"github.com/Faultbox/scrollmorph/internal/logger"
	"github.com/Faultbox/scrollmorph/internal/mesh"
	"github.com/Faultbox/scrollmorph/internal/morph"
	"github.com/Faultbox/scrollmorph/internal/particle"
	"github.com/Faultbox/scrollmorph/internal/section"
)

// Defaults applied by New.
const (
	DefaultResizeDebounce = 150 * time.Millisecond
	DefaultLoadLimit      = 4
)

// Options configures a Viewer.
type Options struct {
	Mode        Mode
	Sections    []section.Descriptor
	StaticIndex int // section shown in ModeStatic

	Loader  mesh.Loader
	Backend Backend

	// Profiles is the animation profile table; empty uses
	// section.DefaultProfiles.
	Profiles []section.Profile

	// OnModelLoaded is called on the frame thread each time a section
	// settles, successfully or not.
	OnModelLoaded func(loaded, total int)

	FPSLimit       int           // 0 draws every frame
	ResizeDebounce time.Duration // 0 uses DefaultResizeDebounce
	LoadLimit      int           // concurrent loads; 0 uses DefaultLoadLimit
	Seed           int64         // randomness seed; 0 picks one from the clock

	FOV            float32
	CameraDistance float32
	Width, Height  int // initial drawable size; zero defers camera setup

	Now func() time.Time // clock; nil uses time.Now
}

type loadResult struct {
	index  int
	points particle.PointSet
	err    error
}

type sectionState struct {
	settled bool
	err     error
	points  int
}

type size struct{ w, h int }

// Viewer renders the particle system for a set of sections.
type Viewer struct {
	opts     Options
	log      *zap.Logger
	now      func() time.Time
	sections []section.Descriptor
	looks    []section.Look
	members  []int // section indices taking part in this mode

	cam  *camera.Fixed
	ctrl *morph.Controller

	results chan loadResult
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	closed  bool

	states []sectionState
	sets   []particle.PointSet
	loaded int
	status Status

	static   *particle.StaticBuffer
	morphBuf *particle.MorphBuffer
	uploaded bool

	scroll   float64
	state    morph.State
	rotation mgl32.Vec3

	pending   *size
	resizeDue time.Time

	start       time.Time
	lastFrame   time.Time
	minInterval time.Duration
	frames      uint64
}

// New validates opts and creates a viewer. Loading begins with Start.
func New(opts Options) (*Viewer, error) {
	if len(opts.Sections) == 0 {
		return nil, ErrNoSections
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("viewer: loader is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("viewer: backend is required")
	}

	v := &Viewer{
		opts:     opts,
		log:      logger.Named("viewer"),
		now:      opts.Now,
		sections: opts.Sections,
		cam:      camera.NewFixed(opts.FOV, opts.CameraDistance),
		states:   make([]sectionState, len(opts.Sections)),
		sets:     make([]particle.PointSet, len(opts.Sections)),
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.opts.ResizeDebounce <= 0 {
		v.opts.ResizeDebounce = DefaultResizeDebounce
	}
	if v.opts.LoadLimit <= 0 {
		v.opts.LoadLimit = DefaultLoadLimit
	}
	if v.opts.Seed == 0 {
		v.opts.Seed = time.Now().UnixNano()
	}
	if opts.FPSLimit > 0 {
		v.minInterval = time.Second / time.Duration(opts.FPSLimit)
	}

	switch opts.Mode {
	case ModeStatic:
		if opts.StaticIndex < 0 || opts.StaticIndex >= len(opts.Sections) {
			return nil, fmt.Errorf("viewer: static section %d out of range [0,%d)", opts.StaticIndex, len(opts.Sections))
		}
		v.members = []int{opts.StaticIndex}
		d := opts.Sections[opts.StaticIndex]
		v.rotation = mgl32.Vec3{d.InitialRotation.X, d.InitialRotation.Y, d.InitialRotation.Z}
	case ModeMorph:
		v.members = make([]int, len(opts.Sections))
		for i := range v.members {
			v.members[i] = i
		}
		ctrl, err := morph.NewController(len(opts.Sections))
		if err != nil {
			return nil, fmt.Errorf("viewer: %w", err)
		}
		v.ctrl = ctrl
		v.state = morph.Resolve(0, len(opts.Sections))
	default:
		return nil, fmt.Errorf("viewer: unknown mode %v", opts.Mode)
	}

	v.looks = make([]section.Look, len(opts.Sections))
	for i := range opts.Sections {
		v.looks[i] = section.ResolveLook(&opts.Sections[i], i, opts.Profiles)
	}

	if opts.Width > 0 && opts.Height > 0 {
		v.applySize(size{opts.Width, opts.Height})
	}
	return v, nil
}

// Mode returns the viewer's mode.
func (v *Viewer) Mode() Mode {
	return v.opts.Mode
}

// Start launches one load per participating section. Loads run until they
// finish or ctx (or Close) cancels them.
func (v *Viewer) Start(ctx context.Context) {
	if v.started || v.closed {
		return
	}
	v.started = true
	v.start = v.now()
	v.lastFrame = time.Time{}

	ctx, v.cancel = context.WithCancel(ctx)
	v.results = make(chan loadResult, len(v.members))
	g, gctx := errgroup.WithContext(ctx)
	v.group = g
	sem := make(chan struct{}, v.opts.LoadLimit)

	v.log.Info("loading sections",
		zap.Stringer("mode", v.opts.Mode),
		zap.Int("count", len(v.members)),
	)

	for _, idx := range v.members {
		d := v.sections[idx]
		g.Go(func() error {
			var points particle.PointSet
			err := gctx.Err()
			select {
			case sem <- struct{}{}:
				points, err = loadSection(gctx, v.opts.Loader, &d)
				<-sem
			case <-gctx.Done():
			}
			// A failed section is reported, never returned, so one bad
			// model does not cancel its siblings.
			v.results <- loadResult{index: idx, points: points, err: err}
			return nil
		})
	}
}

// loadSection loads and samples one section's mesh.
func loadSection(ctx context.Context, loader mesh.Loader, d *section.Descriptor) (particle.PointSet, error) {
	override, err := d.OverrideColor()
	if err != nil {
		return particle.PointSet{}, err
	}
	m, err := loader.Load(ctx, d.ModelPath)
	if err != nil {
		return particle.PointSet{}, err
	}
	if err := ctx.Err(); err != nil {
		return particle.PointSet{}, err
	}
	return particle.Sample(m, particle.SampleOptions{
		Density:  d.ParticleDensity,
		Override: override,
	}), nil
}

// Close cancels pending loads, waits for the loader goroutines and releases
// the backend. Results that arrive afterwards are dropped. Close is
// idempotent.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	if v.group != nil {
		_ = v.group.Wait()
	}
	v.opts.Backend.Dispose()
	v.static = nil
	v.morphBuf = nil
	v.log.Debug("viewer closed", zap.Uint64("frames", v.frames))
}

// Status returns the overall state: loading until every participating
// section has settled, then ready or error.
func (v *Viewer) Status() Status {
	return v.status
}

// SectionStatus returns the state of section i and its load error, if any.
// Sections outside the current mode report StatusLoading forever.
func (v *Viewer) SectionStatus(i int) (Status, error) {
	if i < 0 || i >= len(v.states) {
		return StatusError, fmt.Errorf("section %d out of range", i)
	}
	st := v.states[i]
	switch {
	case !st.settled:
		return StatusLoading, nil
	case st.err != nil:
		return StatusError, st.err
	default:
		return StatusReady, nil
	}
}

// Progress returns how many participating sections have settled.
func (v *Viewer) Progress() (loaded, total int) {
	return v.loaded, len(v.members)
}

// MorphState returns the last resolved morph state. It is the zero state
// in static mode.
func (v *Viewer) MorphState() morph.State {
	return v.state
}

// drainResults applies finished loads without blocking.
func (v *Viewer) drainResults() {
	if v.results == nil {
		return
	}
	for {
		select {
		case r := <-v.results:
			v.settle(r)
		default:
			return
		}
	}
}

func (v *Viewer) settle(r loadResult) {
	st := &v.states[r.index]
	if st.settled {
		return
	}
	st.settled = true
	st.err = r.err
	st.points = r.points.Len()
	v.sets[r.index] = r.points
	v.loaded++

	d := &v.sections[r.index]
	if r.err != nil {
		v.log.Warn("section failed to load",
			zap.Int("section", r.index),
			zap.String("id", d.ID),
			zap.String("model", d.ModelPath),
			zap.Error(r.err),
		)
	} else {
		v.log.Debug("section loaded",
			zap.Int("section", r.index),
			zap.String("id", d.ID),
			zap.Int("points", st.points),
		)
	}

	if v.opts.OnModelLoaded != nil {
		v.opts.OnModelLoaded(v.loaded, len(v.members))
	}
	if v.loaded == len(v.members) {
		v.build()
	}
}

// build creates and uploads the particle buffer once all members settled.
func (v *Viewer) build() {
	rng := rand.New(rand.NewSource(v.opts.Seed))

	switch v.opts.Mode {
	case ModeStatic:
		idx := v.members[0]
		if v.states[idx].err != nil {
			v.status = StatusError
			return
		}
		v.static = particle.NewStaticBuffer(v.sets[idx], rng)
		if err := v.opts.Backend.UploadStatic(v.static); err != nil {
			v.fail("upload static buffer", err)
			return
		}

	case ModeMorph:
		failed := 0
		for _, st := range v.states {
			if st.err != nil {
				failed++
			}
		}
		if failed == len(v.states) {
			v.log.Error("every section failed to load")
			v.status = StatusError
			return
		}
		buf, err := particle.NewMorphBuffer(v.sets, rng.Int63())
		if err != nil {
			v.fail("build morph buffer", err)
			return
		}
		v.morphBuf = buf
		v.state, _ = v.ctrl.Update(v.scroll)
		if _, err := buf.SetPair(particle.Pair{Current: v.state.Current, Next: v.state.Next}); err != nil {
			v.fail("apply morph pair", err)
			return
		}
		if err := v.opts.Backend.UploadMorph(buf); err != nil {
			v.fail("upload morph buffer", err)
			return
		}
		buf.ClearDirty()
		v.log.Info("morph buffer ready",
			zap.Int("particles", buf.Count),
			zap.Int("failed_sections", failed),
		)
	}

	v.uploaded = true
	v.status = StatusReady
}

func (v *Viewer) fail(what string, err error) {
	v.log.Error(what, zap.Error(err))
	v.status = StatusError
}
