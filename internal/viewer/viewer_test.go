package viewer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Faultbox/scrollmorph/internal/mesh"
	"github.com/Faultbox/scrollmorph/internal/morph"
	"github.com/Faultbox/scrollmorph/internal/particle"
	"github.com/Faultbox/scrollmorph/internal/section"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	resizes      [][2]int
	static       *particle.StaticBuffer
	morph        *particle.MorphBuffer
	morphUploads int
	pairs        []particle.Pair
	draws        []Uniforms
	disposed     int
}

func (b *fakeBackend) Resize(w, h int) { b.resizes = append(b.resizes, [2]int{w, h}) }

func (b *fakeBackend) UploadStatic(buf *particle.StaticBuffer) error {
	b.static = buf
	return nil
}

func (b *fakeBackend) UploadMorph(buf *particle.MorphBuffer) error {
	b.morph = buf
	b.morphUploads++
	return nil
}

func (b *fakeBackend) UpdateMorph(buf *particle.MorphBuffer) {
	p, _ := buf.Pair()
	b.pairs = append(b.pairs, p)
}

func (b *fakeBackend) Draw(u Uniforms) { b.draws = append(b.draws, u) }
func (b *fakeBackend) Dispose()        { b.disposed++ }

// lineMesh returns a mesh of n vertices along the x axis.
func lineMesh(path string, n int) *mesh.Mesh {
	p := mesh.Primitive{Positions: make([][3]float32, n), World: mgl32.Ident4()}
	for i := range p.Positions {
		p.Positions[i] = [3]float32{float32(i), 0, 0}
	}
	return &mesh.Mesh{Path: path, Primitives: []mesh.Primitive{p}}
}

// sizedLoader serves "<n>.glb" as an n-vertex mesh, fails "bad*" paths and
// blocks "slow*" paths until gate closes or ctx is cancelled.
func sizedLoader(gate <-chan struct{}) mesh.Loader {
	return mesh.LoaderFunc(func(ctx context.Context, path string) (*mesh.Mesh, error) {
		switch {
		case strings.HasPrefix(path, "bad"):
			return nil, errors.New("corrupt asset")
		case strings.HasPrefix(path, "slow"):
			select {
			case <-gate:
				return lineMesh(path, 40), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		n := 0
		for _, c := range strings.TrimSuffix(path, ".glb") {
			n = n*10 + int(c-'0')
		}
		return lineMesh(path, n), nil
	})
}

func desc(id, path string) section.Descriptor {
	return section.Descriptor{
		ID:              id,
		ModelPath:       path,
		Scale:           1,
		ParticleSize:    section.DefaultParticleSize,
		ParticleDensity: 1,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// pump runs frames until cond holds.
func pump(t *testing.T, v *Viewer, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for viewer")
		}
		v.Frame()
		time.Sleep(time.Millisecond)
	}
}

func ready(v *Viewer) func() bool {
	return func() bool { return v.Status() != StatusLoading }
}

func newMorphViewer(t *testing.T, loader mesh.Loader, paths ...string) (*Viewer, *fakeBackend) {
	t.Helper()
	var sections []section.Descriptor
	for i, p := range paths {
		sections = append(sections, desc(string(rune('a'+i)), p))
	}
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:     ModeMorph,
		Sections: sections,
		Loader:   loader,
		Backend:  b,
		Seed:     1,
		Width:    800,
		Height:   600,
	})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, b
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in       string
		sections int
		want     Mode
		wantErr  bool
	}{
		{"static", 3, ModeStatic, false},
		{"MORPH", 1, ModeMorph, false},
		{"auto", 3, ModeMorph, false},
		{"auto", 1, ModeStatic, false},
		{"", 2, ModeMorph, false},
		{"spin", 2, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in, tt.sections)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "morph", ModeMorph.String())
	assert.Equal(t, "ready", StatusReady.String())
}

func TestNewValidation(t *testing.T) {
	loader := sizedLoader(nil)
	b := &fakeBackend{}

	_, err := New(Options{Loader: loader, Backend: b})
	assert.ErrorIs(t, err, ErrNoSections)

	sections := []section.Descriptor{desc("a", "10.glb")}
	_, err = New(Options{Sections: sections, Backend: b})
	assert.Error(t, err)
	_, err = New(Options{Sections: sections, Loader: loader})
	assert.Error(t, err)
	_, err = New(Options{Sections: sections, Loader: loader, Backend: b, StaticIndex: 1})
	assert.Error(t, err)
	_, err = New(Options{Sections: sections, Loader: loader, Backend: b, Mode: Mode(9)})
	assert.Error(t, err)
}

func TestStaticLifecycle(t *testing.T) {
	d := desc("hero", "25.glb")
	d.RotationSpeed = section.Vec3{Y: 0.01}
	d.InitialRotation = section.Vec3{X: 0.5}
	d.ParticleColor = "#ff0000"

	var progress [][2]int
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:          ModeStatic,
		Sections:      []section.Descriptor{desc("other", "bad.glb"), d},
		StaticIndex:   1,
		Loader:        sizedLoader(nil),
		Backend:       b,
		Seed:          7,
		Width:         800,
		Height:        600,
		OnModelLoaded: func(loaded, total int) { progress = append(progress, [2]int{loaded, total}) },
	})
	require.NoError(t, err)
	defer v.Close()

	assert.False(t, v.Frame(), "frames before Start do nothing")
	v.Start(context.Background())
	pump(t, v, ready(v))

	require.Equal(t, StatusReady, v.Status())
	require.NotNil(t, b.static)
	assert.Equal(t, 25, b.static.Count)
	assert.Equal(t, float32(1), b.static.Colors[0])
	assert.Equal(t, float32(0), b.static.Colors[1])
	assert.Equal(t, [][2]int{{1, 1}}, progress)
	assert.Equal(t, [][2]int{{800, 600}}, b.resizes)

	st, err := v.SectionStatus(1)
	assert.Equal(t, StatusReady, st)
	assert.NoError(t, err)
	st, _ = v.SectionStatus(0)
	assert.Equal(t, StatusLoading, st, "sections outside static mode are never loaded")

	b.draws = nil
	require.True(t, v.Frame())
	require.True(t, v.Frame())
	require.Len(t, b.draws, 2)

	// The frame that built the buffer drew once before these two.
	last := b.draws[1]
	want := modelMatrix(mgl32.Vec3{0.5, 0.03, 0}, 1)
	assert.InDeltaSlice(t, want[:], last.Model[:], 1e-6)
	assert.True(t, last.Animated)
	assert.Equal(t, float32(section.DefaultParticleSize), last.ParticleSize)
	assert.InDelta(t, section.DefaultGlowIntensity*section.DefaultProfiles[1].GlowIntensity, last.GlowIntensity, 1e-6, "profile follows the section index")
	assert.Equal(t, float32(0), last.MorphProgress)

	// Rotation advances by the per-frame speed on every drawn frame.
	r0 := b.draws[0].Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	r1 := last.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.NotEqual(t, r0, r1)
	assert.InDelta(t, 1, r1.Vec3().Len(), 1e-5)
}

func TestStaticLoadFailure(t *testing.T) {
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:     ModeStatic,
		Sections: []section.Descriptor{desc("a", "bad.glb")},
		Loader:   sizedLoader(nil),
		Backend:  b,
		Width:    100,
		Height:   100,
	})
	require.NoError(t, err)
	defer v.Close()

	v.Start(context.Background())
	pump(t, v, ready(v))

	assert.Equal(t, StatusError, v.Status())
	st, err := v.SectionStatus(0)
	assert.Equal(t, StatusError, st)
	assert.Error(t, err)
	assert.Nil(t, b.static)
	assert.False(t, v.Frame())
}

func TestMorphReadinessGate(t *testing.T) {
	gate := make(chan struct{})
	v, b := newMorphViewer(t, sizedLoader(gate), "100.glb", "250.glb", "slow.glb")

	var calls int
	v.opts.OnModelLoaded = func(loaded, total int) {
		calls++
		assert.Equal(t, 3, total)
		assert.Equal(t, calls, loaded)
	}

	v.Start(context.Background())
	pump(t, v, func() bool { l, _ := v.Progress(); return l == 2 })

	assert.Equal(t, StatusLoading, v.Status())
	assert.Nil(t, b.morph, "no buffer until every section settled")
	assert.False(t, v.Frame())

	close(gate)
	pump(t, v, ready(v))

	require.Equal(t, StatusReady, v.Status())
	require.NotNil(t, b.morph)
	assert.Equal(t, 250, b.morph.Count)
	assert.Equal(t, 1, b.morphUploads)
	assert.Equal(t, 3, calls)
	p, ok := b.morph.Pair()
	assert.True(t, ok)
	assert.Equal(t, particle.Pair{Current: 0, Next: 1}, p)
	assert.False(t, b.morph.Dirty())
}

func TestMorphFailedSectionIsEmpty(t *testing.T) {
	v, b := newMorphViewer(t, sizedLoader(nil), "30.glb", "bad.glb", "12.glb")
	v.Start(context.Background())
	pump(t, v, ready(v))

	require.Equal(t, StatusReady, v.Status())
	assert.Equal(t, 30, b.morph.Count)

	st, err := v.SectionStatus(1)
	assert.Equal(t, StatusError, st)
	assert.EqualError(t, err, "corrupt asset")

	// Scrolling onto the failed section still works.
	v.SetScroll(0.5)
	assert.Equal(t, []particle.Pair{{Current: 1, Next: 2}}, b.pairs)
	assert.True(t, v.Frame())
}

func TestMorphAllFailed(t *testing.T) {
	v, b := newMorphViewer(t, sizedLoader(nil), "bad1.glb", "bad2.glb")
	v.Start(context.Background())
	pump(t, v, ready(v))

	assert.Equal(t, StatusError, v.Status())
	assert.Nil(t, b.morph)
	assert.False(t, v.Frame())
}

func TestMorphScroll(t *testing.T) {
	v, b := newMorphViewer(t, sizedLoader(nil), "10.glb", "20.glb", "30.glb")
	v.sections[2].Scale = 3
	v.Start(context.Background())
	pump(t, v, ready(v))

	v.SetScroll(0.2)
	assert.Empty(t, b.pairs, "progress-only scroll does not touch the buffer")
	require.True(t, v.Frame())
	assert.InDelta(t, 0.4, b.draws[len(b.draws)-1].MorphProgress, 1e-6)

	v.SetScroll(0.75)
	v.SetScroll(0.8)
	assert.Equal(t, []particle.Pair{{Current: 1, Next: 2}}, b.pairs)

	require.True(t, v.Frame())
	u := b.draws[len(b.draws)-1]
	assert.InDelta(t, 0.6, u.MorphProgress, 1e-6)
	// scale blends 1 -> 3
	x := u.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 2.2, x.X(), 1e-5)

	v.SetScroll(1)
	assert.Equal(t, morph.State{Current: 2, Next: 2}, v.MorphState())
	assert.Len(t, b.pairs, 2)
	assert.Equal(t, b.morph.CurrentPositions, b.morph.TargetPositions)

	v.SetScroll(0)
	assert.Equal(t, particle.Pair{Current: 0, Next: 1}, b.pairs[2])
}

func TestMorphScrollBeforeReady(t *testing.T) {
	gate := make(chan struct{})
	v, b := newMorphViewer(t, sizedLoader(gate), "10.glb", "slow.glb", "30.glb")
	v.Start(context.Background())

	v.SetScroll(0.75)
	assert.Equal(t, 1, v.MorphState().Current)

	close(gate)
	pump(t, v, ready(v))

	p, _ := b.morph.Pair()
	assert.Equal(t, particle.Pair{Current: 1, Next: 2}, p)
	assert.Empty(t, b.pairs, "the initial pair ships with the upload")
}

func TestResizeDebounce(t *testing.T) {
	clk := &clock{t: time.Unix(100, 0)}
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:     ModeStatic,
		Sections: []section.Descriptor{desc("a", "5.glb")},
		Loader:   sizedLoader(nil),
		Backend:  b,
		Width:    800,
		Height:   600,
		Now:      clk.now,
	})
	require.NoError(t, err)
	defer v.Close()
	v.Start(context.Background())

	v.Resize(700, 500)
	v.Resize(0, 300)
	v.Resize(400, 200)
	clk.advance(100 * time.Millisecond)
	v.Frame()
	assert.Equal(t, [][2]int{{800, 600}}, b.resizes)

	clk.advance(60 * time.Millisecond)
	v.Frame()
	assert.Equal(t, [][2]int{{800, 600}, {400, 200}}, b.resizes)
	assert.Equal(t, float32(2), v.cam.Aspect())

	v.Frame()
	assert.Len(t, b.resizes, 2, "a resize applies once")
}

func TestDeferredCamera(t *testing.T) {
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:     ModeStatic,
		Sections: []section.Descriptor{desc("a", "5.glb")},
		Loader:   sizedLoader(nil),
		Backend:  b,
	})
	require.NoError(t, err)
	defer v.Close()
	v.Start(context.Background())
	pump(t, v, ready(v))

	assert.False(t, v.Frame(), "no drawing without a viewport")
	v.Resize(0, 0)
	assert.Empty(t, b.resizes)

	v.Resize(400, 200)
	assert.Equal(t, [][2]int{{400, 200}}, b.resizes)
	assert.True(t, v.Frame())
}

func TestFrameThrottle(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	b := &fakeBackend{}
	v, err := New(Options{
		Mode:     ModeStatic,
		Sections: []section.Descriptor{desc("a", "5.glb")},
		Loader:   sizedLoader(nil),
		Backend:  b,
		FPSLimit: 10,
		Width:    10,
		Height:   10,
		Now:      clk.now,
	})
	require.NoError(t, err)
	defer v.Close()
	v.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for v.Status() == StatusLoading && time.Now().Before(deadline) {
		clk.advance(time.Second)
		v.Frame()
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, StatusReady, v.Status())

	b.draws = nil
	clk.advance(time.Second)
	for i := 0; i < 50; i++ {
		v.Frame()
		clk.advance(10 * time.Millisecond)
	}
	assert.Len(t, b.draws, 5)

	first, second := b.draws[0].Time, b.draws[1].Time
	assert.InDelta(t, 0.1, second-first, 1e-4)
}

func TestCloseCancelsPendingLoads(t *testing.T) {
	v, b := newMorphViewer(t, sizedLoader(make(chan struct{})), "slow1.glb", "slow2.glb")
	v.Start(context.Background())

	v.Close()
	assert.Equal(t, 1, b.disposed)
	assert.Nil(t, b.morph)

	// Results queued by the cancelled loads are never applied.
	assert.False(t, v.Frame())
	v.SetScroll(1)
	v.Resize(10, 10)
	loaded, _ := v.Progress()
	assert.Equal(t, 0, loaded)
	assert.Equal(t, StatusLoading, v.Status())

	v.Close()
	assert.Equal(t, 1, b.disposed, "close is idempotent")
}

func TestStartHonoursParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v, _ := newMorphViewer(t, sizedLoader(make(chan struct{})), "slow.glb", "4.glb")
	v.Start(ctx)
	cancel()
	pump(t, v, ready(v))

	st, err := v.SectionStatus(0)
	assert.Equal(t, StatusError, st)
	assert.ErrorIs(t, err, context.Canceled)
}
