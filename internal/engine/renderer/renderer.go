// Package renderer provides OpenGL rendering functionality.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/scrollmorph/internal/engine/shader"
	"github.com/Faultbox/scrollmorph/internal/engine/shaders"
	"github.com/Faultbox/scrollmorph/internal/logger"
	"github.com/Faultbox/scrollmorph/internal/particle"
	"github.com/Faultbox/scrollmorph/internal/viewer"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor [4]float32
}

var uniformNames = []string{
	"uModel", "uView", "uProjection",
	"uTime", "uParticleSize",
	"uAnimationIntensity", "uAnimationSpeed", "uGlowIntensity",
	"uMorphProgress",
}

// Attribute locations shared with the vertex shaders.
const (
	locOriginal   = 0
	locRandomness = 1
	locColor      = 2

	locCurrentPos   = 0
	locTargetPos    = 1
	locCurrentColor = 2
	locTargetColor  = 3
	locMorphRandom  = 4
)

// Particles draws point-sprite particles. It implements viewer.Backend and
// must be created after the OpenGL context.
type Particles struct {
	config Config
	log    *zap.Logger

	static *shader.Program
	morph  *shader.Program
	plain  *shader.Program

	vao   uint32
	vbos  []uint32
	count int32
	mode  viewer.Mode

	// morph attribute buffers, rewritten on pair change
	morphVBO [4]uint32

	disposed bool
}

var _ viewer.Backend = (*Particles)(nil)

// New initializes OpenGL and compiles the particle programs.
func New(cfg Config) (*Particles, error) {
	r := &Particles{
		config: cfg,
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	// Additive blending; particles never write depth (see Draw).
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])

	var err error
	if r.static, err = shader.NewProgram(shaders.StaticVertexShader, shaders.FragmentShader, uniformNames...); err != nil {
		return nil, fmt.Errorf("static particle program: %w", err)
	}
	if r.morph, err = shader.NewProgram(shaders.MorphVertexShader, shaders.FragmentShader, uniformNames...); err != nil {
		r.Dispose()
		return nil, fmt.Errorf("morph particle program: %w", err)
	}
	if r.plain, err = shader.NewProgram(shaders.PlainVertexShader, shaders.FragmentShader, uniformNames...); err != nil {
		r.Dispose()
		return nil, fmt.Errorf("plain particle program: %w", err)
	}

	gl.GenVertexArrays(1, &r.vao)
	if cfg.Width > 0 && cfg.Height > 0 {
		r.Resize(cfg.Width, cfg.Height)
	}

	r.log.Debug("particle programs compiled",
		zap.Uint32("static", r.static.ID),
		zap.Uint32("morph", r.morph.ID),
		zap.Uint32("plain", r.plain.ID),
	)
	return r, nil
}

// Resize handles window resize.
func (r *Particles) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Particles) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// ReadPixels reads the back buffer as bottom-up RGBA rows. Call it after
// Draw and before the buffers are swapped.
func (r *Particles) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	if width <= 0 || height <= 0 {
		return nil, 0, 0
	}
	pixels = make([]byte, width*height*4)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

// UploadStatic replaces the particle buffers with a single animated set.
func (r *Particles) UploadStatic(b *particle.StaticBuffer) error {
	if r.disposed {
		return fmt.Errorf("renderer disposed")
	}
	r.releaseBuffers()
	r.mode = viewer.ModeStatic
	r.count = int32(b.Count)
	if b.Count == 0 {
		return nil
	}

	gl.BindVertexArray(r.vao)
	r.attribute(locOriginal, b.OriginalPositions, gl.STATIC_DRAW)
	r.attribute(locRandomness, b.Randomness, gl.STATIC_DRAW)
	r.attribute(locColor, b.Colors, gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	r.log.Debug("static particles uploaded", zap.Int("count", b.Count))
	return nil
}

// UploadMorph replaces the particle buffers with a morph set sized for
// b.Count particles.
func (r *Particles) UploadMorph(b *particle.MorphBuffer) error {
	if r.disposed {
		return fmt.Errorf("renderer disposed")
	}
	r.releaseBuffers()
	r.mode = viewer.ModeMorph
	r.count = int32(b.Count)

	gl.BindVertexArray(r.vao)
	r.morphVBO[0] = r.attribute(locCurrentPos, b.CurrentPositions, gl.DYNAMIC_DRAW)
	r.morphVBO[1] = r.attribute(locTargetPos, b.TargetPositions, gl.DYNAMIC_DRAW)
	r.morphVBO[2] = r.attribute(locCurrentColor, b.CurrentColors, gl.DYNAMIC_DRAW)
	r.morphVBO[3] = r.attribute(locTargetColor, b.TargetColors, gl.DYNAMIC_DRAW)
	r.attribute(locMorphRandom, b.Randomness, gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	r.log.Debug("morph particles uploaded", zap.Int("count", b.Count))
	return nil
}

// UpdateMorph rewrites the four pair-dependent buffers in place.
func (r *Particles) UpdateMorph(b *particle.MorphBuffer) {
	if r.disposed || r.mode != viewer.ModeMorph || r.morphVBO[0] == 0 {
		return
	}
	for i, data := range [][]float32{b.CurrentPositions, b.TargetPositions, b.CurrentColors, b.TargetColors} {
		gl.BindBuffer(gl.ARRAY_BUFFER, r.morphVBO[i])
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, unsafe.Pointer(&data[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Draw clears the frame and renders the uploaded particles.
func (r *Particles) Draw(u viewer.Uniforms) {
	r.Begin()
	if r.disposed || r.count == 0 {
		return
	}

	p := r.program(u)
	p.Use()
	p.SetMat4("uModel", (*[16]float32)(&u.Model))
	p.SetMat4("uView", (*[16]float32)(&u.View))
	p.SetMat4("uProjection", (*[16]float32)(&u.Projection))
	p.SetFloat("uTime", u.Time)
	p.SetFloat("uParticleSize", u.ParticleSize)
	intensity := u.AnimationIntensity
	if r.mode == viewer.ModeMorph && !u.Animated {
		intensity = 0
	}
	p.SetFloat("uAnimationIntensity", intensity)
	p.SetFloat("uAnimationSpeed", u.AnimationSpeed)
	p.SetFloat("uGlowIntensity", u.GlowIntensity)
	p.SetFloat("uMorphProgress", u.MorphProgress)

	gl.DepthMask(false)
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.POINTS, 0, r.count)
	gl.BindVertexArray(0)
	gl.DepthMask(true)
}

// program picks the shader variant for the uploaded buffers.
func (r *Particles) program(u viewer.Uniforms) *shader.Program {
	switch {
	case r.mode == viewer.ModeMorph:
		return r.morph
	case u.Animated:
		return r.static
	default:
		return r.plain
	}
}

// attribute uploads a vec3 attribute into a new buffer bound at loc on the
// current VAO and returns the buffer.
func (r *Particles) attribute(loc uint32, data []float32, usage uint32) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), usage)
	gl.VertexAttribPointer(loc, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(loc)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	r.vbos = append(r.vbos, vbo)
	return vbo
}

func (r *Particles) releaseBuffers() {
	if len(r.vbos) > 0 {
		gl.DeleteBuffers(int32(len(r.vbos)), &r.vbos[0])
		r.vbos = r.vbos[:0]
	}
	if r.vao != 0 {
		gl.BindVertexArray(r.vao)
		for loc := uint32(0); loc <= locMorphRandom; loc++ {
			gl.DisableVertexAttribArray(loc)
		}
		gl.BindVertexArray(0)
	}
	r.morphVBO = [4]uint32{}
	r.count = 0
}

// Dispose releases all GPU resources. Safe to call more than once.
func (r *Particles) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.log.Info("disposing particle renderer")

	r.releaseBuffers()
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	for _, p := range []*shader.Program{r.static, r.morph, r.plain} {
		if p != nil {
			p.Delete()
		}
	}
}
