// Package section defines the section descriptors that drive the viewer:
// which model each page segment shows and how its particles look.
package section

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Defaults applied to fields a section leaves unset.
const (
	DefaultScale        = 1.0
	DefaultParticleSize = 0.02
	DefaultDensity      = 0.5
)

// ErrNoSections is returned when a section file lists no sections.
var ErrNoSections = errors.New("no sections defined")

// Vec3 is an Euler triple or per-axis rate in radians.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// Descriptor describes one visual segment of the page.
type Descriptor struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`

	ModelPath string `yaml:"model_path"`

	Scale           float32 `yaml:"scale"`
	InitialRotation Vec3    `yaml:"initial_rotation"`
	RotationSpeed   Vec3    `yaml:"rotation_speed"` // per frame, static mode only

	ParticleSize       float32  `yaml:"particle_size"`
	ParticleColor      string   `yaml:"particle_color"` // empty means use source colors
	ParticleDensity    float32  `yaml:"particle_density"`
	UseShaderAnimation *bool    `yaml:"use_shader_animation"`
	AnimationIntensity *float32 `yaml:"animation_intensity"`
	AnimationSpeed     *float32 `yaml:"animation_speed"`
	GlowIntensity      *float32 `yaml:"glow_intensity"`

	// Layout hints for the host page; the viewer ignores them.
	FullWidthModel  bool `yaml:"full_width_model"`
	ShowTextSection bool `yaml:"show_text_section"`
}

// ShaderAnimated reports whether the section uses the animated shader.
func (d *Descriptor) ShaderAnimated() bool {
	return d.UseShaderAnimation == nil || *d.UseShaderAnimation
}

// OverrideColor returns the parsed particle color, or nil when the section
// should keep the mesh's own colors.
func (d *Descriptor) OverrideColor() (*[3]float32, error) {
	if d.ParticleColor == "" {
		return nil, nil
	}
	c, err := ParseColor(d.ParticleColor)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults fills zero-valued optional fields.
func (d *Descriptor) applyDefaults() {
	if d.Scale == 0 {
		d.Scale = DefaultScale
	}
	if d.ParticleSize == 0 {
		d.ParticleSize = DefaultParticleSize
	}
	if d.ParticleDensity == 0 {
		d.ParticleDensity = DefaultDensity
	}
}

// Validate checks the invariants a single descriptor must hold.
// Density is not checked here; the sampler clamps it.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return errors.New("id is required")
	}
	if d.ModelPath == "" {
		return fmt.Errorf("section %s: model_path is required", d.ID)
	}
	if d.Scale <= 0 {
		return fmt.Errorf("section %s: scale must be > 0, got %v", d.ID, d.Scale)
	}
	if d.ParticleSize <= 0 {
		return fmt.Errorf("section %s: particle_size must be > 0, got %v", d.ID, d.ParticleSize)
	}
	if _, err := d.OverrideColor(); err != nil {
		return fmt.Errorf("section %s: %w", d.ID, err)
	}
	return nil
}

// ParseColor parses "#rgb" or "#rrggbb" into 0..1 RGB components. The
// components are the hex values scaled, still sRGB encoded.
func ParseColor(hex string) ([3]float32, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return [3]float32{}, fmt.Errorf("particle_color %q: %w", hex, err)
	}
	return [3]float32{float32(c.R), float32(c.G), float32(c.B)}, nil
}
