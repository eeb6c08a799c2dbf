package viewer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/scrollmorph/internal/particle"
)

// ErrNoSections is returned when a viewer is created without sections.
var ErrNoSections = errors.New("viewer: no sections")

// Mode selects how the viewer uses its sections.
type Mode int

const (
	// ModeStatic shows a single section with rotation and shader animation.
	ModeStatic Mode = iota
	// ModeMorph blends between all sections as the page scrolls.
	ModeMorph
)

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeMorph:
		return "morph"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "static" or "morph". "auto" picks morph when more than
// one section is available.
func ParseMode(s string, sections int) (Mode, error) {
	switch strings.ToLower(s) {
	case "static":
		return ModeStatic, nil
	case "morph":
		return ModeMorph, nil
	case "", "auto":
		if sections > 1 {
			return ModeMorph, nil
		}
		return ModeStatic, nil
	}
	return 0, fmt.Errorf("unknown viewer mode %q", s)
}

// Status is the load state of the viewer or one of its sections.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Uniforms is the per-frame shader input.
type Uniforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4

	Time               float32 // seconds since the viewer started
	ParticleSize       float32
	AnimationIntensity float32
	AnimationSpeed     float32
	GlowIntensity      float32
	MorphProgress      float32
	Animated           bool // false selects the un-animated program
}

// Backend owns the GPU side of a particle system. All methods are called
// from the frame thread.
type Backend interface {
	// Resize sets the drawable viewport in pixels.
	Resize(width, height int)
	// UploadStatic allocates buffers for a single animated point set.
	UploadStatic(b *particle.StaticBuffer) error
	// UploadMorph allocates buffers for a morph set.
	UploadMorph(b *particle.MorphBuffer) error
	// UpdateMorph re-uploads the current/target arrays in place.
	UpdateMorph(b *particle.MorphBuffer)
	// Draw renders the uploaded particles.
	Draw(u Uniforms)
	// Dispose releases all GPU resources. It must be safe to call twice.
	Dispose()
}
