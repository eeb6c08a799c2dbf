package section

// Base animation values for sections that leave them unset.
const (
	DefaultAnimationIntensity = 0.02
	DefaultAnimationSpeed     = 0.5
	DefaultGlowIntensity      = 1.2
)

// Profile scales a section's animation values. Each field is a factor
// applied to the descriptor value or its default.
type Profile struct {
	AnimationIntensity float32
	AnimationSpeed     float32
	GlowIntensity      float32
}

// DefaultProfiles cycles through three variations so adjacent sections
// differ even when they share the same values.
var DefaultProfiles = []Profile{
	{AnimationIntensity: 1.2, AnimationSpeed: 0.8, GlowIntensity: 1.1},
	{AnimationIntensity: 0.8, AnimationSpeed: 1.2, GlowIntensity: 0.9},
	{AnimationIntensity: 1.0, AnimationSpeed: 1.5, GlowIntensity: 1.3},
}

// Look is everything the shader needs to know about a section.
type Look struct {
	AnimationIntensity float32
	AnimationSpeed     float32
	GlowIntensity      float32
	ParticleSize       float32
	Animated           bool
}

// ResolveLook builds the look for the section at index: the descriptor's
// animation values, or their defaults, scaled by table[index mod
// len(table)]. An empty table uses DefaultProfiles.
func ResolveLook(d *Descriptor, index int, table []Profile) Look {
	if len(table) == 0 {
		table = DefaultProfiles
	}
	if index < 0 {
		index = 0
	}
	p := table[index%len(table)]

	size := d.ParticleSize
	if size <= 0 {
		size = DefaultParticleSize
	}
	return Look{
		AnimationIntensity: valueOr(d.AnimationIntensity, DefaultAnimationIntensity) * p.AnimationIntensity,
		AnimationSpeed:     valueOr(d.AnimationSpeed, DefaultAnimationSpeed) * p.AnimationSpeed,
		GlowIntensity:      valueOr(d.GlowIntensity, DefaultGlowIntensity) * p.GlowIntensity,
		ParticleSize:       size,
		Animated:           d.ShaderAnimated(),
	}
}

func valueOr(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

// Lerp blends two looks; Animated follows whichever side t is closer to.
func (l Look) Lerp(other Look, t float32) Look {
	mix := func(a, b float32) float32 { return a + (b-a)*t }
	out := Look{
		AnimationIntensity: mix(l.AnimationIntensity, other.AnimationIntensity),
		AnimationSpeed:     mix(l.AnimationSpeed, other.AnimationSpeed),
		GlowIntensity:      mix(l.GlowIntensity, other.GlowIntensity),
		ParticleSize:       mix(l.ParticleSize, other.ParticleSize),
		Animated:           l.Animated,
	}
	if t >= 0.5 {
		out.Animated = other.Animated
	}
	return out
}
