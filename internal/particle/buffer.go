package particle

import (
	"fmt"
	"math/rand"
)

const (
	// RandomnessRange bounds each per-particle randomness component to
	// [-RandomnessRange, RandomnessRange].
	RandomnessRange = 1.5

	// PadJitter bounds the per-axis offset given to duplicated points, so a
	// padded point lies within sqrt(3)*PadJitter (< 0.1) of its source.
	PadJitter = 0.05
)

// StaticBuffer holds the attributes of a single animated particle system.
// All slices are 3*Count floats. Animated positions are derived from
// OriginalPositions in the vertex shader and never stored.
type StaticBuffer struct {
	Count             int
	OriginalPositions []float32
	Randomness        []float32
	Colors            []float32
}

// NewStaticBuffer packs ps. Randomness is drawn once from rng and never
// regenerated, so each particle keeps its animation seed for the session.
func NewStaticBuffer(ps PointSet, rng *rand.Rand) *StaticBuffer {
	n := ps.Len()
	b := &StaticBuffer{
		Count:             n,
		OriginalPositions: flatten(ps.Positions),
		Randomness:        randomness(n, rng),
		Colors:            flatten(ps.Colors),
	}
	return b
}

// Pair identifies the section a morph departs from and the one it arrives at.
type Pair struct {
	Current, Next int
}

// MorphBuffer holds the attributes for interpolating between two sections.
// All slices are 3*Count floats, where Count is the largest point count in
// the morph set. Only the current/target arrays change after construction.
type MorphBuffer struct {
	Count            int
	CurrentPositions []float32
	TargetPositions  []float32
	CurrentColors    []float32
	TargetColors     []float32
	Randomness       []float32

	sets  []PointSet
	seed  int64
	pair  Pair
	set   bool
	dirty bool
}

// NewMorphBuffer sizes a buffer for sets. No pair is applied yet; call SetPair
// before the first upload.
func NewMorphBuffer(sets []PointSet, seed int64) (*MorphBuffer, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("morph buffer needs at least one point set")
	}
	count := 1
	for _, s := range sets {
		count = max(count, s.Len())
	}
	rng := rand.New(rand.NewSource(seed))
	return &MorphBuffer{
		Count:            count,
		CurrentPositions: make([]float32, 3*count),
		TargetPositions:  make([]float32, 3*count),
		CurrentColors:    make([]float32, 3*count),
		TargetColors:     make([]float32, 3*count),
		Randomness:       randomness(count, rng),
		sets:             sets,
		seed:             seed,
	}, nil
}

// Sections returns the number of point sets in the morph set.
func (b *MorphBuffer) Sections() int {
	return len(b.sets)
}

// Pair returns the applied pair and whether one has been applied.
func (b *MorphBuffer) Pair() (Pair, bool) {
	return b.pair, b.set
}

// SetPair rewrites the current and target arrays for p in place and marks
// the buffer dirty. It reports whether anything changed; re-applying the
// active pair is a no-op. Self-pairs are allowed.
//
// Padding for each section is seeded from the buffer seed and the section
// index, so a section normalizes identically whether it lands in the
// current or the target slot.
func (b *MorphBuffer) SetPair(p Pair) (bool, error) {
	if p.Current < 0 || p.Current >= len(b.sets) || p.Next < 0 || p.Next >= len(b.sets) {
		return false, fmt.Errorf("pair %d->%d out of range [0,%d)", p.Current, p.Next, len(b.sets))
	}
	if b.set && b.pair == p {
		return false, nil
	}

	cur := b.normalized(p.Current)
	writeFlat(b.CurrentPositions, cur.Positions)
	writeFlat(b.CurrentColors, cur.Colors)
	if p.Next != p.Current {
		cur = b.normalized(p.Next)
	}
	writeFlat(b.TargetPositions, cur.Positions)
	writeFlat(b.TargetColors, cur.Colors)

	b.pair = p
	b.set = true
	b.dirty = true
	return true, nil
}

// Dirty reports whether the arrays changed since the last ClearDirty.
func (b *MorphBuffer) Dirty() bool {
	return b.dirty
}

// ClearDirty marks the arrays as uploaded.
func (b *MorphBuffer) ClearDirty() {
	b.dirty = false
}

func (b *MorphBuffer) normalized(section int) PointSet {
	rng := rand.New(rand.NewSource(b.seed ^ int64(section+1)*0x5851F42D4C957F2D))
	return Normalize(b.sets[section], b.Count, rng)
}

// Normalize returns ps resized to exactly n points. Longer sets are
// truncated; shorter ones are padded with copies of randomly chosen existing
// points, offset by up to PadJitter per axis and keeping their color. A set
// that already has n points is returned unchanged. An empty set pads with
// black points at the origin, which render as nothing under additive
// blending.
func Normalize(ps PointSet, n int, rng *rand.Rand) PointSet {
	if n <= 0 {
		return PointSet{}
	}
	src := ps.Len()
	if src == n {
		return ps
	}
	if src > n {
		return PointSet{Positions: ps.Positions[:n], Colors: ps.Colors[:n]}
	}

	out := PointSet{
		Positions: make([][3]float32, n),
		Colors:    make([][3]float32, n),
	}
	copy(out.Positions, ps.Positions)
	copy(out.Colors, ps.Colors)
	if src == 0 {
		return out
	}
	for i := src; i < n; i++ {
		j := rng.Intn(src)
		p := ps.Positions[j]
		for a := 0; a < 3; a++ {
			p[a] += (rng.Float32()*2 - 1) * PadJitter
		}
		out.Positions[i] = p
		out.Colors[i] = ps.Colors[j]
	}
	return out
}

func randomness(n int, rng *rand.Rand) []float32 {
	out := make([]float32, 3*n)
	for i := range out {
		out[i] = (rng.Float32()*2 - 1) * RandomnessRange
	}
	return out
}

func flatten(v [][3]float32) []float32 {
	out := make([]float32, 3*len(v))
	writeFlat(out, v)
	return out
}

func writeFlat(dst []float32, v [][3]float32) {
	for i, p := range v {
		dst[3*i] = p[0]
		dst[3*i+1] = p[1]
		dst[3*i+2] = p[2]
	}
}
