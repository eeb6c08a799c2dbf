// Package particle turns meshes into point clouds and packs them into the
// attribute arrays the particle shaders consume.
package particle

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/scrollmorph/internal/mesh"
)

// MinDensity is the floor applied to sampling density. It keeps the stride
// finite; every non-empty primitive still yields at least one point.
const MinDensity = 1e-4

var white = [3]float32{1, 1, 1}

// PointSet is a sampled point cloud. Positions and Colors have equal length.
// A PointSet is never modified after sampling.
type PointSet struct {
	Positions [][3]float32
	Colors    [][3]float32
}

// Len returns the number of points.
func (p PointSet) Len() int {
	return len(p.Positions)
}

// SampleOptions controls Sample.
type SampleOptions struct {
	Density  float32     // fraction in (0, 1]; values above 1 behave as 1
	Override *[3]float32 // replaces all source colors when set
}

// Stride returns the vertex step for a density: round(1/d), at least 1.
func Stride(density float32) int {
	if density < MinDensity || math.IsNaN(float64(density)) {
		density = MinDensity
	}
	s := int(math.Round(1 / float64(density)))
	if s < 1 {
		s = 1
	}
	return s
}

// Sample stride-samples every primitive of m, transforms the points into the
// mesh frame and re-centres them on the bounding-box centre of the whole
// transformed mesh.
//
// Color priority per point: opts.Override, per-vertex color, material base
// color, white.
func Sample(m *mesh.Mesh, opts SampleOptions) PointSet {
	stride := Stride(opts.Density)

	minB := mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxB := minB.Mul(-1)
	for i := range m.Primitives {
		p := &m.Primitives[i]
		for _, v := range p.Positions {
			w := transform(p.World, v)
			for a := 0; a < 3; a++ {
				minB[a] = min(minB[a], w[a])
				maxB[a] = max(maxB[a], w[a])
			}
		}
	}
	if m.VertexCount() == 0 {
		return PointSet{}
	}
	center := minB.Add(maxB).Mul(0.5)

	var out PointSet
	for i := range m.Primitives {
		p := &m.Primitives[i]
		for v := 0; v < len(p.Positions); v += stride {
			w := transform(p.World, p.Positions[v]).Sub(center)
			out.Positions = append(out.Positions, [3]float32(w))
			out.Colors = append(out.Colors, pointColor(p, v, opts.Override))
		}
	}
	return out
}

func transform(world mgl32.Mat4, v [3]float32) mgl32.Vec3 {
	return world.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1}).Vec3()
}

func pointColor(p *mesh.Primitive, v int, override *[3]float32) [3]float32 {
	switch {
	case override != nil:
		return *override
	case p.Colors != nil && v < len(p.Colors):
		return p.Colors[v]
	case p.BaseColor != nil:
		return *p.BaseColor
	default:
		return white
	}
}
