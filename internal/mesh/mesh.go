// Package mesh loads 3D assets into a flat list of transformed primitives.
package mesh

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNoMeshes is returned when an asset has no drawable primitives.
var ErrNoMeshes = errors.New("asset contains no meshes")

// Loader loads the mesh at path. Implementations must be safe for
// concurrent use.
type Loader interface {
	Load(ctx context.Context, path string) (*Mesh, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (*Mesh, error)

// Load calls f(ctx, path).
func (f LoaderFunc) Load(ctx context.Context, path string) (*Mesh, error) {
	return f(ctx, path)
}

// Primitive is one vertex stream in the asset's local frame together with
// the world transform of the node that references it.
type Primitive struct {
	Positions [][3]float32
	Colors    [][3]float32 // per-vertex color, nil when absent
	BaseColor *[3]float32  // material base color, nil when absent
	World     mgl32.Mat4
}

// Mesh is a loaded asset. It is read-only once returned by a Loader.
type Mesh struct {
	Path       string
	Primitives []Primitive
}

// VertexCount returns the total number of vertices over all primitives.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Primitives {
		n += len(m.Primitives[i].Positions)
	}
	return n
}
