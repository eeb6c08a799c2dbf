package mesh

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/scrollmorph/internal/logger"
)

// GLTFLoader loads .glb and .gltf files from disk.
type GLTFLoader struct {
	// Root is prepended to relative paths. Leading slashes on paths are
	// treated as relative to Root, matching web-style "/models/x.glb".
	Root string
}

// NewGLTFLoader creates a loader rooted at root.
func NewGLTFLoader(root string) *GLTFLoader {
	return &GLTFLoader{Root: root}
}

// Resolve maps an asset locator to a filesystem path.
func (l *GLTFLoader) Resolve(path string) string {
	if l.Root == "" {
		return filepath.FromSlash(path)
	}
	return filepath.Join(l.Root, filepath.FromSlash(path))
}

// Load opens the asset and flattens its default scene.
func (l *GLTFLoader) Load(ctx context.Context, path string) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file := l.Resolve(path)
	doc, err := gltf.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Mesh{Path: path}
	b := builder{doc: doc, mesh: m}
	for _, node := range sceneRoots(doc) {
		if err := b.walk(node, mgl32.Ident4()); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	if len(m.Primitives) == 0 {
		return nil, fmt.Errorf("%s: %w", file, ErrNoMeshes)
	}

	logger.Named("mesh").Debug("asset loaded",
		zap.String("path", path),
		zap.Int("primitives", len(m.Primitives)),
		zap.Int("vertices", m.VertexCount()),
	)
	return m, nil
}

// sceneRoots returns the root nodes of the default scene. Documents without
// scenes fall back to every node that is nobody's child.
func sceneRoots(doc *gltf.Document) []*gltf.Node {
	var roots []*gltf.Node
	if len(doc.Scenes) > 0 {
		scene := doc.Scenes[0]
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = doc.Scenes[*doc.Scene]
		}
		for _, idx := range scene.Nodes {
			if int(idx) < len(doc.Nodes) {
				roots = append(roots, doc.Nodes[idx])
			}
		}
		return roots
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(isChild) {
				isChild[c] = true
			}
		}
	}
	for i, n := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, n)
		}
	}
	return roots
}

type builder struct {
	doc   *gltf.Document
	mesh  *Mesh
	depth int
}

// maxDepth guards against cyclic node graphs in malformed files.
const maxDepth = 64

func (b *builder) walk(node *gltf.Node, parent mgl32.Mat4) error {
	if b.depth > maxDepth {
		return fmt.Errorf("node hierarchy deeper than %d", maxDepth)
	}
	world := parent.Mul4(localMatrix(node))

	if node.Mesh != nil && int(*node.Mesh) < len(b.doc.Meshes) {
		for _, prim := range b.doc.Meshes[*node.Mesh].Primitives {
			p, ok, err := b.primitive(prim)
			if err != nil {
				return err
			}
			if ok {
				p.World = world
				b.mesh.Primitives = append(b.mesh.Primitives, p)
			}
		}
	}

	b.depth++
	defer func() { b.depth-- }()
	for _, c := range node.Children {
		if int(c) < len(b.doc.Nodes) {
			if err := b.walk(b.doc.Nodes[c], world); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) primitive(prim *gltf.Primitive) (Primitive, bool, error) {
	var p Primitive

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok || int(posIdx) >= len(b.doc.Accessors) {
		return p, false, nil
	}
	positions, err := modeler.ReadPosition(b.doc, b.doc.Accessors[posIdx], nil)
	if err != nil {
		return p, false, fmt.Errorf("reading positions: %w", err)
	}
	if len(positions) == 0 {
		return p, false, nil
	}
	p.Positions = positions

	if colIdx, ok := prim.Attributes[gltf.COLOR_0]; ok && int(colIdx) < len(b.doc.Accessors) {
		colors, err := readColors(b.doc, b.doc.Accessors[colIdx])
		if err != nil {
			logger.Named("mesh").Warn("ignoring unreadable COLOR_0", zap.Error(err))
		} else if len(colors) == len(positions) {
			p.Colors = colors
		}
	}

	if prim.Material != nil && int(*prim.Material) < len(b.doc.Materials) {
		mat := b.doc.Materials[*prim.Material]
		if mat.PBRMetallicRoughness != nil && mat.PBRMetallicRoughness.BaseColorFactor != nil {
			f := mat.PBRMetallicRoughness.BaseColorFactor
			p.BaseColor = &[3]float32{float32(f[0]), float32(f[1]), float32(f[2])}
		}
	}
	return p, true, nil
}

// readColors reads a COLOR_0 accessor as 0..1 RGB. Normalized integer
// components are divided by their maximum; float components are returned
// as stored. Alpha is dropped.
func readColors(doc *gltf.Document, acr *gltf.Accessor) ([][3]float32, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}

	var out [][3]float32
	switch v := data.(type) {
	case [][3]float32:
		out = v
	case [][4]float32:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{c[0], c[1], c[2]}
		}
	case [][3]uint8:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][4]uint8:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][3]uint16:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	case [][4]uint16:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	default:
		return nil, fmt.Errorf("unsupported color accessor %s/%s", acr.ComponentType, acr.Type)
	}
	return out, nil
}

// localMatrix returns the node's local transform: its explicit matrix when
// one is set, otherwise translation * rotation * scale.
func localMatrix(node *gltf.Node) mgl32.Mat4 {
	m := node.MatrixOrDefault()
	id := mgl32.Ident4()
	var out mgl32.Mat4
	identity := true
	for i := range m {
		out[i] = float32(m[i])
		if out[i] != id[i] {
			identity = false
		}
	}
	if !identity {
		return out
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}
