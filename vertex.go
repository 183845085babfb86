package canopy

import "fmt"

// Semantic identifies the meaning of a vertex element, so a Renderer can
// validate that two primitives share a compatible layout before grouping
// them into the same batch.
type Semantic uint8

const (
	SemanticPosition Semantic = iota // screen-space X/Y, float32 pair
	SemanticTexCoord                 // U/V in texture-page pixel coordinates, float32 pair
	SemanticColor                    // premultiplied RGBA tint, float32 quad
)

// ElementType is the scalar storage type of a vertex element.
type ElementType uint8

const (
	ElementFloat32 ElementType = iota
	ElementFloat32x2
	ElementFloat32x4
)

// components reports how many float32 values an ElementType occupies.
func (t ElementType) components() int {
	switch t {
	case ElementFloat32:
		return 1
	case ElementFloat32x2:
		return 2
	case ElementFloat32x4:
		return 4
	default:
		return 0
	}
}

// VertexElement describes one field within an interleaved vertex: its
// meaning, its storage type, and its offset (in float32 units) within the
// vertex stride.
type VertexElement struct {
	Semantic Semantic
	Type     ElementType
	Offset   int // offset within one vertex, in float32 units
}

// VertexDeclaration is an ordered, immutable list of VertexElements plus the
// total stride (in float32 units) of one vertex. Two primitives may only
// share a VertexBatch if their declarations are Equal.
//
// canopy's backend (Ebitengine) fixes the physical vertex layout to
// ebiten.Vertex: DstX, DstY, SrcX, SrcY, ColorR, ColorG, ColorB, ColorA —
// eight float32 fields, position/texcoord/color in that order. DeclSprite
// below is the declaration that matches that fixed layout; it is the only
// declaration any built-in drawable (sprite, mesh, particle, text) uses,
// which is what lets them all batch together. A caller building a custom
// primitive is free to define another declaration, but it will never group
// with the built-ins — a deliberate, documented restriction of the backend
// adaptation, not an oversight.
type VertexDeclaration struct {
	elements []VertexElement
	stride   int // in float32 units, not bytes
}

// NewVertexDeclaration builds a declaration from elements, validating that
// offsets are non-overlapping and monotonically increasing and computing
// the resulting stride. Offsets are given in float32 units.
func NewVertexDeclaration(elements ...VertexElement) (VertexDeclaration, error) {
	if len(elements) == 0 {
		return VertexDeclaration{}, fmt.Errorf("canopy: vertex declaration needs at least one element")
	}
	stride := 0
	for i, e := range elements {
		n := e.Type.components()
		if n == 0 {
			return VertexDeclaration{}, fmt.Errorf("canopy: vertex element %d has invalid type", i)
		}
		if e.Offset != stride {
			return VertexDeclaration{}, fmt.Errorf("canopy: vertex element %d offset %d does not match expected %d", i, e.Offset, stride)
		}
		stride += n
	}
	cp := make([]VertexElement, len(elements))
	copy(cp, elements)
	return VertexDeclaration{elements: cp, stride: stride}, nil
}

// Stride returns the number of float32 values one vertex occupies.
func (d VertexDeclaration) Stride() int { return d.stride }

// Elements returns the declaration's elements in order. The returned slice
// must not be mutated by the caller.
func (d VertexDeclaration) Elements() []VertexElement { return d.elements }

// Equal reports whether two declarations describe the same physical layout.
// Two primitives with unequal declarations can never share a batch.
func (d VertexDeclaration) Equal(other VertexDeclaration) bool {
	if d.stride != other.stride || len(d.elements) != len(other.elements) {
		return false
	}
	for i := range d.elements {
		if d.elements[i] != other.elements[i] {
			return false
		}
	}
	return true
}

// DeclSprite is the vertex declaration matching ebiten.Vertex's fixed
// physical layout (position, texcoord, color), shared by every built-in
// drawable so they can all batch together.
var DeclSprite = mustDecl(
	VertexElement{Semantic: SemanticPosition, Type: ElementFloat32x2, Offset: 0},
	VertexElement{Semantic: SemanticTexCoord, Type: ElementFloat32x2, Offset: 2},
	VertexElement{Semantic: SemanticColor, Type: ElementFloat32x4, Offset: 4},
)

func mustDecl(elements ...VertexElement) VertexDeclaration {
	d, err := NewVertexDeclaration(elements...)
	if err != nil {
		panic(err)
	}
	return d
}

// DrawMode selects the primitive topology a RenderPrimitive's index buffer
// describes.
type DrawMode uint8

const (
	DrawTriangles DrawMode = iota // indices group into independent triangles (the only mode Ebitengine accepts)
	DrawTriangleStrip
	DrawTriangleFan
)

// RenderPass tags which stage of the frame a primitive belongs to, mirroring
// the render_passes concept: primitives in different passes never share a
// batch regardless of material/declaration compatibility.
type RenderPass uint8

const (
	RenderPassOpaque      RenderPass = iota // depth-independent opaque geometry
	RenderPassTransparent                   // alpha-blended geometry, drawn after opaque
	RenderPassOverlay                       // UI/overlay geometry, drawn last
)
