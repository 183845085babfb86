package canopy

import "github.com/hajimehoshi/ebiten/v2"

// Groupable reports whether a RenderPrimitive may currently be coalesced
// into a shared VertexBatch with its siblings.
type Groupable uint8

const (
	GroupableNo    Groupable = iota // incompatible declaration/material/pass — never batch with others
	GroupableEmpty                  // compatible, but has zero vertices right now — contributes nothing
	GroupableYes                    // compatible and has data — eligible to batch
)

// dirtyFlag is a small lattice of independent "what changed" bits. A
// primitive only pays for the kind of update its dirty bits name:
// geometry rewrites both vertices and indices, color-only changes
// (ApplyColor/ApplyOpacity) only touch the color channel of already-packed
// vertices, and a visibility flip touches neither — it only changes
// whether the primitive contributes to Groupable at all.
type dirtyFlag uint8

const (
	dirtyNone    dirtyFlag = 0
	flagGeometry dirtyFlag = 1 << 0
	flagColor    dirtyFlag = 1 << 1
	flagVisibility dirtyFlag = 1 << 2
)

// RenderPrimitive is the smallest unit the Renderer schedules: one
// draw-compatible chunk of vertex/index data sharing one declaration, one
// material (texture + blend), one render pass, and one draw mode.
//
// A primitive's lifetime is owned by exactly one Renderer via Add/Remove;
// callers refer to it afterwards through the handle returned by Add
// (an (arena index, generation) pair, primitiveRef) rather than a raw
// pointer, so a stale reference after Remove is detected instead of
// silently aliasing a reused slot.
type RenderPrimitive struct {
	decl     VertexDeclaration
	material *Material
	pass     RenderPass
	mode     DrawMode
	blend    BlendMode
	texture  TextureHandle

	// Z is the primitive's ordering key within its render pass — ascending,
	// stable on ties (see Renderer's ordering contract).
	Z float64

	visible bool
	dirty   dirtyFlag

	// localVerts holds the primitive's geometry before the model matrix is
	// applied — what a bridge (NewSpritePrimitive and friends) actually
	// knows about a shape, independent of where its node currently sits.
	// verts is localVerts with every SemanticPosition element carried
	// through currentModel; the two are kept in sync by syncWorld so
	// moving a node only ever touches currentModel, never localVerts.
	localVerts []float32
	indices    []uint16

	currentModel [6]float64
	appliedModel [6]float64
	worldStale   bool

	verts []float32

	// view is valid only while the primitive is owned by a Renderer; it
	// names the primitive's current slot within that Renderer's batch
	// buffer.
	view View
	ref  primitiveRef
}

// TextureHandle identifies the image a primitive samples from. Two
// primitives group only if their handles compare equal. It wraps an
// *ebiten.Image directly rather than an opaque integer, since Go pointers
// are already comparable and this keeps the zero value ("no texture bound",
// resolved to WhitePixel) meaningful.
type TextureHandle struct {
	image *ebiten.Image
}

// textureHandleOf wraps a backend image pointer as a TextureHandle.
func textureHandleOf(img *ebiten.Image) TextureHandle {
	return TextureHandle{image: img}
}

// NewRenderPrimitive creates a detached primitive (not yet owned by any
// Renderer) with the given declaration, render pass and draw mode. It
// starts invisible with no vertex data — callers must call SetGeometry and
// SetVisible before it becomes Groupable.
func NewRenderPrimitive(decl VertexDeclaration, pass RenderPass, mode DrawMode) *RenderPrimitive {
	return &RenderPrimitive{
		decl:         decl,
		pass:         pass,
		mode:         mode,
		currentModel: identityTransform,
		appliedModel: identityTransform,
	}
}

// SetMaterial binds the primitive's material and texture/blend state,
// marking it dirty for re-grouping (material identity participates in the
// groupable predicate).
func (p *RenderPrimitive) SetMaterial(m *Material, texture TextureHandle, blend BlendMode) {
	p.material = m
	p.texture = texture
	p.blend = blend
	p.dirty |= flagGeometry
}

// SetGeometry replaces the primitive's local-space vertex and index data —
// geometry as a bridge (NewSpritePrimitive and friends) builds it before any
// model matrix is applied. indices are shared as-is between local and world
// space since a model matrix never changes winding. World data is
// recomputed immediately so callers never have to remember to call
// Prepare before reading verts.
func (p *RenderPrimitive) SetGeometry(verts []float32, indices []uint16) {
	p.localVerts = verts
	p.indices = indices
	p.worldStale = true
	p.dirty |= flagGeometry
	p.syncWorld()
}

// SetModelMatrix sets the affine transform carrying local_vertex_data into
// world space (see syncWorld), per spec.md §4.5's current_model_matrix. A
// node's bridge calls this once per frame with the node's world transform;
// the primitive itself never needs reconstructing just because its node
// moved.
func (p *RenderPrimitive) SetModelMatrix(m [6]float64) {
	if m == p.currentModel {
		return
	}
	p.currentModel = m
	p.worldStale = true
	p.dirty |= flagGeometry
	p.syncWorld()
}

// syncWorld recomputes verts from localVerts and currentModel when either
// has changed since the last sync, and reports whether it did any work —
// the same test Prepare exposes publicly. SemanticPosition elements are
// carried through the affine matrix; every other element (color, texcoord)
// passes through unchanged.
func (p *RenderPrimitive) syncWorld() bool {
	if !p.worldStale && p.appliedModel == p.currentModel {
		return false
	}
	world := make([]float32, len(p.localVerts))
	copy(world, p.localVerts)

	a, b, c, d, tx, ty := p.currentModel[0], p.currentModel[1], p.currentModel[2], p.currentModel[3], p.currentModel[4], p.currentModel[5]
	stride := p.decl.Stride()
	for _, e := range p.decl.Elements() {
		if e.Semantic != SemanticPosition {
			continue
		}
		for v := e.Offset; v+2 <= len(p.localVerts); v += stride {
			x, y := float64(p.localVerts[v+0]), float64(p.localVerts[v+1])
			world[v+0] = float32(a*x + c*y + tx)
			world[v+1] = float32(b*x + d*y + ty)
		}
	}

	p.verts = world
	p.appliedModel = p.currentModel
	p.worldStale = false
	return true
}

// Prepare recomputes world_vertex_data from local_vertex_data and
// current_model_matrix if either changed since the primitive was last
// prepared, per spec.md §4.5, and reports whether it did so. Renderer.Prepare
// calls this on every live primitive before grouping them into batches.
func (p *RenderPrimitive) Prepare() bool {
	return p.syncWorld()
}

// refresh requests re-batching without touching vertex data — the hook a
// caller uses after changing p.Z or similar ordering state that the
// Renderer's grouping pass needs to notice next Prepare.
func (p *RenderPrimitive) refresh() {
	p.dirty |= flagGeometry
}

// ApplyColor rewrites every vertex's SemanticColor fields to c in place,
// without touching position/texcoord data or re-deriving the index buffer.
// This is the cheap path a Node.SetColor call takes, distinct from a full
// SetGeometry rebuild. It operates on local_vertex_data — syncWorld carries
// the new values into world space immediately.
func (p *RenderPrimitive) ApplyColor(c Color) {
	stride := p.decl.Stride()
	for _, e := range p.decl.Elements() {
		if e.Semantic != SemanticColor {
			continue
		}
		for v := e.Offset; v+4 <= len(p.localVerts); v += stride {
			p.localVerts[v+0] = float32(c.R)
			p.localVerts[v+1] = float32(c.G)
			p.localVerts[v+2] = float32(c.B)
			p.localVerts[v+3] = float32(c.A)
		}
	}
	p.dirty |= flagColor
	p.worldStale = true
	p.syncWorld()
}

// ApplyOpacity scales every vertex's alpha channel by alpha in place,
// leaving R/G/B untouched — used for opacity propagation down a subtree
// without destroying each node's own tint. It operates on
// local_vertex_data, same as ApplyColor.
func (p *RenderPrimitive) ApplyOpacity(alpha float64) {
	stride := p.decl.Stride()
	for _, e := range p.decl.Elements() {
		if e.Semantic != SemanticColor {
			continue
		}
		for v := e.Offset; v+4 <= len(p.localVerts); v += stride {
			p.localVerts[v+3] = float32(float64(p.localVerts[v+3]) * alpha)
		}
	}
	p.dirty |= flagColor
	p.worldStale = true
	p.syncWorld()
}

// SetVisible toggles whether the primitive contributes to the render
// output. An invisible primitive still owns its slot in the Renderer but
// is treated as GroupableEmpty.
func (p *RenderPrimitive) SetVisible(v bool) {
	if p.visible == v {
		return
	}
	p.visible = v
	p.dirty |= flagVisibility
}

// Visible reports the primitive's current visibility.
func (p *RenderPrimitive) Visible() bool { return p.visible }

// IsGroupable reports whether this primitive can currently share a batch
// with another of the same declaration/pass/material/blend/texture.
// GroupableEmpty signals "compatible but contributes nothing this frame" —
// the Renderer still walks past it when merging adjacent batches but never
// allocates it a non-empty slot.
func (p *RenderPrimitive) IsGroupable() Groupable {
	if !p.visible || len(p.verts) == 0 {
		return GroupableEmpty
	}
	return GroupableYes
}

// compatibleWith reports whether p and other share a declaration, render
// pass, draw mode, blend mode and texture — the full groupable predicate
// used by the Renderer when deciding whether two primitives may occupy the
// same VertexBatch.
func (p *RenderPrimitive) compatibleWith(other *RenderPrimitive) bool {
	return p.decl.Equal(other.decl) &&
		p.pass == other.pass &&
		p.mode == other.mode &&
		p.blend == other.blend &&
		p.texture == other.texture
}

// needsUpdate reports, and clears, whatever update level is pending.
func (p *RenderPrimitive) needsUpdate() dirtyFlag {
	d := p.dirty
	p.dirty = dirtyNone
	return d
}
