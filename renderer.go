package canopy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// primitiveRef is an (arena index, generation) handle to a RenderPrimitive
// owned by a Renderer. Handing callers this pair instead of a raw pointer
// means a reference held past a Remove is detected (generation mismatch)
// rather than silently aliasing whatever primitive is later allocated into
// the freed slot — the back-reference pattern recommended for this kind of
// pooled arena.
type primitiveRef struct {
	index      int
	generation uint32
}

// Valid reports whether the reference was ever assigned.
func (r primitiveRef) Valid() bool { return r.generation != 0 }

// arenaSlot is one slot of a Renderer's primitive arena: either occupied by
// a live primitive, or free and linked into the free list via nextFree.
type arenaSlot struct {
	prim       *RenderPrimitive
	generation uint32
	nextFree   int // index of the next free slot, or -1
}

// needUpdate classifies how much re-packing work a batch requires this
// Prepare call.
type needUpdate uint8

const (
	needNo          needUpdate = iota // batch contents and position are unchanged
	needYes                           // batch contents changed; its Buffer range can be rewritten in place
	needYesSuccessive                 // batch is new or its own vertex/index count changed; it is
	                                  // appended at the Buffer's tail and its view moves there
)

// renderBatch is one contiguous run of compatible, visible primitives
// sharing a declaration/pass/mode/blend/texture, packed into one
// contiguous range of the Renderer's Buffer and drawn with a single
// backend draw call.
type renderBatch struct {
	decl    VertexDeclaration
	pass    RenderPass
	mode    DrawMode
	blend   BlendMode
	texture TextureHandle

	members []primitiveRef
	view    View
}

// Backend is the minimal drawing surface a Renderer submits finished
// batches to. The core batching logic depends only on this interface, not
// on Ebitengine directly, so it can be exercised with a recording fake in
// tests. ebitenBackend (below) is the concrete implementation used at
// runtime.
type Backend interface {
	DrawTriangles(verts []ebiten.Vertex, indices []uint16, texture *ebiten.Image, blend BlendMode)
}

// ebitenBackend submits a batch as a single ebiten.Image.DrawTriangles
// call against the given render target.
type ebitenBackend struct {
	target *ebiten.Image
}

// NewEbitenBackend returns a Backend that draws onto target.
func NewEbitenBackend(target *ebiten.Image) Backend {
	return &ebitenBackend{target: target}
}

func (b *ebitenBackend) DrawTriangles(verts []ebiten.Vertex, indices []uint16, texture *ebiten.Image, blend BlendMode) {
	if texture == nil {
		texture = WhitePixel
	}
	op := &ebiten.DrawTrianglesOptions{Blend: blend.EbitenBlend()}
	b.target.DrawTriangles(verts, indices, texture, op)
}

// Renderer groups a set of RenderPrimitives into as few VertexBatches as
// possible and submits them to a Backend in stable Z order. It is the
// single owner of both the primitive arena and the Buffer those
// primitives' vertex data is packed into.
//
// Per-frame pipeline (Renderer.Prepare then Renderer.Draw):
//  1. Any primitive whose dirty flags are non-zero is re-evaluated.
//  2. Primitives are grouped into runs of mutually compatible, visible
//     (IsGroupable == GroupableYes) primitives, in ascending Z order with
//     ties broken by arena insertion order — sort.SliceStable is used
//     throughout specifically so that frame-to-frame batch order never
//     changes for unchanged input, satisfying the renderer's ordering
//     invariant.
//  3. Each batch's needUpdate status (No/Yes/YesSuccessive) determines
//     whether its Buffer range is left alone, rewritten in place, or — if
//     the batch is new or its own size changed — appended at the Buffer's
//     tail; the other batches keep their ranges.
type Renderer struct {
	arena    []arenaSlot
	freeHead int // index of first free slot, or -1

	buf     *Buffer
	batches []*renderBatch

	declStride int
}

// NewRenderer creates an empty Renderer whose Buffer packs vertices using
// decl's stride.
func NewRenderer(decl VertexDeclaration) *Renderer {
	return &Renderer{
		freeHead:   -1,
		buf:        NewBuffer(UsageDynamic, 64, decl.Stride()),
		declStride: decl.Stride(),
	}
}

// Add takes ownership of prim and returns a stable reference to it. prim
// must not be added to more than one Renderer.
func (r *Renderer) Add(prim *RenderPrimitive) primitiveRef {
	var idx int
	if r.freeHead >= 0 {
		idx = r.freeHead
		r.freeHead = r.arena[idx].nextFree
	} else {
		r.arena = append(r.arena, arenaSlot{generation: 0})
		idx = len(r.arena) - 1
	}
	r.arena[idx].generation++
	r.arena[idx].prim = prim
	ref := primitiveRef{index: idx, generation: r.arena[idx].generation}
	prim.ref = ref
	return ref
}

// Remove releases ref's slot back to the free list. Any primitiveRef
// copies held elsewhere become stale: Get will report them invalid.
func (r *Renderer) Remove(ref primitiveRef) {
	if ref.index < 0 || ref.index >= len(r.arena) {
		return
	}
	slot := &r.arena[ref.index]
	if slot.generation != ref.generation || slot.prim == nil {
		return
	}
	slot.prim = nil
	slot.nextFree = r.freeHead
	r.freeHead = ref.index
}

// Get resolves ref to its primitive, or nil if the reference is stale or
// the slot has been removed.
func (r *Renderer) Get(ref primitiveRef) *RenderPrimitive {
	if ref.index < 0 || ref.index >= len(r.arena) {
		return nil
	}
	slot := &r.arena[ref.index]
	if slot.generation != ref.generation {
		return nil
	}
	return slot.prim
}

// Count returns the number of live (non-removed) primitives.
func (r *Renderer) Count() int {
	n := 0
	for _, s := range r.arena {
		if s.prim != nil {
			n++
		}
	}
	return n
}

// liveRefs returns references to all live primitives in arena-index order
// (stable, used only as the tie-break key — not a semantic ordering).
func (r *Renderer) liveRefs() []primitiveRef {
	out := make([]primitiveRef, 0, len(r.arena))
	for i, s := range r.arena {
		if s.prim != nil {
			out = append(out, primitiveRef{index: i, generation: s.generation})
		}
	}
	return out
}

// Prepare regroups primitives into batches and packs any dirty batch's
// vertex/index data into the Renderer's Buffer. It must be called once per
// frame before Draw. Returns the number of batches that required a
// rewrite (needYes or needYesSuccessive), for instrumentation/tests.
func (r *Renderer) Prepare() int {
	for _, s := range r.arena {
		if s.prim != nil {
			s.prim.Prepare()
		}
	}

	refs := r.liveRefs()

	sort.SliceStable(refs, func(i, j int) bool {
		pi, pj := r.Get(refs[i]), r.Get(refs[j])
		if pi.pass != pj.pass {
			return pi.pass < pj.pass
		}
		if pi.Z != pj.Z {
			return pi.Z < pj.Z
		}
		// Tie-break on arena index preserves whatever relative order the
		// primitives were Added in, which is what keeps batch order
		// stable frame-to-frame for unchanged Z values.
		return refs[i].index < refs[j].index
	})

	old := make(map[string]*renderBatch, len(r.batches))
	for _, b := range r.batches {
		old[batchMemberKey(b.members)] = b
	}

	newBatches := make([]*renderBatch, 0, len(r.batches))
	var cur *renderBatch
	for _, ref := range refs {
		p := r.Get(ref)
		if p.IsGroupable() != GroupableYes {
			continue
		}
		if cur == nil || !p.compatibleWith(cur.firstMember(r)) {
			cur = &renderBatch{decl: p.decl, pass: p.pass, mode: p.mode, blend: p.blend, texture: p.texture}
			newBatches = append(newBatches, cur)
		}
		cur.members = append(cur.members, ref)
	}

	// Reuse the previous frame's batch (and its Buffer view) whenever the
	// new grouping's member set is identical, so an unchanged batch keeps
	// needNo reachable instead of being treated as brand new every call.
	for i, b := range newBatches {
		if match, ok := old[batchMemberKey(b.members)]; ok {
			match.decl, match.pass, match.mode, match.blend, match.texture = b.decl, b.pass, b.mode, b.blend, b.texture
			newBatches[i] = match
		}
	}

	rewritten := r.repack(newBatches)
	r.batches = newBatches
	return rewritten
}

// batchMemberKey derives a string identity for a batch's exact, ordered
// member set, used to match a newly grouped batch against the renderBatch
// it corresponds to in the previous frame (if any), so that batch's Buffer
// view — and therefore its needNo/needYes eligibility — survives an
// unchanged Prepare call.
func batchMemberKey(members []primitiveRef) string {
	var sb strings.Builder
	for _, m := range members {
		sb.WriteString(strconv.Itoa(m.index))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(m.generation), 10))
		sb.WriteByte(',')
	}
	return sb.String()
}

// firstMember returns the batch's first member primitive, used only to
// test compatibility against a candidate being appended.
func (b *renderBatch) firstMember(r *Renderer) *RenderPrimitive {
	return r.Get(b.members[0])
}

// repack walks the new batch list, decides each batch's needUpdate level,
// and rewrites the Buffer where required: an unchanged batch (needNo) is
// skipped entirely, a batch whose packed size is unchanged but whose
// contents are dirty (needYes) is rewritten in place via Buffer.Overwrite,
// and a new or resized batch (needYesSuccessive) is appended at the
// Buffer's tail, since its previous range (if any) can no longer hold it.
func (r *Renderer) repack(batches []*renderBatch) int {
	rewritten := 0

	for _, b := range batches {
		verts, indices, anyDirty := r.packBatch(b)

		sizeChanged := len(verts) != b.view.VertLen || len(indices) != b.view.IndexLen
		status := needNo
		switch {
		case sizeChanged:
			status = needYesSuccessive
		case anyDirty:
			status = needYes
		}

		switch status {
		case needNo:
			continue
		case needYes:
			r.buf.Overwrite(b.view, verts)
		case needYesSuccessive:
			b.view = r.buf.Append(verts, indices)
		}
		rewritten++
	}
	return rewritten
}

// packBatch concatenates every member primitive's vertex/index data,
// rebasing index values by each member's running vertex offset within the
// batch, and reports whether any member had pending dirty flags.
func (r *Renderer) packBatch(b *renderBatch) ([]float32, []uint16, bool) {
	var verts []float32
	var indices []uint16
	anyDirty := false
	vertOffset := 0

	for _, ref := range b.members {
		p := r.Get(ref)
		if p.needsUpdate() != dirtyNone {
			anyDirty = true
		}
		verts = append(verts, p.verts...)
		base := uint16(vertOffset / r.declStride)
		for _, idx := range p.indices {
			indices = append(indices, idx+base)
		}
		vertOffset += len(p.verts)
	}
	return verts, indices, anyDirty
}

// Draw submits every batch to backend in order, slicing each batch's
// vertex/index range from the packed Buffer and converting to the
// backend's fixed ebiten.Vertex layout (which is exactly DeclSprite's
// layout, the only declaration any built-in drawable uses).
func (r *Renderer) Draw(backend Backend) error {
	verts := r.buf.Verts()
	indices := r.buf.Indices()

	for _, b := range r.batches {
		if b.view.VertLen == 0 {
			continue
		}
		if !b.decl.Equal(DeclSprite) {
			return fmt.Errorf("canopy: renderer cannot submit a batch with a non-backend vertex declaration")
		}
		n := b.view.VertLen / b.decl.Stride()
		ev := make([]ebiten.Vertex, n)
		for i := 0; i < n; i++ {
			base := b.view.VertOffset + i*b.decl.Stride()
			ev[i] = ebiten.Vertex{
				DstX: verts[base+0], DstY: verts[base+1],
				SrcX: verts[base+2], SrcY: verts[base+3],
				ColorR: verts[base+4], ColorG: verts[base+5], ColorB: verts[base+6], ColorA: verts[base+7],
			}
		}
		bi := indices[b.view.IndexOffset : b.view.IndexOffset+b.view.IndexLen]
		backend.DrawTriangles(ev, bi, b.texture.image, b.blend)
	}
	return nil
}

// BatchCount returns the number of batches produced by the last Prepare
// call.
func (r *Renderer) BatchCount() int { return len(r.batches) }
