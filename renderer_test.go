package canopy

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

// quadPrimitive builds a visible, groupable 4-vertex/6-index quad primitive
// at the given Z using DeclSprite, bound to texture and blend.
func quadPrimitive(z float64, texture TextureHandle, blend BlendMode) *RenderPrimitive {
	p := NewRenderPrimitive(DeclSprite, RenderPassTransparent, DrawTriangles)
	p.Z = z
	p.SetMaterial(nil, texture, blend)
	verts := make([]float32, 0, 32)
	for i := 0; i < 4; i++ {
		verts = append(verts, float32(i), float32(i), 0, 0, 1, 1, 1, 1)
	}
	p.SetGeometry(verts, []uint16{0, 1, 2, 0, 2, 3})
	p.SetVisible(true)
	return p
}

type recordingBackend struct {
	calls int
	verts [][]ebiten.Vertex
}

func (b *recordingBackend) DrawTriangles(verts []ebiten.Vertex, indices []uint16, texture *ebiten.Image, blend BlendMode) {
	b.calls++
	b.verts = append(b.verts, verts)
}

func TestRendererAddGetRemove(t *testing.T) {
	r := NewRenderer(DeclSprite)
	p := quadPrimitive(0, TextureHandle{}, BlendNormal)
	ref := r.Add(p)

	if got := r.Get(ref); got != p {
		t.Fatal("Get should return the added primitive")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}

	r.Remove(ref)
	if got := r.Get(ref); got != nil {
		t.Fatal("Get should return nil for a removed reference")
	}
	if r.Count() != 0 {
		t.Fatalf("Count after remove = %d, want 0", r.Count())
	}
}

func TestRendererStaleReferenceAfterSlotReuse(t *testing.T) {
	r := NewRenderer(DeclSprite)
	p1 := quadPrimitive(0, TextureHandle{}, BlendNormal)
	ref1 := r.Add(p1)
	r.Remove(ref1)

	p2 := quadPrimitive(0, TextureHandle{}, BlendNormal)
	ref2 := r.Add(p2)

	if ref1.index != ref2.index {
		t.Fatalf("expected slot reuse: ref1.index=%d ref2.index=%d", ref1.index, ref2.index)
	}
	if r.Get(ref1) != nil {
		t.Fatal("stale reference into a reused slot must not resolve to the new primitive")
	}
	if r.Get(ref2) != p2 {
		t.Fatal("fresh reference into the reused slot should resolve correctly")
	}
}

func TestRendererGroupsCompatiblePrimitivesIntoOneBatch(t *testing.T) {
	r := NewRenderer(DeclSprite)
	tex := TextureHandle{}
	r.Add(quadPrimitive(0, tex, BlendNormal))
	r.Add(quadPrimitive(1, tex, BlendNormal))
	r.Add(quadPrimitive(2, tex, BlendNormal))

	r.Prepare()
	batches := r.Batches()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].MemberCount != 3 {
		t.Fatalf("expected 3 members in the batch, got %d", batches[0].MemberCount)
	}
}

func TestRendererSeparatesIncompatiblePrimitives(t *testing.T) {
	r := NewRenderer(DeclSprite)
	texA := TextureHandle{}
	texB := textureHandleOf(ebiten.NewImage(1, 1))

	r.Add(quadPrimitive(0, texA, BlendNormal))
	r.Add(quadPrimitive(1, texB, BlendNormal))
	r.Add(quadPrimitive(2, texA, BlendAdd))

	r.Prepare()
	if got := len(r.Batches()); got != 3 {
		t.Fatalf("expected 3 batches for 3 mutually-incompatible primitives, got %d", got)
	}
}

func TestRendererOrdersBatchesByAscendingZStably(t *testing.T) {
	r := NewRenderer(DeclSprite)
	texA := TextureHandle{}
	texB := textureHandleOf(ebiten.NewImage(1, 1))

	// Interleave Z values across two incompatible textures so ordering by Z
	// only works if the batches are sorted independent of insertion order.
	r.Add(quadPrimitive(5, texB, BlendNormal))
	r.Add(quadPrimitive(1, texA, BlendNormal))

	r.Prepare()
	batches := r.Batches()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	// texA's primitive has the smaller Z (1 < 5) and the same RenderPass,
	// so it must be first.
	if batches[0].Texture != texA {
		t.Fatal("expected the lower-Z batch to be drawn first")
	}
}

func TestRendererExcludesInvisibleAndEmptyPrimitives(t *testing.T) {
	r := NewRenderer(DeclSprite)
	visible := quadPrimitive(0, TextureHandle{}, BlendNormal)
	r.Add(visible)

	hidden := quadPrimitive(1, TextureHandle{}, BlendNormal)
	hidden.SetVisible(false)
	r.Add(hidden)

	empty := NewRenderPrimitive(DeclSprite, RenderPassTransparent, DrawTriangles)
	empty.SetVisible(true)
	r.Add(empty)

	r.Prepare()
	total := 0
	for _, b := range r.Batches() {
		total += b.MemberCount
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 groupable primitive to be batched, got %d", total)
	}
}

func TestRendererRepeatedPrepareIsStableWithNoChanges(t *testing.T) {
	r := NewRenderer(DeclSprite)
	r.Add(quadPrimitive(0, TextureHandle{}, BlendNormal))
	r.Add(quadPrimitive(1, TextureHandle{}, BlendNormal))

	r.Prepare()
	first := r.Batches()
	rewritten := r.Prepare()
	second := r.Batches()

	if len(first) != len(second) {
		t.Fatalf("batch count changed across stable frames: %d vs %d", len(first), len(second))
	}
	if rewritten != 0 {
		t.Fatalf("expected 0 batches to need rewriting on an unchanged second Prepare, got %d", rewritten)
	}
}

func TestRendererDrawSubmitsEachBatchOnce(t *testing.T) {
	r := NewRenderer(DeclSprite)
	tex := TextureHandle{}
	r.Add(quadPrimitive(0, tex, BlendNormal))
	r.Add(quadPrimitive(1, tex, BlendNormal))
	r.Prepare()

	backend := &recordingBackend{}
	if err := r.Draw(backend); err != nil {
		t.Fatalf("Draw returned error: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("expected 1 draw call for 1 batch, got %d", backend.calls)
	}
	if len(backend.verts[0]) != 8 {
		t.Fatalf("expected 8 vertices (2 quads x 4), got %d", len(backend.verts[0]))
	}
}
