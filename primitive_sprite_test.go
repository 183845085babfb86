package canopy

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestNewSpritePrimitiveBasicQuad(t *testing.T) {
	region := TextureRegion{X: 10, Y: 20, Width: 4, Height: 8}
	n := NewSprite("s", region)
	n.SetPosition(100, 50)
	updateWorldTransform(n, identityTransform, 1.0, true, true)

	page := ebiten.NewImage(64, 64)
	p := NewSpritePrimitive(n, page, RenderPassTransparent)

	if !p.Visible() {
		t.Fatal("expected visible primitive for a visible node")
	}
	if p.IsGroupable() != GroupableYes {
		t.Fatalf("expected GroupableYes, got %v", p.IsGroupable())
	}

	verts := p.verts
	// top-left vertex position should equal the node's world position.
	if verts[0] != 100 || verts[1] != 50 {
		t.Fatalf("TL position = (%v, %v), want (100, 50)", verts[0], verts[1])
	}
	// top-left UV should equal the region's origin.
	if verts[2] != 10 || verts[3] != 20 {
		t.Fatalf("TL uv = (%v, %v), want (10, 20)", verts[2], verts[3])
	}
	// default color (white, full alpha) with no tint set beyond defaults.
	if verts[4] != 1 || verts[5] != 1 || verts[6] != 1 || verts[7] != 1 {
		t.Fatalf("TL color = %v, want all-1", verts[4:8])
	}
}

func TestNewSpritePrimitiveHiddenNodeIsInvisible(t *testing.T) {
	n := NewSprite("s", TextureRegion{Width: 1, Height: 1})
	n.SetVisible(false)
	updateWorldTransform(n, identityTransform, 1.0, true, true)

	page := ebiten.NewImage(4, 4)
	p := NewSpritePrimitive(n, page, RenderPassTransparent)
	if p.Visible() {
		t.Fatal("expected invisible primitive for a hidden node")
	}
	if p.IsGroupable() != GroupableEmpty {
		t.Fatalf("hidden node's primitive should be GroupableEmpty, got %v", p.IsGroupable())
	}
}

func TestNewSpritePrimitiveAppliesMaterialCrop(t *testing.T) {
	region := TextureRegion{X: 0, Y: 0, Width: 10, Height: 10}
	n := NewSprite("s", region)
	updateWorldTransform(n, identityTransform, 1.0, true, true)

	mat := NewMaterial()
	mat.SetStaticMap(SlotDiffuse, region)
	mat.Crop(Rect{X: 0.5, Y: 0, Width: 0.5, Height: 1})
	n.Material = mat

	page := ebiten.NewImage(16, 16)
	p := NewSpritePrimitive(n, page, RenderPassTransparent)

	// top-right corner (u=1,v=0) should map into the cropped right half: x=5+1*5=10
	verts := p.verts
	trU := verts[1*8+2]
	if trU != 10 {
		t.Fatalf("cropped TR u = %v, want 10", trU)
	}
}

func TestRendererAcceptsNewSpritePrimitive(t *testing.T) {
	region := TextureRegion{Width: 2, Height: 2}
	n := NewSprite("s", region)
	updateWorldTransform(n, identityTransform, 1.0, true, true)

	page := ebiten.NewImage(4, 4)
	r := NewRenderer(DeclSprite)
	r.Add(NewSpritePrimitive(n, page, RenderPassTransparent))
	r.Prepare()

	if len(r.Batches()) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(r.Batches()))
	}

	backend := &recordingBackend{}
	if err := r.Draw(backend); err != nil {
		t.Fatalf("Draw error: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("expected 1 draw call, got %d", backend.calls)
	}
}
