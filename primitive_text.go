package canopy

import "github.com/hajimehoshi/ebiten/v2"

// NewTextPrimitives builds one detached RenderPrimitive per glyph run of a
// TextBlock sharing a font texture atlas, for use with a standalone
// Renderer, per spec.md §4.9's DrawableText: one quad per glyph, stored as
// four vertices and six indices (two triangles; the two corners the
// triangles share are not duplicated), with an outline run emitted as a
// separate primitive from the
// fill run. A BitmapFont yields up to two primitives (outline, fill), both
// bound to fontPage (a BitmapFont has exactly one page); a TTFFont yields
// one, bound to its own cached glyph image. Vertex emission mirrors
// emitBitmapTextCommands/emitTTFTextCommand exactly (same per-glyph corner
// layout, same outline-offset convention, same world-transform
// composition) so a primitive built here renders identically to the same
// TextBlock drawn through the scene's immediate-mode traversal.
func NewTextPrimitives(tb *TextBlock, n *Node, fontPage *ebiten.Image, pass RenderPass) []*RenderPrimitive {
	switch tb.Font.(type) {
	case *BitmapFont:
		return newBitmapTextPrimitives(tb, n, fontPage, pass)
	case *TTFFont:
		return []*RenderPrimitive{newTTFTextPrimitive(tb, n, pass)}
	default:
		return nil
	}
}

// newBitmapTextPrimitives lays out tb (if dirty) and packs its glyph runs
// into one or two RenderPrimitives: an outline pass (8-direction offset
// copies behind the fill, only when tb.Outline is set) and the fill pass.
// Each is a single DeclSprite primitive bound to fontPage, batchable with
// any other DeclSprite geometry sharing that same page and material.
func newBitmapTextPrimitives(tb *TextBlock, n *Node, fontPage *ebiten.Image, pass RenderPass) []*RenderPrimitive {
	lines := tb.layout()
	glyphCount := 0
	for _, line := range lines {
		glyphCount += len(line.glyphs)
	}
	if glyphCount == 0 {
		return nil
	}

	lh := tb.lineHeight()
	alpha := n.worldAlpha
	fill := Color{
		R: tb.Color.R * n.Color.R,
		G: tb.Color.G * n.Color.G,
		B: tb.Color.B * n.Color.B,
		A: tb.Color.A * n.Color.A * alpha,
	}

	handle := textureHandleOf(fontPage)

	var prims []*RenderPrimitive

	if tb.Outline != nil && tb.Outline.Thickness > 0 {
		outColor := Color{
			R: tb.Outline.Color.R * n.Color.R,
			G: tb.Outline.Color.G * n.Color.G,
			B: tb.Outline.Color.B * n.Color.B,
			A: tb.Outline.Color.A * n.Color.A * alpha,
		}
		th := tb.Outline.Thickness
		offsets := [8][2]float64{
			{-th, 0}, {th, 0}, {0, -th}, {0, th},
			{-th, -th}, {th, -th}, {-th, th}, {th, th},
		}
		var verts []float32
		var indices []uint16
		for _, off := range offsets {
			for li, line := range lines {
				lineY := float64(li) * lh
				for _, gp := range line.glyphs {
					verts, indices = appendGlyphQuad(verts, indices,
						gp.x+off[0], gp.y+lineY+off[1], gp.region, outColor)
				}
			}
		}
		op := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
		op.SetMaterial(n.Material, handle, n.BlendMode)
		op.Z = float64(n.ZIndex)
		op.SetModelMatrix(n.worldTransform)
		op.SetGeometry(verts, indices)
		op.SetVisible(n.Visible)
		prims = append(prims, op)
	}

	var verts []float32
	var indices []uint16
	for li, line := range lines {
		lineY := float64(li) * lh
		for _, gp := range line.glyphs {
			verts, indices = appendGlyphQuad(verts, indices,
				gp.x, gp.y+lineY, gp.region, fill)
		}
	}
	fp := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	fp.SetMaterial(n.Material, handle, n.BlendMode)
	fp.Z = float64(n.ZIndex)
	fp.SetModelMatrix(n.worldTransform)
	fp.SetGeometry(verts, indices)
	fp.SetVisible(n.Visible)
	prims = append(prims, fp)

	return prims
}

// appendGlyphQuad emits the four corner vertices and two triangles (six
// indices) for one glyph at local offset (localX, localY) in the
// primitive's own local space — the caller supplies the model matrix
// separately via SetModelMatrix. r's pixel rect becomes the quad's source
// coordinates directly (bitmap font glyphs are never atlas-rotated).
func appendGlyphQuad(verts []float32, indices []uint16, localX, localY float64, r TextureRegion, color Color) ([]float32, []uint16) {
	lx := float32(localX)
	ly := float32(localY)
	w := float32(r.Width)
	h := float32(r.Height)

	cx := [4]float32{lx, lx + w, lx, lx + w}
	cy := [4]float32{ly, ly, ly + h, ly + h}

	rx, ry := float32(r.X), float32(r.Y)
	rw, rh := float32(r.Width), float32(r.Height)
	su := [4]float32{rx, rx + rw, rx, rx + rw}
	sv := [4]float32{ry, ry, ry + rh, ry + rh}

	// Premultiply by alpha to match the DeclSprite convention every other
	// primitive builder in this package uses (e.g. spriteVertexColor in
	// primitive_sprite.go) — Backend.DrawTriangles blends with the batch's
	// BlendMode, and BlendNormal (source-over) expects premultiplied source
	// color.
	ca := float32(color.A)
	cr, cg, cb := float32(color.R)*ca, float32(color.G)*ca, float32(color.B)*ca

	base := uint16(len(verts) / 8)
	for i := 0; i < 4; i++ {
		verts = append(verts,
			cx[i], cy[i],
			su[i], sv[i],
			cr, cg, cb, ca,
		)
	}
	indices = append(indices, base+0, base+1, base+2, base+1, base+3, base+2)
	return verts, indices
}

// newTTFTextPrimitive wraps tb's cached TTF render (a single image, lazily
// re-rendered when content/layout changes — see emitTTFTextCommand) as one
// textured quad primitive. The cache lives on tb itself, so repeated calls
// across frames only re-render the glyph image when tb.ttfDirty is set.
func newTTFTextPrimitive(tb *TextBlock, n *Node, pass RenderPass) *RenderPrimitive {
	tb.layout()
	p := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	p.Z = float64(n.ZIndex)
	if tb.measuredW == 0 || tb.measuredH == 0 {
		p.SetVisible(false)
		return p
	}

	f := tb.Font.(*TTFFont)
	w, h := ensureTTFImage(tb, f)

	handle := textureHandleOf(tb.ttfImage)
	p.SetMaterial(n.Material, handle, n.BlendMode)
	p.SetModelMatrix(n.worldTransform)

	cx := [4]float32{0, float32(w), 0, float32(w)}
	cy := [4]float32{0, 0, float32(h), float32(h)}
	su := [4]float32{0, float32(w), 0, float32(w)}
	sv := [4]float32{0, 0, float32(h), float32(h)}

	alpha := n.worldAlpha
	ca := float32(n.Color.A * alpha)
	cr, cg, cb := float32(n.Color.R)*ca, float32(n.Color.G)*ca, float32(n.Color.B)*ca

	verts := make([]float32, 0, 32)
	for i := 0; i < 4; i++ {
		verts = append(verts,
			cx[i], cy[i],
			su[i], sv[i],
			cr, cg, cb, ca,
		)
	}
	p.SetGeometry(verts, []uint16{0, 1, 2, 1, 3, 2})
	p.SetVisible(n.Visible)
	return p
}
