package canopy

import "github.com/hajimehoshi/ebiten/v2"

// NewSpritePrimitive builds a detached RenderPrimitive representing a
// sprite node's quad, for use with a standalone Renderer. Geometry is set in
// local space and carried into world space via the node's current model
// matrix (see RenderPrimitive.SetModelMatrix), so a moving node never needs
// a new primitive — only a matrix update. Corner layout, zero-color-sentinel
// convention and rotated-region handling all mirror appendSpriteQuad's
// immediate-mode path, so a primitive built here looks identical on screen
// to the node drawn through the scene's normal traversal.
//
// If n.Material is set, its SlotDiffuse map (if bound) supersedes
// n.TextureRegion, and its crop/repeat/flip algebra is applied to the
// quad's four corner UVs via Material.WorldTexCoord.
func NewSpritePrimitive(n *Node, page *ebiten.Image, pass RenderPass) *RenderPrimitive {
	region := n.TextureRegion
	if n.Material != nil && n.Material.HasMap(SlotDiffuse) {
		region = n.Material.Region(SlotDiffuse)
	}

	p := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	p.SetMaterial(n.Material, textureHandleOf(page), n.BlendMode)
	p.Z = float64(n.ZIndex)
	p.SetModelMatrix(n.worldTransform)

	ox := float32(region.OffsetX)
	oy := float32(region.OffsetY)
	w := float32(region.Width)
	h := float32(region.Height)

	// Local quad corners, matching appendSpriteQuad's TL/TR/BL/BR layout.
	lx := [4]float32{ox, ox + w, ox, ox + w}
	ly := [4]float32{oy, oy, oy + h, oy + h}
	// Corner UVs in [0,1] local-region space, same order.
	lu := [4]float64{0, 1, 0, 1}
	lv := [4]float64{0, 0, 1, 1}

	var sx, sy [4]float32
	rx, ry := float32(region.X), float32(region.Y)
	rw, rh := float32(region.Width), float32(region.Height)
	if region.Rotated {
		// The atlas stores this region rotated 90 degrees clockwise, so
		// its on-page width/height are swapped relative to the logical
		// (unrotated) region dimensions used for texcoord rescaling below.
		sx[0], sy[0] = rx+rh, ry
		sx[1], sy[1] = rx+rh, ry+rw
		sx[2], sy[2] = rx, ry
		sx[3], sy[3] = rx, ry+rw
	} else {
		sx[0], sy[0] = rx, ry
		sx[1], sy[1] = rx+rw, ry
		sx[2], sy[2] = rx, ry+rh
		sx[3], sy[3] = rx+rw, ry+rh
	}

	cr, cg, cb, ca := spriteVertexColor(n.Color, n.worldAlpha)

	verts := make([]float32, 0, 32)
	for i := 0; i < 4; i++ {
		u, v := sx[i], sy[i]
		if n.Material != nil {
			uu, vv := n.Material.WorldTexCoord(lu[i], lv[i])
			// The material's UV is normalized [0,1] within the region;
			// rescale it to atlas pixel coordinates spanning the same
			// corners the un-cropped region would have used, so the crop
			// narrows the sampled area rather than moving it elsewhere on
			// the page.
			if region.Rotated {
				// Same 90-degree clockwise page layout as the sx/sy corners.
				u = rx + float32(1-vv)*rh
				v = ry + float32(uu)*rw
			} else {
				u = rx + float32(uu)*rw
				v = ry + float32(vv)*rh
			}
		}
		verts = append(verts,
			lx[i], ly[i],
			u, v,
			cr, cg, cb, ca,
		)
	}
	p.SetGeometry(verts, []uint16{0, 1, 2, 1, 3, 2})
	p.SetVisible(n.Visible)
	return p
}

// spriteVertexColor applies the same zero-color-sentinel convention as
// appendSpriteQuad: an all-zero tint (the Node zero value before
// nodeDefaults runs, or an explicitly zeroed Color) is treated as opaque
// white rather than fully transparent black.
func spriteVertexColor(tint Color, worldAlpha float64) (r, g, b, a float32) {
	alpha := float32(tint.A * worldAlpha)
	if alpha == 0 && tint.R == 0 && tint.G == 0 && tint.B == 0 {
		return 1, 1, 1, 1
	}
	return float32(tint.R) * alpha, float32(tint.G) * alpha, float32(tint.B) * alpha, alpha
}
