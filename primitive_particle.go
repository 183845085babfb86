package canopy

import "github.com/hajimehoshi/ebiten/v2"

// primitiveFromEmitter packs every alive particle of n's emitter into one
// detached RenderPrimitive, for use with a standalone Renderer. Each
// particle's quad is built in local space (its own position and scale
// within the emitter) and baseTransform is set as the primitive's model
// matrix, so re-emitting this primitive next frame only needs a geometry
// rewrite, never a new matrix per particle. UV resolution and the
// color-multiply convention mirror submitParticlesBatched's immediate-mode
// path exactly, so a primitive built here looks identical on screen to the
// same emitter drawn through the scene's normal traversal.
//
// baseTransform is the transform particle-local coordinates are composed
// against: pass n.worldTransform for an attached emitter, or the camera's
// view transform for one with EmitterConfig.WorldSpace set (world-space
// particles already store absolute world coordinates and only need the
// camera's view, not the emitter node's own ancestors).
func primitiveFromEmitter(n *Node, page *ebiten.Image, baseTransform [6]float64, pass RenderPass) *RenderPrimitive {
	p := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	p.SetMaterial(n.Material, textureHandleOf(page), n.BlendMode)
	p.Z = float64(n.ZIndex)
	p.SetModelMatrix(baseTransform)

	e := n.Emitter
	if e == nil || e.alive == 0 {
		p.SetVisible(false)
		return p
	}

	r := n.TextureRegion
	if n.Material != nil && n.Material.HasMap(SlotDiffuse) {
		r = n.Material.Region(SlotDiffuse)
	}

	var su0, sv0, su1, sv1 float32
	var qw, qh float64
	var psx, psy [4]float32

	if n.customImage != nil {
		b := n.customImage.Bounds()
		su0, sv0 = float32(b.Min.X), float32(b.Min.Y)
		su1, sv1 = float32(b.Max.X), float32(b.Max.Y)
		qw, qh = float64(su1-su0), float64(sv1-sv0)
		psx = [4]float32{su0, su1, su0, su1}
		psy = [4]float32{sv0, sv0, sv1, sv1}
	} else {
		if r.Rotated {
			su0, sv0 = float32(r.X), float32(r.Y)
			su1, sv1 = su0+float32(r.Height), sv0+float32(r.Width)
			psx = [4]float32{su1, su1, su0, su0}
			psy = [4]float32{sv0, sv1, sv0, sv1}
		} else {
			su0, sv0 = float32(r.X), float32(r.Y)
			su1, sv1 = su0+float32(r.Width), sv0+float32(r.Height)
			psx = [4]float32{su0, su1, su0, su1}
			psy = [4]float32{sv0, sv0, sv1, sv1}
		}
		qw, qh = float64(r.Width), float64(r.Height)
	}

	ow := float64(r.OriginalW)
	oh := float64(r.OriginalH)
	halfW := ow / 2
	halfH := oh / 2
	offX := float64(r.OffsetX)
	offY := float64(r.OffsetY)

	verts := make([]float32, 0, e.alive*32)
	indices := make([]uint16, 0, e.alive*6)

	for i := 0; i < e.alive; i++ {
		part := &e.particles[i]

		ps := float64(part.scale)
		localTx := (offX-halfW)*ps + halfW + part.x
		localTy := (offY-halfH)*ps + halfH + part.y
		lw := ps * qw
		lh := ps * qh

		ca := part.alpha * float32(n.Color.A*n.worldAlpha)
		cr := part.colorR * float32(n.Color.R) * ca
		cg := part.colorG * float32(n.Color.G) * ca
		cb := part.colorB * float32(n.Color.B) * ca

		base := uint16(len(verts) / 8)
		verts = append(verts,
			float32(localTx), float32(localTy), psx[0], psy[0], cr, cg, cb, ca,
			float32(localTx+lw), float32(localTy), psx[1], psy[1], cr, cg, cb, ca,
			float32(localTx), float32(localTy+lh), psx[2], psy[2], cr, cg, cb, ca,
			float32(localTx+lw), float32(localTy+lh), psx[3], psy[3], cr, cg, cb, ca,
		)
		indices = append(indices,
			base+0, base+1, base+2,
			base+1, base+3, base+2,
		)
	}

	p.SetGeometry(verts, indices)
	p.SetVisible(n.Visible)
	return p
}
