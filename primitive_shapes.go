package canopy

import "math"

// NewMeshPrimitive builds a detached RenderPrimitive from an existing mesh
// node's current Vertices/Indices, tinted exactly the way the scene's
// immediate-mode NodeTypeMesh command does (same tint-with-baked-worldAlpha
// convention), in local space — n.worldTransform becomes the primitive's
// model matrix rather than being baked into the vertices, so re-positioning
// the node never requires rebuilding this primitive's geometry. Any node
// built with NewMesh, NewRope, NewDistortionGrid, NewPolygon, or
// NewPolygonTextured can be handed to this function.
func NewMeshPrimitive(n *Node, pass RenderPass) *RenderPrimitive {
	p := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	p.SetMaterial(n.Material, textureHandleOf(n.MeshImage), n.BlendMode)
	p.Z = float64(n.ZIndex)
	p.SetModelMatrix(n.worldTransform)

	if len(n.Vertices) == 0 || len(n.Indices) == 0 {
		p.SetVisible(false)
		return p
	}

	tint := Color{R: n.Color.R, G: n.Color.G, B: n.Color.B, A: n.Color.A * n.worldAlpha}
	dst := ensureTransformedVerts(n)
	transformVertices(n.Vertices, dst, identityTransform, tint)

	verts := make([]float32, 0, len(dst)*8)
	for _, v := range dst {
		verts = append(verts, v.DstX, v.DstY, v.SrcX, v.SrcY, v.ColorR, v.ColorG, v.ColorB, v.ColorA)
	}
	p.SetGeometry(verts, n.Indices)
	p.SetVisible(n.Visible)
	return p
}

// polygonPrimitive fan-triangulates points (as buildPolygonFan does for
// NewPolygon) directly into a detached RenderPrimitive, skipping the
// intermediate Node — used by the named shape constructors below, which
// have no use for a persistent Node identity.
func polygonPrimitive(points []Vec2, tint Color, pass RenderPass) *RenderPrimitive {
	p := NewRenderPrimitive(DeclSprite, pass, DrawTriangles)
	p.SetMaterial(nil, textureHandleOf(ensureWhitePixel()), BlendNormal)

	meshVerts, meshInds := buildPolygonFan(points, false, nil)
	if len(meshVerts) == 0 {
		p.SetVisible(false)
		return p
	}

	verts := make([]float32, 0, len(meshVerts)*8)
	r, g, b, a := float32(tint.R), float32(tint.G), float32(tint.B), float32(tint.A)
	for _, v := range meshVerts {
		verts = append(verts, v.DstX, v.DstY, v.SrcX, v.SrcY, r, g, b, a)
	}
	p.SetGeometry(verts, meshInds)
	p.SetVisible(true)
	return p
}

// NewRectanglePrimitive builds a filled, axis-aligned rectangle primitive of
// the given local width/height, tinted by color.
func NewRectanglePrimitive(w, h float64, color Color, pass RenderPass) *RenderPrimitive {
	points := []Vec2{
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}
	return polygonPrimitive(points, color, pass)
}

// NewEllipsePrimitive builds a filled ellipse primitive approximated by a
// regular polygon of segments vertices (minimum 3). rx/ry are the local
// radii; the ellipse is centered at the local origin.
func NewEllipsePrimitive(rx, ry float64, segments int, color Color, pass RenderPass) *RenderPrimitive {
	if segments < 3 {
		segments = 3
	}
	points := make([]Vec2, segments)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		points[i] = Vec2{X: rx * math.Cos(theta), Y: ry * math.Sin(theta)}
	}
	return polygonPrimitive(points, color, pass)
}

// NewLinePrimitive builds a primitive for a single straight stroke of the
// given width between two local points, tinted by color. The stroke is
// emitted as a thin quad (two triangles) rather than a true Mode line, so it
// batches with other DeclSprite geometry.
func NewLinePrimitive(a, b Vec2, width float64, color Color, pass RenderPass) *RenderPrimitive {
	nx, ny := perpendicular(a, b)
	half := width / 2
	points := []Vec2{
		{X: a.X + nx*half, Y: a.Y + ny*half},
		{X: b.X + nx*half, Y: b.Y + ny*half},
		{X: b.X - nx*half, Y: b.Y - ny*half},
		{X: a.X - nx*half, Y: a.Y - ny*half},
	}
	return polygonPrimitive(points, color, pass)
}

// NewTrianglePrimitive builds a filled triangle primitive from three local
// points, tinted by color.
func NewTrianglePrimitive(a, b, c Vec2, color Color, pass RenderPass) *RenderPrimitive {
	return polygonPrimitive([]Vec2{a, b, c}, color, pass)
}

// NewCurvePrimitive builds a stroked quadratic Bezier curve from start to
// end with the given control point, approximated by segments straight line
// sections (minimum 2) each width units wide.
func NewCurvePrimitive(start, control, end Vec2, segments int, width float64, color Color, pass RenderPass) *RenderPrimitive {
	if segments < 2 {
		segments = 2
	}
	pts := make([]Vec2, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		mt := 1 - t
		pts[i] = Vec2{
			X: mt*mt*start.X + 2*mt*t*control.X + t*t*end.X,
			Y: mt*mt*start.Y + 2*mt*t*control.Y + t*t*end.Y,
		}
	}

	points := make([]Vec2, 0, len(pts)*2)
	half := width / 2
	left := make([]Vec2, len(pts))
	right := make([]Vec2, len(pts))
	for i := range pts {
		var nx, ny float64
		switch {
		case i == 0:
			nx, ny = perpendicular(pts[0], pts[1])
		case i == len(pts)-1:
			nx, ny = perpendicular(pts[i-1], pts[i])
		default:
			nx0, ny0 := perpendicular(pts[i-1], pts[i])
			nx1, ny1 := perpendicular(pts[i], pts[i+1])
			nx, ny = nx0+nx1, ny0+ny1
			ln := math.Sqrt(nx*nx + ny*ny)
			if ln > 1e-10 {
				nx /= ln
				ny /= ln
			}
		}
		left[i] = Vec2{X: pts[i].X + nx*half, Y: pts[i].Y + ny*half}
		right[i] = Vec2{X: pts[i].X - nx*half, Y: pts[i].Y - ny*half}
	}
	points = append(points, left...)
	for i := len(right) - 1; i >= 0; i-- {
		points = append(points, right[i])
	}
	return polygonPrimitive(points, color, pass)
}

// NewBorderPrimitive builds a stroked rectangle outline (four line segments)
// of the given local width/height and stroke thickness, tinted by color.
// It returns one primitive per side rather than a single primitive, since
// the corners of a naive single polygon outline self-intersect once
// thickness approaches the rectangle's own dimensions.
func NewBorderPrimitive(w, h, thickness float64, color Color, pass RenderPass) []*RenderPrimitive {
	corners := [4]Vec2{
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}
	sides := make([]*RenderPrimitive, 4)
	for i := 0; i < 4; i++ {
		sides[i] = NewLinePrimitive(corners[i], corners[(i+1)%4], thickness, color, pass)
	}
	return sides
}
