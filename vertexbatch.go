package canopy

// VertexBatch is a read-only snapshot of one renderBatch, returned by
// Renderer.Batches for introspection and tests. It is produced fresh on
// each call — mutating it has no effect on the Renderer.
type VertexBatch struct {
	Declaration  VertexDeclaration
	Pass         RenderPass
	Mode         DrawMode
	Blend        BlendMode
	Texture      TextureHandle
	MemberCount  int
	VertexCount  int
	IndexCount   int
}

// Batches returns a snapshot of every batch produced by the last Prepare
// call, in draw order (ascending Z, ties broken by insertion order — see
// Renderer.Prepare).
func (r *Renderer) Batches() []VertexBatch {
	out := make([]VertexBatch, len(r.batches))
	for i, b := range r.batches {
		out[i] = VertexBatch{
			Declaration: b.decl,
			Pass:        b.pass,
			Mode:        b.mode,
			Blend:       b.blend,
			Texture:     b.texture,
			MemberCount: len(b.members),
			VertexCount: b.view.VertLen / b.decl.Stride(),
			IndexCount:  b.view.IndexLen,
		}
	}
	return out
}
