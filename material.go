package canopy

import "github.com/tanema/gween/ease"

// TextureSlot identifies one of a Material's four texture-map channels.
type TextureSlot uint8

const (
	SlotDiffuse  TextureSlot = iota // base color map, always sampled
	SlotNormal                      // normal map, sampled by lighting-aware drawables only
	SlotEmissive                    // self-illumination map
	SlotSpecular                    // highlight/reflectivity map
)

const numTextureSlots = 4

// textureMapKind tags which variant of the texture-map union a textureMap
// currently holds.
type textureMapKind uint8

const (
	textureMapNone      textureMapKind = iota // slot unused
	textureMapStatic                          // a single fixed TextureRegion
	textureMapAnimation                       // a frame sequence advanced by Elapse
)

// textureMap is a tagged union of "nothing bound", "one fixed region", or
// "an animated frame sequence" — the three texture-slot variants named in
// the design notes. Exactly one of the fields below is meaningful,
// selected by kind.
type textureMap struct {
	kind   textureMapKind
	static TextureRegion
	anim   *materialAnimation
}

// materialAnimation advances through a fixed list of frames at a constant
// rate, independent of any Node — it is owned by the Material, not by a
// TweenGroup, since frame selection is a step function rather than an
// eased interpolation. When looping, the frame index wraps. The fadeFn
// field is not set by newMaterialAnimation and is not read anywhere:
// frames switch without any cross-fade.
type materialAnimation struct {
	frames   []TextureRegion
	fps      float64
	elapsed  float64
	fadeFn   ease.TweenFunc
	looping  bool
}

// newMaterialAnimation creates a frame-cursor animation over frames,
// advancing at fps frames per second. If looping is false, Elapse clamps to
// the final frame once the sequence completes.
func newMaterialAnimation(frames []TextureRegion, fps float64, looping bool) *materialAnimation {
	return &materialAnimation{frames: frames, fps: fps, looping: looping}
}

// Elapse advances the animation clock by dt seconds.
func (a *materialAnimation) Elapse(dt float64) {
	a.elapsed += dt
}

// CurrentFrame returns the TextureRegion the animation clock currently
// selects. Calling this on an animation with no frames panics — callers
// must not construct a textureMapAnimation with an empty frame list.
func (a *materialAnimation) CurrentFrame() TextureRegion {
	n := len(a.frames)
	idx := int(a.elapsed * a.fps)
	if a.looping {
		idx %= n
	} else if idx >= n {
		idx = n - 1
	}
	return a.frames[idx]
}

// Material bundles up to four texture-map slots plus the texcoord
// transform algebra (crop, repeat, flip) applied uniformly to every slot
// when a drawable asks for world texture coordinates. A Material has no
// reference to any Node; many nodes may share one Material.
//
// The texcoord algebra is carried as a single relative rectangle
// [lowerLeft, upperRight] rather than independent crop/repeat/flip fields —
// crop and repeat both remap this rectangle (discarding each other, since
// both claim to define it outright), while flip swaps its x or y components
// in place, so every mutator composes through the same two points instead
// of four independent, always-applied knobs.
type Material struct {
	maps [numTextureSlots]textureMap

	lowerLeft  Vec2
	upperRight Vec2

	// Emissive is the material's emissive color. EmissiveEnabled and
	// EmissiveFullBright test it by exact equality: Color{0,0,0,0} (exact,
	// not merely "dark") reads as disabled, and Color{1,1,1,1} (exact) as
	// full-bright. This mirrors the zero-color-sentinel convention used
	// for tint-less sprites elsewhere in the renderer. No drawable in this
	// package reads Emissive, and binding or clearing SlotEmissive does not
	// change it.
	Emissive Color
}

// NewMaterial returns a Material with no bound texture maps, an
// uncropped/unrepeated/unflipped texcoord rectangle ([0,0]-[1,1]), and a
// disabled (zero) emissive color.
func NewMaterial() *Material {
	return &Material{lowerLeft: Vec2{0, 0}, upperRight: Vec2{1, 1}}
}

// SetStaticMap binds slot to a single, non-animated region.
func (m *Material) SetStaticMap(slot TextureSlot, region TextureRegion) {
	m.maps[slot] = textureMap{kind: textureMapStatic, static: region}
}

// SetAnimatedMap binds slot to a looping (or clamping) frame sequence
// advanced at fps frames per second.
func (m *Material) SetAnimatedMap(slot TextureSlot, frames []TextureRegion, fps float64, looping bool) {
	m.maps[slot] = textureMap{kind: textureMapAnimation, anim: newMaterialAnimation(frames, fps, looping)}
}

// ClearMap unbinds slot.
func (m *Material) ClearMap(slot TextureSlot) {
	m.maps[slot] = textureMap{}
}

// HasMap reports whether slot currently has a bound texture map.
func (m *Material) HasMap(slot TextureSlot) bool {
	return m.maps[slot].kind != textureMapNone
}

// Elapse advances every animated map's clock by dt seconds. Static maps are
// unaffected.
func (m *Material) Elapse(dt float64) {
	for i := range m.maps {
		if m.maps[i].kind == textureMapAnimation {
			m.maps[i].anim.Elapse(dt)
		}
	}
}

// Region returns the TextureRegion slot currently resolves to: the static
// region if bound, the animation's current frame if animated, or the zero
// TextureRegion (which Atlas.Region already treats as "use the magenta
// placeholder") if the slot is unbound.
func (m *Material) Region(slot TextureSlot) TextureRegion {
	tm := m.maps[slot]
	switch tm.kind {
	case textureMapStatic:
		return tm.static
	case textureMapAnimation:
		return tm.anim.CurrentFrame()
	default:
		return TextureRegion{}
	}
}

// EmissiveEnabled reports whether Emissive differs from the exact zero
// color, the sentinel that disables the emissive contribution.
func (m *Material) EmissiveEnabled() bool {
	return m.Emissive != (Color{})
}

// EmissiveFullBright reports whether the exact-white sentinel is set,
// meaning a lighting-aware drawable should ignore diffuse shading entirely
// and render at full brightness.
func (m *Material) EmissiveFullBright() bool {
	return m.Emissive == (Color{1, 1, 1, 1})
}

// wrapUnit folds x into [0, 1) as repeating tile coordinates do, treating
// exact integers as wrapping to 0 (the start of the next tile).
func wrapUnit(x float64) float64 {
	f := x - float64(int(x))
	if f < 0 {
		f += 1
	}
	return f
}

// clamp01 restricts x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Crop restricts the material's texcoord rectangle to area, a sub-rectangle
// of the *current* rectangle expressed in its own [0,1]x[0,1] relative
// space — so repeated crop calls compose rather than each resetting back to
// the full texture. area's components are clamped to [0,1] first. Cropping
// discards any active repeat, since both claim to define the rectangle
// outright; apply whichever mutation is semantically last.
func (m *Material) Crop(area Rect) {
	lo := Vec2{clamp01(area.X), clamp01(area.Y)}
	hi := Vec2{clamp01(area.X + area.Width), clamp01(area.Y + area.Height)}

	if m.IsRepeated() {
		m.lowerLeft, m.upperRight = Vec2{0, 0}, Vec2{1, 1}
	}

	ll, ur := m.lowerLeft, m.upperRight
	m.lowerLeft = Vec2{ll.X + lo.X*(ur.X-ll.X), ll.Y + lo.Y*(ur.Y-ll.Y)}
	m.upperRight = Vec2{ll.X + hi.X*(ur.X-ll.X), ll.Y + hi.Y*(ur.Y-ll.Y)}
}

// Repeat resets the texcoord rectangle to tile amount times across each
// axis (amount.X/amount.Y >= 1 tiles, between 0 and 1 shrinks toward a
// single partial tile). Negative components are clamped to 0. Repeat is an
// absolute reset of the rectangle's far corner, discarding any active crop,
// since both claim to define the rectangle outright.
func (m *Material) Repeat(amount Vec2) {
	if amount.X < 0 {
		amount.X = 0
	}
	if amount.Y < 0 {
		amount.Y = 0
	}
	m.lowerLeft = Vec2{0, 0}
	m.upperRight = amount
}

// FlipHorizontal mirrors the sampled U axis by swapping the rectangle's x
// components in place. Calling it twice is a no-op.
func (m *Material) FlipHorizontal() {
	m.lowerLeft.X, m.upperRight.X = m.upperRight.X, m.lowerLeft.X
}

// FlipVertical mirrors the sampled V axis by swapping the rectangle's y
// components in place. Calling it twice is a no-op.
func (m *Material) FlipVertical() {
	m.lowerLeft.Y, m.upperRight.Y = m.upperRight.Y, m.lowerLeft.Y
}

// IsCropped reports whether the rectangle covers less than the full
// [0,1]x[0,1] texture on either axis.
func (m *Material) IsCropped() bool {
	ll, ur := m.lowerLeft, m.upperRight
	return ll.X > 0 || ll.Y > 0 || ur.X < 1 || ur.Y < 1
}

// IsRepeated reports whether the rectangle extends past [0,1]x[0,1] on
// either axis.
func (m *Material) IsRepeated() bool {
	ll, ur := m.lowerLeft, m.upperRight
	return ll.X < 0 || ll.Y < 0 || ur.X > 1 || ur.Y > 1
}

// IsFlippedHorizontally reports whether the rectangle's x components are
// inverted relative to their natural left-to-right order.
func (m *Material) IsFlippedHorizontally() bool {
	return m.upperRight.X < m.lowerLeft.X
}

// IsFlippedVertically reports whether the rectangle's y components are
// inverted relative to their natural bottom-to-top order.
func (m *Material) IsFlippedVertically() bool {
	return m.upperRight.Y < m.lowerLeft.Y
}

// IsRepeatable reports, per axis, whether SlotDiffuse's bound region (its
// first frame, if animated) spans the entire original texture on that
// axis — repeating a region that is itself a cropped sub-rectangle of a
// larger atlas page would sample neighboring artwork, so callers use this
// to decide whether Repeat is meaningful for the bound texture.
func (m *Material) IsRepeatable() (bool, bool) {
	tm := m.maps[SlotDiffuse]
	var r TextureRegion
	switch tm.kind {
	case textureMapStatic:
		r = tm.static
	case textureMapAnimation:
		if len(tm.anim.frames) == 0 {
			return false, false
		}
		r = tm.anim.frames[0]
	default:
		return false, false
	}
	repX := r.X == 0 && r.Width == r.OriginalW
	repY := r.Y == 0 && r.Height == r.OriginalH
	return repX, repY
}

// WorldTexCoord maps a normalized [0,1]x[0,1] local UV coordinate through
// the material's crop/repeat/flip rectangle and returns the result in the
// same normalized space. It is not composed with any bound map's region or
// animation frame; callers map the result onto a region themselves. The
// same mapping serves every slot, so all four maps of one Material stay
// aligned with each other.
func (m *Material) WorldTexCoord(u, v float64) (float64, float64) {
	ll, ur := m.lowerLeft, m.upperRight
	rx, ry := ur.X-ll.X, ur.Y-ll.Y

	x, y := u*rx, v*ry
	if rx > 1 {
		x = wrapUnit(x)
	}
	if ry > 1 {
		y = wrapUnit(y)
	}
	return ll.X + x, ll.Y + y
}
