package canopy

import "sort"

// orderKey is the sort key used for a node's position within an
// orderedNodeList: render layer first, then Z-index, then a per-insertion
// sequence number used only to break ties stably.
type orderKey struct {
	layer uint8
	z     int
	seq   uint64
}

// less compares two keys the same way everywhere in this file, so Insert's
// binary search and Reinsert's remove-then-insert can never disagree about
// order.
func (k orderKey) less(other orderKey) bool {
	if k.layer != other.layer {
		return k.layer < other.layer
	}
	if k.z != other.z {
		return k.z < other.z
	}
	return k.seq < other.seq
}

// orderedNodeList is a root-maintained, flat, stably-sorted view over a
// subset of a scene's nodes — the "ordered_nodes" mechanism: rather than
// re-deriving draw order by walking the tree every frame, nodes are kept
// in one sorted slice and a single node's z-index or layer change is
// applied with one targeted remove+reinsert instead of a full re-sort.
//
// Insertion always targets the upper bound of any existing run of equal
// keys, so nodes added later with an identical (layer, z) never jump ahead
// of nodes already holding that position — this is what keeps relative
// order stable across frames when inputs are unchanged, matching the
// Renderer's own ordering contract.
type orderedNodeList struct {
	nodes []*Node
	keys  []orderKey
	seq   uint64
}

// newOrderedNodeList returns an empty list.
func newOrderedNodeList() *orderedNodeList {
	return &orderedNodeList{}
}

// nextSeq returns a new monotonically increasing sequence number, used as
// the stable tie-break component of a freshly inserted node's key.
func (l *orderedNodeList) nextSeq() uint64 {
	l.seq++
	return l.seq
}

// Insert adds n at the upper bound of its (layer, z) key, in O(log n)
// search plus O(n) shift.
func (l *orderedNodeList) Insert(n *Node, layer uint8, z int) {
	k := orderKey{layer: layer, z: z, seq: l.nextSeq()}
	i := sort.Search(len(l.keys), func(i int) bool { return k.less(l.keys[i]) })
	l.nodes = append(l.nodes, nil)
	l.keys = append(l.keys, orderKey{})
	copy(l.nodes[i+1:], l.nodes[i:])
	copy(l.keys[i+1:], l.keys[i:])
	l.nodes[i] = n
	l.keys[i] = k
}

// indexOf returns the slice index of n, or -1 if not present.
func (l *orderedNodeList) indexOf(n *Node) int {
	for i, candidate := range l.nodes {
		if candidate == n {
			return i
		}
	}
	return -1
}

// Remove deletes n from the list. A no-op if n is not present.
func (l *orderedNodeList) Remove(n *Node) {
	i := l.indexOf(n)
	if i < 0 {
		return
	}
	l.nodes = append(l.nodes[:i], l.nodes[i+1:]...)
	l.keys = append(l.keys[:i], l.keys[i+1:]...)
}

// Reinsert moves n to the upper bound of its new (layer, z) key. Used when
// a single node's z-index or render layer changes — the "single merge-step
// reinsertion for moved subtrees" path, cheaper than rebuilding the whole
// list from a tree walk.
func (l *orderedNodeList) Reinsert(n *Node, layer uint8, z int) {
	l.Remove(n)
	l.Insert(n, layer, z)
}

// Len reports how many nodes the list currently holds.
func (l *orderedNodeList) Len() int { return len(l.nodes) }

// Nodes returns the list's current order. The returned slice aliases the
// list's internal storage and must not be retained across a mutation.
func (l *orderedNodeList) Nodes() []*Node { return l.nodes }

// --- Scene integration ---

// OrderedNodes returns the scene's root-maintained, stably z-ordered node
// list. Unlike the per-frame draw traversal (which re-derives order via a
// stable merge sort over RenderLayer/GlobalOrder/tree-position every frame
// — see render.go), this list is exposed so external tooling (debug
// overlays, hit-test ordering, tests) can query "what order would these
// nodes draw in" without forcing a full render pass.
//
// The list is maintained incrementally — AddChild/RemoveChild insert and
// remove entries as nodes join or leave the tree, and SetZIndex/
// SetRenderLayer reinsert a single moved node — so this is just a read of
// the live list, never a tree walk or a full Rebuild.
func (s *Scene) OrderedNodes() []*Node {
	s.ensureOrdered()
	return s.ordered.Nodes()
}
