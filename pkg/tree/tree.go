// Package tree implements the layered filesystem tree and its overlay merge
// semantics (spec.md §3 "Tree", §4.G). A Tree owns its nodes exclusively;
// back-references (if ever needed) must be array indices into an arena, never
// owning pointers, per spec.md §9 "Cyclic references" — this package avoids
// the need entirely by keeping parent-to-child as the only edge.
//
// The recursive, name-keyed child resolution here plays the same role as the
// teacher's pkg/blobserver/overlay.go resolving a blob.Ref against a stage
// layer then a base layer, generalized from a two-layer flat key space to an
// N-layer directory tree.
package tree

// Overlay classifies how a Node relates to the layers beneath it in the
// merged image (spec.md §3 "Inode/Node").
type Overlay int

const (
	// OverlayLower means the node is unmodified by any higher layer.
	OverlayLower Overlay = iota
	// OverlayUpperAddition means a higher layer introduced this path.
	OverlayUpperAddition
	// OverlayUpperModification means a higher layer replaced an existing
	// lower path.
	OverlayUpperModification
	// OverlayUpperOpaque means a higher layer's directory replaced the
	// lower directory's children wholesale.
	OverlayUpperOpaque
	// OverlayUpperRemoval marks a whiteout: the path is deleted.
	OverlayUpperRemoval
)

func (o Overlay) String() string {
	switch o {
	case OverlayLower:
		return "lower"
	case OverlayUpperAddition:
		return "upper-addition"
	case OverlayUpperModification:
		return "upper-modification"
	case OverlayUpperOpaque:
		return "upper-opaque"
	case OverlayUpperRemoval:
		return "upper-removal"
	default:
		return "unknown"
	}
}

// ChunkRef is one entry in a regular file Node's ordered chunk list: a
// reference to a chunk living in some blob, covering part of the file's
// logical byte range (spec.md §3 "Inode/Node").
type ChunkRef struct {
	// BlobIndex is this chunk's blob position, relative to whichever
	// BlobTable currently indexes the tree. The merger rewrites this
	// field during chunk re-indexing (spec.md §4.H step 3d).
	BlobIndex uint32
	// ChunkIndex is the chunk's index within that blob's own chunk array.
	ChunkIndex uint32
	// LogicalOffset is the byte offset within the file this chunk covers.
	LogicalOffset uint64
	// Length is the number of file bytes this chunk covers.
	Length uint32
}

// Node is one filesystem entry in a layer, or in the merge accumulator
// (spec.md §3 "Inode/Node").
type Node struct {
	Name string
	Mode uint32
	UID  uint32
	GID  uint32
	Size uint64

	IsDir bool
	// Children holds child nodes in manifest order. Nil for non-directories.
	Children []*Node
	// Chunks holds the ordered chunk references for a regular file. Nil
	// for directories.
	Chunks []ChunkRef

	LayerIdx uint16
	Overlay  Overlay

	// Whiteout marks this node (as loaded from a single layer's own
	// manifest) as a removal marker for a path of the same name in a
	// lower layer. Opaque marks a directory whose children should replace
	// the lower directory's children wholesale. These are structural
	// facts about the source layer, independent of Overlay, which records
	// the *result* of applying them during a merge.
	Whiteout bool
	Opaque   bool
}

// Clone returns a shallow copy of n with its own Children slice header (but
// shared child pointers) so callers can reorder/replace children without
// mutating the source node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Children != nil {
		c.Children = append([]*Node(nil), n.Children...)
	}
	if n.Chunks != nil {
		c.Chunks = append([]ChunkRef(nil), n.Chunks...)
	}
	return &c
}

// Tree is a rooted tree of Nodes, exclusively owned (spec.md §3 "Tree").
type Tree struct {
	Root *Node
}

// New wraps root in a Tree.
func New(root *Node) *Tree {
	return &Tree{Root: root}
}

// VisitFunc is called once per visited node. Returning an error aborts the
// walk. The function may mutate the node in place.
type VisitFunc func(n *Node) error

// WalkBFS visits every node in t breadth-first, children in manifest order.
// If includeRoot is false, the root itself is not visited (only its
// descendants). The walk stops at the first error returned by visit.
func (t *Tree) WalkBFS(includeRoot bool, visit VisitFunc) error {
	if t.Root == nil {
		return nil
	}
	queue := make([]*Node, 0, 16)
	if includeRoot {
		queue = append(queue, t.Root)
	} else {
		queue = append(queue, t.Root.Children...)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if err := visit(n); err != nil {
			return err
		}
		queue = append(queue, n.Children...)
	}
	return nil
}

// WalkDFS visits every node in t depth-first (pre-order), children in
// manifest order.
func (t *Tree) WalkDFS(includeRoot bool, visit VisitFunc) error {
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if err := visit(n); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if t.Root == nil {
		return nil
	}
	if includeRoot {
		return walk(t.Root)
	}
	for _, c := range t.Root.Children {
		if err := walk(c); err != nil {
			return err
		}
	}
	return nil
}
