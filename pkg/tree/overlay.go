package tree

// MergeOverlay applies upper's filesystem contents onto lower in place,
// following OCI/overlayfs union semantics (spec.md §4.G):
//
//  1. A whiteout in upper deletes the corresponding lower path (and its
//     subtree, if a directory).
//  2. An opaque directory in upper replaces the lower directory's children
//     wholesale, keeping upper's own attributes.
//  3. If both sides are directories, children are merged recursively and the
//     directory's own metadata is taken from upper.
//  4. Otherwise upper replaces lower wholesale.
//  5. Paths present only in lower are retained unchanged.
//
// lower is mutated to become the merged result; upper is consumed (its nodes
// may be grafted directly into lower's tree).
func MergeOverlay(lower *Tree, upper *Tree) {
	if upper.Root == nil {
		return
	}
	if lower.Root == nil {
		lower.Root = upper.Root
		return
	}
	lower.Root = mergeNode(lower.Root, upper.Root)
}

// mergeNode merges upper onto lowerNode, both representing the same path
// (the tree roots, or two same-named children one level down). It returns
// the resulting node.
func mergeNode(lowerNode, upperNode *Node) *Node {
	if upperNode.IsDir && upperNode.Opaque {
		merged := upperNode.Clone()
		merged.Overlay = OverlayUpperOpaque
		return merged
	}

	if lowerNode.IsDir && upperNode.IsDir {
		merged := upperNode.Clone()
		merged.Children = mergeChildren(lowerNode.Children, upperNode.Children)
		merged.Overlay = OverlayUpperModification
		return merged
	}

	// Wholesale replacement: files, or a directory/non-directory type
	// mismatch. upperNode is already a well-formed subtree (its own
	// children, if any, are untouched).
	replaced := upperNode.Clone()
	replaced.Overlay = OverlayUpperModification
	return replaced
}

// mergeChildren merges upper's children onto lower's children by name,
// preserving manifest order: lower's children keep their position (merged in
// place when upper has the same name, dropped when upper whites them out),
// followed by upper-only children in upper's own order (matching the merged
// directory's effective listing, with newly-added names appended after
// names already present).
func mergeChildren(lowerChildren, upperChildren []*Node) []*Node {
	upperByName := make(map[string]*Node, len(upperChildren))
	for _, c := range upperChildren {
		upperByName[c.Name] = c
	}

	result := make([]*Node, 0, len(lowerChildren)+len(upperChildren))
	handled := make(map[string]bool, len(upperChildren))

	for _, lc := range lowerChildren {
		uc, present := upperByName[lc.Name]
		if !present {
			// Present only in lower: retained unchanged.
			result = append(result, lc)
			continue
		}
		handled[lc.Name] = true
		if uc.Whiteout {
			// Whiteout: delete lc (and its subtree) from the result.
			continue
		}
		result = append(result, mergeNode(lc, uc))
	}

	for _, uc := range upperChildren {
		if handled[uc.Name] || uc.Whiteout {
			continue
		}
		added := uc.Clone()
		added.Overlay = OverlayUpperAddition
		result = append(result, added)
	}

	return result
}
