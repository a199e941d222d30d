package vdom

// Diff compares two trees and returns the patches that transform prev into
// next. Refs from prev are carried onto matching nodes in next so later
// diffs against next stay addressable.
func Diff(prev, next *Node) []Patch {
	var patches []Patch
	diffNodes(prev, next, "", 0, &patches)
	return patches
}

func diffNodes(prev, next *Node, parentRef string, index int, patches *[]Patch) {
	if prev == nil && next == nil {
		return
	}
	if prev == nil {
		// Insertion is emitted by the parent's child walk, which knows the
		// position.
		return
	}
	if next == nil {
		*patches = append(*patches, Patch{Op: PatchRemove, Ref: prev.Ref})
		return
	}
	if prev.Kind != next.Kind {
		*patches = append(*patches, Patch{
			Op:   PatchReplace,
			Ref:  targetRef(prev, parentRef),
			HTML: RenderHTML(next),
		})
		return
	}

	switch prev.Kind {
	case TextNode:
		if prev.Ref != "" {
			next.Ref = prev.Ref
		}
		if prev.Text != next.Text {
			if ref := targetRef(prev, parentRef); ref != "" {
				*patches = append(*patches, Patch{Op: PatchSetText, Ref: ref, Value: next.Text})
			}
		}
	case RawNode:
		if prev.Ref != "" {
			next.Ref = prev.Ref
		}
		if prev.Text != next.Text {
			if ref := targetRef(prev, parentRef); ref != "" {
				*patches = append(*patches, Patch{Op: PatchReplace, Ref: ref, HTML: next.Text})
			}
		}
	case ElementNode:
		if prev.Tag != next.Tag {
			*patches = append(*patches, Patch{
				Op:   PatchReplace,
				Ref:  targetRef(prev, parentRef),
				HTML: RenderHTML(next),
			})
			return
		}
		if prev.Ref != "" {
			next.Ref = prev.Ref
		} else if next.Ref != "" {
			// The element became addressable this render. The live DOM copy
			// carries no data-ref yet, so the patch locates it by parent and
			// position.
			*patches = append(*patches, Patch{
				Op:     PatchSetAttr,
				Parent: parentRef,
				Index:  index,
				Name:   "data-ref",
				Value:  next.Ref,
			})
		}
		diffAttrs(prev, next, patches)
		diffChildren(prev, next, targetRef(next, parentRef), patches)
	case FragmentNode:
		if prev.Ref != "" {
			next.Ref = prev.Ref
		}
		diffChildren(prev, next, parentRef, patches)
	}
}

// targetRef resolves the ref a patch should address: the node's own ref, or
// the enclosing element's when the node has none.
func targetRef(n *Node, parentRef string) string {
	if n.Ref != "" {
		return n.Ref
	}
	return parentRef
}

// diffAttrs targets next.Ref: it matches the carried-forward prev ref, or
// the fresh one a newly addressable element was just given.
func diffAttrs(prev, next *Node, patches *[]Patch) {
	for name, old := range prev.Attrs {
		if isEventAttr(name) {
			continue
		}
		val, ok := next.Attrs[name]
		if !ok {
			*patches = append(*patches, Patch{Op: PatchRemoveAttr, Ref: next.Ref, Name: name})
		} else if val != old {
			*patches = append(*patches, Patch{Op: PatchSetAttr, Ref: next.Ref, Name: name, Value: val})
		}
	}
	for name, val := range next.Attrs {
		if isEventAttr(name) {
			continue
		}
		if _, ok := prev.Attrs[name]; !ok {
			*patches = append(*patches, Patch{Op: PatchSetAttr, Ref: next.Ref, Name: name, Value: val})
		}
	}
}

func diffChildren(prev, next *Node, parentRef string, patches *[]Patch) {
	if hasKeys(prev.Children) || hasKeys(next.Children) {
		diffKeyed(prev.Children, next.Children, parentRef, patches)
		return
	}
	n := len(prev.Children)
	if len(next.Children) > n {
		n = len(next.Children)
	}
	for i := 0; i < n; i++ {
		var pc, nc *Node
		if i < len(prev.Children) {
			pc = prev.Children[i]
		}
		if i < len(next.Children) {
			nc = next.Children[i]
		}
		switch {
		case pc == nil:
			*patches = append(*patches, Patch{
				Op:     PatchInsert,
				Parent: parentRef,
				Index:  i,
				HTML:   RenderHTML(nc),
			})
		case nc == nil:
			*patches = append(*patches, Patch{Op: PatchRemove, Ref: pc.Ref})
		default:
			diffNodes(pc, nc, parentRef, i, patches)
		}
	}
}

// diffKeyed reconciles keyed child lists: matched keys diff in place and
// move when their position changed, unmatched prev children are removed,
// new keys are inserted at their position.
func diffKeyed(prev, next []*Node, parentRef string, patches *[]Patch) {
	prevByKey := make(map[string]int, len(prev))
	for i, c := range prev {
		if k := c.key(); k != "" {
			prevByKey[k] = i
		}
	}

	matched := make(map[int]bool, len(prev))
	for nextIdx, nc := range next {
		k := nc.key()
		prevIdx, ok := -1, false
		if k != "" {
			prevIdx, ok = prevByKey[k]
		}
		if !ok {
			*patches = append(*patches, Patch{
				Op:     PatchInsert,
				Parent: parentRef,
				Index:  nextIdx,
				HTML:   RenderHTML(nc),
			})
			continue
		}
		matched[prevIdx] = true
		pc := prev[prevIdx]
		if prevIdx != nextIdx {
			*patches = append(*patches, Patch{
				Op:     PatchMove,
				Ref:    pc.Ref,
				Parent: parentRef,
				Index:  nextIdx,
			})
		}
		diffNodes(pc, nc, parentRef, nextIdx, patches)
	}

	for i, pc := range prev {
		if !matched[i] {
			*patches = append(*patches, Patch{Op: PatchRemove, Ref: pc.Ref})
		}
	}
}
