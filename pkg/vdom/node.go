// Package vdom provides the virtual node tree rendered by VDX components,
// the differ that turns two trees into a patch list, and HTML rendering for
// the initial page.
package vdom

import "strings"

// NodeKind discriminates node types.
type NodeKind uint8

const (
	ElementNode  NodeKind = iota // <div>, <button>, ...
	TextNode                     // escaped text
	FragmentNode                 // children without a wrapper
	RawNode                      // unescaped HTML
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case FragmentNode:
		return "fragment"
	case RawNode:
		return "raw"
	default:
		return "unknown"
	}
}

// Node is a virtual DOM node. Trees are built fresh on every render; the
// differ never mutates a tree except to carry refs forward from the
// previous one.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    map[string]string
	Handlers map[string]func() // event name -> server-side handler
	Children []*Node
	Key      string // reconciliation key for keyed lists
	Text     string // for TextNode and RawNode

	// Ref is the client-addressable identity, assigned to interactive
	// elements when the tree is first rendered and carried forward by the
	// differ so patches can target live DOM nodes.
	Ref string
}

// ReactiveOpaque marks nodes as opaque to the reactivity engine: a Node
// stored in reactive state is passed through unwrapped, never observed.
func (*Node) ReactiveOpaque() {}

// Interactive reports whether the node carries event handlers and therefore
// needs a ref.
func (n *Node) Interactive() bool {
	return n != nil && n.Kind == ElementNode && len(n.Handlers) > 0
}

// Walk calls fn for n and every descendant, depth-first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// key returns the reconciliation key, falling back to the data-key attr.
func (n *Node) key() string {
	if n == nil {
		return ""
	}
	if n.Key != "" {
		return n.Key
	}
	return n.Attrs["data-key"]
}

func hasKeys(children []*Node) bool {
	for _, c := range children {
		if c.key() != "" {
			return true
		}
	}
	return false
}

// isEventAttr reports whether an attribute name designates an event handler.
// Case-insensitive so onClick and ONCLICK are both caught.
func isEventAttr(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}
