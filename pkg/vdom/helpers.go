package vdom

import "fmt"

// El creates an element node. Children may be *Node, []*Node, or string
// (converted to a text node); nils are skipped.
func El(tag string, children ...any) *Node {
	n := &Node{Kind: ElementNode, Tag: tag}
	appendChildren(n, children)
	return n
}

// Text creates an escaped text node.
func Text(s string) *Node {
	return &Node{Kind: TextNode, Text: s}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an unescaped HTML node. Content must be trusted.
func Raw(html string) *Node {
	return &Node{Kind: RawNode, Text: html}
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *Node {
	n := &Node{Kind: FragmentNode}
	appendChildren(n, children)
	return n
}

func appendChildren(n *Node, children []any) {
	for _, c := range children {
		switch v := c.(type) {
		case nil:
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, cc := range v {
				if cc != nil {
					n.Children = append(n.Children, cc)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		default:
			n.Children = append(n.Children, Textf("%v", v))
		}
	}
}

// Attr sets an attribute and returns the node for chaining.
func (n *Node) Attr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

// On registers a server-side event handler and returns the node.
func (n *Node) On(event string, handler func()) *Node {
	if n.Handlers == nil {
		n.Handlers = make(map[string]func())
	}
	n.Handlers[event] = handler
	return n
}

// Keyed sets the reconciliation key and returns the node.
func (n *Node) Keyed(key string) *Node {
	n.Key = key
	return n
}

// If returns node when cond holds, nil otherwise. Nil children are skipped
// by the element constructors, so this composes directly.
func If(cond bool, node *Node) *Node {
	if cond {
		return node
	}
	return nil
}

// Map builds a child list from a slice.
func Map[T any](items []T, fn func(T) *Node) []*Node {
	out := make([]*Node, 0, len(items))
	for _, it := range items {
		if n := fn(it); n != nil {
			out = append(out, n)
		}
	}
	return out
}
