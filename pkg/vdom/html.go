package vdom

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync/atomic"
)

// voidTags are elements that never carry children or a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// RenderHTML renders a tree to HTML. Text is escaped; RawNode content is
// emitted verbatim. Refs render as data-ref attributes so the client can
// address patched nodes.
func RenderHTML(n *Node) string {
	var b strings.Builder
	writeHTML(&b, n)
	return b.String()
}

func writeHTML(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case TextNode:
		b.WriteString(html.EscapeString(n.Text))
	case RawNode:
		b.WriteString(n.Text)
	case FragmentNode:
		for _, c := range n.Children {
			writeHTML(b, c)
		}
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		if n.Ref != "" {
			fmt.Fprintf(b, ` data-ref=%q`, n.Ref)
		}
		for _, name := range sortedAttrNames(n.Attrs) {
			if isEventAttr(name) {
				continue
			}
			fmt.Fprintf(b, ` %s=%q`, name, html.EscapeString(n.Attrs[name]))
		}
		if voidTags[n.Tag] {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			writeHTML(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

// sortedAttrNames keeps attribute output deterministic.
func sortedAttrNames(attrs map[string]string) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefGen hands out client-addressable node identities.
type RefGen struct {
	counter uint64
}

// Next returns a fresh ref ("r1", "r2", ...).
func (g *RefGen) Next() string {
	return fmt.Sprintf("r%d", atomic.AddUint64(&g.counter, 1))
}

// AssignRefs walks the tree and gives every interactive element without a
// ref a fresh one. Non-interactive elements stay unaddressed; patches reach
// them through their nearest addressed ancestor.
func AssignRefs(n *Node, gen *RefGen) {
	n.Walk(func(node *Node) {
		if node.Interactive() && node.Ref == "" {
			node.Ref = gen.Next()
		}
	})
}
