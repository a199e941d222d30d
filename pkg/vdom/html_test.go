package vdom

import (
	"strings"
	"testing"
)

func TestRenderHTMLEscapesText(t *testing.T) {
	got := RenderHTML(El("p", "<b>&"))
	want := "<p>&lt;b&gt;&amp;</p>"
	if got != want {
		t.Errorf("RenderHTML = %q, want %q", got, want)
	}
}

func TestRenderHTMLRawPassesThrough(t *testing.T) {
	got := RenderHTML(El("div", Raw("<b>bold</b>")))
	if got != "<div><b>bold</b></div>" {
		t.Errorf("RenderHTML = %q", got)
	}
}

func TestRenderHTMLAttrsSortedAndEscaped(t *testing.T) {
	n := El("a").Attr("href", `/x?a=1&b="2"`).Attr("class", "link")
	got := RenderHTML(n)
	want := `<a class="link" href="/x?a=1&amp;b=&#34;2&#34;"></a>`
	if got != want {
		t.Errorf("RenderHTML = %q, want %q", got, want)
	}
}

func TestRenderHTMLRefAndEventAttrs(t *testing.T) {
	n := El("button", "go").On("click", func() {})
	AssignRefs(n, &RefGen{})
	got := RenderHTML(n)
	if !strings.Contains(got, `data-ref="r1"`) {
		t.Errorf("interactive element missing data-ref: %q", got)
	}
	if strings.Contains(got, "click") {
		t.Errorf("handlers must not leak into markup: %q", got)
	}
}

func TestRenderHTMLVoidAndFragment(t *testing.T) {
	got := RenderHTML(Fragment(El("br"), El("img").Attr("src", "/x.png")))
	want := `<br/><img src="/x.png"/>`
	if got != want {
		t.Errorf("RenderHTML = %q, want %q", got, want)
	}
}

func TestAssignRefsSkipsStaticNodes(t *testing.T) {
	tree := El("div",
		El("span", "static"),
		El("button", "go").On("click", func() {}),
		El("input").On("input", func() {}),
	)
	AssignRefs(tree, &RefGen{})

	if tree.Ref != "" || tree.Children[0].Ref != "" {
		t.Error("static elements should stay unaddressed")
	}
	if tree.Children[1].Ref != "r1" || tree.Children[2].Ref != "r2" {
		t.Errorf("interactive refs = %q, %q, want r1, r2",
			tree.Children[1].Ref, tree.Children[2].Ref)
	}

	// Idempotent: a second pass keeps existing refs.
	AssignRefs(tree, &RefGen{})
	if tree.Children[1].Ref != "r1" {
		t.Errorf("second pass reassigned ref: %q", tree.Children[1].Ref)
	}
}
