package vdom

import "testing"

func TestDiffIdenticalTreesProduceNoPatches(t *testing.T) {
	build := func() *Node {
		return El("div", El("span", "hello").Attr("class", "x"))
	}
	if patches := Diff(build(), build()); len(patches) != 0 {
		t.Errorf("identical trees produced %d patches: %v", len(patches), patches)
	}
}

func TestDiffTextChangeTargetsParentRef(t *testing.T) {
	prev := El("button", "0").On("click", func() {})
	AssignRefs(prev, &RefGen{})
	next := El("button", "1").On("click", func() {})

	patches := Diff(prev, next)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1: %v", len(patches), patches)
	}
	p := patches[0]
	if p.Op != PatchSetText || p.Ref != prev.Ref || p.Value != "1" {
		t.Errorf("patch = %+v, want set-text on %q with value 1", p, prev.Ref)
	}
	if next.Ref != prev.Ref {
		t.Errorf("ref not carried forward: %q vs %q", next.Ref, prev.Ref)
	}
}

func TestDiffNewlyInteractiveChildKeepsFreshRef(t *testing.T) {
	prev := El("div", El("span", "idle"))
	prev.Ref = "r1"
	next := El("div", El("span", "armed").On("click", func() {}))
	AssignRefs(next, &RefGen{counter: 1})

	span := next.Children[0]
	if span.Ref == "" {
		t.Fatal("interactive span was not assigned a ref")
	}
	patches := Diff(prev, next)
	if span.Ref == "" {
		t.Fatal("diff clobbered the span's fresh ref")
	}

	var sawDataRef bool
	for _, p := range patches {
		if p.Op == PatchSetAttr && p.Name == "data-ref" {
			sawDataRef = true
			if p.Parent != "r1" || p.Index != 0 || p.Value != span.Ref {
				t.Errorf("data-ref patch = %+v, want parent r1 index 0 value %q", p, span.Ref)
			}
		}
	}
	if !sawDataRef {
		t.Errorf("no data-ref patch for the newly addressable span: %v", patches)
	}
}

func TestDiffAttrs(t *testing.T) {
	prev := El("div").Attr("class", "a").Attr("id", "x")
	prev.Ref = "r1"
	next := El("div").Attr("class", "b").Attr("title", "t")

	patches := Diff(prev, next)
	ops := map[PatchOp]int{}
	for _, p := range patches {
		ops[p.Op]++
		if p.Ref != "r1" {
			t.Errorf("attr patch targets %q, want r1", p.Ref)
		}
	}
	if ops[PatchSetAttr] != 2 || ops[PatchRemoveAttr] != 1 {
		t.Errorf("ops = %v, want 2 set-attr and 1 remove-attr", ops)
	}
}

func TestDiffEventAttrsIgnored(t *testing.T) {
	prev := El("div").Attr("onclick", "alert(1)")
	prev.Ref = "r1"
	next := El("div")
	if patches := Diff(prev, next); len(patches) != 0 {
		t.Errorf("event attributes should never produce attr patches: %v", patches)
	}
}

func TestDiffTagChangeReplaces(t *testing.T) {
	prev := El("span", "x")
	prev.Ref = "r1"
	next := El("div", "x")

	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != PatchReplace {
		t.Fatalf("got %v, want one replace", patches)
	}
	if patches[0].HTML != "<div>x</div>" {
		t.Errorf("replacement html = %q", patches[0].HTML)
	}
}

func TestDiffUnkeyedInsertRemove(t *testing.T) {
	prev := El("ul", El("li", "a"), El("li", "b"))
	prev.Ref = "r1"
	prev.Children[1].Ref = "r2"

	grown := El("ul", El("li", "a"), El("li", "b"), El("li", "c"))
	patches := Diff(prev, grown)
	if len(patches) != 1 || patches[0].Op != PatchInsert || patches[0].Index != 2 {
		t.Fatalf("grow: got %v, want one insert at 2", patches)
	}
	if patches[0].Parent != "r1" {
		t.Errorf("insert parent = %q, want r1", patches[0].Parent)
	}

	shrunk := El("ul", El("li", "a"))
	patches = Diff(prev, shrunk)
	if len(patches) != 1 || patches[0].Op != PatchRemove || patches[0].Ref != "r2" {
		t.Fatalf("shrink: got %v, want one remove of r2", patches)
	}
}

func TestDiffKeyedReorder(t *testing.T) {
	item := func(key, label string) *Node {
		return El("li", label).Keyed(key)
	}
	prev := El("ul", item("a", "A"), item("b", "B"), item("c", "C"))
	prev.Ref = "list"
	for i, c := range prev.Children {
		c.Ref = []string{"ra", "rb", "rc"}[i]
	}

	// Move c to the front; a and b shift but keep their identity.
	next := El("ul", item("c", "C"), item("a", "A"), item("b", "B"))
	patches := Diff(prev, next)

	var moves, removes, inserts int
	for _, p := range patches {
		switch p.Op {
		case PatchMove:
			moves++
		case PatchRemove:
			removes++
		case PatchInsert:
			inserts++
		}
	}
	if removes != 0 || inserts != 0 {
		t.Errorf("keyed reorder should move, not rebuild: %v", patches)
	}
	if moves != 3 {
		t.Errorf("got %d moves, want 3", moves)
	}
	if next.Children[0].Ref != "rc" {
		t.Errorf("moved child lost its ref: %q", next.Children[0].Ref)
	}
}

func TestDiffKeyedRemoveAndInsert(t *testing.T) {
	item := func(key string) *Node { return El("li", key).Keyed(key) }
	prev := El("ul", item("a"), item("b"))
	prev.Ref = "list"
	prev.Children[0].Ref = "ra"
	prev.Children[1].Ref = "rb"

	next := El("ul", item("b"), item("c"))
	patches := Diff(prev, next)

	sawRemove, sawInsert := false, false
	for _, p := range patches {
		switch p.Op {
		case PatchRemove:
			sawRemove = p.Ref == "ra"
		case PatchInsert:
			sawInsert = p.Index == 1
		}
	}
	if !sawRemove || !sawInsert {
		t.Errorf("got %v, want remove of ra and insert at 1", patches)
	}
}
