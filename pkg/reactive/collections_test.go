package reactive

import (
	"sort"
	"testing"
)

func TestSetMembershipTracking(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewSet(rt, "a", "b")

	runs := 0
	var member bool
	rt.CreateEffect(func() Cleanup {
		member = s.Contains("c")
		runs++
		return nil
	})
	if member {
		t.Fatal("Contains(c) = true before insertion")
	}

	// Adding an unrelated element must not re-run a membership read of "c".
	s.Add("d")
	rt.FlushEffects()
	if runs != 1 {
		t.Errorf("unrelated Add re-ran the effect: %d runs", runs)
	}

	s.Add("c")
	rt.FlushEffects()
	if runs != 2 || !member {
		t.Errorf("Add(c) should re-run the membership read: runs=%d member=%v", runs, member)
	}

	// Re-adding an existing element is not a change.
	s.Add("c")
	rt.FlushEffects()
	if runs != 2 {
		t.Errorf("duplicate Add re-ran the effect: %d runs", runs)
	}

	s.Remove("c")
	rt.FlushEffects()
	if runs != 3 || member {
		t.Errorf("Remove(c) should re-run the membership read: runs=%d member=%v", runs, member)
	}
}

func TestSetSizeTracksCoarsely(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewSet(rt, 1, 2, 3)

	var n int
	runs := 0
	rt.CreateEffect(func() Cleanup {
		n = s.Len()
		runs++
		return nil
	})

	s.Add(4)
	rt.FlushEffects()
	if n != 4 || runs != 2 {
		t.Errorf("after Add: len=%d runs=%d, want 4 and 2", n, runs)
	}

	s.Clear()
	rt.FlushEffects()
	if n != 0 || runs != 3 {
		t.Errorf("after Clear: len=%d runs=%d, want 0 and 3", n, runs)
	}

	// Clearing an already-empty set is not a change.
	s.Clear()
	rt.FlushEffects()
	if runs != 3 {
		t.Errorf("empty Clear re-ran the effect: %d runs", runs)
	}
}

func TestSetValues(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewSet(rt, 3, 1, 2)

	got := s.Values()
	sort.Ints(got)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestMapPerKeyTracking(t *testing.T) {
	rt := newTestRuntime(t)
	m := NewMapFrom(rt, map[string]int{"a": 1, "b": 2})

	var a int
	runs := 0
	rt.CreateEffect(func() Cleanup {
		a, _ = m.Get("a")
		runs++
		return nil
	})

	m.Set("b", 20)
	rt.FlushEffects()
	if runs != 1 {
		t.Errorf("write to an unrelated key re-ran the effect: %d runs", runs)
	}

	m.Set("a", 10)
	rt.FlushEffects()
	if runs != 2 || a != 10 {
		t.Errorf("after Set(a): runs=%d a=%d, want 2 and 10", runs, a)
	}

	// Scalar no-op write.
	m.Set("a", 10)
	rt.FlushEffects()
	if runs != 2 {
		t.Errorf("no-op write re-ran the effect: %d runs", runs)
	}

	m.Delete("a")
	rt.FlushEffects()
	if runs != 3 || a != 0 {
		t.Errorf("after Delete(a): runs=%d a=%d, want 3 and 0", runs, a)
	}
}

func TestMapIterationTracksCoarsely(t *testing.T) {
	rt := newTestRuntime(t)
	m := NewMapFrom(rt, map[string]int{"a": 1})

	var keys []string
	runs := 0
	rt.CreateEffect(func() Cleanup {
		keys = m.Keys()
		runs++
		return nil
	})

	m.Set("b", 2)
	rt.FlushEffects()
	if runs != 2 || len(keys) != 2 {
		t.Errorf("after Set(b): runs=%d keys=%v", runs, keys)
	}

	m.Delete("missing")
	rt.FlushEffects()
	if runs != 2 {
		t.Errorf("deleting an absent key re-ran the effect: %d runs", runs)
	}
}

func TestMapRange(t *testing.T) {
	rt := newTestRuntime(t)
	m := NewMapFrom(rt, map[string]int{"a": 1, "b": 2, "c": 3})

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 6 {
		t.Errorf("sum over Range = %d, want 6", sum)
	}

	visited := 0
	m.Range(func(_ string, _ int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Range ignored the stop signal: visited %d entries", visited)
	}
}

func TestCollectionMarkers(t *testing.T) {
	rt := newTestRuntime(t)

	s := NewSet(rt, 1)
	m := NewMap[string, int](rt)
	if !IsReactiveCollection(s) || !IsReactiveCollection(m) {
		t.Error("wrappers should be recognised as reactive collections")
	}
	if IsReactiveCollection(42) {
		t.Error("a plain value is not a reactive collection")
	}

	// Reactive must pass collection wrappers through unchanged.
	if rt.Reactive(s) != any(s) || rt.Reactive(m) != any(m) {
		t.Error("Reactive should return collection wrappers as-is")
	}
}
