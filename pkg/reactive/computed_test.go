package reactive

import "testing"

func TestComputedCachesUntilInvalidated(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 3})

	computes := 0
	c := NewComputed(rt, func() int {
		computes++
		return st.Get("n").(int) * 2
	})
	if computes != 1 {
		t.Fatalf("getter should prime the cache once, ran %d times", computes)
	}

	if c.Get() != 6 || c.Get() != 6 {
		t.Errorf("Get() = %d, want 6", c.Get())
	}
	if computes != 1 {
		t.Errorf("clean reads recomputed: %d getter runs", computes)
	}

	st.Set("n", 6)
	rt.FlushEffects()
	if computes != 1 {
		t.Errorf("invalidation alone recomputed: %d getter runs", computes)
	}

	if c.Get() != 12 {
		t.Errorf("Get() after invalidation = %d, want 12", c.Get())
	}
	if computes != 2 {
		t.Errorf("dirty read should recompute exactly once, got %d getter runs", computes)
	}
}

func TestComputedAsEffectDependency(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 3})

	c := NewComputed(rt, func() int {
		return st.Get("n").(int) * 2
	})

	var seen []int
	rt.CreateEffect(func() Cleanup {
		seen = append(seen, c.Get())
		return nil
	})

	st.Set("n", 6)
	rt.FlushEffects()

	want := []int{6, 12}
	if len(seen) != len(want) {
		t.Fatalf("effect observed %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("observation %d = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestComputedChain(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 1})

	doubled := NewComputed(rt, func() int {
		return st.Get("n").(int) * 2
	})
	plusOne := NewComputed(rt, func() int {
		return doubled.Get() + 1
	})

	runs := 0
	var last int
	rt.CreateEffect(func() Cleanup {
		last = plusOne.Get()
		runs++
		return nil
	})
	if last != 3 {
		t.Fatalf("initial chained value = %d, want 3", last)
	}

	st.Set("n", 10)
	rt.FlushEffects()
	if last != 21 {
		t.Errorf("chained value after write = %d, want 21", last)
	}
	if runs != 2 {
		t.Errorf("effect ran %d times, want 2", runs)
	}
}

func TestComputedCoalescesInvalidations(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"a": 1, "b": 2})

	computes := 0
	c := NewComputed(rt, func() int {
		computes++
		return st.Get("a").(int) + st.Get("b").(int)
	})

	st.Set("a", 10)
	st.Set("b", 20)
	rt.FlushEffects()

	if got := c.Get(); got != 30 {
		t.Errorf("Get() = %d, want 30", got)
	}
	if computes != 2 {
		t.Errorf("two writes should cause one recompute, got %d getter runs", computes)
	}
}

func TestComputedPeekDoesNotTrack(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 1})

	c := NewComputed(rt, func() int {
		return st.Get("n").(int)
	})

	runs := 0
	rt.CreateEffect(func() Cleanup {
		_ = c.Peek()
		runs++
		return nil
	})

	st.Set("n", 2)
	rt.FlushEffects()
	if runs != 1 {
		t.Errorf("Peek registered a dependency: %d runs", runs)
	}
	if c.Peek() != 2 {
		t.Errorf("Peek() = %d, want 2", c.Peek())
	}
}

func TestComputedDisposeFreezesValue(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 1})

	computes := 0
	c := NewComputed(rt, func() int {
		computes++
		return st.Get("n").(int)
	})

	c.Dispose()
	st.Set("n", 99)
	rt.FlushEffects()

	if got := c.Get(); got != 1 {
		t.Errorf("disposed computed returned %d, want last value 1", got)
	}
	if computes != 1 {
		t.Errorf("disposed computed recomputed: %d getter runs", computes)
	}
}

func TestWatchReportsNewAndOldValues(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 1})

	type pair struct{ newVal, oldVal int }
	var calls []pair
	dispose := Watch(rt, func() int {
		return st.Get("n").(int)
	}, func(newVal, oldVal int) {
		calls = append(calls, pair{newVal, oldVal})
	})

	if len(calls) != 0 {
		t.Fatalf("watch callback ran on the priming pass: %v", calls)
	}

	st.Set("n", 2)
	rt.FlushEffects()
	st.Set("n", 5)
	rt.FlushEffects()

	want := []pair{{2, 1}, {5, 2}}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}

	dispose()
	st.Set("n", 9)
	rt.FlushEffects()
	if len(calls) != len(want) {
		t.Errorf("watch fired after disposal: %v", calls)
	}
}

func TestWatchCallbackRunsUntracked(t *testing.T) {
	rt := newTestRuntime(t)
	st := newState(t, rt, map[string]any{"n": 1, "other": 0})

	calls := 0
	Watch(rt, func() int {
		return st.Get("n").(int)
	}, func(newVal, oldVal int) {
		_ = st.Get("other")
		calls++
	})

	st.Set("n", 2)
	rt.FlushEffects()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	st.Set("other", 7)
	rt.FlushEffects()
	if calls != 1 {
		t.Errorf("read inside the callback registered a dependency: %d calls", calls)
	}
}
