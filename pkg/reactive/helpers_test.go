package reactive

import "testing"

// newTestRuntime returns a runtime with a no-op scheduler so tests control
// flushing explicitly via FlushEffects.
func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	base := []Option{WithScheduler(func(func()) {})}
	return NewRuntime(append(base, opts...)...)
}

// newState wraps a map and fails the test if wrapping passed through.
func newState(t *testing.T, rt *Runtime, m map[string]any) *Object {
	t.Helper()
	o, ok := rt.Reactive(m).(*Object)
	if !ok {
		t.Fatalf("expected *Object wrapper, got %T", rt.Reactive(m))
	}
	return o
}
