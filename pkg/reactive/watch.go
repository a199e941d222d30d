package reactive

// Watch observes the value produced by source and calls cb with the new and
// previous values whenever a tracked dependency of source changes. The
// first run only primes the previous value; cb is never called for it. The
// callback runs untracked, so reads inside it register nothing, and it
// receives both values so callers can apply their own equality policy.
//
// The returned function disposes the watch.
func Watch[T any](rt *Runtime, source func() T, cb func(newVal, oldVal T)) (dispose func()) {
	var old T
	first := true
	e := rt.CreateEffect(func() Cleanup {
		v := source()
		if first {
			first = false
			old = v
			return nil
		}
		prev := old
		old = v
		rt.WithoutTracking(func() {
			cb(v, prev)
		})
		return nil
	}, WithLabel("watch"))
	return e.Dispose
}
