package reactive

import "sync"

// Computed is a cached derived value: push-based invalidation, pull-based
// recomputation. The getter runs when the computed is created and again on
// the first Get after any dependency changed; invalidations in between only
// mark the cache dirty. Reading a computed from inside an effect registers
// the computed itself as a dependency, so derivation chains compose.
type Computed[T any] struct {
	rt  *Runtime
	src source

	mu        sync.Mutex
	getter    func() T
	value     T
	dirty     bool
	computing bool
	disposed  bool

	eff *Effect
}

// NewComputed creates a computed over getter. The getter runs once
// immediately to prime the cache and register dependencies.
func NewComputed[T any](rt *Runtime, getter func() T) *Computed[T] {
	c := &Computed[T]{rt: rt, src: newSource(rt), getter: getter}

	// The backing effect gives the computed its dependency identity and its
	// place in the ownership tree. The scheduler never re-runs the body;
	// invalidation goes through onInvalidate, which leaves the dependency
	// links in place until the next recompute.
	c.eff = rt.CreateEffect(func() Cleanup {
		c.value = c.getter()
		c.dirty = false
		return nil
	}, WithLabel("computed"))
	c.eff.onInvalidate = c.invalidate

	return c
}

// invalidate marks the cache dirty and propagates to the computed's own
// dependents. Repeat invalidations before the next Get coalesce.
func (c *Computed[T]) invalidate() {
	c.mu.Lock()
	already := c.dirty
	c.dirty = true
	c.mu.Unlock()
	if !already {
		c.src.trigger(versionKey)
	}
}

// Get returns the cached value, recomputing only when dirty. The recompute
// runs under the computed's own effect identity, dropping stale dependency
// registrations and recording fresh ones. The read registers the running
// effect, if any, as a dependent of the computed.
func (c *Computed[T]) Get() T {
	c.mu.Lock()
	if c.disposed {
		v := c.value
		c.mu.Unlock()
		return v
	}
	if !c.dirty || c.computing {
		// computing guards circular getters: a computed read back during
		// its own recompute sees the previous cached value.
		v := c.value
		c.mu.Unlock()
		c.src.track(versionKey)
		return v
	}
	c.computing = true
	c.mu.Unlock()

	c.src.track(versionKey)

	c.eff.clearDeps()
	var next T
	ok := false
	c.rt.RunAsEffect(c.eff, func() {
		c.rt.invoke(c.eff, PhaseBody, func() {
			next = c.getter()
			ok = true
		})
	})

	c.mu.Lock()
	if ok {
		c.value = next
	}
	c.dirty = false
	c.computing = false
	v := c.value
	c.mu.Unlock()
	return v
}

// Peek returns the cached value without registering a dependency, still
// recomputing if dirty.
func (c *Computed[T]) Peek() (v T) {
	c.rt.WithoutTracking(func() {
		v = c.Get()
	})
	return v
}

// Dispose stops dependency tracking and abandons the cache: afterwards Get
// returns the last computed value without recomputing or tracking.
func (c *Computed[T]) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.mu.Unlock()
	c.eff.Dispose()
}
