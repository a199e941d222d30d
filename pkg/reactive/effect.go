package reactive

import (
	"sync"
	"sync/atomic"
)

// Cleanup is an optional function returned by an effect body. It runs before
// the effect's next execution and when the effect is disposed.
type Cleanup func()

// Effect is a re-runnable unit of reactive work. Reactive reads during its
// execution are recorded as dependencies; writes to any of them schedule the
// effect for re-execution. Effects created while another effect is running
// become children of that effect and are disposed with it.
type Effect struct {
	rt *Runtime
	id uint64
	fn func() Cleanup

	// owner is the effect that was active when this one was created.
	// depth is cached at creation (owner.depth+1) for O(1) flush ordering.
	owner *Effect
	depth int

	childrenMu sync.Mutex
	children   []*Effect

	depsMu sync.Mutex
	deps   []*depSet

	cleanup Cleanup

	disposed atomic.Bool
	pending  atomic.Bool
	seq      uint64 // enqueue sequence, assigned under the runtime lock

	// flushRuns counts executions within the current flush; the scheduler
	// resets it when the flush settles.
	flushRuns int

	// onInvalidate, when set, replaces the normal re-run when the scheduler
	// reaches this effect. Computed uses it to mark itself dirty without
	// recomputing or dropping its dependency links.
	onInvalidate func()

	label   string
	onError ErrorHandler
}

// EffectOption configures an Effect at creation.
type EffectOption func(*Effect)

// OnError installs a per-effect error handler. Errors contained by the
// engine for this effect are routed here instead of the runtime handler.
func OnError(h ErrorHandler) EffectOption {
	return func(e *Effect) {
		e.onError = h
	}
}

// WithLabel attaches a debug label used in error reports and debug events.
func WithLabel(label string) EffectOption {
	return func(e *Effect) {
		e.label = label
	}
}

// CreateEffect creates an effect and runs its body once, synchronously,
// registering dependencies. If another effect is active, the new effect
// becomes its child.
func (rt *Runtime) CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{rt: rt, id: rt.nextID(), fn: fn}
	for _, opt := range opts {
		opt(e)
	}
	if owner := rt.currentOwner(); owner != nil && !owner.isDisposed() {
		e.owner = owner
		e.depth = owner.depth + 1
		owner.addChild(e)
	}
	rt.runEffect(e)
	return e
}

// CreateRoot establishes an ownerless scope: effects created inside fn
// become children of an internal anonymous owner with no parent of its own.
// The returned dispose tears down everything created inside. Dependency
// tracking of the current listener, if any, is unaffected.
func (rt *Runtime) CreateRoot(fn func()) (dispose func()) {
	root := &Effect{rt: rt, id: rt.nextID(), label: "root"}
	old := rt.swapOwner(root)
	defer rt.swapOwner(old)
	fn()
	return root.Dispose
}

// ID returns the effect's unique identity.
func (e *Effect) ID() uint64 { return e.id }

// Label returns the debug label, if one was set.
func (e *Effect) Label() string { return e.label }

// Owner returns the effect that owned this one at creation, or nil.
func (e *Effect) Owner() *Effect { return e.owner }

func (e *Effect) isDisposed() bool { return e.disposed.Load() }

func (e *Effect) addChild(child *Effect) {
	e.childrenMu.Lock()
	e.children = append(e.children, child)
	e.childrenMu.Unlock()
}

func (e *Effect) removeChild(child *Effect) {
	e.childrenMu.Lock()
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			break
		}
	}
	e.childrenMu.Unlock()
}

func (e *Effect) takeChildren() []*Effect {
	e.childrenMu.Lock()
	children := e.children
	e.children = nil
	e.childrenMu.Unlock()
	return children
}

func (e *Effect) addDep(ds *depSet) {
	e.depsMu.Lock()
	e.deps = append(e.deps, ds)
	e.depsMu.Unlock()
}

// clearDeps removes the effect from every dependency set it is registered
// in, keeping the bidirectional invariant: after this, neither side holds a
// link to the other.
func (e *Effect) clearDeps() {
	e.depsMu.Lock()
	deps := e.deps
	e.deps = nil
	e.depsMu.Unlock()
	for _, ds := range deps {
		ds.remove(e)
	}
}

// disposedAncestor walks the owner chain and returns the first disposed
// ancestor, or nil. A pending effect with a disposed ancestor is a zombie:
// its scope was torn down before it could run.
func (e *Effect) disposedAncestor() *Effect {
	for a := e.owner; a != nil; a = a.owner {
		if a.isDisposed() {
			return a
		}
	}
	return nil
}

// pendingAncestor returns the nearest ancestor queued in the current batch,
// or nil. The scheduler defers this effect until that ancestor has run.
func (e *Effect) pendingAncestor() *Effect {
	for a := e.owner; a != nil; a = a.owner {
		if a.pending.Load() {
			return a
		}
	}
	return nil
}

// runEffect executes e's body: previous cleanup first, then a fresh run with
// dependencies re-registered from scratch. Child effects are deliberately
// left alone; whether children survive a parent re-run is the parent's
// choice, which lets UI state persist across unrelated updates.
func (rt *Runtime) runEffect(e *Effect) {
	if e.isDisposed() {
		return
	}
	if c := e.cleanup; c != nil {
		e.cleanup = nil
		rt.invoke(e, PhaseCleanup, c)
	}
	e.clearDeps()

	oldOwner := rt.swapOwner(e)
	oldListener := rt.swapListener(e)
	rt.invoke(e, PhaseBody, func() {
		e.cleanup = e.fn()
	})
	rt.swapListener(oldListener)
	rt.swapOwner(oldOwner)
	rt.emitDebug(OpRun, 0, nil, e)
}

// Dispose permanently retires the effect. Children are disposed depth-first
// before the effect's own cleanup runs; afterwards the effect is removed
// from every dependency set and from the pending queue, and will never
// execute again. Dispose is idempotent and safe to call from within a flush,
// including from the effect's own body.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	children := e.takeChildren()
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	if c := e.cleanup; c != nil {
		e.cleanup = nil
		e.rt.invoke(e, PhaseCleanup, c)
	}
	e.clearDeps()
	e.rt.dequeue(e)
	if e.owner != nil {
		e.owner.removeChild(e)
		e.owner = nil
	}
	e.rt.emitDebug(OpDispose, 0, nil, e)
}
