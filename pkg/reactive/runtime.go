package reactive

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Default scheduler guard rails. Chosen so that a genuinely cyclic effect
// graph is cut off quickly while deep-but-finite cascades still settle.
const (
	DefaultMaxEffectRuns      = 64
	DefaultMaxFlushIterations = 10000
)

// Runtime owns one reactive system: the dependency graph context, the
// active effect stack, the pending-effect queue, and the flush scheduler.
//
// Runtimes are independent; state tracked by one never leaks into another.
// The flush loop itself is serialised, but writes may arrive from any
// goroutine and are queued rather than executed in place.
type Runtime struct {
	idCounter uint64 // atomic; identities for sources and effects

	mu         sync.Mutex // guards the fields below
	owner      *Effect    // effect that will own newly created effects
	listener   *Effect    // effect currently registering dependencies
	queue      []*Effect  // pending effects, insertion order
	seqCounter uint64     // enqueue sequence, the sibling tie-break
	state      flushState

	hooksMu     sync.Mutex
	beforeFlush []func()
	afterFlush  []func()

	schedule func(flush func())

	maxEffectRuns      int
	maxFlushIterations int

	onError ErrorHandler
	logger  *slog.Logger

	debugHook atomic.Value // debugHookBox

	// wrapped maps backing-store pointers to their wrapper so that
	// Reactive is idempotent per target.
	wrapped sync.Map // uintptr -> *Object / *List
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithScheduler replaces the deferred-flush strategy. The scheduler is
// invoked once per transition from idle to scheduled and must eventually
// call flush. Passing a no-op scheduler gives fully manual flushing via
// FlushEffects, which tests rely on for determinism.
func WithScheduler(schedule func(flush func())) Option {
	return func(rt *Runtime) {
		rt.schedule = schedule
	}
}

// WithMaxEffectRuns sets the per-effect run ceiling within a single flush.
// An effect exceeding it is force-disposed and reported as an error.
func WithMaxEffectRuns(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxEffectRuns = n
		}
	}
}

// WithMaxFlushIterations sets the total number of effect executions allowed
// in one flush before remaining pending work is dropped.
func WithMaxFlushIterations(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxFlushIterations = n
		}
	}
}

// WithErrorHandler sets the runtime-wide handler for contained effect errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(rt *Runtime) {
		rt.onError = h
	}
}

// WithLogger sets the logger used when no error handler consumes an error.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// NewRuntime creates an independent reactive runtime.
//
// The default scheduler defers the flush to a background goroutine, the Go
// analog of a microtask: multiple synchronous writes coalesce into a single
// batch. Callers needing deterministic flushing (tests, request handlers)
// either call FlushEffects or install their own scheduler.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		maxEffectRuns:      DefaultMaxEffectRuns,
		maxFlushIterations: DefaultMaxFlushIterations,
		logger:             slog.Default(),
	}
	rt.schedule = func(flush func()) { go flush() }
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// nextID returns a fresh identity for a source or effect.
func (rt *Runtime) nextID() uint64 {
	return atomic.AddUint64(&rt.idCounter, 1)
}

func (rt *Runtime) currentOwner() *Effect {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.owner
}

func (rt *Runtime) currentListener() *Effect {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.listener
}

// swapOwner installs e as the owner for newly created effects and returns
// the previous owner so the caller can restore it.
func (rt *Runtime) swapOwner(e *Effect) *Effect {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	old := rt.owner
	rt.owner = e
	return old
}

// swapListener installs e as the dependency-registration target and returns
// the previous listener.
func (rt *Runtime) swapListener(e *Effect) *Effect {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	old := rt.listener
	rt.listener = e
	return old
}

// WithoutTracking runs fn with no active listener, so reactive reads inside
// do not register dependencies. Effects created inside still receive the
// current owner and track their own bodies normally. The previous tracking
// state is restored even if fn panics.
func (rt *Runtime) WithoutTracking(fn func()) {
	old := rt.swapListener(nil)
	defer rt.swapListener(old)
	fn()
}

// RunAsEffect runs fn with e as both the active owner and the dependency
// target. It is used to create children or register dependencies on behalf
// of an existing effect outside that effect's own body.
func (rt *Runtime) RunAsEffect(e *Effect, fn func()) {
	oldOwner := rt.swapOwner(e)
	oldListener := rt.swapListener(e)
	defer func() {
		rt.swapListener(oldListener)
		rt.swapOwner(oldOwner)
	}()
	fn()
}

// RegisterFlushHooks registers a before/after pair invoked around every
// flush. The before hook runs ahead of the first sub-pass so a renderer can
// begin deferring DOM writes; the after hook runs once the pending set is
// drained so batched patches can be committed. Writes performed by the after
// hook start another flush pass. Multiple pairs may be registered; they run
// in registration order. Either hook may be nil.
func (rt *Runtime) RegisterFlushHooks(before, after func()) {
	rt.hooksMu.Lock()
	defer rt.hooksMu.Unlock()
	if before != nil {
		rt.beforeFlush = append(rt.beforeFlush, before)
	}
	if after != nil {
		rt.afterFlush = append(rt.afterFlush, after)
	}
}

// SetErrorHandler sets the runtime-wide handler for contained effect errors
// and returns the previous one.
func (rt *Runtime) SetErrorHandler(h ErrorHandler) ErrorHandler {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	old := rt.onError
	rt.onError = h
	return old
}
