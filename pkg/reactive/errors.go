package reactive

import (
	"errors"
	"fmt"
)

// ErrRunLimit is the cause recorded when a single effect exceeds the
// per-flush run ceiling and is force-disposed.
var ErrRunLimit = errors.New("reactive: effect exceeded run ceiling in one flush")

// ErrFlushLimit is the cause recorded when a flush exceeds the total
// iteration ceiling and the remaining pending work is dropped.
var ErrFlushLimit = errors.New("reactive: flush iteration ceiling exceeded")

// Phase identifies where inside the engine a contained failure happened.
type Phase uint8

const (
	// PhaseBody marks a failure thrown by an effect body.
	PhaseBody Phase = iota + 1
	// PhaseCleanup marks a failure thrown by a returned cleanup callback.
	PhaseCleanup
	// PhaseScheduler marks a loop-guard trip inside the flush loop.
	PhaseScheduler
	// PhaseHook marks a failure thrown by a before/after-flush hook.
	PhaseHook
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBody:
		return "effect"
	case PhaseCleanup:
		return "cleanup"
	case PhaseScheduler:
		return "scheduler"
	case PhaseHook:
		return "flush-hook"
	default:
		return "unknown"
	}
}

// EffectError is a contained failure from the reactive engine. Errors never
// propagate to the code that performed the triggering mutation; they are
// wrapped here and routed through the handler chain instead.
type EffectError struct {
	Phase    Phase
	EffectID uint64
	Label    string
	Err      error  // underlying cause
	Dropped  int    // pending effects discarded, for ErrFlushLimit trips
}

// Error implements the error interface.
func (e *EffectError) Error() string {
	name := e.Label
	if name == "" && e.EffectID != 0 {
		name = fmt.Sprintf("effect#%d", e.EffectID)
	}
	if name == "" {
		return fmt.Sprintf("reactive: %s failure: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("reactive: %s failure in %s: %v", e.Phase, name, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EffectError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives contained effect errors. Handlers must not panic.
type ErrorHandler func(err *EffectError)

// invoke runs fn with panic containment. A recovered panic is wrapped and
// routed through the handler chain: per-effect handler, then the runtime
// handler, then the logger. A failing effect never prevents other effects
// in the same flush from running.
func (rt *Runtime) invoke(e *Effect, phase Phase, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", r)
		}
		ee := &EffectError{Phase: phase, Err: err}
		if e != nil {
			ee.EffectID = e.id
			ee.Label = e.label
		}
		rt.routeError(e, ee)
	}()
	fn()
}

// routeError delivers a contained error to the per-effect handler if set,
// else the runtime handler, else the logger. Handler panics are swallowed
// so one broken handler cannot take down the flush loop.
func (rt *Runtime) routeError(e *Effect, ee *EffectError) {
	rt.mu.Lock()
	h := rt.onError
	rt.mu.Unlock()
	if e != nil && e.onError != nil {
		h = e.onError
	}
	if h != nil {
		defer func() { _ = recover() }()
		h(ee)
		return
	}
	rt.logger.Error("reactive: contained effect error",
		"phase", ee.Phase.String(),
		"effect", ee.EffectID,
		"label", ee.Label,
		"err", ee.Err,
	)
}
