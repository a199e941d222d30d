package reactive

// Op identifies a debug event kind.
type Op uint8

const (
	// OpTrack fires when a running effect registers a dependency.
	OpTrack Op = iota + 1
	// OpTrigger fires when a write invalidates at least one dependent.
	OpTrigger
	// OpSet fires when a container accepts a changed value.
	OpSet
	// OpRun fires after an effect body executes.
	OpRun
	// OpDispose fires when an effect is disposed.
	OpDispose
	// OpGuardTrip fires when a loop-guard ceiling trips.
	OpGuardTrip
)

// String returns the event kind name.
func (op Op) String() string {
	switch op {
	case OpTrack:
		return "track"
	case OpTrigger:
		return "trigger"
	case OpSet:
		return "set"
	case OpRun:
		return "run"
	case OpDispose:
		return "dispose"
	case OpGuardTrip:
		return "guard-trip"
	default:
		return "unknown"
	}
}

// Event is one introspection record emitted to the debug hook.
type Event struct {
	Op     Op
	Source uint64 // source identity, 0 when not applicable
	Key    any    // dependency key, nil when not applicable
	Effect uint64 // effect identity, 0 when not applicable
	Label  string // effect label, when known
}

// DebugHook receives track/trigger/set/run events. Development-only: the
// hook must be fast and must not mutate reactive state.
type DebugHook func(Event)

type debugHookBox struct{ hook DebugHook }

// SetDebugHook installs the debug hook and returns the previous one.
// Passing nil disables introspection; when unset the engine pays a single
// nil-check per event site and allocates nothing.
func (rt *Runtime) SetDebugHook(hook DebugHook) DebugHook {
	old, _ := rt.debugHook.Swap(debugHookBox{hook: hook}).(debugHookBox)
	return old.hook
}

// emitDebug constructs and delivers an event only when a hook is installed.
func (rt *Runtime) emitDebug(op Op, sourceID uint64, key any, e *Effect) {
	box, _ := rt.debugHook.Load().(debugHookBox)
	if box.hook == nil {
		return
	}
	ev := Event{Op: op, Source: sourceID, Key: key}
	if e != nil {
		ev.Effect = e.id
		ev.Label = e.label
	}
	box.hook(ev)
}
