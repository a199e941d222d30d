// Package reactive provides the dependency-tracking and effect-scheduling
// core for the VDX framework.
//
// The engine is organised around an explicit Runtime. A Runtime owns the
// dependency graph, the active effect context, and the flush scheduler, so
// multiple independent reactive systems (one per session, one per test) never
// share state:
//
//	rt := reactive.NewRuntime()
//	state := rt.Reactive(map[string]any{"count": 0}).(*reactive.Object)
//
//	rt.CreateEffect(func() reactive.Cleanup {
//	    fmt.Println("count is", state.Get("count"))
//	    return nil
//	})
//
//	state.Set("count", 1)
//	rt.FlushEffects() // effect re-runs once with the latest state
//
// # Observation
//
// Go has no transparent property interception, so the observation boundary is
// explicit: Object wraps a string-keyed record and List wraps a sequence.
// Reads register the running effect as a dependent of the (container, key)
// pair; writes invalidate dependents only when the value actually changed.
// Element reads on a List track a single coarse length key, so an effect
// iterating a thousand elements registers exactly one dependency.
//
// # Effects and ownership
//
// Effects created while another effect is running become its children. A
// parent always runs before its children within one flush, and disposing a
// parent disposes the whole subtree, children first. Computed and Watch are
// derived from Effect.
//
// # Scheduling
//
// Writes never execute effects synchronously. Invalidated effects are queued
// and executed by the flush loop, which coalesces repeat invalidations,
// orders by ownership depth, and guards against runaway effect graphs with a
// per-effect run ceiling and a total iteration ceiling. An external renderer
// integrates through RegisterFlushHooks to batch DOM commits around a flush.
package reactive
