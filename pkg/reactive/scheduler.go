package reactive

import "sort"

// flushState is the scheduler state machine: idle until a trigger arrives,
// scheduled once a flush has been requested, flushing while the loop runs.
type flushState int

const (
	flushIdle flushState = iota
	flushScheduled
	flushFlushing
)

// enqueue adds e to the pending set and requests a flush if none is
// scheduled or running. Repeat triggers before the effect runs coalesce via
// the pending flag.
func (rt *Runtime) enqueue(e *Effect) {
	if e.isDisposed() {
		return
	}
	if e.pending.Swap(true) {
		return
	}
	rt.mu.Lock()
	rt.seqCounter++
	e.seq = rt.seqCounter
	rt.queue = append(rt.queue, e)
	schedule := rt.state == flushIdle
	if schedule {
		rt.state = flushScheduled
	}
	rt.mu.Unlock()
	if schedule {
		rt.schedule(rt.flush)
	}
}

// requeue puts a deferred effect back on the queue for a later sub-pass.
// The pending flag stays set; the fresh sequence number places it after the
// ancestor it is waiting on.
func (rt *Runtime) requeue(e *Effect) {
	rt.mu.Lock()
	rt.seqCounter++
	e.seq = rt.seqCounter
	rt.queue = append(rt.queue, e)
	rt.mu.Unlock()
}

// dequeue removes a disposed effect from the pending queue.
func (rt *Runtime) dequeue(e *Effect) {
	if !e.pending.Swap(false) {
		return
	}
	rt.mu.Lock()
	for i, q := range rt.queue {
		if q == e {
			rt.queue = append(rt.queue[:i], rt.queue[i+1:]...)
			break
		}
	}
	rt.mu.Unlock()
}

// takeQueue snapshots and clears the pending queue, sorted parents-first.
// Within one depth, effects run in enqueue order; the tie-break between
// siblings is insertion order, by design.
func (rt *Runtime) takeQueue() []*Effect {
	rt.mu.Lock()
	batch := rt.queue
	rt.queue = nil
	rt.mu.Unlock()
	if len(batch) > 1 {
		sort.SliceStable(batch, func(i, j int) bool {
			if batch[i].depth != batch[j].depth {
				return batch[i].depth < batch[j].depth
			}
			return batch[i].seq < batch[j].seq
		})
	}
	return batch
}

// dropPending discards all queued work. Used when the flush iteration
// ceiling trips.
func (rt *Runtime) dropPending() int {
	rt.mu.Lock()
	dropped := rt.queue
	rt.queue = nil
	rt.mu.Unlock()
	for _, e := range dropped {
		e.pending.Store(false)
	}
	return len(dropped)
}

// FlushEffects synchronously runs all pending effects to completion. It is
// the deterministic escape hatch for callers that cannot wait for the
// deferred flush: tests, request handlers, teardown paths. Calling it while
// a flush is already running is a no-op; the running loop picks up newly
// queued work itself.
func (rt *Runtime) FlushEffects() {
	rt.flush()
}

// flush drains the pending set. Per outer pass: run the before hooks, drain
// the queue in depth-ordered sub-passes, run the after hooks, and repeat if
// the after hooks produced new writes. Within one flush an effect that was
// invalidated several times runs at most once per sub-pass, with the latest
// state.
func (rt *Runtime) flush() {
	rt.mu.Lock()
	if rt.state == flushFlushing {
		rt.mu.Unlock()
		return
	}
	rt.state = flushFlushing
	rt.mu.Unlock()

	var ran []*Effect
	total := 0
	aborted := false

	for {
		rt.runHooks(true)

		for !aborted {
			batch := rt.takeQueue()
			if len(batch) == 0 {
				break
			}
			for _, e := range batch {
				if e.isDisposed() {
					e.pending.Store(false)
					continue
				}
				if e.disposedAncestor() != nil {
					// Zombie: its scope was torn down earlier in this
					// flush. Retire it silently.
					e.pending.Store(false)
					e.Dispose()
					continue
				}
				if e.pendingAncestor() != nil {
					// The ancestor must run first; it may dispose or
					// rebuild this effect. Try again next sub-pass.
					rt.requeue(e)
					continue
				}
				e.pending.Store(false)
				if e.flushRuns == 0 {
					ran = append(ran, e)
				}
				e.flushRuns++
				if e.flushRuns > rt.maxEffectRuns {
					rt.emitDebug(OpGuardTrip, 0, nil, e)
					rt.routeError(e, &EffectError{
						Phase:    PhaseScheduler,
						EffectID: e.id,
						Label:    e.label,
						Err:      ErrRunLimit,
					})
					e.Dispose()
					continue
				}
				if e.onInvalidate != nil {
					rt.invoke(e, PhaseBody, e.onInvalidate)
				} else {
					rt.runEffect(e)
				}
				total++
				if total >= rt.maxFlushIterations {
					dropped := rt.dropPending()
					rt.emitDebug(OpGuardTrip, 0, nil, nil)
					rt.routeError(nil, &EffectError{
						Phase:   PhaseScheduler,
						Err:     ErrFlushLimit,
						Dropped: dropped,
					})
					aborted = true
					break
				}
			}
		}

		rt.runHooks(false)

		rt.mu.Lock()
		done := aborted || len(rt.queue) == 0
		rt.mu.Unlock()
		if done {
			break
		}
	}

	for _, e := range ran {
		e.flushRuns = 0
	}

	rt.mu.Lock()
	rt.state = flushIdle
	reschedule := len(rt.queue) > 0
	if reschedule {
		rt.state = flushScheduled
	}
	rt.mu.Unlock()
	if reschedule {
		// Work was enqueued from another goroutine after the final check.
		rt.schedule(rt.flush)
	}
}

// runHooks invokes the registered before- or after-flush hooks. A panicking
// hook is contained like a failing effect so the flush still completes.
func (rt *Runtime) runHooks(before bool) {
	rt.hooksMu.Lock()
	var hooks []func()
	if before {
		hooks = append(hooks, rt.beforeFlush...)
	} else {
		hooks = append(hooks, rt.afterFlush...)
	}
	rt.hooksMu.Unlock()
	for _, h := range hooks {
		rt.invoke(nil, PhaseHook, h)
	}
}
