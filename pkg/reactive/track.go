package reactive

import "sync"

// versionKeyType is the dependency key standing for "any mutation" of a
// source. Lists use it as their single coarse length key; Objects and Maps
// bump it alongside per-key triggers so iteration-shaped reads stay O(1).
type versionKeyType struct{}

func (versionKeyType) String() string { return "~version" }

var versionKey any = versionKeyType{}

// depSet is one entry of the dependency graph: the set of effects that read
// a given (source, key) pair during their last run.
//
// Invariant: an effect is a member of a depSet if and only if the depSet is
// also recorded in the effect's own deps registry. Both links are maintained
// together under the depSet lock so disposal can sever them from either end.
type depSet struct {
	source *source
	key    any

	mu      sync.Mutex
	members map[*Effect]struct{}
	// order preserves registration order so triggering is deterministic:
	// siblings are enqueued, and therefore run, in the order they first
	// tracked the dependency.
	order []*Effect
}

// add registers e as a member, returning false when it already was one.
func (ds *depSet) add(e *Effect) bool {
	ds.mu.Lock()
	if _, ok := ds.members[e]; ok {
		ds.mu.Unlock()
		return false
	}
	ds.members[e] = struct{}{}
	ds.order = append(ds.order, e)
	ds.mu.Unlock()
	e.addDep(ds)
	return true
}

// remove severs the depSet->effect half of the link. The effect side is
// cleared by the caller, which owns the effect's deps registry.
func (ds *depSet) remove(e *Effect) {
	ds.mu.Lock()
	if _, ok := ds.members[e]; ok {
		delete(ds.members, e)
		for i, m := range ds.order {
			if m == e {
				ds.order = append(ds.order[:i], ds.order[i+1:]...)
				break
			}
		}
	}
	ds.mu.Unlock()
}

// snapshot returns the current members so they can be enqueued without
// holding the set lock across scheduler calls.
func (ds *depSet) snapshot() []*Effect {
	ds.mu.Lock()
	out := make([]*Effect, len(ds.order))
	copy(out, ds.order)
	ds.mu.Unlock()
	return out
}

// source is the per-container half of the dependency graph. Every reactive
// container (Object, List, Set, Map, Computed) embeds one.
type source struct {
	rt *Runtime
	id uint64

	mu   sync.Mutex
	deps map[any]*depSet
}

func newSource(rt *Runtime) source {
	return source{rt: rt, id: rt.nextID()}
}

func (s *source) depsFor(key any) *depSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deps == nil {
		s.deps = make(map[any]*depSet)
	}
	ds, ok := s.deps[key]
	if !ok {
		ds = &depSet{source: s, key: key, members: make(map[*Effect]struct{})}
		s.deps[key] = ds
	}
	return ds
}

// track records the currently running effect as a dependent of (s, key).
// It is a no-op when no effect is registering dependencies.
func (s *source) track(key any) {
	l := s.rt.currentListener()
	if l == nil || l.isDisposed() {
		return
	}
	if s.depsFor(key).add(l) {
		s.rt.emitDebug(OpTrack, s.id, key, l)
	}
}

// trigger marks every effect depending on (s, key) as needing a re-run.
// Effects are enqueued, never executed here: executing synchronously would
// reenter effect bodies from inside a mutation or a running flush.
func (s *source) trigger(key any) {
	s.mu.Lock()
	ds := s.deps[key]
	s.mu.Unlock()
	if ds == nil {
		return
	}
	effects := ds.snapshot()
	if len(effects) == 0 {
		return
	}
	s.rt.emitDebug(OpTrigger, s.id, key, nil)
	for _, e := range effects {
		s.rt.enqueue(e)
	}
}
