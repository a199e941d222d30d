package reactive

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// reactiveCollection is the type-erased marker shared by the explicit
// collection wrappers, used where proxy-style wrapping is impractical.
type reactiveCollection interface {
	isReactiveCollection()
}

// IsReactiveCollection reports whether v is a reactive Set or Map wrapper.
func IsReactiveCollection(v any) bool {
	_, ok := v.(reactiveCollection)
	return ok
}

// Set is an explicit reactive set. Membership reads track per-element keys;
// size and iteration reads track the coarse mutation key, so an effect
// ranging over a large set registers exactly one dependency.
type Set[T comparable] struct {
	src source

	mu    sync.RWMutex
	items mapset.Set[T]
}

// NewSet creates a reactive set holding items.
func NewSet[T comparable](rt *Runtime, items ...T) *Set[T] {
	return &Set[T]{src: newSource(rt), items: mapset.NewThreadUnsafeSet(items...)}
}

func (s *Set[T]) isReactiveCollection() {}

// Contains reports membership, tracking the element key.
func (s *Set[T]) Contains(v T) bool {
	s.src.track(v)
	s.mu.RLock()
	ok := s.items.Contains(v)
	s.mu.RUnlock()
	return ok
}

// Len returns the element count, tracking the coarse mutation key.
func (s *Set[T]) Len() int {
	s.src.track(versionKey)
	s.mu.RLock()
	n := s.items.Cardinality()
	s.mu.RUnlock()
	return n
}

// Values returns the elements, tracking the coarse mutation key once.
func (s *Set[T]) Values() []T {
	s.src.track(versionKey)
	s.mu.RLock()
	out := s.items.ToSlice()
	s.mu.RUnlock()
	return out
}

// Add inserts v, invalidating dependents only when it was absent.
func (s *Set[T]) Add(v T) bool {
	s.mu.Lock()
	added := s.items.Add(v)
	s.mu.Unlock()
	if added {
		s.src.rt.emitDebug(OpSet, s.src.id, v, nil)
		s.src.trigger(v)
		s.src.trigger(versionKey)
	}
	return added
}

// Remove deletes v, invalidating dependents only when it was present.
func (s *Set[T]) Remove(v T) bool {
	s.mu.Lock()
	present := s.items.Contains(v)
	if present {
		s.items.Remove(v)
	}
	s.mu.Unlock()
	if present {
		s.src.rt.emitDebug(OpSet, s.src.id, v, nil)
		s.src.trigger(v)
		s.src.trigger(versionKey)
	}
	return present
}

// Clear removes all elements, invalidating every dependent.
func (s *Set[T]) Clear() {
	s.mu.Lock()
	removed := s.items.ToSlice()
	s.items = mapset.NewThreadUnsafeSet[T]()
	s.mu.Unlock()
	if len(removed) == 0 {
		return
	}
	for _, v := range removed {
		s.src.trigger(v)
	}
	s.src.trigger(versionKey)
}

// Map is an explicit reactive map with per-key dependency sets plus a
// coarse mutation key for size and iteration reads.
type Map[K comparable, V any] struct {
	src source

	mu   sync.RWMutex
	data map[K]V
}

// NewMap creates an empty reactive map.
func NewMap[K comparable, V any](rt *Runtime) *Map[K, V] {
	return &Map[K, V]{src: newSource(rt), data: make(map[K]V)}
}

// NewMapFrom creates a reactive map seeded with the entries of init.
func NewMapFrom[K comparable, V any](rt *Runtime, init map[K]V) *Map[K, V] {
	m := NewMap[K, V](rt)
	for k, v := range init {
		m.data[k] = v
	}
	return m
}

func (m *Map[K, V]) isReactiveCollection() {}

// Get returns the value for key, tracking the key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.src.track(key)
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	return v, ok
}

// Set stores v under key, invalidating key dependents when the value
// observably changed. Container values always count as changed.
func (m *Map[K, V]) Set(key K, v V) {
	m.mu.Lock()
	old, existed := m.data[key]
	changed := !existed || valueChanged(old, v)
	if changed {
		m.data[key] = v
	}
	m.mu.Unlock()
	if !changed {
		return
	}
	m.src.rt.emitDebug(OpSet, m.src.id, key, nil)
	m.src.trigger(key)
	m.src.trigger(versionKey)
}

// Delete removes key, invalidating dependents if it was present.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	_, existed := m.data[key]
	if existed {
		delete(m.data, key)
	}
	m.mu.Unlock()
	if !existed {
		return
	}
	m.src.rt.emitDebug(OpSet, m.src.id, key, nil)
	m.src.trigger(key)
	m.src.trigger(versionKey)
}

// Len returns the entry count, tracking the coarse mutation key.
func (m *Map[K, V]) Len() int {
	m.src.track(versionKey)
	m.mu.RLock()
	n := len(m.data)
	m.mu.RUnlock()
	return n
}

// Keys returns the key set, tracking the coarse mutation key once.
func (m *Map[K, V]) Keys() []K {
	m.src.track(versionKey)
	m.mu.RLock()
	keys := make([]K, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	return keys
}

// Range calls fn for each entry until it returns false, registering a
// single coarse dependency.
func (m *Map[K, V]) Range(fn func(key K, v V) bool) {
	m.src.track(versionKey)
	m.mu.RLock()
	snapshot := make(map[K]V, len(m.data))
	for k, v := range m.data {
		snapshot[k] = v
	}
	m.mu.RUnlock()
	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}
