package reactive

import (
	"reflect"
	"sort"
	"sync"
)

// Opaque marks values the observation layer must never wrap, such as vdom
// nodes: wrapping them is meaningless and would break identity comparisons
// in the renderer. Implement the marker method to opt a type out.
type Opaque interface {
	ReactiveOpaque()
}

// Object is a reactive string-keyed record. Reads register the running
// effect as a dependent of the read key; writes invalidate dependents only
// when the value observably changed. Nested maps and slices are wrapped
// lazily on read, so deep reactivity costs nothing until a path is visited.
type Object struct {
	src source

	mu   sync.RWMutex
	data map[string]any

	untracked bool
}

// NewObject creates an empty reactive record.
func (rt *Runtime) NewObject() *Object {
	return &Object{src: newSource(rt), data: make(map[string]any)}
}

// Reactive returns a reactive wrapper for v.
//
// Maps (map[string]any) become *Object, slices ([]any) become *List, and
// the same backing store always yields the same wrapper, so
// Reactive(Reactive(x)) == Reactive(x). Everything else passes through
// unchanged: primitives, errors, channels, funcs, Opaque values, values
// already wrapped, and plain Go structs, for which reactivity either breaks
// internal invariants or means nothing.
func (rt *Runtime) Reactive(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *Object:
		return x
	case *List:
		return x
	case reactiveCollection:
		return x
	case Opaque:
		return v
	case error:
		return v
	case map[string]any:
		if x == nil {
			return nil
		}
		ptr := reflect.ValueOf(x).Pointer()
		if w, ok := rt.wrapped.Load(ptr); ok {
			return w
		}
		o := &Object{src: newSource(rt), data: x}
		if w, loaded := rt.wrapped.LoadOrStore(ptr, o); loaded {
			return w
		}
		return o
	case []any:
		if x == nil {
			return nil
		}
		ptr := reflect.ValueOf(x).Pointer()
		if w, ok := rt.wrapped.Load(ptr); ok {
			return w
		}
		l := &List{src: newSource(rt), items: x}
		if w, loaded := rt.wrapped.LoadOrStore(ptr, l); loaded {
			return w
		}
		return l
	default:
		return v
	}
}

// IsReactive reports whether v is a wrapper produced by this engine.
func IsReactive(v any) bool {
	switch v.(type) {
	case *Object, *List:
		return true
	case reactiveCollection:
		return true
	default:
		return false
	}
}

// Untracked wraps v reactively but tags the wrapper so reads through it
// never register dependencies on its internals. Replacing a property that
// held an untracked value propagates the tag to the replacement. Dependents
// of the containing property still re-run when the whole value is swapped.
func (rt *Runtime) Untracked(v any) any {
	w := rt.Reactive(v)
	markUntracked(w)
	return w
}

// IsUntracked reports whether v carries the untracked tag.
func IsUntracked(v any) bool {
	switch x := v.(type) {
	case *Object:
		return x.untracked
	case *List:
		return x.untracked
	default:
		return false
	}
}

func markUntracked(v any) {
	switch x := v.(type) {
	case *Object:
		x.untracked = true
	case *List:
		x.untracked = true
	}
}

// wrapChild wraps a nested value read out of an untracked-aware container,
// propagating the tag downward.
func wrapChild(rt *Runtime, v any, untracked bool) any {
	w := rt.Reactive(v)
	if untracked {
		markUntracked(w)
	}
	return w
}

// ID returns the object's source identity, for debug-event correlation.
func (o *Object) ID() uint64 { return o.src.id }

// Get returns the value stored under key, wrapped reactively, and records
// the running effect as a dependent of the key.
func (o *Object) Get(key string) any {
	if !o.untracked {
		o.src.track(key)
	}
	o.mu.RLock()
	v := o.data[key]
	o.mu.RUnlock()
	return wrapChild(o.src.rt, v, o.untracked)
}

// Has reports whether key is present, tracking the key.
func (o *Object) Has(key string) bool {
	if !o.untracked {
		o.src.track(key)
	}
	o.mu.RLock()
	_, ok := o.data[key]
	o.mu.RUnlock()
	return ok
}

// Set stores v under key. Dependents are invalidated only when the value
// observably changed: scalar writes compare by value, while container
// values always count as changed because their internal state may differ
// even when the outer reference looks the same.
func (o *Object) Set(key string, v any) {
	o.mu.Lock()
	old, existed := o.data[key]
	changed := !existed || valueChanged(old, v)
	if changed {
		if existed && IsUntracked(o.src.rt.Reactive(old)) {
			v = o.src.rt.Untracked(v)
		}
		o.data[key] = v
	}
	o.mu.Unlock()
	if !changed {
		return
	}
	o.src.rt.emitDebug(OpSet, o.src.id, key, nil)
	o.src.trigger(key)
	o.src.trigger(versionKey)
}

// Delete removes key, invalidating its dependents if it was present.
func (o *Object) Delete(key string) {
	o.mu.Lock()
	_, existed := o.data[key]
	if existed {
		delete(o.data, key)
	}
	o.mu.Unlock()
	if !existed {
		return
	}
	o.src.rt.emitDebug(OpSet, o.src.id, key, nil)
	o.src.trigger(key)
	o.src.trigger(versionKey)
}

// Keys returns the sorted key set, tracking the coarse mutation key.
func (o *Object) Keys() []string {
	if !o.untracked {
		o.src.track(versionKey)
	}
	o.mu.RLock()
	keys := make([]string, 0, len(o.data))
	for k := range o.data {
		keys = append(keys, k)
	}
	o.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys, tracking the coarse mutation key.
func (o *Object) Len() int {
	if !o.untracked {
		o.src.track(versionKey)
	}
	o.mu.RLock()
	n := len(o.data)
	o.mu.RUnlock()
	return n
}

// Range calls fn for each key in sorted order until it returns false. The
// iteration registers a single coarse dependency, not one per key.
func (o *Object) Range(fn func(key string, v any) bool) {
	if !o.untracked {
		o.src.track(versionKey)
	}
	o.mu.RLock()
	snapshot := make(map[string]any, len(o.data))
	for k, v := range o.data {
		snapshot[k] = v
	}
	o.mu.RUnlock()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(k, wrapChild(o.src.rt, snapshot[k], o.untracked)) {
			return
		}
	}
}

// List is a reactive sequence with coarse structural tracking: every
// element read registers one dependency on the list's length key rather
// than one per index. Iterating dependents are invalidated exactly once per
// mutation, trading index granularity for O(1) iteration tracking.
type List struct {
	src source

	mu    sync.RWMutex
	items []any

	untracked bool
}

// NewList creates a reactive list around items. The slice is owned by the
// list afterwards.
func (rt *Runtime) NewList(items ...any) *List {
	return &List{src: newSource(rt), items: items}
}

// ID returns the list's source identity, for debug-event correlation.
func (l *List) ID() uint64 { return l.src.id }

func (l *List) track() {
	if !l.untracked {
		l.src.track(versionKey)
	}
}

func (l *List) changed() {
	l.src.rt.emitDebug(OpSet, l.src.id, versionKey, nil)
	l.src.trigger(versionKey)
}

// Get returns the element at index i, or nil when out of range. The read
// tracks the coarse length key, not the index.
func (l *List) Get(i int) any {
	l.track()
	l.mu.RLock()
	var v any
	if i >= 0 && i < len(l.items) {
		v = l.items[i]
	}
	l.mu.RUnlock()
	return wrapChild(l.src.rt, v, l.untracked)
}

// Len returns the element count, tracking the length key.
func (l *List) Len() int {
	l.track()
	l.mu.RLock()
	n := len(l.items)
	l.mu.RUnlock()
	return n
}

// Values returns a wrapped copy of the elements, tracking the length key
// once regardless of size.
func (l *List) Values() []any {
	l.track()
	l.mu.RLock()
	out := make([]any, len(l.items))
	copy(out, l.items)
	l.mu.RUnlock()
	for i, v := range out {
		out[i] = wrapChild(l.src.rt, v, l.untracked)
	}
	return out
}

// Range calls fn for each element until it returns false, registering a
// single dependency.
func (l *List) Range(fn func(i int, v any) bool) {
	for i, v := range l.Values() {
		if !fn(i, v) {
			return
		}
	}
}

// SetAt replaces the element at index i, invalidating dependents once when
// the value observably changed. Out-of-range writes are ignored.
func (l *List) SetAt(i int, v any) {
	l.mu.Lock()
	if i < 0 || i >= len(l.items) {
		l.mu.Unlock()
		return
	}
	changed := valueChanged(l.items[i], v)
	if changed {
		l.items[i] = v
	}
	l.mu.Unlock()
	if changed {
		l.changed()
	}
}

// Append adds elements at the end, invalidating dependents exactly once.
func (l *List) Append(vs ...any) {
	if len(vs) == 0 {
		return
	}
	l.mu.Lock()
	l.items = append(l.items, vs...)
	l.mu.Unlock()
	l.changed()
}

// Pop removes and returns the last element, or nil when empty.
func (l *List) Pop() any {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return nil
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	l.mu.Unlock()
	l.changed()
	return v
}

// Insert places v at index i, clamping out-of-range indices to the ends.
func (l *List) Insert(i int, v any) {
	l.mu.Lock()
	if i < 0 {
		i = 0
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
	l.mu.Unlock()
	l.changed()
}

// RemoveAt deletes the element at index i if in range.
func (l *List) RemoveAt(i int) {
	l.mu.Lock()
	if i < 0 || i >= len(l.items) {
		l.mu.Unlock()
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.mu.Unlock()
	l.changed()
}

// Splice removes deleteCount elements starting at start and inserts vs in
// their place, returning the removed elements. Dependents are invalidated
// exactly once for the whole operation.
func (l *List) Splice(start, deleteCount int, vs ...any) []any {
	l.mu.Lock()
	n := len(l.items)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > n {
		deleteCount = n - start
	}
	removed := make([]any, deleteCount)
	copy(removed, l.items[start:start+deleteCount])

	next := make([]any, 0, n-deleteCount+len(vs))
	next = append(next, l.items[:start]...)
	next = append(next, vs...)
	next = append(next, l.items[start+deleteCount:]...)
	l.items = next
	mutated := deleteCount > 0 || len(vs) > 0
	l.mu.Unlock()
	if mutated {
		l.changed()
	}
	return removed
}

// Sort orders the elements by less. The sort runs on a copy which is then
// committed atomically, so dependents see one trigger and never observe a
// half-sorted list, and reads from within the comparator cannot reenter a
// mutation in progress.
func (l *List) Sort(less func(a, b any) bool) {
	l.mu.RLock()
	work := make([]any, len(l.items))
	copy(work, l.items)
	l.mu.RUnlock()

	sort.SliceStable(work, func(i, j int) bool { return less(work[i], work[j]) })

	l.mu.Lock()
	l.items = work
	l.mu.Unlock()
	l.changed()
}

// Reverse reverses the elements in copy-then-commit fashion, invalidating
// dependents exactly once.
func (l *List) Reverse() {
	l.mu.RLock()
	work := make([]any, len(l.items))
	for i, v := range l.items {
		work[len(l.items)-1-i] = v
	}
	l.mu.RUnlock()

	l.mu.Lock()
	l.items = work
	l.mu.Unlock()
	l.changed()
}

// valueChanged implements the engine's conservative change rule: scalars
// compare by value; everything else, containers above all, always counts as
// changed because internal mutation is invisible from the outside.
func valueChanged(old, next any) bool {
	switch a := old.(type) {
	case nil:
		return next != nil
	case bool:
		b, ok := next.(bool)
		return !ok || a != b
	case string:
		b, ok := next.(string)
		return !ok || a != b
	case int:
		b, ok := next.(int)
		return !ok || a != b
	case int8:
		b, ok := next.(int8)
		return !ok || a != b
	case int16:
		b, ok := next.(int16)
		return !ok || a != b
	case int32:
		b, ok := next.(int32)
		return !ok || a != b
	case int64:
		b, ok := next.(int64)
		return !ok || a != b
	case uint:
		b, ok := next.(uint)
		return !ok || a != b
	case uint8:
		b, ok := next.(uint8)
		return !ok || a != b
	case uint16:
		b, ok := next.(uint16)
		return !ok || a != b
	case uint32:
		b, ok := next.(uint32)
		return !ok || a != b
	case uint64:
		b, ok := next.(uint64)
		return !ok || a != b
	case float32:
		b, ok := next.(float32)
		return !ok || a != b
	case float64:
		b, ok := next.(float64)
		return !ok || a != b
	default:
		return true
	}
}
