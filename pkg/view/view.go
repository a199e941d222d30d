// Package view binds components to a reactive runtime. Each mount owns a
// render effect inside its own root scope; re-renders during a flush are
// diffed against the previous tree and the resulting patches are committed
// to the mount's sink in one batch when the flush settles.
package view

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vdx-ui/vdx/pkg/reactive"
	"github.com/vdx-ui/vdx/pkg/vdom"
)

// Component produces a node tree from reactive state. It is re-invoked
// whenever a dependency read during the previous invocation changes.
type Component func() *vdom.Node

// Sink receives the patch batches produced by a mount.
type Sink interface {
	ApplyPatches(patches []vdom.Patch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(patches []vdom.Patch) error

// ApplyPatches implements Sink.
func (f SinkFunc) ApplyPatches(patches []vdom.Patch) error { return f(patches) }

// Renderer coordinates mounts over one runtime. Its after-flush hook
// commits every mount's buffered patches once the pending effect set has
// drained, so a flush that re-renders several components still yields one
// batch per mount.
type Renderer struct {
	rt   *reactive.Runtime
	log  *slog.Logger
	refs vdom.RefGen

	mu     sync.Mutex
	mounts []*Mount
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the logger used for sink failures.
func WithLogger(log *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRenderer creates a renderer over rt and hooks it into the flush cycle.
func NewRenderer(rt *reactive.Runtime, opts ...RendererOption) *Renderer {
	r := &Renderer{rt: rt, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	rt.RegisterFlushHooks(nil, r.commit)
	return r
}

// Mount renders component once, synchronously, and keeps it live: changes
// to state it read schedule a re-render. The initial tree produces no
// patches; read it with HTML.
func (r *Renderer) Mount(component Component, sink Sink) *Mount {
	m := &Mount{renderer: r, sink: sink}
	m.dispose = r.rt.CreateRoot(func() {
		r.rt.CreateEffect(func() reactive.Cleanup {
			m.render(component)
			return nil
		}, reactive.WithLabel("render"))
	})
	r.mu.Lock()
	r.mounts = append(r.mounts, m)
	r.mu.Unlock()
	return m
}

// commit flushes every mount's buffered patches to its sink.
func (r *Renderer) commit() {
	r.mu.Lock()
	mounts := append([]*Mount(nil), r.mounts...)
	r.mu.Unlock()
	for _, m := range mounts {
		patches := m.takePending()
		if len(patches) == 0 {
			continue
		}
		if err := m.sink.ApplyPatches(patches); err != nil {
			r.log.Error("patch commit failed", "patches", len(patches), "err", err)
		}
	}
}

func (r *Renderer) unmount(m *Mount) {
	r.mu.Lock()
	for i, x := range r.mounts {
		if x == m {
			r.mounts = append(r.mounts[:i], r.mounts[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// Mount is one live component instance: its current tree, its buffered
// patches, and the event handlers reachable from the tree.
type Mount struct {
	renderer *Renderer
	sink     Sink
	dispose  func()
	rootRef  string

	mu       sync.Mutex
	tree     *vdom.Node
	pending  []vdom.Patch
	handlers map[string]map[string]func() // ref -> event -> handler
}

// render produces the next tree and buffers the diff against the previous
// one. The first render establishes the tree without patches.
func (m *Mount) render(component Component) {
	next := component()
	vdom.AssignRefs(next, &m.renderer.refs)
	// The root is always addressable, so patches inside ref-less subtrees
	// can fall back to an ancestor.
	if next.Kind == vdom.ElementNode && next.Ref == "" {
		if m.rootRef == "" {
			m.rootRef = m.renderer.refs.Next()
		}
		next.Ref = m.rootRef
	}

	m.mu.Lock()
	prev := m.tree
	m.mu.Unlock()

	var patches []vdom.Patch
	if prev != nil {
		patches = vdom.Diff(prev, next)
	}

	handlers := make(map[string]map[string]func())
	next.Walk(func(n *vdom.Node) {
		if n.Ref == "" || len(n.Handlers) == 0 {
			return
		}
		hs := make(map[string]func(), len(n.Handlers))
		for ev, fn := range n.Handlers {
			hs[ev] = fn
		}
		handlers[n.Ref] = hs
	})

	m.mu.Lock()
	m.tree = next
	m.pending = append(m.pending, patches...)
	m.handlers = handlers
	m.mu.Unlock()
}

func (m *Mount) takePending() []vdom.Patch {
	m.mu.Lock()
	patches := m.pending
	m.pending = nil
	m.mu.Unlock()
	return patches
}

// HTML renders the current tree.
func (m *Mount) HTML() string {
	m.mu.Lock()
	tree := m.tree
	m.mu.Unlock()
	return vdom.RenderHTML(tree)
}

// Dispatch invokes the handler registered for (ref, event). Handler writes
// to reactive state schedule re-renders in the usual way.
func (m *Mount) Dispatch(ref, event string) error {
	m.mu.Lock()
	fn := m.handlers[ref][event]
	m.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("view: no handler for %s on %s", event, ref)
	}
	fn()
	return nil
}

// Dispose tears down the mount's root scope and detaches it from the
// renderer. Buffered patches are discarded.
func (m *Mount) Dispose() {
	m.renderer.unmount(m)
	m.dispose()
	m.mu.Lock()
	m.pending = nil
	m.handlers = nil
	m.mu.Unlock()
}
