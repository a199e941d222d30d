// Package server serves VDX components over HTTP: the initial page render,
// a websocket session per connected client streaming patch frames, and the
// metrics endpoint.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vdx-ui/vdx/pkg/reactive"
	"github.com/vdx-ui/vdx/pkg/view"
)

// Config holds server settings.
type Config struct {
	// Addr is the listen address (default ":8420").
	Addr string

	// ReadTimeout bounds websocket reads; a client silent for longer is
	// disconnected (default 60s).
	ReadTimeout time.Duration

	// WriteTimeout bounds individual websocket writes (default 10s).
	WriteTimeout time.Duration

	// Logger receives server logs (default slog.Default()).
	Logger *slog.Logger

	// Registry is the Prometheus registry served at /metrics; when nil the
	// default gatherer is served.
	Registry *prometheus.Registry

	// Instrument, when set, is called with every session's runtime before
	// the page mounts. Used to attach observability.
	Instrument func(rt *reactive.Runtime)

	// RuntimeOptions are applied to every session runtime, e.g. guard
	// ceilings.
	RuntimeOptions []reactive.Option
}

// Option configures the server.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithReadTimeout sets the websocket read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithWriteTimeout sets the websocket write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		if log != nil {
			c.Logger = log
		}
	}
}

// WithRegistry sets the Prometheus registry served at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = reg
	}
}

// WithInstrument sets the per-session runtime instrumentation hook.
func WithInstrument(fn func(rt *reactive.Runtime)) Option {
	return func(c *Config) {
		c.Instrument = fn
	}
}

// WithRuntimeOptions sets options applied to every session runtime.
func WithRuntimeOptions(opts ...reactive.Option) Option {
	return func(c *Config) {
		c.RuntimeOptions = opts
	}
}

func defaultConfig() Config {
	return Config{
		Addr:         ":8420",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
}

// PageFunc builds the component for one session against that session's
// runtime. It is called per page render and per websocket connection, so
// each session gets its own component state.
type PageFunc func(rt *reactive.Runtime) view.Component

// Server hosts registered pages.
type Server struct {
	cfg Config
	log *slog.Logger

	mu    sync.RWMutex
	pages map[string]PageFunc
}

// New creates a server.
func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{cfg: cfg, log: cfg.Logger, pages: make(map[string]PageFunc)}
}

// RegisterPage mounts a page at name: GET /{name} serves the initial HTML,
// /ws/{name} carries its live session.
func (s *Server) RegisterPage(name string, page PageFunc) {
	s.mu.Lock()
	s.pages[name] = page
	s.mu.Unlock()
}

func (s *Server) page(name string) (PageFunc, bool) {
	s.mu.RLock()
	p, ok := s.pages[name]
	s.mu.RUnlock()
	return p, ok
}

// Handler returns the HTTP handler: pages, websocket sessions, metrics,
// health.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	if s.cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws/{page}", s.handleSocket)
	r.Get("/{page}", s.handlePage)
	return r
}

// ListenAndServe starts the server on the configured address.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.cfg.Addr)
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// handlePage renders the initial HTML for a page. The throwaway session is
// disposed once the markup is written; live updates arrive over the
// websocket.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	page, ok := s.page(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess := newSession(s.cfg, s.log, page)
	defer sess.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageShell, name, sess.HTML(), name)
}

// pageShell wraps a rendered page. The inline client opens the session
// socket, applies patch frames, and forwards clicks on addressed elements.
const pageShell = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<div id="vdx-root">%s</div>
<script>
(() => {
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws/" + %q);
  const byRef = (ref) => document.querySelector('[data-ref="' + ref + '"]');
  const target = (p) => {
    if (p.ref) return byRef(p.ref);
    const parent = byRef(p.parent);
    return parent ? parent.childNodes[p.index || 0] : null;
  };
  const hook = () => {
    for (const el of document.querySelectorAll("[data-ref]")) {
      if (el.dataset.vdxHooked) continue;
      el.dataset.vdxHooked = "1";
      el.addEventListener("click", () =>
        ws.send(JSON.stringify({type: "event", ref: el.dataset.ref, event: "click"})));
    }
  };
  ws.onmessage = (msg) => {
    const frame = JSON.parse(msg.data);
    if (frame.type === "mount") {
      document.getElementById("vdx-root").innerHTML = frame.html;
      hook();
      return;
    }
    for (const p of frame.patches || []) {
      const el = byRef(p.ref);
      switch (p.op) {
        case "set-text": if (el) el.textContent = p.value; break;
        case "set-attr": {
          const t = target(p);
          if (t && t.setAttribute) t.setAttribute(p.name, p.value);
          break;
        }
        case "remove-attr": if (el) el.removeAttribute(p.name); break;
        case "remove": if (el) el.remove(); break;
        case "replace": if (el) el.outerHTML = p.html; break;
        case "insert": {
          const parent = byRef(p.parent);
          if (parent) parent.insertAdjacentHTML("beforeend", p.html);
          break;
        }
      }
    }
    hook();
  };
  ws.onopen = hook;
})();
</script>
</body>
</html>
`
