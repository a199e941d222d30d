package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vdx-ui/vdx/pkg/reactive"
	"github.com/vdx-ui/vdx/pkg/vdom"
	"github.com/vdx-ui/vdx/pkg/view"
)

// frame is the websocket wire format, both directions.
type frame struct {
	Type    string       `json:"type"`
	Ref     string       `json:"ref,omitempty"`
	Event   string       `json:"event,omitempty"`
	HTML    string       `json:"html,omitempty"`
	Patches []vdom.Patch `json:"patches,omitempty"`
}

// Session is one mounted page: its own runtime, renderer, and component
// state. Sessions flush synchronously after each dispatched event, so every
// client event yields at most one patch frame.
type Session struct {
	cfg   Config
	log   *slog.Logger
	rt    *reactive.Runtime
	mount *view.Mount

	conn    *websocket.Conn // nil for plain page renders
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newSession(cfg Config, log *slog.Logger, page PageFunc) *Session {
	s := &Session{cfg: cfg, log: log}
	// Sessions flush manually after each event; writes never race a
	// deferred background flush.
	opts := []reactive.Option{
		reactive.WithScheduler(func(func()) {}),
		reactive.WithLogger(log),
	}
	opts = append(opts, cfg.RuntimeOptions...)
	s.rt = reactive.NewRuntime(opts...)
	if cfg.Instrument != nil {
		cfg.Instrument(s.rt)
	}
	renderer := view.NewRenderer(s.rt, view.WithLogger(log))
	s.mount = renderer.Mount(page(s.rt), view.SinkFunc(s.sendPatches))
	return s
}

// HTML renders the session's current tree.
func (s *Session) HTML() string {
	return s.mount.HTML()
}

// Close disposes the session's component tree and drops the connection.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.mount.Dispose()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// sendPatches is the mount's sink: one frame per committed batch.
func (s *Session) sendPatches(patches []vdom.Patch) error {
	if s.conn == nil || s.closed.Load() {
		return nil
	}
	return s.writeFrame(frame{Type: "patches", Patches: patches})
}

func (s *Session) writeFrame(f frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Pages and their sockets are same-origin by construction.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// handleSocket upgrades the connection and runs the session's event loop.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	page, ok := s.page(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "page", name, "err", err)
		return
	}

	sess := newSession(s.cfg, s.log, page)
	sess.conn = conn
	defer sess.Close()

	if err := sess.writeFrame(frame{Type: "mount", HTML: sess.HTML()}); err != nil {
		s.log.Error("mount frame failed", "page", name, "err", err)
		return
	}

	s.log.Info("session connected", "page", name, "remote", r.RemoteAddr)
	sess.readLoop()
	s.log.Info("session closed", "page", name, "remote", r.RemoteAddr)
}

// readLoop processes client frames until the connection drops. Each event
// dispatches to the tree's handler and flushes, so the write triggered by a
// click is already on the wire when the next frame is read.
func (s *Session) readLoop() {
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Error("read error", "err", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.log.Error("frame decode error", "err", err)
			continue
		}

		switch f.Type {
		case "event":
			if err := s.mount.Dispatch(f.Ref, f.Event); err != nil {
				s.log.Warn("event dispatch failed", "ref", f.Ref, "event", f.Event, "err", err)
				continue
			}
			s.rt.FlushEffects()
		default:
			s.log.Warn("unknown frame type", "type", f.Type)
		}
	}
}
