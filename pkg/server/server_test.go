package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vdx-ui/vdx/pkg/reactive"
	"github.com/vdx-ui/vdx/pkg/vdom"
	"github.com/vdx-ui/vdx/pkg/view"
)

func counterPage(rt *reactive.Runtime) view.Component {
	st := rt.Reactive(map[string]any{"count": 0}).(*reactive.Object)
	return func() *vdom.Node {
		return vdom.El("div",
			vdom.El("span", vdom.Textf("count: %v", st.Get("count"))),
			vdom.El("button", "+").On("click", func() {
				st.Set("count", st.Get("count").(int)+1)
			}),
		)
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New()
	s.RegisterPage("counter", counterPage)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestPageRender(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/counter")
	if err != nil {
		t.Fatalf("GET /counter: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "count: 0") {
		t.Errorf("page missing rendered component: %s", body)
	}
	if !strings.Contains(string(body), "data-ref") {
		t.Errorf("page missing addressable refs: %s", body)
	}
}

func TestUnknownPageIs404(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}

func TestWebsocketSessionRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/counter"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var mounted frame
	if err := conn.ReadJSON(&mounted); err != nil {
		t.Fatalf("read mount frame: %v", err)
	}
	if mounted.Type != "mount" || !strings.Contains(mounted.HTML, "count: 0") {
		t.Fatalf("mount frame = %+v", mounted)
	}

	// Find the button's ref in the mounted markup and click it.
	ref := extractRef(t, mounted.HTML, "<button")
	if err := conn.WriteJSON(frame{Type: "event", Ref: ref, Event: "click"}); err != nil {
		t.Fatalf("send event: %v", err)
	}

	var patches frame
	if err := conn.ReadJSON(&patches); err != nil {
		t.Fatalf("read patch frame: %v", err)
	}
	if patches.Type != "patches" || len(patches.Patches) == 0 {
		t.Fatalf("patch frame = %+v", patches)
	}
	found := false
	for _, p := range patches.Patches {
		if p.Op == vdom.PatchSetText && p.Value == "count: 1" {
			found = true
		}
	}
	if !found {
		t.Errorf("patch frame missing updated text: %+v", patches.Patches)
	}
}

func TestWebsocketUnknownHandlerKeepsSessionAlive(t *testing.T) {
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/counter"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var mounted frame
	if err := conn.ReadJSON(&mounted); err != nil {
		t.Fatalf("read mount frame: %v", err)
	}

	// A bogus event is logged and dropped; a real one still works after.
	if err := conn.WriteJSON(frame{Type: "event", Ref: "nope", Event: "click"}); err != nil {
		t.Fatalf("send bogus event: %v", err)
	}
	ref := extractRef(t, mounted.HTML, "<button")
	if err := conn.WriteJSON(frame{Type: "event", Ref: ref, Event: "click"}); err != nil {
		t.Fatalf("send event: %v", err)
	}

	var patches frame
	if err := conn.ReadJSON(&patches); err != nil {
		t.Fatalf("session died after bogus event: %v", err)
	}
	if patches.Type != "patches" {
		t.Errorf("frame type = %q, want patches", patches.Type)
	}
}

// extractRef pulls the data-ref value from the first occurrence of tag.
func extractRef(t *testing.T, html, tag string) string {
	t.Helper()
	i := strings.Index(html, tag)
	if i < 0 {
		t.Fatalf("markup has no %s: %s", tag, html)
	}
	rest := html[i:]
	const marker = `data-ref="`
	j := strings.Index(rest, marker)
	if j < 0 {
		t.Fatalf("%s has no data-ref: %s", tag, rest)
	}
	rest = rest[j+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}
