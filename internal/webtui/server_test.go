package webtui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestParseResize(t *testing.T) {
	cases := []struct {
		name string
		mt   int
		data string
		ok   bool
	}{
		{name: "resize", mt: websocket.TextMessage, data: `{"type":"resize","cols":80,"rows":24}`, ok: true},
		{name: "keystroke", mt: websocket.TextMessage, data: "x"},
		{name: "binary json", mt: websocket.BinaryMessage, data: `{"type":"resize","cols":80,"rows":24}`},
		{name: "other type", mt: websocket.TextMessage, data: `{"type":"ping"}`},
		{name: "zero size", mt: websocket.TextMessage, data: `{"type":"resize","cols":0,"rows":24}`},
		{name: "bad json", mt: websocket.TextMessage, data: `{"type":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := parseResize(tc.mt, []byte(tc.data))
			if ok != tc.ok {
				t.Fatalf("got %v want %v", ok, tc.ok)
			}
		})
	}
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3337/ws", nil)
	if !sameOrigin(r) {
		t.Fatalf("missing origin should pass")
	}
	r.Header.Set("Origin", "http://127.0.0.1:3337")
	if !sameOrigin(r) {
		t.Fatalf("same origin should pass")
	}
	r.Header.Set("Origin", "http://evil.example")
	if sameOrigin(r) {
		t.Fatalf("foreign origin should fail")
	}
}

func TestTerminalPage(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", XtermBase: "/vendor"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(body), `id="terminal"`) || !strings.Contains(string(body), "/vendor/@xterm/xterm@5.5.0/lib/xterm.js") {
		t.Fatalf("terminal page:\n%s", body)
	}
}

func TestWS_StreamsChildOutput(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Exe: "/bin/sh", Args: []string{"-c", "echo hello-from-pty; sleep 5"}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","cols":100,"rows":30}`)); err != nil {
		t.Fatalf("resize: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got strings.Builder
	for !strings.Contains(got.String(), "hello-from-pty") {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (so far %q)", err, got.String())
		}
		got.Write(data)
	}
}

func TestNewServer_RequiresAddr(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
