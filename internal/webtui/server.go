// Package webtui serves the terminal UI to a browser: each websocket gets its
// own `todo tui` child on a pty, rendered client-side by xterm.js.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"todo-cli/internal/logging"

	"github.com/charmbracelet/log"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const defaultXtermBase = "https://cdn.jsdelivr.net/npm"

type ServerConfig struct {
	Addr string
	// Exe is the program started per session. Defaults to the running binary.
	Exe string
	// Args are passed to Exe, e.g. ["--api", base, "tui"].
	Args   []string
	Logger *log.Logger

	// XtermBase is where the xterm.js packages are loaded from.
	XtermBase string
}

type Server struct {
	cfg  ServerConfig
	log  *log.Logger
	tmpl *template.Template
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.XtermBase) == "" {
		cfg.XtermBase = defaultXtermBase
	}
	l := cfg.Logger
	if l == nil {
		l = logging.Discard()
	}
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, log: l, tmpl: tmpl}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "text/javascript; charset=utf-8"))

	return mux
}

func (s *Server) handleStatic(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(b)
	}
}

type terminalVM struct {
	XtermBase string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, "terminal.html", terminalVM{XtermBase: s.cfg.XtermBase}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
