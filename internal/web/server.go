// Package web serves the todo list to a browser. Pages are rendered on the
// server; an open page keeps a Datastar SSE stream that re-renders #todo-main
// on every controller change, so pending rows and error banners show up
// without a reload.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"todo-cli/internal/logging"
	"todo-cli/internal/model"
	"todo-cli/internal/state"

	"github.com/charmbracelet/log"
	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const (
	defaultDatastarSrc = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
	keepAliveEvery     = 25 * time.Second
)

type ServerConfig struct {
	Addr       string
	Controller *state.Controller
	Logger     *log.Logger

	// DatastarSrc is the script URL of the Datastar client bundle.
	DatastarSrc string
}

type Server struct {
	cfg  ServerConfig
	ctl  *state.Controller
	log  *log.Logger
	tmpl *template.Template

	// ops tracks operations still running after their POST was answered.
	ops sync.WaitGroup
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("web: nil controller")
	}
	if strings.TrimSpace(cfg.DatastarSrc) == "" {
		cfg.DatastarSrc = defaultDatastarSrc
	}
	l := cfg.Logger
	if l == nil {
		l = logging.Discard()
	}
	tmpl, err := template.New("base").ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, ctl: cfg.Controller, log: l, tmpl: tmpl}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Wait blocks until every operation started by a POST has settled.
func (s *Server) Wait() { s.ops.Wait() }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /{$}", s.handlePage(model.FilterAll))
	mux.HandleFunc("GET /active", s.handlePage(model.FilterActive))
	mux.HandleFunc("GET /completed", s.handlePage(model.FilterCompleted))
	mux.HandleFunc("POST /todos", sameOriginOnly(s.handleCreate))
	mux.HandleFunc("POST /todos/toggle-all", sameOriginOnly(s.handleToggleAll))
	mux.HandleFunc("POST /todos/clear-completed", sameOriginOnly(s.handleClearCompleted))
	mux.HandleFunc("POST /todos/{id}/toggle", sameOriginOnly(s.handleToggle))
	mux.HandleFunc("POST /todos/{id}/rename", sameOriginOnly(s.handleRename))
	mux.HandleFunc("POST /todos/{id}/delete", sameOriginOnly(s.handleDelete))
	mux.HandleFunc("POST /error/dismiss", sameOriginOnly(s.handleDismiss))
	mux.HandleFunc("POST /reload", sameOriginOnly(s.handleReload))
	return mux
}

// redirectBack answers 303 to the referring page when it is one of ours.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	if u, err := url.Parse(strings.TrimSpace(r.Header.Get("Referer"))); err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
		http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func sameHost(raw, host string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, host)
}

// sameOrigin reports whether a form post came from a page on this server.
// Requests carrying neither Origin nor Referer (curl, scripts) pass.
func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "cross-site", "same-site":
		return false
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		return sameHost(origin, r.Host)
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		return sameHost(ref, r.Host)
	}
	return true
}

func sameOriginOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type rowVM struct {
	ID        int
	Title     string
	Completed bool
	Pending   bool
}

type filterLinkVM struct {
	Label  string
	Href   string
	Active bool
}

type pageVM struct {
	DatastarSrc string
	StreamURL   string

	Loading      bool
	HasTodos     bool
	AllCompleted bool
	HasCompleted bool
	ItemsLeft    string
	Placeholder  *model.Todo
	Rows         []rowVM
	Filters      []filterLinkVM
	Error        string
}

func filterHref(f model.Filter) string {
	if f == model.FilterAll {
		return "/"
	}
	return "/" + string(f)
}

func itemsLeft(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return strconv.Itoa(n) + " items left"
}

// pageFor builds the view of snap under filter f. The filter belongs to the
// page, not to the shared controller, so two tabs can show different lists.
func (s *Server) pageFor(snap state.Snapshot, f model.Filter) pageVM {
	visible := model.FilterTodos(snap.Todos, f)
	rows := make([]rowVM, 0, len(visible))
	for _, t := range visible {
		rows = append(rows, rowVM{ID: t.ID, Title: t.Title, Completed: t.Completed, Pending: snap.IsPending(t.ID)})
	}
	filters := make([]filterLinkVM, 0, len(model.Filters))
	for _, x := range model.Filters {
		filters = append(filters, filterLinkVM{Label: x.Label(), Href: filterHref(x), Active: x == f})
	}
	return pageVM{
		DatastarSrc:  s.cfg.DatastarSrc,
		StreamURL:    "/events?filter=" + string(f),
		Loading:      !snap.ShowMain(),
		HasTodos:     snap.ShowList(),
		AllCompleted: snap.AllCompleted(),
		HasCompleted: snap.HasCompleted(),
		ItemsLeft:    itemsLeft(snap.ActiveCount),
		Placeholder:  snap.Placeholder,
		Rows:         rows,
		Filters:      filters,
		Error:        string(snap.Error),
	}
}

func (s *Server) handlePage(f model.Filter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeHTMLTemplate(w, "page.html", s.pageFor(s.ctl.Snapshot(), f))
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// handleEvents streams #todo-main for the requested filter: once on connect
// and again after every controller change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	f, err := model.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ch, cancel := s.ctl.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	patch := func() {
		html, err := s.renderTemplate("main", s.pageFor(s.ctl.Snapshot(), f))
		if err != nil {
			s.log.Error("render main", "err", err)
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector("#todo-main"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
	patch()

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-ch:
			if !ok {
				return
			}
			patch()
		}
	}
}

// spawn runs op after the request has been answered. The browser sees the
// pending state on the redirected page and the outcome over the stream.
func (s *Server) spawn(r *http.Request, op string, fn func(ctx context.Context) error) {
	ctx := context.WithoutCancel(r.Context())
	s.ops.Add(1)
	go func() {
		defer s.ops.Done()
		if err := fn(ctx); err != nil {
			s.log.Debug("operation failed", "op", op, "err", err)
		}
	}()
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	s.spawn(r, "create", func(ctx context.Context) error {
		_, err := s.ctl.Create(ctx, title)
		return err
	})
	redirectBack(w, r, "/")
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.spawn(r, "toggle", func(ctx context.Context) error { return s.ctl.Toggle(ctx, id) })
	redirectBack(w, r, "/")
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	title := r.FormValue("title")
	s.spawn(r, "rename", func(ctx context.Context) error { return s.ctl.Rename(ctx, id, title) })
	redirectBack(w, r, "/")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.spawn(r, "delete", func(ctx context.Context) error { return s.ctl.Delete(ctx, id) })
	redirectBack(w, r, "/")
}

func (s *Server) handleToggleAll(w http.ResponseWriter, r *http.Request) {
	s.spawn(r, "toggle-all", s.ctl.ToggleAll)
	redirectBack(w, r, "/")
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	s.spawn(r, "clear-completed", s.ctl.ClearCompleted)
	redirectBack(w, r, "/")
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.spawn(r, "load", s.ctl.Load)
	redirectBack(w, r, "/")
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.ctl.ClearError()
	redirectBack(w, r, "/")
}
