// Package mockapi is a small local stand-in for the remote task API, backed
// by SQLite. It serves:
//
//	GET    /tasks?ownerId={id}
//	POST   /tasks
//	PATCH  /tasks/{id}
//	DELETE /tasks/{id}
//	GET    /healthz
package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-cli/internal/model"
	"todo-cli/internal/store"

	"github.com/charmbracelet/log"
)

const maxBodyBytes = 1 << 20

type ServerConfig struct {
	DB *store.TaskDB

	// Latency delays every task request, to make in-flight states visible.
	Latency time.Duration
	// FailRate is the probability (0..1) that a task request answers 503.
	FailRate float64

	Logger *log.Logger
	// Rand returns a float in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

type Server struct {
	cfg ServerConfig
	log *log.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.DB == nil {
		return nil, errors.New("mockapi: nil task db")
	}
	if cfg.FailRate < 0 || cfg.FailRate > 1 {
		return nil, errors.New("mockapi: fail rate must be within [0,1]")
	}
	if cfg.Latency < 0 {
		return nil, errors.New("mockapi: negative latency")
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	l := cfg.Logger
	if l == nil {
		l = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{cfg: cfg, log: l}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /tasks", s.chaos(s.handleList))
	mux.HandleFunc("POST /tasks", s.chaos(s.handleCreate))
	mux.HandleFunc("PATCH /tasks/{id}", s.chaos(s.handleUpdate))
	mux.HandleFunc("DELETE /tasks/{id}", s.chaos(s.handleDelete))
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"requestId", r.Header.Get("X-Request-Id"),
			"dur", time.Since(start).Round(time.Microsecond),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// chaos applies the configured latency and failure injection.
func (s *Server) chaos(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d := s.cfg.Latency; d > 0 {
			t := time.NewTimer(d)
			select {
			case <-r.Context().Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		if s.cfg.FailRate > 0 && s.cfg.Rand() < s.cfg.FailRate {
			writeError(w, http.StatusServiceUnavailable, "injected failure")
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

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ownerId"))
	owner, err := strconv.Atoi(raw)
	if err != nil || owner <= 0 {
		writeError(w, http.StatusBadRequest, "ownerId query parameter must be a positive integer")
		return
	}
	todos, err := s.cfg.DB.List(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.NewTodo
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if in.OwnerID <= 0 {
		writeError(w, http.StatusBadRequest, "ownerId must be a positive integer")
		return
	}
	created, err := s.cfg.DB.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// todoPatch is a PATCH body. Absent fields keep their stored values.
type todoPatch struct {
	ID        *int    `json:"id"`
	OwnerID   *int    `json:"ownerId"`
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in todoPatch
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.ID != nil && *in.ID != id {
		writeError(w, http.StatusBadRequest, "body id does not match path")
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title must not be blank")
		return
	}
	if in.OwnerID != nil && *in.OwnerID <= 0 {
		writeError(w, http.StatusBadRequest, "ownerId must be a positive integer")
		return
	}

	cur, err := s.cfg.DB.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if in.Title != nil {
		cur.Title = strings.TrimSpace(*in.Title)
	}
	if in.OwnerID != nil {
		cur.OwnerID = *in.OwnerID
	}
	if in.Completed != nil {
		cur.Completed = *in.Completed
	}
	updated, err := s.cfg.DB.Update(r.Context(), cur)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.cfg.DB.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("task db", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
