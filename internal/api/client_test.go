package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"todo-cli/internal/model"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

func newTestServer(t *testing.T, status int, body string) (*Client, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(b),
			Header: r.Header.Clone(),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &reqs
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "ftp://example.com", "::nope"} {
		if _, err := New(in); err == nil {
			t.Fatalf("New(%q): expected error", in)
		}
	}
}

func TestList_SendsOwnerQueryAndDecodes(t *testing.T) {
	t.Parallel()

	c, reqs := newTestServer(t, http.StatusOK, `[{"id":1,"ownerId":42,"title":"a","completed":false},{"id":2,"ownerId":42,"title":"b","completed":true}]`)

	got, err := c.List(context.Background(), 42)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []model.Todo{
		{ID: 1, OwnerID: 42, Title: "a"},
		{ID: 2, OwnerID: 42, Title: "b", Completed: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List:\n got: %#v\nwant: %#v", got, want)
	}

	r := (*reqs)[0]
	if r.Method != http.MethodGet || r.Path != "/api/tasks" || r.Query != "ownerId=42" {
		t.Fatalf("unexpected request: %s %s?%s", r.Method, r.Path, r.Query)
	}
	if r.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
	if got := r.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("Accept: got %q", got)
	}
}

func TestList_EmptyArrayIsNonNil(t *testing.T) {
	t.Parallel()

	c, _ := newTestServer(t, http.StatusOK, `[]`)
	got, err := c.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestList_InvalidBodyIsFetchError(t *testing.T) {
	t.Parallel()

	c, _ := newTestServer(t, http.StatusOK, `[{"id":1,"title":"a"}]`)
	got, err := c.List(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected schema error, got %#v", got)
	}
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError in chain, got %T: %v", err, err)
	}
	if got != nil {
		t.Fatalf("List must not return partial data on error: %#v", got)
	}
}

func TestCreate_PostsPayloadWithoutID(t *testing.T) {
	t.Parallel()

	c, reqs := newTestServer(t, http.StatusCreated, `{"id":9,"ownerId":42,"title":"Buy milk","completed":false}`)

	got, err := c.Create(context.Background(), model.Todo{ID: 0, OwnerID: 42, Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != 9 || got.Title != "Buy milk" {
		t.Fatalf("Create: got %#v", got)
	}

	r := (*reqs)[0]
	if r.Method != http.MethodPost || r.Path != "/api/tasks" {
		t.Fatalf("unexpected request: %s %s", r.Method, r.Path)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["id"]; ok {
		t.Fatalf("create body must not carry id: %s", r.Body)
	}
	if body["title"] != "Buy milk" || body["completed"] != false || body["ownerId"] != float64(42) {
		t.Fatalf("unexpected create body: %s", r.Body)
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type: got %q", ct)
	}
}

func TestUpdate_PatchesByID(t *testing.T) {
	t.Parallel()

	c, reqs := newTestServer(t, http.StatusOK, `{"id":5,"ownerId":1,"title":"x","completed":true}`)

	got, err := c.Update(context.Background(), model.Todo{ID: 5, OwnerID: 1, Title: "x", Completed: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.Completed {
		t.Fatalf("Update: got %#v", got)
	}
	r := (*reqs)[0]
	if r.Method != http.MethodPatch || r.Path != "/api/tasks/5" {
		t.Fatalf("unexpected request: %s %s", r.Method, r.Path)
	}
	if !strings.Contains(r.Body, `"completed":true`) {
		t.Fatalf("expected full todo body, got %s", r.Body)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()

	c, _ := newTestServer(t, http.StatusNotFound, `{"error":"not found"}`)
	_, err := c.Update(context.Background(), model.Todo{ID: 5})
	if !errors.Is(err, ErrUpdate) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrUpdate+ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrDelete) {
		t.Fatalf("update error must not match ErrDelete")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected *Error with 404, got %#v", err)
	}
}

func TestDelete_EmptySuccessAndFailure(t *testing.T) {
	t.Parallel()

	c, reqs := newTestServer(t, http.StatusNoContent, ``)
	if err := c.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if r := (*reqs)[0]; r.Method != http.MethodDelete || r.Path != "/api/tasks/7" {
		t.Fatalf("unexpected request: %s %s", r.Method, r.Path)
	}

	c2, _ := newTestServer(t, http.StatusInternalServerError, `boom`)
	err := c2.Delete(context.Background(), 7)
	if !errors.Is(err, ErrDelete) {
		t.Fatalf("expected ErrDelete, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected body excerpt in error, got %q", err.Error())
	}
}

func TestTransportFailureHasZeroStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Create(context.Background(), model.Todo{Title: "x"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Status != 0 || apiErr.Kind != KindCreate {
		t.Fatalf("unexpected error: %#v", apiErr)
	}
}
