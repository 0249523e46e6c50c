// Package api is the HTTP client for the remote todo collection.
//
// The server exposes four endpoints under a base URL:
//
//	GET    /tasks?ownerId={id}
//	POST   /tasks
//	PATCH  /tasks/{id}
//	DELETE /tasks/{id}
//
// The client never retries. Each failure is returned once as *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"todo-cli/internal/model"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	collectionPath   = "tasks"
	defaultUserAgent = "todo-cli"
	// maxBodyBytes caps how much of a response we read.
	maxBodyBytes = 4 << 20
)

type Client struct {
	base      *url.URL
	http      *http.Client
	log       *log.Logger
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// New returns a client for the collection rooted at baseURL
// (e.g. "http://127.0.0.1:3335" or "https://example.com/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api: missing base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url must be http(s): %q", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""

	c := &Client{
		base:      u,
		http:      &http.Client{},
		log:       log.NewWithOptions(io.Discard, log.Options{}),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// List returns every todo owned by ownerID, in server order.
func (c *Client) List(ctx context.Context, ownerID int) ([]model.Todo, error) {
	q := url.Values{}
	q.Set("ownerId", strconv.Itoa(ownerID))

	var out []model.Todo
	if err := c.do(ctx, KindFetch, http.MethodGet, collectionPath, q, nil, todoListSchema, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Todo{}
	}
	return out, nil
}

// Create posts {title, completed, ownerId} and returns the stored todo.
func (c *Client) Create(ctx context.Context, t model.Todo) (model.Todo, error) {
	in := model.NewTodo{Title: t.Title, Completed: t.Completed, OwnerID: t.OwnerID}
	var out model.Todo
	if err := c.do(ctx, KindCreate, http.MethodPost, collectionPath, nil, in, todoSchema, &out); err != nil {
		return model.Todo{}, err
	}
	return out, nil
}

// Update replaces the todo with t.ID and returns the server's copy.
func (c *Client) Update(ctx context.Context, t model.Todo) (model.Todo, error) {
	var out model.Todo
	if err := c.do(ctx, KindUpdate, http.MethodPatch, itemPath(t.ID), nil, t, todoSchema, &out); err != nil {
		return model.Todo{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, KindDelete, http.MethodDelete, itemPath(id), nil, nil, nil, nil)
}

func itemPath(id int) string {
	return collectionPath + "/" + strconv.Itoa(id)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do is the shared request/response envelope: JSON in, JSON out, every
// failure mapped to an *Error of the given kind.
func (c *Client) do(ctx context.Context, kind Kind, method, path string, q url.Values, in any, schema *jsonschema.Schema, out any) error {
	fail := func(status int, err error) error {
		return &Error{Kind: kind, Method: method, Path: "/" + path, Status: status, Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fail(0, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return fail(0, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", kind, "method", method, "path", path, "request_id", reqID, "err", err)
		return fail(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("request", "op", kind, "method", method, "path", path, "request_id", reqID,
		"status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, statusDetail(raw))
	}
	if err != nil {
		return fail(0, err)
	}
	if out == nil {
		return nil
	}
	if schema != nil {
		if err := validateBody(schema, raw); err != nil {
			return fail(0, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fail(0, err)
	}
	return nil
}

// statusDetail keeps a short, single-line excerpt of an error body.
func statusDetail(raw []byte) error {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return errors.New(s)
}
