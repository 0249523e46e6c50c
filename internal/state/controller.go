// Package state owns the in-memory todo list and mediates every change
// through the remote API.
//
// Each mutation is a small state machine (idle -> pending -> committed|failed).
// The network call runs without holding the lock; the local transitions on
// either side of it are applied under the lock and keyed by todo id, so
// operations on different ids may settle in any order.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"todo-cli/internal/model"

	"github.com/charmbracelet/log"
)

// DefaultErrorTTL is how long an error banner stays up.
const DefaultErrorTTL = 3 * time.Second

var (
	ErrEmptyTitle  = errors.New("title should not be empty")
	ErrUnknownTodo = errors.New("no such todo")
	// ErrNotLoaded is returned by mutations issued before the first load
	// has settled.
	ErrNotLoaded = errors.New("todos are still loading")
)

// TaskClient is the remote collection. *api.Client satisfies it.
type TaskClient interface {
	List(ctx context.Context, ownerID int) ([]model.Todo, error)
	Create(ctx context.Context, t model.Todo) (model.Todo, error)
	Update(ctx context.Context, t model.Todo) (model.Todo, error)
	Delete(ctx context.Context, id int) error
}

type Options struct {
	OwnerID  int
	ErrorTTL time.Duration
	Filter   model.Filter
	Logger   *log.Logger

	// AfterFunc schedules the banner auto-dismiss. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
}

type Controller struct {
	client    TaskClient
	ownerID   int
	errTTL    time.Duration
	afterFunc func(time.Duration, func()) func() bool
	log       *log.Logger

	mu          sync.Mutex
	todos       []model.Todo
	filter      model.Filter
	loading     bool
	loaded      bool
	placeholder *model.Todo
	createSeq   uint64
	pending     map[int]int
	errMsg      model.ErrorMessage
	errGen      uint64
	errStop     func() bool
	subs        map[chan struct{}]struct{}
	closed      bool
}

func New(client TaskClient, opts Options) *Controller {
	c := &Controller{
		client:    client,
		ownerID:   opts.OwnerID,
		errTTL:    opts.ErrorTTL,
		afterFunc: opts.AfterFunc,
		log:       opts.Logger,
		filter:    opts.Filter,
		loading:   true,
		pending:   map[int]int{},
		subs:      map[chan struct{}]struct{}{},
	}
	if c.errTTL <= 0 {
		c.errTTL = DefaultErrorTTL
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	if c.log == nil {
		c.log = log.NewWithOptions(io.Discard, log.Options{})
	}
	if c.filter == "" {
		c.filter = model.FilterAll
	}
	return c
}

func (c *Controller) OwnerID() int { return c.ownerID }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce: a slow reader sees one signal for many changes
// and should re-read Snapshot. cancel is idempotent.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
}

// Close stops the banner timer and closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.errStop != nil {
		c.errStop()
		c.errStop = nil
	}
	for ch := range c.subs {
		close(ch)
	}
	c.subs = map[chan struct{}]struct{}{}
}

func (c *Controller) notifyLocked() {
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// setErrorLocked shows msg and arms the auto-dismiss timer. Each timer only
// clears the message that armed it.
func (c *Controller) setErrorLocked(msg model.ErrorMessage) {
	if c.errStop != nil {
		c.errStop()
		c.errStop = nil
	}
	c.errGen++
	c.errMsg = msg
	if msg.IsEmpty() || c.closed {
		return
	}
	gen := c.errGen
	c.errStop = c.afterFunc(c.errTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.errGen != gen || c.errMsg.IsEmpty() {
			return
		}
		c.errMsg = model.ErrorNone
		c.errStop = nil
		c.notifyLocked()
	})
}

func (c *Controller) SetFilter(f model.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == "" {
		f = model.FilterAll
	}
	if c.filter == f {
		return
	}
	c.filter = f
	c.notifyLocked()
}

// ClearError dismisses the banner (the close button).
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errMsg.IsEmpty() {
		return
	}
	c.setErrorLocked(model.ErrorNone)
	c.notifyLocked()
}

// ShowError raises a banner that did not come from a remote call.
func (c *Controller) ShowError(msg model.ErrorMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setErrorLocked(msg)
	c.notifyLocked()
}

// Load fetches the owner's todos, replacing the local list on success. On
// failure the list is left as it was and the GET banner is shown.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.notifyLocked()
	c.mu.Unlock()

	todos, err := c.client.List(ctx, c.ownerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.notifyLocked()
	c.loading = false
	c.loaded = true
	if err != nil {
		c.log.Warn("load todos", "owner", c.ownerID, "err", err)
		c.setErrorLocked(model.ErrorGet)
		return err
	}
	c.todos = append([]model.Todo(nil), todos...)
	return nil
}

// Create shows a placeholder, posts the todo, and appends the server's copy
// on success. The canonical list is untouched on failure.
func (c *Controller) Create(ctx context.Context, title string) (model.Todo, error) {
	title = strings.TrimSpace(title)

	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return model.Todo{}, ErrNotLoaded
	}
	if title == "" {
		c.setErrorLocked(model.ErrorTitle)
		c.notifyLocked()
		c.mu.Unlock()
		return model.Todo{}, ErrEmptyTitle
	}
	draft := model.Todo{ID: 0, OwnerID: c.ownerID, Title: title, Completed: false}
	c.createSeq++
	seq := c.createSeq
	ph := draft
	c.placeholder = &ph
	c.setErrorLocked(model.ErrorNone)
	c.notifyLocked()
	c.mu.Unlock()

	created, err := c.client.Create(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.notifyLocked()
	if c.createSeq == seq {
		c.placeholder = nil
	}
	if err != nil {
		c.log.Warn("create todo", "title", title, "err", err)
		c.setErrorLocked(model.ErrorAdd)
		return model.Todo{}, err
	}
	c.todos = append(c.todos, created)
	return created, nil
}

// Update sends t as a full replacement. On success the todo with t.ID is
// replaced in place by the server's copy.
func (c *Controller) Update(ctx context.Context, t model.Todo) (model.Todo, error) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return model.Todo{}, ErrNotLoaded
	}
	c.pending[t.ID]++
	c.setErrorLocked(model.ErrorNone)
	c.notifyLocked()
	c.mu.Unlock()

	var (
		updated model.Todo
		err     error
	)
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.releaseLocked(t.ID)
		if err != nil {
			c.log.Warn("update todo", "id", t.ID, "err", err)
			c.setErrorLocked(model.ErrorUpdate)
		} else if i := model.IndexOf(c.todos, t.ID); i >= 0 {
			c.todos[i] = updated
		}
		c.notifyLocked()
	}()

	updated, err = c.client.Update(ctx, t)
	if err != nil {
		return model.Todo{}, err
	}
	return updated, nil
}

// Delete removes the todo once the server confirms. On failure the todo is
// restored from the snapshot taken when the delete started.
func (c *Controller) Delete(ctx context.Context, id int) error {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	idx := model.IndexOf(c.todos, id)
	var before *model.Todo
	if idx >= 0 {
		t := c.todos[idx]
		before = &t
	}
	c.pending[id]++
	c.notifyLocked()
	c.mu.Unlock()

	var err error
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.releaseLocked(id)
		if err != nil {
			c.log.Warn("delete todo", "id", id, "err", err)
			c.restoreLocked(before, idx)
			c.setErrorLocked(model.ErrorDelete)
		} else if i := model.IndexOf(c.todos, id); i >= 0 {
			c.todos = append(c.todos[:i:i], c.todos[i+1:]...)
		}
		c.notifyLocked()
	}()

	err = c.client.Delete(ctx, id)
	return err
}

// restoreLocked puts a deleted todo back at its old position if it is gone.
// Todos removed by other operations in the meantime stay removed.
func (c *Controller) restoreLocked(t *model.Todo, idx int) {
	if t == nil || model.IndexOf(c.todos, t.ID) >= 0 {
		return
	}
	if idx > len(c.todos) {
		idx = len(c.todos)
	}
	out := make([]model.Todo, 0, len(c.todos)+1)
	out = append(out, c.todos[:idx]...)
	out = append(out, *t)
	out = append(out, c.todos[idx:]...)
	c.todos = out
}

func (c *Controller) releaseLocked(id int) {
	if c.pending[id] <= 1 {
		delete(c.pending, id)
		return
	}
	c.pending[id]--
}

func (c *Controller) find(id int) (model.Todo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return model.Todo{}, ErrNotLoaded
	}
	if i := model.IndexOf(c.todos, id); i >= 0 {
		return c.todos[i], nil
	}
	return model.Todo{}, fmt.Errorf("%w: %d", ErrUnknownTodo, id)
}

// Toggle flips the completion flag of one todo.
func (c *Controller) Toggle(ctx context.Context, id int) error {
	t, err := c.find(id)
	if err != nil {
		return err
	}
	t.Completed = !t.Completed
	_, err = c.Update(ctx, t)
	return err
}

// Rename edits a title. An unchanged title is a no-op and a blank title
// deletes the todo.
func (c *Controller) Rename(ctx context.Context, id int, title string) error {
	t, err := c.find(id)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	switch {
	case title == t.Title:
		return nil
	case title == "":
		return c.Delete(ctx, id)
	}
	t.Title = title
	_, err = c.Update(ctx, t)
	return err
}

// ToggleAll marks every active todo completed when at least one is active.
// Otherwise it flips every todo, which sends an update for each of them.
// Each update runs on its own; one failure does not affect the others.
func (c *Controller) ToggleAll(ctx context.Context) error {
	c.mu.Lock()
	todos := append([]model.Todo(nil), c.todos...)
	c.mu.Unlock()

	anyActive := model.CountActive(todos) > 0
	var targets []model.Todo
	for _, t := range todos {
		if anyActive && t.Completed {
			continue
		}
		t.Completed = !t.Completed
		targets = append(targets, t)
	}

	return runEach(targets, func(t model.Todo) error {
		_, err := c.Update(ctx, t)
		return err
	})
}

// ClearCompleted deletes every todo that is completed right now. The set is
// fixed when the call starts.
func (c *Controller) ClearCompleted(ctx context.Context) error {
	c.mu.Lock()
	var ids []int
	for _, t := range c.todos {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	c.mu.Unlock()

	return runEach(ids, func(id int) error { return c.Delete(ctx, id) })
}

func runEach[T any](xs []T, fn func(T) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, x := range xs {
		wg.Add(1)
		go func(x T) {
			defer wg.Done()
			if err := fn(x); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(x)
	}
	wg.Wait()
	return errors.Join(errs...)
}
