package tui

import (
	"context"
	"errors"
	"sync"

	"todo-cli/internal/model"
)

var errOffline = errors.New("offline")

// memClient is a synchronous in-memory task collection.
type memClient struct {
	mu     sync.Mutex
	todos  []model.Todo
	nextID int
	fail   bool
}

func newMemClient(todos ...model.Todo) *memClient {
	next := 1
	for _, t := range todos {
		next = max(next, t.ID+1)
	}
	return &memClient{todos: append([]model.Todo(nil), todos...), nextID: next}
}

func (c *memClient) List(_ context.Context, ownerID int) ([]model.Todo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errOffline
	}
	out := []model.Todo{}
	for _, t := range c.todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *memClient) Create(_ context.Context, t model.Todo) (model.Todo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return model.Todo{}, errOffline
	}
	t.ID = c.nextID
	c.nextID++
	c.todos = append(c.todos, t)
	return t, nil
}

func (c *memClient) Update(_ context.Context, t model.Todo) (model.Todo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return model.Todo{}, errOffline
	}
	i := model.IndexOf(c.todos, t.ID)
	if i < 0 {
		return model.Todo{}, errors.New("not found")
	}
	c.todos[i] = t
	return t, nil
}

func (c *memClient) Delete(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errOffline
	}
	i := model.IndexOf(c.todos, id)
	if i < 0 {
		return errors.New("not found")
	}
	c.todos = append(c.todos[:i], c.todos[i+1:]...)
	return nil
}
