package state

import "todo-cli/internal/model"

// Snapshot is an immutable copy of the controller state. Presentation code
// renders from it and never touches the controller's own slices.
type Snapshot struct {
	Todos   []model.Todo
	Visible []model.Todo
	Filter  model.Filter

	// Loading is true from construction until the first load settles, and
	// again during a manual reload. The main content (form, list, footer) is
	// hidden while it is set.
	Loading bool
	// Loaded is true once a load has settled, successfully or not.
	Loaded bool

	// Placeholder is the unsaved todo shown while a create is in flight.
	Placeholder *model.Todo
	Pending     map[int]bool

	Error model.ErrorMessage

	ActiveCount    int
	CompletedCount int
}

func (s Snapshot) IsPending(id int) bool { return s.Pending[id] }

func (s Snapshot) HasCompleted() bool { return s.CompletedCount > 0 }

// AllCompleted reports whether the toggle-all control should render as on.
func (s Snapshot) AllCompleted() bool {
	return len(s.Todos) > 0 && s.ActiveCount == 0
}

// ShowMain is false until a load has settled and while one is in flight.
func (s Snapshot) ShowMain() bool { return s.Loaded && !s.Loading }

// ShowList reports whether the list and footer are drawn: only once
// there is at least one todo.
func (s Snapshot) ShowList() bool { return len(s.Todos) > 0 }

func (s Snapshot) Find(id int) (model.Todo, bool) {
	if i := model.IndexOf(s.Todos, id); i >= 0 {
		return s.Todos[i], true
	}
	return model.Todo{}, false
}

func (c *Controller) snapshotLocked() Snapshot {
	todos := append([]model.Todo(nil), c.todos...)
	if todos == nil {
		todos = []model.Todo{}
	}
	pending := make(map[int]bool, len(c.pending))
	for id, n := range c.pending {
		if n > 0 {
			pending[id] = true
		}
	}
	var ph *model.Todo
	if c.placeholder != nil {
		p := *c.placeholder
		ph = &p
	}
	active := model.CountActive(todos)
	return Snapshot{
		Todos:          todos,
		Visible:        model.FilterTodos(todos, c.filter),
		Filter:         c.filter,
		Loading:        c.loading,
		Loaded:         c.loaded,
		Placeholder:    ph,
		Pending:        pending,
		Error:          c.errMsg,
		ActiveCount:    active,
		CompletedCount: len(todos) - active,
	}
}
