package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"todo-cli/internal/model"
)

var errTransport = errors.New("transport: connection refused")

// fakeClient is an in-memory TaskClient. When hold is set, every call
// announces itself on started and then waits for a value on release.
type fakeClient struct {
	mu     sync.Mutex
	todos  []model.Todo
	nextID int

	listErr   error
	createErr error
	updateErr map[int]error
	deleteErr map[int]error

	hold    bool
	started chan string
	release chan struct{}

	calls []string
}

func newFakeClient(todos ...model.Todo) *fakeClient {
	next := 1
	for _, t := range todos {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return &fakeClient{
		todos:     append([]model.Todo(nil), todos...),
		nextID:    next,
		updateErr: map[int]error{},
		deleteErr: map[int]error{},
		started:   make(chan string, 64),
		release:   make(chan struct{}, 64),
	}
}

func (f *fakeClient) gate(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hold := f.hold
	f.mu.Unlock()
	if !hold {
		return
	}
	f.started <- call
	<-f.release
}

func (f *fakeClient) List(ctx context.Context, ownerID int) ([]model.Todo, error) {
	f.gate("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Todo
	for _, t := range f.todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeClient) Create(ctx context.Context, t model.Todo) (model.Todo, error) {
	f.gate("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Todo{}, f.createErr
	}
	t.ID = f.nextID
	f.nextID++
	f.todos = append(f.todos, t)
	return t, nil
}

func (f *fakeClient) Update(ctx context.Context, t model.Todo) (model.Todo, error) {
	f.gate("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[t.ID]; err != nil {
		return model.Todo{}, err
	}
	i := model.IndexOf(f.todos, t.ID)
	if i < 0 {
		return model.Todo{}, errors.New("404")
	}
	f.todos[i] = t
	return t, nil
}

func (f *fakeClient) Delete(ctx context.Context, id int) error {
	f.gate("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	i := model.IndexOf(f.todos, id)
	if i < 0 {
		return errors.New("404")
	}
	f.todos = append(f.todos[:i], f.todos[i+1:]...)
	return nil
}

func (f *fakeClient) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// manualTimers records AfterFunc calls so tests can fire them on demand.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (m *manualTimers) last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	return m.timers[len(m.timers)-1]
}

// fire runs the timer callback the way time.AfterFunc would: outside any
// controller lock, regardless of whether Stop was called too late.
func (t *manualTimer) fire() { t.f() }
