package state

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"todo-cli/internal/model"
)

const testOwner = 7

func newTestController(t *testing.T, fc *fakeClient) (*Controller, *manualTimers) {
	t.Helper()
	timers := &manualTimers{}
	c := New(fc, Options{OwnerID: testOwner, AfterFunc: timers.AfterFunc})
	t.Cleanup(c.Close)
	return c, timers
}

func loadedController(t *testing.T, todos ...model.Todo) (*Controller, *fakeClient, *manualTimers) {
	t.Helper()
	fc := newFakeClient(todos...)
	c, timers := newTestController(t, fc)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c, fc, timers
}

func todo(id int, title string, completed bool) model.Todo {
	return model.Todo{ID: id, OwnerID: testOwner, Title: title, Completed: completed}
}

func ids(todos []model.Todo) []int {
	out := []int{}
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("operation did not settle")
		return nil
	}
}

func waitStarted(t *testing.T, fc *fakeClient, want string) {
	t.Helper()
	select {
	case got := <-fc.started:
		if got != want {
			t.Fatalf("started call: got %q want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("call %q never started", want)
	}
}

func TestNew_HidesMainUntilFirstLoad(t *testing.T) {
	fc := newFakeClient(todo(1, "a", false))
	c, _ := newTestController(t, fc)

	s := c.Snapshot()
	if !s.Loading || s.Loaded || s.ShowMain() {
		t.Fatalf("fresh controller: loading=%v loaded=%v showMain=%v", s.Loading, s.Loaded, s.ShowMain())
	}

	ctx := context.Background()
	if _, err := c.Create(ctx, "early"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Create before load: got %v", err)
	}
	if _, err := c.Update(ctx, todo(1, "a", true)); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Update before load: got %v", err)
	}
	if err := c.Delete(ctx, 1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Delete before load: got %v", err)
	}
	if err := c.Toggle(ctx, 1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Toggle before load: got %v", err)
	}
	if s := c.Snapshot(); s.Placeholder != nil || len(s.Pending) != 0 || !s.Error.IsEmpty() {
		t.Fatalf("rejected mutations must not touch state: %#v", s)
	}

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s := c.Snapshot(); !s.ShowMain() || len(s.Todos) != 1 {
		t.Fatalf("after load: %#v", s)
	}
}

func TestLoad_ReplacesListAndClearsLoading(t *testing.T) {
	t.Parallel()

	fc := newFakeClient(todo(1, "a", false), todo(2, "b", true), model.Todo{ID: 3, OwnerID: 99, Title: "other"})
	fc.hold = true
	c, _ := newTestController(t, fc)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	waitStarted(t, fc, "list")

	if s := c.Snapshot(); !s.Loading || s.ShowMain() {
		t.Fatalf("expected loading state while list is in flight, got %+v", s)
	}
	fc.release <- struct{}{}
	if err := waitErr(t, done); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := c.Snapshot()
	if s.Loading || !s.Loaded {
		t.Fatalf("expected loaded state, got loading=%v loaded=%v", s.Loading, s.Loaded)
	}
	if got := ids(s.Todos); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("todos: got %v want [1 2]", got)
	}
	if s.ActiveCount != 1 || s.CompletedCount != 1 {
		t.Fatalf("counts: active=%d completed=%d", s.ActiveCount, s.CompletedCount)
	}
}

func TestLoad_FailureShowsGetError(t *testing.T) {
	t.Parallel()

	fc := newFakeClient(todo(1, "a", false))
	fc.listErr = errTransport
	c, _ := newTestController(t, fc)

	if err := c.Load(context.Background()); !errors.Is(err, errTransport) {
		t.Fatalf("Load: got %v want %v", err, errTransport)
	}
	s := c.Snapshot()
	if s.Error != model.ErrorGet {
		t.Fatalf("error: got %q want %q", s.Error, model.ErrorGet)
	}
	if len(s.Todos) != 0 || s.Loading {
		t.Fatalf("expected empty list and loading cleared, got %+v", s)
	}
}

func TestCreate_PlaceholderDuringPendingThenCommitted(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t)
	c.ShowError(model.ErrorDelete)
	fc.hold = true

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(context.Background(), "  Buy milk ")
		done <- err
	}()
	waitStarted(t, fc, "create")

	s := c.Snapshot()
	if s.Placeholder == nil || s.Placeholder.ID != 0 || s.Placeholder.Title != "Buy milk" {
		t.Fatalf("expected placeholder with id 0, got %+v", s.Placeholder)
	}
	if s.Error != model.ErrorNone {
		t.Fatalf("expected error cleared when create starts, got %q", s.Error)
	}
	if len(s.Todos) != 0 {
		t.Fatalf("canonical list must not contain the placeholder: %v", s.Todos)
	}

	fc.release <- struct{}{}
	if err := waitErr(t, done); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s = c.Snapshot()
	if s.Placeholder != nil {
		t.Fatalf("placeholder should be gone after commit")
	}
	if len(s.Todos) != 1 {
		t.Fatalf("expected one todo, got %v", s.Todos)
	}
	got := s.Todos[0]
	if got.ID == 0 || got.Title != "Buy milk" || got.Completed || got.OwnerID != testOwner {
		t.Fatalf("unexpected created todo: %+v", got)
	}
}

func TestCreate_AppendsToEnd(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t, todo(1, "a", false), todo(2, "b", true))
	created, err := c.Create(context.Background(), "c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := ids(c.Snapshot().Todos); !reflect.DeepEqual(got, []int{1, 2, created.ID}) {
		t.Fatalf("order: got %v", got)
	}
}

func TestCreate_FailureLeavesListAndShowsAddError(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t)
	fc.createErr = errTransport

	if _, err := c.Create(context.Background(), "Buy milk"); !errors.Is(err, errTransport) {
		t.Fatalf("Create: got %v", err)
	}
	s := c.Snapshot()
	if len(s.Todos) != 0 {
		t.Fatalf("expected empty list, got %v", s.Todos)
	}
	if s.Error != model.ErrorAdd {
		t.Fatalf("error: got %q want %q", s.Error, model.ErrorAdd)
	}
	if s.Placeholder != nil {
		t.Fatalf("placeholder must be discarded on failure")
	}
}

func TestCreate_BlankTitleNeverCallsServer(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t)
	if _, err := c.Create(context.Background(), "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("Create: got %v want ErrEmptyTitle", err)
	}
	if fc.callCount("create") != 0 {
		t.Fatalf("blank title must not reach the server")
	}
	if got := c.Snapshot().Error; got != model.ErrorTitle {
		t.Fatalf("error: got %q want %q", got, model.ErrorTitle)
	}
}

func TestUpdate_ReplacesInPlaceAndReleasesPending(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(4, "a", false), todo(5, "b", false), todo(6, "c", true))
	fc.hold = true

	done := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), todo(5, "b", true))
		done <- err
	}()
	waitStarted(t, fc, "update")

	if s := c.Snapshot(); !s.IsPending(5) || s.IsPending(4) {
		t.Fatalf("expected only 5 pending, got %v", s.Pending)
	}
	fc.release <- struct{}{}
	if err := waitErr(t, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s := c.Snapshot()
	if got := ids(s.Todos); !reflect.DeepEqual(got, []int{4, 5, 6}) {
		t.Fatalf("order changed: %v", got)
	}
	if !s.Todos[1].Completed {
		t.Fatalf("todo 5 should be completed: %+v", s.Todos[1])
	}
	if s.IsPending(5) || len(s.Pending) != 0 {
		t.Fatalf("pending not released: %v", s.Pending)
	}
}

func TestUpdate_FailureKeepsListAndShowsUpdateError(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(5, "b", false))
	fc.updateErr[5] = errTransport

	if _, err := c.Update(context.Background(), todo(5, "b", true)); !errors.Is(err, errTransport) {
		t.Fatalf("Update: got %v", err)
	}
	s := c.Snapshot()
	if s.Todos[0].Completed {
		t.Fatalf("list must be unchanged on failure")
	}
	if s.Error != model.ErrorUpdate {
		t.Fatalf("error: got %q", s.Error)
	}
	if len(s.Pending) != 0 {
		t.Fatalf("pending not released on failure: %v", s.Pending)
	}
}

func TestPending_OverlappingOperationsOnSameID(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(5, "b", false))
	fc.hold = true

	done := make(chan error, 2)
	go func() { _, err := c.Update(context.Background(), todo(5, "b", true)); done <- err }()
	waitStarted(t, fc, "update")
	go func() { _, err := c.Update(context.Background(), todo(5, "b2", true)); done <- err }()
	waitStarted(t, fc, "update")

	fc.release <- struct{}{}
	if err := waitErr(t, done); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if !c.Snapshot().IsPending(5) {
		t.Fatalf("5 must stay pending while the second update is in flight")
	}
	fc.release <- struct{}{}
	if err := waitErr(t, done); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if c.Snapshot().IsPending(5) {
		t.Fatalf("5 should be released once both updates settle")
	}
}

func TestDelete_SuccessRemovesByID(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t, todo(6, "a", false), todo(7, "b", false), todo(8, "c", false))
	if err := c.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	s := c.Snapshot()
	if got := ids(s.Todos); !reflect.DeepEqual(got, []int{6, 8}) {
		t.Fatalf("todos: got %v", got)
	}
	if len(s.Pending) != 0 {
		t.Fatalf("pending not released: %v", s.Pending)
	}
}

func TestDelete_FailureRestoresPreviousList(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(6, "a", false), todo(7, "b", true), todo(8, "c", false))
	fc.deleteErr[7] = errTransport
	before := c.Snapshot().Todos

	if err := c.Delete(context.Background(), 7); !errors.Is(err, errTransport) {
		t.Fatalf("Delete: got %v", err)
	}
	s := c.Snapshot()
	if !reflect.DeepEqual(s.Todos, before) {
		t.Fatalf("list after failed delete:\n got: %v\nwant: %v", s.Todos, before)
	}
	if s.Error != model.ErrorDelete {
		t.Fatalf("error: got %q", s.Error)
	}
	if len(s.Pending) != 0 {
		t.Fatalf("pending not released: %v", s.Pending)
	}
}

func TestClearCompleted_DeletesSnapshotOfCompleted(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", true), todo(2, "b", false), todo(3, "c", true))
	if err := c.ClearCompleted(context.Background()); err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	s := c.Snapshot()
	if got := ids(s.Todos); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("todos: got %v want [2]", got)
	}
	if s.Todos[0].Completed {
		t.Fatalf("remaining todo should be active")
	}
	if n := fc.callCount("delete"); n != 2 {
		t.Fatalf("delete calls: got %d want 2", n)
	}
}

func TestClearCompleted_OneFailureRestoresOnlyThatTodo(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", true), todo(2, "b", false), todo(3, "c", true))
	fc.deleteErr[3] = errTransport

	err := c.ClearCompleted(context.Background())
	if !errors.Is(err, errTransport) {
		t.Fatalf("ClearCompleted: got %v", err)
	}
	s := c.Snapshot()
	if got := ids(s.Todos); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("todos: got %v want [2 3]", got)
	}
	if s.Error != model.ErrorDelete {
		t.Fatalf("error: got %q", s.Error)
	}
}

func TestClearCompleted_LateSettlementOrder(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", true), todo(2, "b", false), todo(3, "c", true))
	fc.deleteErr[3] = errTransport
	fc.hold = true

	done := make(chan error, 1)
	go func() { done <- c.ClearCompleted(context.Background()) }()
	waitStarted(t, fc, "delete")
	waitStarted(t, fc, "delete")

	s := c.Snapshot()
	if !s.IsPending(1) || !s.IsPending(3) || s.IsPending(2) {
		t.Fatalf("pending: got %v", s.Pending)
	}
	fc.release <- struct{}{}
	fc.release <- struct{}{}
	_ = waitErr(t, done)

	if got := ids(c.Snapshot().Todos); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("todos: got %v want [2 3]", got)
	}
}

func TestToggleAll_CompletesOnlyActiveWhenAnyActive(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", true), todo(2, "b", false), todo(3, "c", false))
	if err := c.ToggleAll(context.Background()); err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
	if n := fc.callCount("update"); n != 2 {
		t.Fatalf("update calls: got %d want 2", n)
	}
	for _, td := range c.Snapshot().Todos {
		if !td.Completed {
			t.Fatalf("expected all completed, got %+v", td)
		}
	}
}

func TestToggleAll_AllCompletedFlipsEveryTodo(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", true), todo(2, "b", true))
	if err := c.ToggleAll(context.Background()); err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
	if n := fc.callCount("update"); n != 2 {
		t.Fatalf("update calls: got %d want 2", n)
	}
	if s := c.Snapshot(); s.ActiveCount != 2 {
		t.Fatalf("expected all active, got %+v", s.Todos)
	}
}

func TestToggleAll_FailureDoesNotRollBackSiblings(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", false), todo(2, "b", false), todo(3, "c", false))
	fc.updateErr[2] = errTransport

	if err := c.ToggleAll(context.Background()); !errors.Is(err, errTransport) {
		t.Fatalf("ToggleAll: got %v", err)
	}
	s := c.Snapshot()
	want := map[int]bool{1: true, 2: false, 3: true}
	for _, td := range s.Todos {
		if td.Completed != want[td.ID] {
			t.Fatalf("todo %d completed=%v want %v", td.ID, td.Completed, want[td.ID])
		}
	}
	if s.Error != model.ErrorUpdate {
		t.Fatalf("error: got %q", s.Error)
	}
}

func TestToggle_FlipsAndRejectsUnknownID(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t, todo(1, "a", false))
	if err := c.Toggle(context.Background(), 1); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !c.Snapshot().Todos[0].Completed {
		t.Fatalf("expected todo 1 completed")
	}
	if err := c.Toggle(context.Background(), 42); !errors.Is(err, ErrUnknownTodo) {
		t.Fatalf("Toggle(42): got %v want ErrUnknownTodo", err)
	}
}

func TestRename(t *testing.T) {
	t.Parallel()

	c, fc, _ := loadedController(t, todo(1, "a", false), todo(2, "b", false))

	if err := c.Rename(context.Background(), 1, " a "); err != nil {
		t.Fatalf("Rename unchanged: %v", err)
	}
	if n := fc.callCount("update"); n != 0 {
		t.Fatalf("unchanged title must not send an update, got %d", n)
	}

	if err := c.Rename(context.Background(), 1, "alpha"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := c.Snapshot().Todos[0].Title; got != "alpha" {
		t.Fatalf("title: got %q", got)
	}

	if err := c.Rename(context.Background(), 2, "   "); err != nil {
		t.Fatalf("Rename blank: %v", err)
	}
	if got := ids(c.Snapshot().Todos); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("blank rename should delete: got %v", got)
	}
}

func TestError_AutoClearsAfterThreeSeconds(t *testing.T) {
	t.Parallel()

	c, fc, timers := loadedController(t, todo(5, "b", false))
	fc.updateErr[5] = errTransport
	_, _ = c.Update(context.Background(), todo(5, "b", true))

	tm := timers.last()
	if tm == nil {
		t.Fatalf("expected an auto-dismiss timer")
	}
	if tm.d != 3000*time.Millisecond {
		t.Fatalf("timer duration: got %v want 3s", tm.d)
	}
	if got := c.Snapshot().Error; got != model.ErrorUpdate {
		t.Fatalf("error before timer: got %q", got)
	}
	tm.fire()
	if got := c.Snapshot().Error; got != model.ErrorNone {
		t.Fatalf("error after timer: got %q want empty", got)
	}
}

func TestError_StaleTimerDoesNotClearNewerError(t *testing.T) {
	t.Parallel()

	c, _, timers := loadedController(t)
	c.ShowError(model.ErrorAdd)
	first := timers.last()
	c.ShowError(model.ErrorDelete)
	second := timers.last()
	if first == second {
		t.Fatalf("expected a new timer for the second error")
	}

	first.fire()
	if got := c.Snapshot().Error; got != model.ErrorDelete {
		t.Fatalf("stale timer cleared newer error: got %q", got)
	}
	second.fire()
	if got := c.Snapshot().Error; got != model.ErrorNone {
		t.Fatalf("error: got %q want empty", got)
	}
}

func TestClearError(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t)
	c.ShowError(model.ErrorGet)
	c.ClearError()
	if got := c.Snapshot().Error; got != model.ErrorNone {
		t.Fatalf("error: got %q", got)
	}
}

func TestSubscribe_NotifiesAndCancels(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t, todo(1, "a", true), todo(2, "b", false))
	ch, cancel := c.Subscribe()

	c.SetFilter(model.FilterActive)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected a change notification")
	}
	s := c.Snapshot()
	if s.Filter != model.FilterActive || !reflect.DeepEqual(ids(s.Visible), []int{2}) {
		t.Fatalf("visible: got %v filter %q", ids(s.Visible), s.Filter)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestClose_ClosesSubscriptions(t *testing.T) {
	t.Parallel()

	c := New(newFakeClient(), Options{OwnerID: testOwner})
	ch, cancel := c.Subscribe()
	c.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after Close")
	}
	cancel()

	late, _ := c.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("subscribing after Close should return a closed channel")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()

	c, _, _ := loadedController(t, todo(1, "a", false))
	s := c.Snapshot()
	s.Todos[0].Title = "mutated"
	s.Pending[1] = true
	if got := c.Snapshot(); got.Todos[0].Title != "a" || got.IsPending(1) {
		t.Fatalf("snapshot shares state with controller: %+v", got)
	}
}
