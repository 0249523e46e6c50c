package tui

import (
	"context"
	"time"

	"todo-cli/internal/logging"
	"todo-cli/internal/model"
	"todo-cli/internal/state"
	"todo-cli/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

const minibufferAutoClearAfter = 2500 * time.Millisecond

type focus int

const (
	focusList focus = iota
	focusCreate
	focusEdit
	focusHelp
)

type (
	// stateChangedMsg means the controller has a new snapshot.
	stateChangedMsg struct{}
	// opDoneMsg reports a settled controller operation.
	opDoneMsg struct {
		op  string
		err error
	}
	minibufferTickMsg struct{}
)

type appModel struct {
	ctx       context.Context
	ctl       *state.Controller
	sub       <-chan struct{}
	cancelSub func()
	uiState   store.UIStateStore
	log       *log.Logger

	snap state.Snapshot

	width  int
	height int

	focus  focus
	list   list.Model
	create textinput.Model
	edit   textinput.Model
	editID int

	spinner  spinner.Model
	spinning bool

	keys     keyMap
	help     help.Model
	helpView viewport.Model

	minibufferText  string
	minibufferSetAt time.Time
}

func newAppModel(ctx context.Context, opts Options) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	l := opts.Logger
	if l == nil {
		l = logging.Discard()
	}

	ch, cancel := opts.Controller.Subscribe()
	m := appModel{
		ctx:       ctx,
		ctl:       opts.Controller,
		sub:       ch,
		cancelSub: cancel,
		uiState:   opts.UIState,
		log:       l,
		focus:     focusCreate,
		list:      newTodoList(),
		create:    newCreateInput(),
		edit:      newEditInput(),
		keys:      defaultKeyMap(),
		help:      help.New(),
		helpView:  viewport.New(0, 0),
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	m.spinner = s

	if st, err := m.uiState.Load(); err != nil {
		m.log.Warn("load ui state", "err", err)
	} else if f, err := model.ParseFilter(st.Filter); err == nil {
		m.ctl.SetFilter(f)
	}

	m.create.Focus()
	m.syncSnapshot()
	return m
}

func newTodoList() list.Model {
	l := list.New([]list.Item{}, todoDelegate{}, 0, 0)
	// The app draws its own header, footer and help.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	// Free the letters the app binds itself.
	l.KeyMap.NextPage.SetKeys("right", "pgdown")
	l.KeyMap.PrevPage.SetKeys("left", "pgup")
	l.KeyMap.CursorUp.SetKeys("up", "k", "ctrl+p")
	l.KeyMap.CursorDown.SetKeys("down", "j", "ctrl+n")
	return l
}

func newCreateInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "What needs to be done?"
	ti.Prompt = ""
	ti.CharLimit = 500
	return ti
}

func newEditInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 500
	return ti
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.sub),
		m.run("load", func(ctx context.Context) error { return m.ctl.Load(ctx) }),
		textinput.Blink,
	)
}

// waitForChange blocks until the controller signals, then reports it.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

// run executes a controller operation off the event loop.
func (m appModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// syncSnapshot pulls a fresh snapshot and rebuilds the rows, keeping the
// cursor on the same todo when it is still visible.
func (m *appModel) syncSnapshot() {
	selectedID := 0
	if it, ok := m.list.SelectedItem().(todoItem); ok {
		selectedID = it.todo.ID
	}
	prevIndex := m.list.Index()

	m.snap = m.ctl.Snapshot()
	m.rebuildItems()

	if n := len(m.list.Items()); n > 0 {
		idx := -1
		if selectedID != 0 {
			idx = model.IndexOf(m.snap.Visible, selectedID)
		}
		if idx < 0 {
			idx = min(prevIndex, n-1)
		}
		m.list.Select(idx)
	}

	if m.focus == focusEdit {
		if _, ok := m.snap.Find(m.editID); !ok {
			m.stopEditing()
		}
	}
}

func (m *appModel) rebuildItems() {
	frame := ""
	if m.spinning {
		frame = m.spinner.View()
	}
	items := make([]list.Item, 0, len(m.snap.Visible))
	for _, t := range m.snap.Visible {
		it := todoItem{
			todo:    t,
			pending: m.snap.IsPending(t.ID),
			spinner: frame,
		}
		if m.focus == focusEdit && t.ID == m.editID {
			it.editView = m.edit.View()
		}
		items = append(items, it)
	}
	m.list.SetItems(items)
}

func (m appModel) busy() bool {
	return m.snap.Loading || m.snap.Placeholder != nil || len(m.snap.Pending) > 0
}

// maybeSpin starts the spinner when something is in flight.
func (m *appModel) maybeSpin() tea.Cmd {
	if m.spinning || !m.busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m appModel) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m *appModel) showMinibuffer(text string) tea.Cmd {
	m.minibufferText = text
	m.minibufferSetAt = time.Now()
	return tea.Tick(minibufferAutoClearAfter, func(time.Time) tea.Msg { return minibufferTickMsg{} })
}

func (m *appModel) setFilter(f model.Filter) tea.Cmd {
	m.ctl.SetFilter(f)
	if err := m.uiState.Save(&store.UIState{Filter: string(f)}); err != nil {
		m.log.Warn("save ui state", "err", err)
	}
	m.syncSnapshot()
	return m.showMinibuffer("Showing " + f.Label())
}

func (m *appModel) startEditing(t model.Todo) tea.Cmd {
	m.focus = focusEdit
	m.editID = t.ID
	m.edit.SetValue(t.Title)
	m.edit.CursorEnd()
	m.create.Blur()
	cmd := m.edit.Focus()
	m.rebuildItems()
	return cmd
}

func (m *appModel) stopEditing() {
	m.focus = focusList
	m.editID = 0
	m.edit.Blur()
	m.edit.SetValue("")
	m.rebuildItems()
}

func (m *appModel) openHelp() {
	m.focus = focusHelp
	m.create.Blur()
	m.resize()
}

func (m *appModel) resize() {
	w := max(m.width-4, 20)
	m.create.Width = w - 4
	m.edit.Width = w - 6
	m.help.Width = w

	// header(2) + input(1) + placeholder(1) + rules(2) + footer(1) + banner(1) + help(1)
	listH := max(m.height-9, 1)
	m.list.SetSize(w, listH)

	m.helpView.Width = w
	m.helpView.Height = max(m.height-2, 1)
	if m.focus == focusHelp {
		m.helpView.SetContent(renderMarkdown(helpMarkdown(), w))
	}
}
