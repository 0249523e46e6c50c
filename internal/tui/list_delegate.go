package tui

import (
	"fmt"
	"io"

	"todo-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// todoItem is one list row. Spinner holds the current spinner frame for
// pending rows so the delegate stays stateless.
type todoItem struct {
	todo        model.Todo
	pending     bool
	placeholder bool
	spinner     string
	// editView is the rendered edit input while this row is being edited.
	editView string
}

func (i todoItem) FilterValue() string { return i.todo.Title }
func (i todoItem) Title() string       { return i.todo.Title }

type todoDelegate struct{}

func (d todoDelegate) Height() int                             { return 1 }
func (d todoDelegate) Spacing() int                            { return 0 }
func (d todoDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d todoDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	width := m.Width()
	if width < 8 {
		return
	}
	fmt.Fprint(w, renderTodoRow(it, index == m.Index(), width))
}

func renderTodoRow(it todoItem, selected bool, width int) string {
	if it.editView != "" {
		return renderInputLine(width, " "+glyphCursor(), it.editView)
	}
	mark := glyphUnchecked()
	if it.todo.Completed {
		mark = lipgloss.NewStyle().Foreground(colorDone).Render(glyphChecked())
	}
	if it.pending || it.placeholder {
		mark = it.spinner
		if mark == "" {
			mark = glyphDot()
		}
	}

	title := it.todo.Title
	switch {
	case it.placeholder:
		title = styleMuted().Italic(true).Render(title)
	case it.todo.Completed:
		title = styleDone().Render(title)
	case it.pending:
		title = styleMuted().Render(title)
	}

	cursor := " "
	if selected {
		cursor = lipgloss.NewStyle().Foreground(colorAccent).Render(glyphCursor())
	}
	line := fitLine(cursor+" "+mark+" "+title, width)
	if selected {
		return styleSelected().Render(line)
	}
	return line
}
