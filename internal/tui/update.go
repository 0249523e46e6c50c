package tui

import (
	"context"
	"time"

	"todo-cli/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case stateChangedMsg:
		m.syncSnapshot()
		return m, tea.Batch(waitForChange(m.sub), m.maybeSpin())

	case opDoneMsg:
		if msg.err != nil {
			// The controller already raised the banner.
			m.log.Debug("operation failed", "op", msg.op, "err", msg.err)
		}
		m.syncSnapshot()
		return m, m.maybeSpin()

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		if !m.busy() {
			m.spinning = false
			m.rebuildItems()
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.rebuildItems()
		return m, cmd

	case clipboardMsg:
		if msg.err != nil {
			return m, m.showMinibuffer("Copy failed: " + msg.err.Error())
		}
		return m, m.showMinibuffer("Copied: " + msg.text)

	case minibufferTickMsg:
		if m.minibufferText != "" && time.Since(m.minibufferSetAt) >= minibufferAutoClearAfter {
			m.minibufferText = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus != focusHelp && !m.snap.ShowMain() {
			return m.updateLoadingKey(msg)
		}
		switch m.focus {
		case focusHelp:
			return m.updateHelpKey(msg)
		case focusCreate:
			return m.updateCreateKey(msg)
		case focusEdit:
			return m.updateEditKey(msg)
		default:
			return m.updateListKey(msg)
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusCreate:
		m.create, cmd = m.create.Update(msg)
	case focusEdit:
		m.edit, cmd = m.edit.Update(msg)
		m.rebuildItems()
	}
	return m, cmd
}

// updateLoadingKey handles keys while the form and list are hidden: only
// quit and help do anything.
func (m appModel) updateLoadingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.openHelp()
	}
	return m, nil
}

func (m appModel) updateCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := m.create.Value()
		m.create.Reset()
		ctl := m.ctl
		return m, m.run("create", func(ctx context.Context) error {
			_, err := ctl.Create(ctx, title)
			return err
		})
	case "esc", "tab", "down":
		if msg.String() == "esc" && !m.snap.Error.IsEmpty() {
			m.ctl.ClearError()
			m.syncSnapshot()
			return m, nil
		}
		m.focus = focusList
		m.create.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.create, cmd = m.create.Update(msg)
	return m, cmd
}

func (m appModel) updateEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		id, title := m.editID, m.edit.Value()
		m.stopEditing()
		ctl := m.ctl
		return m, m.run("rename", func(ctx context.Context) error {
			return ctl.Rename(ctx, id, title)
		})
	case "esc":
		m.stopEditing()
		return m, nil
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	m.rebuildItems()
	return m, cmd
}

func (m appModel) updateHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.focus = focusList
		return m, nil
	}
	var cmd tea.Cmd
	m.helpView, cmd = m.helpView.Update(msg)
	return m, cmd
}

func (m appModel) updateListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := m.ctl
	sel, hasSel := m.selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.openHelp()
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.focus = focusCreate
		return m, m.create.Focus()

	case key.Matches(msg, m.keys.Toggle):
		if !hasSel {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error { return ctl.Toggle(ctx, sel.ID) })

	case key.Matches(msg, m.keys.Edit):
		if !hasSel {
			return m, nil
		}
		return m, m.startEditing(sel)

	case key.Matches(msg, m.keys.Delete):
		if !hasSel {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error { return ctl.Delete(ctx, sel.ID) })

	case key.Matches(msg, m.keys.ToggleAll):
		if len(m.snap.Todos) == 0 {
			return m, nil
		}
		return m, m.run("toggle-all", ctl.ToggleAll)

	case key.Matches(msg, m.keys.ClearCompleted):
		if !m.snap.HasCompleted() {
			return m, nil
		}
		return m, m.run("clear-completed", ctl.ClearCompleted)

	case key.Matches(msg, m.keys.NextFilter):
		return m, m.setFilter(m.snap.Filter.Next())
	case key.Matches(msg, m.keys.FilterAll):
		return m, m.setFilter(model.FilterAll)
	case key.Matches(msg, m.keys.FilterActive):
		return m, m.setFilter(model.FilterActive)
	case key.Matches(msg, m.keys.FilterDone):
		return m, m.setFilter(model.FilterCompleted)

	case key.Matches(msg, m.keys.Copy):
		if !hasSel {
			return m, nil
		}
		return m, copyCmd(sel.Title)

	case key.Matches(msg, m.keys.Reload):
		return m, m.run("load", ctl.Load)

	case key.Matches(msg, m.keys.Dismiss):
		ctl.ClearError()
		m.syncSnapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
