package tui

import (
	"fmt"
	"strings"

	"todo-cli/internal/docs"
	"todo-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

func helpMarkdown() string {
	md, ok := docs.Get("keys")
	if !ok {
		return "# Keys\n\nPress `q` to quit."
	}
	return md
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	w := max(m.width-4, 20)

	if m.focus == focusHelp {
		title := styleHeader().Render("Help") + styleMuted().Render("  esc to close")
		body := lipgloss.JoinVertical(lipgloss.Left, title, m.helpView.View())
		return lipgloss.NewStyle().Padding(0, 2).Render(fitPane(body, w, m.height))
	}

	var sections []string
	sections = append(sections, styleHeader().Render("todos"), "")

	if !m.snap.ShowMain() {
		sections = append(sections, m.spinner.View()+" "+styleMuted().Render("Loading todos…"))
	} else {
		sections = append(sections, m.viewForm(w))
		if ph := m.snap.Placeholder; ph != nil {
			sections = append(sections, renderTodoRow(todoItem{todo: *ph, placeholder: true, spinner: m.spinner.View()}, false, w))
		}
		if m.snap.ShowList() {
			rule := styleMuted().Render(strings.Repeat(glyphHRule(), w))
			sections = append(sections, rule, m.viewList(), rule, m.viewFooter(w))
		}
	}

	if !m.snap.Error.IsEmpty() {
		sections = append(sections, "", m.viewError(w))
	}

	sections = append(sections, "", m.viewStatusLine(w))
	return lipgloss.NewStyle().Padding(0, 2).Render(fitPane(strings.Join(sections, "\n"), w, m.height))
}

func (m appModel) viewForm(w int) string {
	toggle := " "
	if len(m.snap.Todos) > 0 {
		st := styleMuted()
		if m.snap.AllCompleted() {
			st = lipgloss.NewStyle().Foreground(colorSurfaceFg).Bold(true)
		}
		toggle = st.Render(glyphToggleAll())
	}
	if m.focus == focusCreate {
		return renderInputLine(w, toggle, m.create.View())
	}
	hint := m.create.Placeholder
	if v := m.create.Value(); v != "" {
		hint = v
	}
	return fitLine(toggle+" "+styleMuted().Render(hint), w)
}

func (m appModel) viewList() string {
	if len(m.list.Items()) == 0 {
		return styleMuted().Render("  nothing " + strings.ToLower(m.snap.Filter.Label()))
	}
	return m.list.View()
}

func itemsLeft(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", n)
}

func (m appModel) viewFooter(w int) string {
	parts := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		if f == m.snap.Filter {
			parts = append(parts, styleFilterActive().Render(f.Label()))
			continue
		}
		parts = append(parts, styleMuted().Render(f.Label()))
	}
	left := itemsLeft(m.snap.ActiveCount)
	mid := strings.Join(parts, "  ")
	right := ""
	if m.snap.HasCompleted() {
		right = styleMuted().Render("Clear completed (C)")
	}
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(mid)-lipgloss.Width(right), 2)
	return fitLine(left+strings.Repeat(" ", gap/2)+mid+strings.Repeat(" ", gap-gap/2)+right, w)
}

func (m appModel) viewError(w int) string {
	return styleErrorBanner().Width(w).Render(string(m.snap.Error) + "  (esc)")
}

func (m appModel) viewStatusLine(w int) string {
	if m.minibufferText != "" {
		return fitLine(m.minibufferText, w)
	}
	switch m.focus {
	case focusCreate:
		return styleMuted().Render(fitLine("enter add · esc list · ctrl+c quit", w))
	case focusEdit:
		return styleMuted().Render(fitLine("enter save · esc cancel · empty title deletes", w))
	}
	return m.help.View(m.keys)
}
