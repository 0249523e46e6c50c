package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

type clipboardMsg struct {
	text string
	err  error
}

// copyCmd writes s to the system clipboard off the event loop.
func copyCmd(s string) tea.Cmd {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return func() tea.Msg {
		return clipboardMsg{text: s, err: clipboard.WriteAll(s)}
	}
}
