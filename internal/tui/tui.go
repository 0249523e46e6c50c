// Package tui is the interactive terminal front-end. It renders snapshots of
// the state controller and turns key presses into controller operations.
package tui

import (
	"context"

	"todo-cli/internal/state"
	"todo-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type Options struct {
	Controller *state.Controller
	UIState    store.UIStateStore
	Logger     *log.Logger
	// Glyphs is "unicode" or "ascii".
	Glyphs string
}

// Run blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(opts.Glyphs)

	m := newAppModel(ctx, opts)
	defer m.cancelSub()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
