package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"botdesk/internal/logging"
)

// Run opens the full-screen chat UI and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller, identity IdentitySource, logger logging.Logger, dark bool) error {
	model := NewModel(ctrl, identity, logger)
	model.markdown.SetDark(dark)
	if ctx != nil {
		model.ctx = ctx
	}
	p := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithContext(model.ctx))
	_, err := p.Run()
	return err
}
