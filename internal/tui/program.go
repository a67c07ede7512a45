package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/quicknote/internal/session"
)

// Run shows the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, machine *session.Machine, newestFirst bool) error {
	p := tea.NewProgram(New(ctx, machine, newestFirst), tea.WithAltScreen(), tea.WithContext(ctx))

	cancel := machine.OnChange(func(s session.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	defer cancel()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
