package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the browser on the alternate screen and blocks until the user
// quits or ctx is canceled.
func Run(ctx context.Context, a *engine.Analysis, theme themes.Theme) error {
	p := tea.NewProgram(New(a, theme), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("report browser: %w", err)
	}
	return nil
}
