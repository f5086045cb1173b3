package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the prompt until the user quits or ctx is canceled, and returns
// the predictions the user kept.
func Run(ctx context.Context, p Predictor, in io.Reader, out io.Writer) ([]Entry, error) {
	if p == nil {
		return nil, errors.New("predictor is required")
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(NewModel(p), opts...).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("interactive prompt failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	return m.History(), nil
}
