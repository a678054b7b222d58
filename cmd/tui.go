package cmd

import (
	tea "github.com/charmbracelet/bubbletea"

	"vanity-sol/internal/tui"
)

func runTUI() error {
	m := tui.New(tui.Options{
		Chain:         flagChain,
		Workers:       flagWorkers,
		CaseSensitive: flagCase,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
