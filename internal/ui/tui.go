// ABOUTME: TUI initialization and control plumbing
// ABOUTME: Wraps the bubbletea program and carries key actions to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Action is something the user asked for
type Action int

const (
	ActionTogglePause Action = iota
	ActionSeek               // Delta in ms
	ActionVolume             // Delta in percent
)

// Control is one user request
type Control struct {
	Action Action
	Delta  int
}

// Controls holds channels from the TUI to the player
type Controls struct {
	Requests chan Control
	Quit     chan struct{}
}

// NewControls creates the control channels
func NewControls() *Controls {
	return &Controls{
		Requests: make(chan Control, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrls *Controls) Model {
	return Model{
		controls: ctrls,
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(ctrls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(ctrls), tea.WithAltScreen())
}
