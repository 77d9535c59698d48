// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Renders playback status and turns keys into control requests
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/streamsink/pkg/player"
)

const (
	seekStep   = 5000 // ms
	volumeStep = 5
)

// StatusMsg updates TUI state
type StatusMsg player.Status

// Model represents the TUI state
type Model struct {
	status     player.Status
	haveStatus bool

	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = player.Status(msg)
		m.haveStatus = true
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderTrack()
	s += m.renderControls()
	if m.showDebug {
		s += m.renderDebug()
	}
	s += m.renderHelp()
	return s
}

func (m Model) renderHeader() string {
	state := "Idle"
	if m.haveStatus {
		state = stateName(m.status.State)
	}
	return fmt.Sprintf(`┌─ streamsink ─────────────────────────────────────────┐
│ Status: %-44s │
├──────────────────────────────────────────────────────┤
`, state)
}

func (m Model) renderTrack() string {
	if !m.haveStatus || m.status.Format.Rate == 0 {
		return "│ No stream                                            │\n"
	}

	md := m.status.Metadata
	s := fmt.Sprintf("│ Track:  %-44s │\n", truncate(md.Title, 44))
	if md.Artist != "" {
		s += fmt.Sprintf("│ Artist: %-44s │\n", truncate(md.Artist, 44))
	}
	if md.Album != "" {
		s += fmt.Sprintf("│ Album:  %-44s │\n", truncate(md.Album, 44))
	}
	s += fmt.Sprintf("│ Format: %-44s │\n", fmt.Sprintf("%s %dHz %s",
		m.status.Format.Format, m.status.Format.Rate, channelName(m.status.Format.Channels)))

	position := formatDuration(m.status.PositionMs)
	if m.status.DurationMs > 0 {
		position += " / " + formatDuration(m.status.DurationMs)
	}
	s += fmt.Sprintf("│ Time:   %-44s │\n", position)
	return s
}

func (m Model) renderControls() string {
	v := m.status.Volume
	buffer := 0
	if m.status.Capacity > 0 {
		buffer = m.status.Buffered * 100 / m.status.Capacity
	}

	return "│                                                      │\n" +
		fmt.Sprintf("│ Volume: L [%s] %3d%%  R [%s] %3d%%    │\n",
			renderBar(v.Left, 100, 10), v.Left, renderBar(v.Right, 100, 10), v.Right) +
		fmt.Sprintf("│ Buffer: [%s] %3d%%%-19s │\n", renderBar(buffer, 100, 20), buffer, "")
}

func (m Model) renderDebug() string {
	return fmt.Sprintf("│ DEBUG:                                               │\n"+
		"│   Stream: %-42s │\n"+
		"│   Buffered: %-40s │\n",
		truncate(m.status.StreamID, 42),
		fmt.Sprintf("%d / %d bytes", m.status.Buffered, m.status.Capacity))
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Pause  ←/→:Seek  ↑/↓:Volume  d:Debug  q:Quit   │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ", "space", "p":
		m.request(Control{Action: ActionTogglePause})
	case "left":
		m.request(Control{Action: ActionSeek, Delta: -seekStep})
	case "right":
		m.request(Control{Action: ActionSeek, Delta: seekStep})
	case "up":
		m.request(Control{Action: ActionVolume, Delta: volumeStep})
	case "down":
		m.request(Control{Action: ActionVolume, Delta: -volumeStep})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// request forwards c without blocking the UI
func (m Model) request(c Control) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Requests <- c:
	default:
	}
}

func stateName(s player.State) string {
	switch s {
	case player.StatePlaying:
		return "Playing"
	case player.StatePaused:
		return "Paused"
	case player.StateStopped:
		return "Stopped"
	default:
		return "Idle"
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	value = min(value, max)
	filled := 0
	if max > 0 && value > 0 {
		filled = value * width / max
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	sec := ms / 1000
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, sec/60%60, sec%60)
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
