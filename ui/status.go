package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/narration"
	"github.com/dgnsrekt/narrator/pkg/settings"
)

var (
	green  = lipgloss.Color("#00FF00")
	yellow = lipgloss.Color("#FFFF00")
	red    = lipgloss.Color("#FF0000")
	blue   = lipgloss.Color("#00AAFF")
	gray   = lipgloss.Color("#888888")
	dark   = lipgloss.Color("#333333")

	subtleStyle = lipgloss.NewStyle().Foreground(gray)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	focusStyle  = lipgloss.NewStyle().Foreground(blue).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
	noticeStyle = lipgloss.NewStyle().Foreground(green)
)

// statusDisplay renders the audio settings and narration state.
type statusDisplay struct {
	settings settings.State
	state    narration.State
	target   narration.NodeID
	queue    []audio.ClipReference
	language string
}

// icon returns the playback icon and its color.
func (s statusDisplay) icon() (string, lipgloss.Color) {
	switch {
	case !s.settings.DevicePresent:
		return "✗", red
	case !s.settings.Enabled:
		return "○", gray
	case s.settings.Paused:
		return "⏸", yellow
	case s.state == narration.StateResolving:
		return "⟳", blue
	case s.state == narration.StateReady && len(s.queue) > 0:
		return "▶", green
	default:
		return "■", gray
	}
}

func (s statusDisplay) stateText() string {
	switch {
	case !s.settings.DevicePresent:
		return "No headphones"
	case !s.settings.Enabled:
		return "Audio off"
	case s.settings.Paused:
		return "Paused"
	default:
		return s.state.String()
	}
}

// Compact is the one-line status shown under the screen.
func (s statusDisplay) Compact() string {
	icon, color := s.icon()
	parts := []string{
		lipgloss.NewStyle().Foreground(color).Render(icon + " " + s.stateText()),
		subtleStyle.Render("vol ") + s.volumeBar(10),
		subtleStyle.Render("rate ") + s.settings.Rate.String(),
	}
	if s.language != "" {
		parts = append(parts, subtleStyle.Render(s.language))
	}
	if s.settings.ControlsLocked {
		parts = append(parts, lipgloss.NewStyle().Foreground(yellow).Render("locked"))
	}
	return strings.Join(parts, subtleStyle.Render(" • "))
}

// Queue lists the published clips.
func (s statusDisplay) Queue(width int) string {
	if len(s.queue) == 0 {
		return subtleStyle.Render("queue empty")
	}
	ids := make([]string, len(s.queue))
	for i, ref := range s.queue {
		ids[i] = ref.ClipID
	}
	line := fmt.Sprintf("queue %s: %s", s.target, strings.Join(ids, " "))
	if width > 0 {
		line = truncate.StringWithTail(line, uint(width), ellipsis) //nolint:gosec
	}
	return subtleStyle.Render(line)
}

// Error formats err to fit width.
func (s statusDisplay) Error(err error, width int) string {
	line := "Error: " + err.Error()
	if width > 2 {
		line = truncate.StringWithTail(line, uint(width-2), ellipsis) //nolint:gosec
	}
	return line
}

// volumeBar draws the volume position between minimum and maximum.
func (s statusDisplay) volumeBar(width int) string {
	steps := int(audio.VolumeMaximum - audio.VolumeMinimum)
	pos := int(s.settings.Volume - audio.VolumeMinimum)
	filled := 1
	if steps > 0 {
		filled = 1 + pos*(width-1)/steps
	}
	filledStyle := lipgloss.NewStyle().Foreground(green)
	emptyStyle := lipgloss.NewStyle().Foreground(dark)
	return filledStyle.Render(strings.Repeat("█", filled)) + emptyStyle.Render(strings.Repeat("░", width-filled))
}
