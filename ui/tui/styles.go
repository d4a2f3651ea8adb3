// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
)

const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal
	colorSpecial   = lipgloss.Color("208") // Orange
	colorError     = lipgloss.Color("196") // Bright red
	colorSuccess   = lipgloss.Color("40")  // Green
	colorWhite     = lipgloss.Color("231")
)

var (
	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	helpStyle  = lipgloss.NewStyle().Foreground(colorSubtle)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(1, 2)

	severityStyles = map[audit.Severity]lipgloss.Style{
		audit.Info:     lipgloss.NewStyle().Foreground(colorSuccess),
		audit.Warning:  lipgloss.NewStyle().Foreground(colorSpecial),
		audit.Error:    lipgloss.NewStyle().Foreground(colorError),
		audit.Critical: lipgloss.NewStyle().Foreground(colorError).Bold(true),
	}
)

func severityCell(s audit.Severity) string {
	if st, ok := severityStyles[s]; ok {
		return st.Render(s.String())
	}
	return s.String()
}
