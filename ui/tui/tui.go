// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
)

// BrowseEvents runs the event browser full screen until the user quits.
func BrowseEvents(events []audit.Event) error {
	_, err := tea.NewProgram(
		newEventsModel(events),
		tea.WithAltScreen(),
	).Run()
	return err
}
