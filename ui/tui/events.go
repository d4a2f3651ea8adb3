// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
)

// filter columns: 0=all, 1=time, 2=type, 3=severity, 4=principal, 5=description
const filterColumns = 6

type eventsModel struct {
	table       table.Model
	allEvents   []audit.Event
	filter      string
	filterCol   int
	isFiltering bool
	quitting    bool
}

func newEventsModel(events []audit.Event) eventsModel {
	m := eventsModel{allEvents: events}

	columns := []table.Column{
		{Title: i18n.T("header.timestamp"), Width: 20},
		{Title: i18n.T("header.type"), Width: 20},
		{Title: i18n.T("header.severity"), Width: 10},
		{Title: i18n.T("header.principal"), Width: 16},
		{Title: i18n.T("header.description"), Width: 50},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)

	m.table = t
	m.rebuildTableRows()
	return m
}

func eventCells(e audit.Event) []string {
	return []string{
		e.Timestamp.Local().Format(time.DateTime),
		e.Type.String(),
		e.Severity.String(),
		e.PrincipalOr("-"),
		e.Description,
	}
}

func (m eventsModel) matches(e audit.Event) bool {
	if m.filter == "" {
		return true
	}
	needle := strings.ToLower(m.filter)
	cells := eventCells(e)
	if m.filterCol == 0 {
		for _, c := range cells {
			if strings.Contains(strings.ToLower(c), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(cells[m.filterCol-1]), needle)
}

// rebuildTableRows filters the full event list into the table.
func (m *eventsModel) rebuildTableRows() {
	var rows []table.Row
	for _, e := range m.allEvents {
		if !m.matches(e) {
			continue
		}
		cells := eventCells(e)
		cells[2] = severityCell(e.Severity)
		rows = append(rows, table.Row(cells))
	}
	m.table.SetRows(rows)
	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m eventsModel) Init() tea.Cmd {
	return nil
}

func (m eventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// title(3) + footer(3) + margins
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		if m.isFiltering {
			switch msg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuildTableRows()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.rebuildTableRows()
				}
			case tea.KeyRunes, tea.KeySpace:
				m.filter += string(msg.Runes)
				m.rebuildTableRows()
			case tea.KeyTab:
				m.filterCol = (m.filterCol + 1) % filterColumns
				m.rebuildTableRows()
			case tea.KeyShiftTab:
				m.filterCol = (m.filterCol + filterColumns - 1) % filterColumns
				m.rebuildTableRows()
			}
			return m, nil
		}

		switch msg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return m, nil
		case "esc":
			if m.filter != "" {
				m.filter = ""
				m.rebuildTableRows()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m eventsModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.events.title")) + "\n")

	if len(m.table.Rows()) == 0 {
		if len(m.allEvents) == 0 {
			b.WriteString(helpStyle.Render(i18n.T("events.list.empty")))
		} else {
			b.WriteString(errorStyle.Render(i18n.T("tui.events.count", map[string]any{"Shown": 0, "Total": len(m.allEvents)})))
		}
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString(m.footerView())
	return docStyle.Render(b.String())
}

func (m eventsModel) footerView() string {
	colNames := []string{
		i18n.T("all"),
		i18n.T("header.timestamp"),
		i18n.T("header.type"),
		i18n.T("header.severity"),
		i18n.T("header.principal"),
		i18n.T("header.description"),
	}
	count := i18n.T("tui.events.count", map[string]any{"Shown": len(m.table.Rows()), "Total": len(m.allEvents)})
	var status string
	switch {
	case m.isFiltering:
		status = fmt.Sprintf("%s[%s] %s█ (tab: column)", i18n.T("tui.events.filter"), colNames[m.filterCol], m.filter)
	case m.filter != "":
		status = fmt.Sprintf("%s[%s] %s", i18n.T("tui.events.filter"), colNames[m.filterCol], m.filter)
	}
	return helpStyle.Render(fmt.Sprintf("\n%s  %s  %s", count, i18n.T("tui.events.help"), status))
}
