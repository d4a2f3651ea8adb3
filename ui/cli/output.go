// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// printTable renders rows under headers as a bordered table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// truncateString truncates s to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// readKeyMaterial reads a file holding exactly size raw bytes, or the same
// bytes hex encoded (surrounding whitespace ignored).
func readKeyMaterial(path string, size int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) == size {
		return raw, nil
	}
	text := strings.TrimSpace(string(raw))
	if len(text) == 2*size {
		if decoded, err := hex.DecodeString(text); err == nil {
			return decoded, nil
		}
	}
	// Length mismatches are left to signature verification to report.
	return raw, nil
}

func yesNo(b bool) string {
	if b {
		return okStyle.Render(i18n.T("yes"))
	}
	return badStyle.Render(i18n.T("no"))
}
