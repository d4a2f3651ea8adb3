// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/evidence"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
)

func newPIICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pii",
		Short: i18n.T("pii.short"),
	}
	cmd.AddCommand(newPIIScanCmd())
	return cmd
}

// maskMatch keeps the first and last character of a match.
func maskMatch(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}

func newPIIScanCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: i18n.T("pii.scan.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var matches []security.PIIMatch
			err = withStore(func(store *evidence.Store) error {
				mgr, err := newManager(store)
				if err != nil {
					return err
				}
				matches = mgr.DetectPII(args[0], string(text))
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, i18n.T("pii.scan.none", args[0]))
				return nil
			}
			fmt.Fprintln(out, i18n.T("pii.scan.found", len(matches), args[0]))
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				shown := m.Text
				if !reveal {
					shown = maskMatch(shown)
				}
				rows = append(rows, []string{m.Pattern, shown, strconv.Itoa(m.Start)})
			}
			printTable(out, []string{
				i18n.T("header.pattern"),
				i18n.T("header.text"),
				i18n.T("header.offset"),
			}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print matches unmasked")
	return cmd
}
