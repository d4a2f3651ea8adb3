// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/db"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/evidence"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/ui/tui"
)

// browseEvents is swapped out in tests.
var browseEvents = tui.BrowseEvents

type eventFlags struct {
	eventType string
	principal string
	since     time.Duration
	limit     int
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.eventType, "type", "t", "", "Only events of this type (e.g. KeyRotation)")
	cmd.Flags().StringVar(&f.principal, "principal", "", "Only events for this principal")
	cmd.Flags().DurationVar(&f.since, "since", 0, "Only events newer than this age (e.g. 24h)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum number of events (0 = all)")
}

func (f *eventFlags) load() ([]audit.Event, error) {
	filter := db.EventFilter{
		Type:      f.eventType,
		Principal: f.principal,
		Limit:     f.limit,
	}
	if f.since > 0 {
		filter.Since = time.Now().Add(-f.since)
	}
	var events []audit.Event
	err := withStore(func(store *evidence.Store) error {
		var err error
		events, err = db.LoadEvents(context.Background(), store.DB().Bun, filter)
		return err
	})
	return events, err
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: i18n.T("events.short"),
	}
	cmd.AddCommand(newEventsListCmd(), newEventsExportCmd(), newEventsBrowseCmd())
	return cmd
}

func newEventsListCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: i18n.T("events.list.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := f.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, i18n.T("events.list.empty"))
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.Timestamp.Local().Format(time.DateTime),
					e.Type.String(),
					e.Severity.String(),
					e.PrincipalOr("-"),
					truncateString(e.Description, 60),
				})
			}
			printTable(out, []string{
				i18n.T("header.timestamp"),
				i18n.T("header.type"),
				i18n.T("header.severity"),
				i18n.T("header.principal"),
				i18n.T("header.description"),
			}, rows)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsExportCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: i18n.T("events.export.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := f.load()
			if err != nil {
				return err
			}
			data, err := audit.MarshalEvents(events)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("events.export.done", len(events), args[0]))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsBrowseCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "browse",
		Short: i18n.T("events.browse.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := f.load()
			if err != nil {
				return err
			}
			return browseEvents(events)
		},
	}
	f.register(cmd)
	return cmd
}
