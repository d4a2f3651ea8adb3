// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
)

func newCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: i18n.T("cert.short"),
	}
	cmd.AddCommand(newCertInspectCmd())
	return cmd
}

func newCertInspectCmd() *cobra.Command {
	var expiring time.Duration
	cmd := &cobra.Command{
		Use:   "inspect <pem-file>",
		Short: i18n.T("cert.inspect.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pemBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mgr, err := newManager(nil)
			if err != nil {
				return err
			}
			added, skipped, err := mgr.ImportX509(pemBytes)
			if err != nil {
				return err
			}

			certs := added
			if expiring > 0 {
				now := time.Now()
				certs = mgr.Certificates().ExpiringBetween(now, now.Add(expiring))
			}
			rows := make([][]string, 0, len(certs))
			for _, c := range certs {
				rows = append(rows, []string{
					truncateString(c.ID, 24),
					c.Issuer,
					c.ValidFrom.UTC().Format(time.DateOnly),
					c.ValidTo.UTC().Format(time.DateOnly),
					yesNo(mgr.IsCertificateValid(c.ID)),
				})
			}
			out := cmd.OutOrStdout()
			printTable(out, []string{
				i18n.T("header.id"),
				i18n.T("header.issuer"),
				i18n.T("header.valid_from"),
				i18n.T("header.valid_to"),
				i18n.T("header.valid"),
			}, rows)
			for _, id := range skipped {
				fmt.Fprintln(out, i18n.T("cert.inspect.skipped", id))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&expiring, "expiring", 0, "Only show certificates expiring within this window (e.g. 720h)")
	return cmd
}
