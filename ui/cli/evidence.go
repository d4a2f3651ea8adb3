// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/evidence"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
)

func newEvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: i18n.T("evidence.short"),
	}
	cmd.AddCommand(
		newEvidenceIngestCmd(),
		newEvidenceVerifyCmd(),
		newEvidenceListCmd(),
		newEvidenceShowCmd(),
		newEvidenceExportCmd(),
		newEvidenceImportCmd(),
		newEvidenceMaintainCmd(),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(*evidence.Store) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warnf("closing evidence store: %v", cerr)
		}
	}()
	return fn(store)
}

// recorderFor returns a manager persisting to store when logEvents is set,
// or a nil recorder.
func recorderFor(store *evidence.Store, logEvents bool) (evidence.EventRecorder, error) {
	if !logEvents {
		return nil, nil
	}
	mgr, err := newManager(store)
	if err != nil {
		return nil, err
	}
	return mgr, nil
}

func newEvidenceIngestCmd() *cobra.Command {
	var id, file, sigPath, pubPath string
	var logEvents bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: i18n.T("evidence.ingest.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			sig, err := readKeyMaterial(sigPath, ed25519.SignatureSize)
			if err != nil {
				return err
			}
			pub, err := readKeyMaterial(pubPath, ed25519.PublicKeySize)
			if err != nil {
				return err
			}
			if id == "" {
				id = filepath.Base(file)
			}
			return withStore(func(store *evidence.Store) error {
				recorder, err := recorderFor(store, logEvents)
				if err != nil {
					return err
				}
				rec, err := store.Ingest(evidence.IngestRequest{
					ID:        id,
					Filename:  filepath.Base(file),
					Content:   content,
					Signature: sig,
					PublicKey: pub,
				}, recorder)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("evidence.ingest.done", rec.ID, rec.HashHex()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Evidence id (defaults to the file name)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Evidence file (required)")
	cmd.Flags().StringVar(&sigPath, "sig", "", "Detached Ed25519 signature, raw or hex (required)")
	cmd.Flags().StringVar(&pubPath, "pubkey", "", "Ed25519 public key, raw or hex (required)")
	cmd.Flags().BoolVar(&logEvents, "log-events", true, "Record an audit trail event for the ingest")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("sig")
	_ = cmd.MarkFlagRequired("pubkey")
	return cmd
}

func newEvidenceVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: i18n.T("evidence.verify.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *evidence.Store) error {
				if err := store.Verify(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("evidence.verify.ok", args[0]))
				return nil
			})
		},
	}
}

func newEvidenceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: i18n.T("evidence.list.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *evidence.Store) error {
				records, err := store.List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, i18n.T("evidence.list.empty"))
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					rows = append(rows, []string{
						r.ID,
						r.Filename,
						strconv.FormatInt(r.ContentSize, 10),
						truncateString(r.HashHex(), 16),
						r.IngestedAt.Local().Format(time.DateTime),
					})
				}
				printTable(out, []string{
					i18n.T("header.id"),
					i18n.T("header.filename"),
					i18n.T("header.size"),
					i18n.T("header.hash"),
					i18n.T("header.ingested"),
				}, rows)
				return nil
			})
		},
	}
}

func newEvidenceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: i18n.T("evidence.show.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *evidence.Store) error {
				r, err := store.Get(args[0])
				if err != nil {
					return err
				}
				verr := store.Verify(r.ID)
				rows := [][]string{
					{i18n.T("header.id"), r.ID},
					{i18n.T("header.filename"), r.Filename},
					{i18n.T("header.size"), strconv.FormatInt(r.ContentSize, 10)},
					{i18n.T("header.hash"), r.HashHex()},
					{i18n.T("header.ingested"), r.IngestedAt.Local().Format(time.RFC3339)},
					{i18n.T("header.valid"), yesNo(verr == nil)},
				}
				printTable(cmd.OutOrStdout(), []string{"", ""}, rows)
				if verr != nil {
					logging.Warnf("evidence %s failed verification: %v", r.ID, verr)
				}
				return nil
			})
		},
	}
}

func newEvidenceExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: i18n.T("evidence.export.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *evidence.Store) error {
				f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				n, err := store.ExportBundle(f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("evidence.export.done", n, args[0]))
				return nil
			})
		},
	}
}

func newEvidenceImportCmd() *cobra.Command {
	var logEvents bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: i18n.T("evidence.import.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withStore(func(store *evidence.Store) error {
				recorder, err := recorderFor(store, logEvents)
				if err != nil {
					return err
				}
				report, err := store.ImportBundle(f, recorder)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, i18n.T("evidence.import.done", len(report.Imported), len(report.Unchanged), len(report.Failed)))
				failed := report.FailedIDs()
				for _, id := range failed {
					fmt.Fprintf(out, "  %s: %v\n", id, report.Failed[id])
				}
				if len(failed) > 0 {
					return errors.New(i18n.T("evidence.import.failed", len(failed)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&logEvents, "log-events", true, "Record an audit trail event per imported item")
	return cmd
}

func newEvidenceMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: i18n.T("evidence.maintain.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *evidence.Store) error {
				if err := store.Maintain(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("evidence.maintain.done"))
				return nil
			})
		},
	}
}
