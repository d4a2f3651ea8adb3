// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
)

// readPassphrase prompts on the terminal. Off a terminal it returns "" so
// scripted runs fall back to --passphrase.
var readPassphrase = func(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: i18n.T("keys.short"),
	}
	cmd.AddCommand(newKeysGenerateCmd(), newKeysSignCmd())
	return cmd
}

func newKeysGenerateCmd() *cobra.Command {
	var passphrase, comment string
	var prompt bool
	cmd := &cobra.Command{
		Use:   "generate <prefix>",
		Short: i18n.T("keys.generate.short"),
		Long: `Writes <prefix>.key (OpenSSH private key, encrypted when a passphrase
is given) and <prefix>.pub (hex encoded raw public key) for use with
"evidence ingest --pubkey".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if prompt && passphrase == "" {
				first, err := readPassphrase(out, i18n.T("keys.passphrase.prompt"))
				if err != nil {
					return err
				}
				second, err := readPassphrase(out, i18n.T("keys.passphrase.confirm"))
				if err != nil {
					return err
				}
				if first != second {
					return errors.New(i18n.T("keys.passphrase.mismatch"))
				}
				passphrase = first
			}

			pub, priv, err := signing.GenerateKey()
			if err != nil {
				return err
			}
			pemText, err := signing.MarshalPrivateKey(priv, comment, passphrase)
			if err != nil {
				return err
			}
			privPath := args[0] + ".key"
			pubPath := args[0] + ".pub"
			if err := os.WriteFile(privPath, []byte(pemText), 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)+"\n"), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("keys.generate.done", privPath, pubPath))
			if fp, err := signing.Fingerprint(pub); err == nil {
				fmt.Fprintln(out, fp)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Encrypt the private key with this passphrase")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for the passphrase on the terminal")
	cmd.Flags().StringVarP(&comment, "comment", "c", "dextrust-evidence", "Comment stored in the private key")
	return cmd
}

// loadPrivateKey reads an OpenSSH private key, prompting for a passphrase
// when the key is encrypted and none was given.
func loadPrivateKey(w io.Writer, path, passphrase string) (ed25519.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	priv, err := signing.ParsePrivateKey(pemBytes, passphrase)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		pass, perr := readPassphrase(w, i18n.T("keys.passphrase.prompt"))
		if perr != nil {
			return nil, perr
		}
		if pass == "" {
			return nil, err
		}
		return signing.ParsePrivateKey(pemBytes, pass)
	}
	return priv, err
}

func newKeysSignCmd() *cobra.Command {
	var keyPath, outPath, passphrase string
	cmd := &cobra.Command{
		Use:   "sign <file>",
		Short: i18n.T("keys.sign.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := loadPrivateKey(cmd.OutOrStdout(), keyPath, passphrase)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sig := ed25519.Sign(priv, content)
			// Catch a key/file mismatch before anything reaches the store.
			if err := signing.Verify(priv.Public().(ed25519.PublicKey), content, sig); err != nil {
				return security.Wrap(security.KindSignatureInvalid, "sign", args[0], err)
			}
			if outPath == "" {
				outPath = args[0] + ".sig"
			}
			if err := os.WriteFile(outPath, sig, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("keys.sign.done", outPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "OpenSSH private key written by 'keys generate' (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Signature output path (default <file>.sig)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Passphrase for an encrypted key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
