// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for dextrust.
//
// Usage:
//
//	go run . [command] [flags]
//	./dextrust evidence ingest --file report.pdf --sig report.pdf.sig --pubkey signer.pub
//
// See --help for the full command list.
package main

import (
	"os"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
	"github.com/attakdefand/DEX-OS-V2-sub001/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("dextrust: %v", err)
		os.Exit(1)
	}
}
