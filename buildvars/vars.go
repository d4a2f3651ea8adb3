// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds values injected at link time.
package buildvars

// Version is set via `-ldflags -X github.com/attakdefand/DEX-OS-V2-sub001/buildvars.Version=...`.
// Empty for local builds.
var Version string

// Commit and Date are set alongside Version by release builds.
var (
	Commit string
	Date   string
)

// VersionOrDefault returns Version if set, otherwise def.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
