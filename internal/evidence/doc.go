// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package evidence is the append-only audit evidence store. Each item is a
// piece of content plus a detached Ed25519 signature; it is accepted only
// when the signature verifies, is addressed by the SHA3-256 of its content,
// and can never change once ingested.
//
// Content is persisted zstd-compressed in the evidence table of the
// database opened by Open or OpenDSN.
package evidence
