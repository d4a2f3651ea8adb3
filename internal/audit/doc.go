// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package audit holds the append-only security event log.
//
// A Log is an owned value: each security manager gets its own instance (or
// has one injected), so tests and embedders never share ambient state.
// Events are kept in memory in append order; a Sink can mirror every
// appended event to durable storage.
package audit
