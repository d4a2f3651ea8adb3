// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package bloom implements a fixed-size probabilistic membership filter.
//
// A Filter never reports a false negative for an item that was added since
// the last Reset. It may report false positives, so callers making an
// authorization decision must confirm a positive answer against an exact set.
package bloom
