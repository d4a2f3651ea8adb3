// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package security implements the trust core: certificate lifecycle, per
// principal key rotation with history, and classification based access
// control accelerated by a bloom filter. A Manager composes these parts and
// owns an injectable audit log.
//
// Every failure is a *Error carrying a Kind; compare with errors.Is against
// the Err* sentinels.
package security
