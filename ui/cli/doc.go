// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the dextrust command line using Cobra. Commands stay
// thin: they load configuration, open the evidence store and security
// manager, and delegate to internal packages.
package cli
