// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui groups the user interfaces of dextrust: the cobra command line
// in ui/cli and the interactive event browser in ui/tui.
package ui
